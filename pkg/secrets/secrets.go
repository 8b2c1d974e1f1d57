package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required device key size (AES-256).
	KeySize = 32

	hkdfInfo = "deskkit-credential-v1"
)

// Sealer encrypts and decrypts records bound to one origin.
type Sealer struct {
	aead   cipher.AEAD
	origin []byte
}

// NewSealer derives the origin key from deviceKey.
func NewSealer(deviceKey []byte, origin string) (*Sealer, error) {
	if len(deviceKey) != KeySize {
		return nil, ErrInvalidKey
	}
	if origin == "" {
		return nil, ErrEmptyOrigin
	}

	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, deviceKey, []byte(origin), []byte(hkdfInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return &Sealer{aead: aead, origin: []byte(origin)}, nil
}

// Seal returns nonce || ciphertext || tag.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, s.origin), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}
	plaintext, err := s.aead.Open(nil, sealed[:n], sealed[n:], s.origin)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// GenerateKey creates a random device key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}
