package secrets

import "errors"

var (
	ErrInvalidKey          = errors.New("invalid key: must be 32 bytes")
	ErrEmptyOrigin         = errors.New("origin must not be empty")
	ErrEncryptionFailed    = errors.New("encryption failed")
	ErrDecryptionFailed    = errors.New("decryption failed")
	ErrInvalidCiphertext   = errors.New("invalid ciphertext format")
	ErrKeyDerivationFailed = errors.New("key derivation failed")
)
