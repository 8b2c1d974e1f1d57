package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrymomot/deskkit/pkg/secrets"
)

// FileStore keeps records for several origins in one JSON file.
type FileStore struct {
	path   string
	origin string
	codec  codec
	mu     sync.Mutex
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFileSealer encrypts records written by the store.
func WithFileSealer(s *secrets.Sealer) FileOption {
	return func(f *FileStore) { f.codec.sealer = s }
}

// NewFileStore returns a store persisting the record for origin at path.
func NewFileStore(path, origin string, opts ...FileOption) *FileStore {
	f := &FileStore{path: path, origin: origin}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// fileEntry holds either a plain JSON record or a sealed blob (base64 via []byte).
type fileEntry struct {
	Record *json.RawMessage `json:"record,omitempty"`
	Sealed []byte           `json:"sealed,omitempty"`
}

func (f *FileStore) Load(ctx context.Context) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return nil, err
	}
	e, ok := entries[f.origin]
	if !ok {
		return nil, ErrNotFound
	}
	switch {
	case e.Sealed != nil:
		return f.codec.decode(e.Sealed)
	case e.Record != nil && f.codec.sealer == nil:
		return f.codec.decode(*e.Record)
	default:
		// Plain record while sealing is required, or an empty entry.
		return nil, ErrCorrupt
	}
}

func (f *FileStore) Save(ctx context.Context, rec *Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	data, err := f.codec.encode(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil && !errors.Is(err, ErrCorrupt) {
		return err
	}
	if entries == nil {
		entries = make(map[string]fileEntry)
	}
	if f.codec.sealer != nil {
		entries[f.origin] = fileEntry{Sealed: data}
	} else {
		raw := json.RawMessage(data)
		entries[f.origin] = fileEntry{Record: &raw}
	}
	return f.write(entries)
}

func (f *FileStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if errors.Is(err, ErrCorrupt) {
		// Nothing trustworthy to keep for other origins either.
		return removeIfExists(f.path)
	}
	if err != nil {
		return err
	}
	if _, ok := entries[f.origin]; !ok {
		return nil
	}
	delete(entries, f.origin)
	if len(entries) == 0 {
		return removeIfExists(f.path)
	}
	return f.write(entries)
}

// read returns an empty map when the file does not exist.
func (f *FileStore) read() (map[string]fileEntry, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]fileEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	entries := make(map[string]fileEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}
	return entries, nil
}

// write replaces the file atomically.
func (f *FileStore) write(entries map[string]fileEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
