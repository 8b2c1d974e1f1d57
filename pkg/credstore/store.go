package credstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmitrymomot/deskkit/pkg/identity"
	"github.com/dmitrymomot/deskkit/pkg/secrets"
)

// Record is what survives a restart: the credential and, optionally, the last
// snapshot seen for it.
type Record struct {
	Credential identity.Credential `json:"credential"`
	Snapshot   *identity.Snapshot  `json:"snapshot,omitempty"`
}

func (r *Record) validate() error {
	if r == nil || r.Credential.IsZero() {
		return ErrInvalidRecord
	}
	return nil
}

func (r *Record) clone() *Record {
	return &Record{Credential: r.Credential, Snapshot: r.Snapshot.Clone()}
}

// Store defines durable, origin-scoped credential persistence.
type Store interface {
	// Load returns the persisted record or ErrNotFound.
	Load(ctx context.Context) (*Record, error)
	// Save replaces the persisted record.
	Save(ctx context.Context, rec *Record) error
	// Clear removes the record. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// codec turns records into bytes, sealing them when a Sealer is configured.
type codec struct {
	sealer *secrets.Sealer
}

func (c codec) encode(rec *Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if c.sealer == nil {
		return data, nil
	}
	return c.sealer.Seal(data)
}

func (c codec) decode(data []byte) (*Record, error) {
	if c.sealer != nil {
		plain, err := c.sealer.Open(data)
		if err != nil {
			return nil, errors.Join(ErrCorrupt, err)
		}
		data = plain
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}
	if err := rec.validate(); err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}
	return &rec, nil
}
