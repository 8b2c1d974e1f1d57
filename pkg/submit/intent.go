package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Intent is one logical create decision. Its key never changes.
type Intent struct {
	key string
	// sem serializes submissions of the same intent.
	sem chan struct{}

	attempts int
	payload  json.RawMessage
	created  bool
	result   any
}

// NewIntent draws a fresh random key.
func NewIntent() *Intent {
	return &Intent{key: uuid.NewString(), sem: make(chan struct{}, 1)}
}

// Key returns the idempotency key.
func (i *Intent) Key() string {
	return i.key
}

// Attempts returns the number of requests sent so far. Safe to call only when
// no Submit for this intent is running.
func (i *Intent) Attempts() int {
	return i.attempts
}

// Created reports whether the intent reached its terminal outcome.
func (i *Intent) Created() bool {
	return i.created
}

func (i *Intent) lock(ctx context.Context) error {
	select {
	case i.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *Intent) unlock() {
	<-i.sem
}

// bind records the payload of the first attempt and refuses a different one later.
func (i *Intent) bind(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("submit: encode payload: %w", err)
	}
	if i.payload == nil {
		i.payload = data
		return nil
	}
	if !bytes.Equal(i.payload, data) {
		return ErrPayloadChanged
	}
	return nil
}
