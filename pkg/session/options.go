package session

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
	"github.com/dmitrymomot/deskkit/pkg/credstore"
)

// Option configures a Manager.
type Option func(*Manager)

// WithStore sets the durable store. Defaults to an in-memory store.
func WithStore(s credstore.Store) Option {
	return func(m *Manager) {
		if s != nil {
			m.store = s
		}
	}
}

// WithCredentialSlot shares the slot read by API clients.
func WithCredentialSlot(s *apiclient.CredentialSlot) Option {
	return func(m *Manager) {
		if s != nil {
			m.slot = s
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithValidationTimeout bounds the background /me call.
func WithValidationTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.validationTimeout = d
		}
	}
}
