package logger

import (
	"log/slog"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// EntityID records the id of a server-held entity under the key "entity_id".
func EntityID(id string) slog.Attr {
	return slog.String("entity_id", id)
}

// Version records an optimistic-concurrency version under the key "version".
func Version(v int64) slog.Attr {
	return slog.Int64("version", v)
}

// IntentKey records an idempotency key under the key "intent_key".
func IntentKey(key string) slog.Attr {
	return slog.String("intent_key", key)
}

// SessionState records a session state name under the key "session_state".
func SessionState(state string) slog.Attr {
	return slog.String("session_state", state)
}

// Generation records a session generation counter under the key "generation".
func Generation(gen uint64) slog.Attr {
	return slog.Uint64("generation", gen)
}

// Outcome records the terminal outcome of an operation under the key "outcome".
func Outcome(name string) slog.Attr {
	return slog.String("outcome", name)
}

// Cursor records a pagination cursor under the key "cursor".
func Cursor(c int) slog.Attr {
	return slog.Int("cursor", c)
}
