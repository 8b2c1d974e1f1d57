package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
	"github.com/dmitrymomot/deskkit/pkg/identity"
	"github.com/dmitrymomot/deskkit/pkg/requestid"
)

func newClient(t *testing.T, h http.HandlerFunc, opts ...apiclient.Option) *apiclient.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := apiclient.New(srv.URL+"/api", opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("rejects relative url", func(t *testing.T) {
		_, err := apiclient.New("/api")
		require.Error(t, err)
	})

	t.Run("rejects unsupported scheme", func(t *testing.T) {
		_, err := apiclient.New("ftp://example.com/api")
		require.Error(t, err)
	})

	t.Run("accepts trailing slash", func(t *testing.T) {
		c, err := apiclient.New("https://example.com/api/")
		require.NoError(t, err)
		assert.NotNil(t, c.Slot())
	})

	t.Run("timeout leaves a supplied http client untouched", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		t.Cleanup(srv.Close)

		hc := &http.Client{}
		c, err := apiclient.New(srv.URL, apiclient.WithHTTPClient(hc), apiclient.WithTimeout(20*time.Millisecond))
		require.NoError(t, err)

		_, err = c.Me(context.Background())
		assert.ErrorIs(t, err, apiclient.ErrTransport)
		assert.Zero(t, hc.Timeout)
	})
}

func TestClient_Headers(t *testing.T) {
	t.Parallel()

	t.Run("bearer and request id on credentialed calls", func(t *testing.T) {
		var got http.Header
		var path string
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Clone()
			path = r.URL.Path
			writeJSON(w, http.StatusOK, map[string]any{"_id": "u1", "email": "a@b.c", "role": "agent", "name": "Ann"})
		})
		c.Slot().Set(identity.Credential{Token: "tok-1"})

		ctx := requestid.WithContext(context.Background(), "req-42")
		snap, err := c.Me(ctx)
		require.NoError(t, err)

		assert.Equal(t, "/api/me", path)
		assert.Equal(t, "Bearer tok-1", got.Get("Authorization"))
		assert.Equal(t, "req-42", got.Get(requestid.Header))
		assert.Equal(t, "u1", snap.UserID)
		assert.Equal(t, identity.RoleAgent, snap.Role)
		assert.True(t, snap.IsAgent())
	})

	t.Run("no bearer when slot is empty", func(t *testing.T) {
		var auth, rid string
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			rid = r.Header.Get(requestid.Header)
			writeJSON(w, http.StatusOK, map[string]any{"items": []any{}, "next_offset": 0})
		})

		_, err := c.ListTickets(context.Background(), apiclient.ListParams{})
		require.NoError(t, err)
		assert.Empty(t, auth)
		assert.True(t, requestid.Valid(rid))
	})

	t.Run("login never sends the slot credential", func(t *testing.T) {
		var auth string
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			writeJSON(w, http.StatusOK, map[string]any{"token": "new", "email": "a@b.c", "role": "user", "name": "A"})
		})
		c.Slot().Set(identity.Credential{Token: "old"})

		resp, err := c.Login(context.Background(), "a@b.c", "pw")
		require.NoError(t, err)
		assert.Empty(t, auth)
		assert.Equal(t, "new", resp.Credential().Token)
		assert.Equal(t, identity.RoleUser, resp.Snapshot().Role)
	})
}

func TestClient_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		kind     apiclient.Kind
		reason   string
	}{
		{"unauthorized", 401, `{"error":{"code":"UNAUTHORIZED","message":"token expired"}}`, apiclient.ErrAuthInvalid, apiclient.KindAuthInvalid, "token expired"},
		{"forbidden", 403, `{"error":{"code":"FORBIDDEN"}}`, apiclient.ErrAuthorizationDenied, apiclient.KindAuthorizationDenied, "FORBIDDEN"},
		{"not found", 404, ``, apiclient.ErrNotFound, apiclient.KindNotFound, "Not Found"},
		{"conflict", 409, `{"error":{"code":"VERSION_CONFLICT","message":"stale"}}`, apiclient.ErrVersionConflict, apiclient.KindVersionConflict, "stale"},
		{"unprocessable", 422, `{"error":{"code":"VALIDATION","field":"title","message":"required"}}`, apiclient.ErrValidationFailed, apiclient.KindValidationFailed, "required"},
		{"bad request with text error", 400, `{"error":"bad input"}`, apiclient.ErrValidationFailed, apiclient.KindValidationFailed, "bad input"},
		{"server error", 502, `<html>`, apiclient.ErrTransport, apiclient.KindTransport, "Bad Gateway"},
		{"rate limited", 429, ``, apiclient.ErrTransport, apiclient.KindTransport, "Too Many Requests"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.GetTicket(context.Background(), "t1")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.kind, apiclient.KindOf(err))

			var apiErr *apiclient.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.reason, apiErr.Reason())
		})
	}

	t.Run("field is kept", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 422, map[string]any{"error": map[string]string{"code": "VALIDATION", "field": "message", "message": "too long"}})
		})
		_, err := c.AddComment(context.Background(), "t1", "x")
		var apiErr *apiclient.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "message", apiErr.Field)
	})
}

func TestClient_Transport(t *testing.T) {
	t.Parallel()

	t.Run("network failure is transport", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c, err := apiclient.New(url)
		require.NoError(t, err)
		_, err = c.Me(context.Background())
		assert.ErrorIs(t, err, apiclient.ErrTransport)
		assert.Equal(t, apiclient.KindTransport, apiclient.KindOf(err))
	})

	t.Run("undecodable body is transport", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, "{not json")
		})
		_, err := c.Agents(context.Background())
		assert.ErrorIs(t, err, apiclient.ErrTransport)
	})

	t.Run("cancelled context is not transport", func(t *testing.T) {
		release := make(chan struct{})
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := c.Me(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, apiclient.ErrTransport)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, apiclient.KindCanceled, apiclient.KindOf(err))
	})
}

func TestClient_Endpoints(t *testing.T) {
	t.Parallel()

	t.Run("list query parameters", func(t *testing.T) {
		var q map[string][]string
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			q = r.URL.Query()
			writeJSON(w, http.StatusOK, map[string]any{
				"items":       []map[string]any{{"_id": "t1", "title": "A", "version": 1}},
				"next_offset": 10,
			})
		})

		list, err := c.ListTickets(context.Background(), apiclient.ListParams{Limit: 10, Offset: 20, Query: "  printer ", Status: apiclient.StatusOpen})
		require.NoError(t, err)
		assert.Equal(t, []string{"10"}, q["limit"])
		assert.Equal(t, []string{"20"}, q["offset"])
		assert.Equal(t, []string{"printer"}, q["q"])
		assert.Equal(t, []string{"open"}, q["status"])
		require.Len(t, list.Items, 1)
		assert.Equal(t, 10, list.NextOffset)
		assert.Equal(t, int64(1), list.Items[0].Version)
	})

	t.Run("create carries idempotency key", func(t *testing.T) {
		var key, method string
		var body map[string]any
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			key = r.Header.Get(apiclient.IdempotencyHeader)
			method = r.Method
			_ = json.NewDecoder(r.Body).Decode(&body)
			writeJSON(w, http.StatusCreated, map[string]any{"_id": "t9", "title": body["title"], "version": 1})
		})

		tk, err := c.CreateTicket(context.Background(), "key-1", apiclient.NewTicket{Title: "A", Description: "B", Priority: apiclient.PriorityHigh})
		require.NoError(t, err)
		assert.Equal(t, http.MethodPost, method)
		assert.Equal(t, "key-1", key)
		assert.Equal(t, "high", body["priority"])
		assert.Equal(t, "t9", tk.ID)
	})

	t.Run("create requires key", func(t *testing.T) {
		var calls atomic.Int32
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })
		_, err := c.CreateTicket(context.Background(), "", apiclient.NewTicket{Title: "A"})
		assert.ErrorIs(t, err, apiclient.ErrValidationFailed)
		assert.Zero(t, calls.Load())
	})

	t.Run("update sends version verbatim and null values", func(t *testing.T) {
		var raw map[string]json.RawMessage
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "/api/tickets/t1", r.URL.Path)
			_ = json.NewDecoder(r.Body).Decode(&raw)
			writeJSON(w, http.StatusOK, map[string]any{"_id": "t1", "status": "resolved", "version": 4})
		})

		tk, err := c.UpdateTicket(context.Background(), "t1", 3, apiclient.Changes{"status": "resolved", "agent": nil})
		require.NoError(t, err)
		assert.JSONEq(t, "3", string(raw["version"]))
		assert.JSONEq(t, "null", string(raw["agent"]))
		assert.Equal(t, apiclient.StatusResolved, tk.Status)
		assert.Equal(t, int64(4), tk.Version)
	})

	t.Run("detail and breached", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/tickets/breached", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{{"_id": "t2"}}})
		})
		mux.HandleFunc("/api/tickets/t1", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"ticket":     map[string]any{"_id": "t1", "version": 2},
				"comments":   []map[string]any{{"_id": "c1", "message": "hi"}},
				"activities": []map[string]any{{"action": "status_changed", "details": map[string]any{"field": "status", "oldValue": "open", "newValue": "in_progress"}}},
			})
		})
		c := newClient(t, mux.ServeHTTP)

		d, err := c.GetTicket(context.Background(), "t1")
		require.NoError(t, err)
		assert.Equal(t, "t1", d.Ticket.ID)
		require.Len(t, d.Comments, 1)
		require.Len(t, d.Activities, 1)
		assert.Equal(t, "status", d.Activities[0].Details.Field)

		b, err := c.BreachedTickets(context.Background())
		require.NoError(t, err)
		require.Len(t, b, 1)
		assert.Equal(t, "t2", b[0].ID)
	})
}

func TestTicket_Breached(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&apiclient.Ticket{Status: apiclient.StatusOpen, SLADue: &past}).Breached(now))
	assert.False(t, (&apiclient.Ticket{Status: apiclient.StatusOpen, SLADue: &future}).Breached(now))
	assert.False(t, (&apiclient.Ticket{Status: apiclient.StatusResolved, SLADue: &past}).Breached(now))
	assert.False(t, (&apiclient.Ticket{Status: apiclient.StatusOpen}).Breached(now))
}

func TestCredentialSlot(t *testing.T) {
	t.Parallel()

	s := apiclient.NewCredentialSlot()
	_, err := s.Token()
	assert.ErrorIs(t, err, apiclient.ErrNoCredential)

	s.Set(identity.Credential{Token: "abc"})
	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type())

	s.Clear()
	_, ok := s.Current()
	assert.False(t, ok)
}
