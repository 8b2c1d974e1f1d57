package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/deskkit/internal/cli"
	"github.com/dmitrymomot/deskkit/pkg/apiclient"
	"github.com/dmitrymomot/deskkit/pkg/desktest"
	"github.com/dmitrymomot/deskkit/pkg/identity"
)

type harness struct {
	backend *desktest.Backend
	base    []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := desktest.New()
	url, closeFn := b.Server()
	t.Cleanup(closeFn)
	return &harness{
		backend: b,
		base:    []string{"--api-url", url, "--store", "file", "--store-path", filepath.Join(t.TempDir(), "session.json")},
	}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := cli.Execute(context.Background(), append(append([]string{}, h.base...), args...), &stdout, &stderr)
	return stdout.String(), err
}

func TestDeskctl_Session(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.backend.AddUser("Ann", "ann@example.com", "pw", identity.RoleAgent)

	_, err := h.run(t, "whoami")
	require.Error(t, err)

	out, err := h.run(t, "login", "--email", "ann@example.com", "--password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "ann@example.com")

	out, err = h.run(t, "whoami", "-o", "json")
	require.NoError(t, err)
	var who map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &who))
	assert.Equal(t, "authenticated", who["state"])
	assert.Equal(t, true, who["confirmed"])
	assert.Equal(t, 1, h.backend.Calls(desktest.RouteMe))

	_, err = h.run(t, "logout")
	require.NoError(t, err)
	_, err = h.run(t, "whoami")
	require.Error(t, err)
}

func TestDeskctl_Tickets(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.backend.AddUser("Ann", "ann@example.com", "pw", identity.RoleAgent)
	tk, _ := h.backend.AddTicket("ann@example.com", apiclient.NewTicket{Title: "VPN drops", Description: "hourly"})
	_, err := h.run(t, "login", "--email", "ann@example.com", "--password", "pw")
	require.NoError(t, err)

	t.Run("list as yaml", func(t *testing.T) {
		out, err := h.run(t, "tickets", "-o", "yaml")
		require.NoError(t, err)
		var items []map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(out), &items))
		require.Len(t, items, 1)
		assert.Equal(t, tk.ID, items[0]["_id"])
	})

	t.Run("list as table", func(t *testing.T) {
		out, err := h.run(t, "tickets", "--status", "open")
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`ID\s+TITLE\s+STATUS`), out)
		assert.Contains(t, out, "VPN drops")
	})

	t.Run("stale update reports conflict", func(t *testing.T) {
		h.backend.Edit(tk.ID, func(*apiclient.Ticket) {})
		_, err := h.run(t, "ticket", "update", tk.ID, "--version", "1", "--status", "closed")
		require.ErrorIs(t, err, apiclient.ErrVersionConflict)

		out, err := h.run(t, "ticket", "update", tk.ID, "--version", "2", "--status", "closed", "-o", "json")
		require.NoError(t, err)
		var got apiclient.Ticket
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, int64(3), got.Version)
		assert.Equal(t, apiclient.StatusClosed, got.Status)
	})

	t.Run("create and comment", func(t *testing.T) {
		out, err := h.run(t, "ticket", "create", "--title", "Printer", "--description", "jammed", "-o", "json")
		require.NoError(t, err)
		var created apiclient.Ticket
		require.NoError(t, json.Unmarshal([]byte(out), &created))
		assert.Equal(t, apiclient.PriorityMedium, created.Priority)

		out, err = h.run(t, "ticket", "comment", created.ID, "on", "it")
		require.NoError(t, err)
		assert.Contains(t, out, "on it")
	})

	t.Run("unknown output format", func(t *testing.T) {
		_, err := h.run(t, "tickets", "-o", "xml")
		require.Error(t, err)
	})
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDeskctl_Sandbox(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout, stderr syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- cli.Execute(ctx, []string{"sandbox", "--addr", "127.0.0.1:0", "--store", "memory"}, &stdout, &stderr)
	}()

	urlPattern := regexp.MustCompile(`http://\S+/api`)
	require.Eventually(t, func() bool { return urlPattern.MatchString(stdout.String()) }, 2*time.Second, 10*time.Millisecond)
	url := urlPattern.FindString(stdout.String())

	h := &harness{base: []string{"--api-url", url, "--store", "memory"}}
	out, err := h.run(t, "login", "--email", "admin@desk.local", "--password", "desk", "-o", "json")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, `"admin"`))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		require.Fail(t, "sandbox did not stop")
	}
}
