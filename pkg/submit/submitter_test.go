package submit_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
	"github.com/dmitrymomot/deskkit/pkg/submit"
)

// dedupServer creates at most one ticket per key and fails the first n calls in transit.
type dedupServer struct {
	mu        sync.Mutex
	keys      []string
	byKey     map[string]*apiclient.Ticket
	failFirst int
	err       error
}

func (s *dedupServer) Create(_ context.Context, key string, t apiclient.NewTicket) (*apiclient.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	if s.err != nil {
		return nil, s.err
	}
	if s.failFirst > 0 {
		s.failFirst--
		return nil, apiclient.NewError(http.StatusServiceUnavailable, "", "")
	}
	if s.byKey == nil {
		s.byKey = map[string]*apiclient.Ticket{}
	}
	if existing, ok := s.byKey[key]; ok {
		return existing, nil
	}
	tk := &apiclient.Ticket{ID: "t" + key[:4], Title: t.Title, Priority: t.Priority, Version: 1}
	s.byKey[key] = tk
	return tk, nil
}

func (s *dedupServer) sentKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

var ticket = apiclient.NewTicket{Title: "Printer jammed", Description: "Third floor", Priority: apiclient.PriorityHigh}

func newSubmitter(srv *dedupServer, opts ...submit.Option[apiclient.NewTicket, *apiclient.Ticket]) *submit.Submitter[apiclient.NewTicket, *apiclient.Ticket] {
	opts = append([]submit.Option[apiclient.NewTicket, *apiclient.Ticket]{
		submit.WithValidation[apiclient.NewTicket, *apiclient.Ticket](submit.ValidateTicket),
	}, opts...)
	return submit.New[apiclient.NewTicket, *apiclient.Ticket](srv, opts...)
}

func TestNewIntent(t *testing.T) {
	t.Parallel()

	a, b := submit.NewIntent(), submit.NewIntent()
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Len(t, a.Key(), 36)
	assert.False(t, a.Created())
	assert.Zero(t, a.Attempts())
}

func TestSubmitter_Submit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("transport failure replays once with the same key", func(t *testing.T) {
		t.Parallel()
		srv := &dedupServer{failFirst: 1}
		s := newSubmitter(srv)
		in := submit.NewIntent()

		res := s.Submit(ctx, in, ticket)
		require.Equal(t, submit.Created, res.Kind, res.Err)
		assert.Equal(t, 2, res.Attempts)
		assert.Equal(t, []string{in.Key(), in.Key()}, srv.sentKeys())
		assert.True(t, in.Created())
	})

	t.Run("two transport failures surface to the caller and a manual retry keeps the key", func(t *testing.T) {
		t.Parallel()
		srv := &dedupServer{failFirst: 2}
		s := newSubmitter(srv)
		in := submit.NewIntent()

		res := s.Submit(ctx, in, ticket)
		assert.Equal(t, submit.TransportFailure, res.Kind)
		assert.ErrorIs(t, res.Err, apiclient.ErrTransport)
		assert.Equal(t, 2, res.Attempts)
		assert.False(t, in.Created())

		res = s.Submit(ctx, in, ticket)
		require.Equal(t, submit.Created, res.Kind)
		keys := srv.sentKeys()
		require.Len(t, keys, 3)
		for _, k := range keys {
			assert.Equal(t, in.Key(), k)
		}
		assert.Equal(t, 3, in.Attempts())
	})

	t.Run("replay can be disabled", func(t *testing.T) {
		t.Parallel()
		srv := &dedupServer{failFirst: 1}
		s := newSubmitter(srv, submit.WithReplay[apiclient.NewTicket, *apiclient.Ticket](false))

		res := s.Submit(ctx, submit.NewIntent(), ticket)
		assert.Equal(t, submit.TransportFailure, res.Kind)
		assert.Equal(t, 1, res.Attempts)
	})

	t.Run("created intent is terminal", func(t *testing.T) {
		t.Parallel()
		srv := &dedupServer{}
		s := newSubmitter(srv)
		in := submit.NewIntent()

		first := s.Submit(ctx, in, ticket)
		require.Equal(t, submit.Created, first.Kind)

		again := s.Submit(ctx, in, ticket)
		assert.Equal(t, submit.Created, again.Kind)
		assert.True(t, again.Recorded)
		assert.Same(t, first.Entity, again.Entity)
		assert.Len(t, srv.sentKeys(), 1)
	})

	t.Run("separate intents create separate tickets", func(t *testing.T) {
		t.Parallel()
		srv := &dedupServer{}
		s := newSubmitter(srv)

		a := s.Submit(ctx, submit.NewIntent(), ticket)
		b := s.Submit(ctx, submit.NewIntent(), ticket)
		require.Equal(t, submit.Created, a.Kind)
		require.Equal(t, submit.Created, b.Kind)
		assert.NotEqual(t, a.Entity.ID, b.Entity.ID)
	})

	t.Run("local validation fails without a request", func(t *testing.T) {
		t.Parallel()
		srv := &dedupServer{}
		s := newSubmitter(srv)
		in := submit.NewIntent()

		res := s.Submit(ctx, in, apiclient.NewTicket{Title: " ", Priority: "urgent"})
		assert.Equal(t, submit.Rejected, res.Kind)
		assert.ErrorIs(t, res.Err, apiclient.ErrValidationFailed)
		assert.Empty(t, srv.sentKeys())

		res = s.Submit(ctx, in, ticket)
		assert.Equal(t, submit.Created, res.Kind, "fixing the input reuses the intent")
	})

	t.Run("changed payload is refused", func(t *testing.T) {
		t.Parallel()
		srv := &dedupServer{failFirst: 2}
		s := newSubmitter(srv)
		in := submit.NewIntent()

		require.Equal(t, submit.TransportFailure, s.Submit(ctx, in, ticket).Kind)
		changed := ticket
		changed.Title = "Other"
		res := s.Submit(ctx, in, changed)
		assert.Equal(t, submit.Rejected, res.Kind)
		assert.ErrorIs(t, res.Err, submit.ErrPayloadChanged)
	})

	t.Run("credential rejection calls the handler", func(t *testing.T) {
		t.Parallel()
		srv := &dedupServer{err: apiclient.NewError(http.StatusUnauthorized, "UNAUTHORIZED", "")}
		var rejected atomic.Int32
		s := newSubmitter(srv, submit.WithRejectionHandler[apiclient.NewTicket, *apiclient.Ticket](apiclient.RejectFunc(func(context.Context) {
			rejected.Add(1)
		})))

		res := s.Submit(ctx, submit.NewIntent(), ticket)
		assert.Equal(t, submit.Rejected, res.Kind)
		assert.Equal(t, "UNAUTHORIZED", res.Reason)
		assert.Equal(t, int32(1), rejected.Load())
		assert.Equal(t, 1, res.Attempts, "rejections are not replayed")
	})

	t.Run("nil intent", func(t *testing.T) {
		t.Parallel()
		res := newSubmitter(&dedupServer{}).Submit(ctx, nil, ticket)
		assert.ErrorIs(t, res.Err, submit.ErrNilIntent)
	})

	t.Run("cancelled context is suppressed and not replayed", func(t *testing.T) {
		t.Parallel()
		srv := &dedupServer{failFirst: 5}
		s := newSubmitter(srv)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		res := s.Submit(cctx, submit.NewIntent(), ticket)
		assert.True(t, res.Suppressed)
		assert.Equal(t, submit.TransportFailure, res.Kind)
	})
}

func TestSubmitter_ConcurrentClicks(t *testing.T) {
	t.Parallel()

	srv := &dedupServer{}
	s := newSubmitter(srv)
	in := submit.NewIntent()

	var wg sync.WaitGroup
	results := make([]submit.Result[*apiclient.Ticket], 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.Submit(context.Background(), in, ticket)
		}()
	}
	wg.Wait()

	assert.Len(t, srv.sentKeys(), 1)
	for _, r := range results {
		require.Equal(t, submit.Created, r.Kind)
		assert.Equal(t, results[0].Entity.ID, r.Entity.ID)
	}
}
