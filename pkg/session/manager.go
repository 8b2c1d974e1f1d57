package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
	"github.com/dmitrymomot/deskkit/pkg/async"
	"github.com/dmitrymomot/deskkit/pkg/broadcast"
	"github.com/dmitrymomot/deskkit/pkg/credstore"
	"github.com/dmitrymomot/deskkit/pkg/identity"
	"github.com/dmitrymomot/deskkit/pkg/logger"
	"github.com/dmitrymomot/deskkit/pkg/statemachine"
)

const (
	defaultValidationTimeout = 15 * time.Second
	teardownTimeout          = 5 * time.Second
)

// Manager owns the credential and identity of one client.
// All methods are safe for concurrent use.
type Manager struct {
	validator         Validator
	store             credstore.Store
	slot              *apiclient.CredentialSlot
	logger            *slog.Logger
	validationTimeout time.Duration

	machine *statemachine.Machine[State, event]
	feed    *broadcast.Feed[Change]

	mu         sync.RWMutex
	booting    bool
	closed     bool
	generation uint64
	cred       identity.Credential
	snap       *identity.Snapshot
	confirmed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a manager that validates credentials with v.
func New(v Validator, opts ...Option) *Manager {
	if v == nil {
		panic("session: validator is required")
	}

	m := &Manager{
		validator:         v,
		validationTimeout: defaultValidationTimeout,
		logger:            logger.Discard(),
		feed:              broadcast.NewFeed[Change](),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = credstore.NewMemoryStore()
	}
	if m.slot == nil {
		m.slot = apiclient.NewCredentialSlot()
	}
	m.logger = m.logger.With(logger.Component("session"))
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.machine = newMachine(m.logTransition)
	m.feed.Publish(m.changeLocked())

	return m
}

// Boot loads the persisted credential and resolves or starts resolving the session.
// It does not wait for the server; use Wait for that.
func (m *Manager) Boot(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.booting || m.machine.Current() != Unresolved {
		m.mu.Unlock()
		return ErrAlreadyBooted
	}
	m.booting = true
	gen := m.generation
	m.mu.Unlock()

	rec, loadErr := m.store.Load(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.booting = false

	if m.closed {
		return ErrClosed
	}
	if gen != m.generation {
		// Login or Logout ran while the store was being read; it wins.
		m.logger.DebugContext(ctx, "boot superseded", logger.Generation(m.generation))
		return nil
	}

	switch {
	case errors.Is(loadErr, credstore.ErrNotFound), loadErr == nil && rec == nil:
		m.fire(ctx, evBootEmpty)
		return nil
	case errors.Is(loadErr, credstore.ErrCorrupt):
		m.logger.WarnContext(ctx, "discarding unreadable credential record", logger.Error(loadErr))
		if err := m.store.Clear(ctx); err != nil {
			m.logger.WarnContext(ctx, "failed to clear credential record", logger.Error(err))
		}
		m.fire(ctx, evBootEmpty)
		return nil
	case loadErr != nil:
		m.fire(ctx, evBootEmpty)
		return fmt.Errorf("session: load credential: %w", loadErr)
	}

	m.cred = rec.Credential
	m.snap = rec.Snapshot.Clone()
	m.confirmed = false
	m.slot.Set(m.cred)

	if m.snap != nil {
		m.fire(ctx, evBootCached)
	} else {
		m.fire(ctx, evBootBare)
	}
	m.startValidationLocked(ctx, gen)
	return nil
}

// startValidationLocked issues GET /me tagged with gen.
func (m *Manager) startValidationLocked(ctx context.Context, gen uint64) {
	vctx, cancel := context.WithTimeout(m.ctx, m.validationTimeout)
	f := async.Go(vctx, m.validator.Me)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		snap, err := f.Await(context.Background())
		m.finishValidation(gen, snap, err)
	}()

	m.logger.DebugContext(ctx, "credential validation started", logger.Generation(gen))
}

func (m *Manager) finishValidation(gen uint64, snap *identity.Snapshot, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx := context.Background()
	if m.closed || gen != m.generation {
		m.logger.DebugContext(ctx, "stale validation result discarded",
			logger.Generation(gen), slog.Uint64("current_generation", m.generation))
		return
	}
	if err == nil && snap == nil {
		err = ErrValidationFailed
	}

	if err != nil {
		m.logger.WarnContext(ctx, "credential validation failed, signing out",
			logger.Error(err), slog.String("kind", apiclient.KindOf(err).String()))
		tctx, cancel := context.WithTimeout(ctx, teardownTimeout)
		defer cancel()
		if cerr := m.teardownLocked(tctx, evInvalidated); cerr != nil {
			m.logger.WarnContext(ctx, "failed to clear credential record", logger.Error(cerr))
		}
		return
	}

	m.snap = snap.Clone()
	m.confirmed = true
	sctx, cancel := context.WithTimeout(ctx, teardownTimeout)
	defer cancel()
	if serr := m.store.Save(sctx, &credstore.Record{Credential: m.cred, Snapshot: m.snap}); serr != nil {
		m.logger.WarnContext(ctx, "failed to persist confirmed identity", logger.Error(serr))
	}
	m.fire(ctx, evValidated)
}

// Login installs a credential obtained from an external authentication call.
// snap may be nil. The server is not contacted.
func (m *Manager) Login(ctx context.Context, cred identity.Credential, snap *identity.Snapshot) error {
	if cred.IsZero() {
		return ErrNoCredential
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	if err := m.store.Save(ctx, &credstore.Record{Credential: cred, Snapshot: snap.Clone()}); err != nil {
		return fmt.Errorf("session: persist credential: %w", err)
	}

	m.generation++
	m.cred = cred
	m.snap = snap.Clone()
	m.confirmed = false
	m.slot.Set(cred)
	m.fire(ctx, evLogin)
	return nil
}

// Logout forgets the credential and identity in memory and in the store. It is idempotent.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return m.teardownLocked(ctx, evLogout)
}

// CredentialRejected reports that the server refused the current credential.
// It has the effect of Logout.
func (m *Manager) CredentialRejected(ctx context.Context) {
	m.CredentialRejectedAt(ctx, m.Generation())
}

// CredentialRejectedAt reports a refusal of a request sent while the session
// was at generation gen. A refusal from an older generation is ignored: the
// credential it refers to has already been replaced or removed. Otherwise it
// has the effect of Logout.
func (m *Manager) CredentialRejectedAt(ctx context.Context, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if gen != m.generation {
		m.logger.DebugContext(ctx, "ignoring refusal of a replaced credential",
			logger.Generation(gen), slog.Uint64("current_generation", m.generation))
		return
	}
	m.logger.InfoContext(ctx, "credential rejected by server")
	if err := m.teardownLocked(ctx, evLogout); err != nil {
		m.logger.WarnContext(ctx, "failed to clear credential record", logger.Error(err))
	}
}

var _ apiclient.Rejecter = (*Manager)(nil)

func (m *Manager) teardownLocked(ctx context.Context, ev event) error {
	wasSignedIn := !m.cred.IsZero() || m.snap != nil
	prev := m.machine.Current()

	m.generation++
	m.cred = identity.Credential{}
	m.snap = nil
	m.confirmed = false
	m.slot.Clear()

	var storeErr error
	if err := m.store.Clear(ctx); err != nil {
		storeErr = fmt.Errorf("session: clear credential: %w", err)
	}

	if prev == Anonymous && !wasSignedIn {
		return storeErr
	}
	m.fire(ctx, ev)
	return storeErr
}

// fire applies ev and publishes the resulting change. Caller holds m.mu.
func (m *Manager) fire(ctx context.Context, ev event) {
	if _, err := m.machine.Fire(ctx, ev, nil); err != nil {
		m.logger.ErrorContext(ctx, "unexpected session transition", logger.Error(err))
		return
	}
	m.feed.Publish(m.changeLocked())
}

func (m *Manager) logTransition(ctx context.Context, from, to State, ev event) {
	m.logger.DebugContext(ctx, "session state changed",
		slog.String("from", from.String()),
		logger.SessionState(to.String()),
		slog.String("event", string(ev)),
	)
}

func (m *Manager) changeLocked() Change {
	c := Change{State: m.machine.Current(), Generation: m.generation}
	if id, ok := m.identityLocked(); ok {
		c.Identity = &id
	}
	return c
}

func (m *Manager) identityLocked() (Identity, bool) {
	if m.snap == nil {
		return Identity{}, false
	}
	return Identity{Snapshot: *m.snap, Confirmed: m.confirmed}, true
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return m.machine.Current()
}

// Generation returns the counter bumped by every Login, Logout and teardown.
func (m *Manager) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// Identity returns the current identity, stale or confirmed.
func (m *Manager) Identity() (Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identityLocked()
}

// IsAuthenticated reports whether a credential is held and an identity may be shown.
// A stale identity being validated counts.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticatedLocked()
}

func (m *Manager) authenticatedLocked() bool {
	if m.cred.IsZero() {
		return false
	}
	switch m.machine.Current() {
	case Authenticated, Validating:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether the current identity has the admin role.
func (m *Manager) IsAdmin() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticatedLocked() && m.snap.IsAdmin()
}

// IsAgent is true for agents and admins.
func (m *Manager) IsAgent() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticatedLocked() && m.snap.IsAgent()
}

// IsUser reports whether the current identity is a plain requester.
func (m *Manager) IsUser() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticatedLocked() && m.snap.IsUser()
}

// Subscribe returns a feed of changes bound to ctx. The current state is delivered first.
func (m *Manager) Subscribe(ctx context.Context) *broadcast.Subscription[Change] {
	return m.feed.Subscribe(ctx)
}

// Wait blocks until the session is Authenticated or Anonymous.
func (m *Manager) Wait(ctx context.Context) (State, error) {
	sub := m.feed.Subscribe(ctx)
	defer sub.Close()

	for {
		select {
		case c, ok := <-sub.C():
			if !ok {
				if err := ctx.Err(); err != nil {
					return m.State(), err
				}
				return m.State(), ErrClosed
			}
			if c.State.Resolved() {
				return c.State, nil
			}
		case <-ctx.Done():
			return m.State(), ctx.Err()
		}
	}
}

// Close stops background validation and ends all subscriptions. Persisted state is kept.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.cancel()
	m.mu.Unlock()

	m.wg.Wait()
	return m.feed.Close()
}
