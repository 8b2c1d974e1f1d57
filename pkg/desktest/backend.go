package desktest

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
	"github.com/dmitrymomot/deskkit/pkg/identity"
	"github.com/dmitrymomot/deskkit/pkg/logger"
	"github.com/dmitrymomot/deskkit/pkg/requestid"
)

// Route names a handler for counting and fault injection, e.g. "PATCH /tickets/{id}".
type Route string

const (
	RouteLogin    Route = "POST /login"
	RouteRegister Route = "POST /register"
	RouteMe       Route = "GET /me"
	RouteList     Route = "GET /tickets"
	RouteBreached Route = "GET /tickets/breached"
	RouteGet      Route = "GET /tickets/{id}"
	RouteCreate   Route = "POST /tickets"
	RouteUpdate   Route = "PATCH /tickets/{id}"
	RouteComment  Route = "POST /tickets/{id}/comments"
	RouteAgents   Route = "GET /agents"
)

const (
	defaultLimit    = 10
	maxLimit        = 100
	maxCommentRunes = 1000
)

type fault struct {
	remaining   int
	status      int
	afterCommit bool
}

// Backend is the in-memory server state. All methods are safe for concurrent use.
type Backend struct {
	mu         sync.Mutex
	users      map[string]*user // by id
	byEmail    map[string]*user
	tokens     map[string]string // token -> user id
	tickets    map[string]*ticket
	order      []string          // ticket ids, oldest first
	idempotent map[string]string // user id + key -> ticket id
	calls      map[Route]int
	faults     map[Route]*fault
	now        func() time.Time
	logger     *slog.Logger
}

type Option func(*Backend)

// WithClock replaces time.Now for timestamps and SLA computation.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

func New(opts ...Option) *Backend {
	b := &Backend{
		users:      make(map[string]*user),
		byEmail:    make(map[string]*user),
		tokens:     make(map[string]string),
		tickets:    make(map[string]*ticket),
		idempotent: make(map[string]string),
		calls:      make(map[Route]int),
		faults:     make(map[Route]*fault),
		now:        time.Now,
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handler returns the chi router serving the REST API at its root.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(b.logRequests)

	r.Post("/login", b.route(RouteLogin, b.handleLogin))
	r.Post("/register", b.route(RouteRegister, b.handleRegister))

	r.Group(func(r chi.Router) {
		r.Use(b.authenticate)
		r.Get("/me", b.route(RouteMe, b.handleMe))
		r.Get("/agents", b.route(RouteAgents, b.handleAgents))
		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", b.route(RouteList, b.handleList))
			r.Post("/", b.route(RouteCreate, b.handleCreate))
			r.Get("/breached", b.route(RouteBreached, b.handleBreached))
			r.Get("/{id}", b.route(RouteGet, b.handleGet))
			r.Patch("/{id}", b.route(RouteUpdate, b.handleUpdate))
			r.Post("/{id}/comments", b.route(RouteComment, b.handleComment))
		})
	})
	return r
}

// Server starts an httptest server and returns the API base URL.
// The server is closed when the returned function is called.
func (b *Backend) Server() (baseURL string, closeFn func()) {
	srv := httptest.NewServer(b.Handler())
	return srv.URL, srv.Close
}

// AddUser registers a user and returns it with a fresh token.
func (b *Backend) AddUser(name, email, password string, role identity.Role) (apiclient.UserRef, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.addUserLocked(name, email, password, role)
	return *u.ref(), b.issueTokenLocked(u)
}

func (b *Backend) addUserLocked(name, email, password string, role identity.Role) *user {
	u := &user{ID: newID(), Name: name, Email: email, Password: password, Role: role}
	b.users[u.ID] = u
	b.byEmail[email] = u
	return u
}

func (b *Backend) issueTokenLocked(u *user) string {
	tok := uuid.NewString()
	b.tokens[tok] = u.ID
	return tok
}

// RevokeTokens invalidates every issued token, as a server-side expiry would.
func (b *Backend) RevokeTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.tokens)
}

// AddTicket stores a ticket owned by ownerEmail and returns it.
func (b *Backend) AddTicket(ownerEmail string, nt apiclient.NewTicket) (apiclient.Ticket, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.byEmail[ownerEmail]
	if !ok {
		return apiclient.Ticket{}, false
	}
	return b.createLocked(u, nt).Ticket, true
}

// Edit changes a ticket as another client would, bumping its version.
func (b *Backend) Edit(id string, fn func(t *apiclient.Ticket)) (apiclient.Ticket, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tickets[id]
	if !ok {
		return apiclient.Ticket{}, false
	}
	fn(&t.Ticket)
	t.Version++
	t.UpdatedAt = b.now()
	return t.Ticket, true
}

// Ticket returns the stored state of id.
func (b *Backend) Ticket(id string) (apiclient.Ticket, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tickets[id]
	if !ok {
		return apiclient.Ticket{}, false
	}
	return t.Ticket, true
}

// TicketCount returns the number of stored tickets.
func (b *Backend) TicketCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tickets)
}

// Calls returns how many requests reached route, faulted ones included.
func (b *Backend) Calls(route Route) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// FailNext makes the next n requests to route answer with status.
// With afterCommit the handler runs first and its response is thrown away.
func (b *Backend) FailNext(route Route, n, status int, afterCommit bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[route] = &fault{remaining: n, status: status, afterCommit: afterCommit}
}

func (b *Backend) takeFault(route Route) *fault {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[route]++
	f, ok := b.faults[route]
	if !ok || f.remaining <= 0 {
		return nil
	}
	f.remaining--
	cp := *f
	return &cp
}

// route wraps h with call counting and fault injection.
func (b *Backend) route(name Route, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := b.takeFault(name)
		if f == nil {
			h(w, r)
			return
		}
		if f.afterCommit {
			h(httptest.NewRecorder(), r)
		}
		writeError(w, f.status, "INJECTED_FAULT", "", http.StatusText(f.status))
	}
}

func (b *Backend) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := b.now()
		next.ServeHTTP(w, r)
		b.logger.DebugContext(r.Context(), "desktest request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration", b.now().Sub(start)),
		)
	})
}

type ctxUser struct{}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		h := r.Header.Get("Authorization")
		if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "", "missing bearer token")
			return
		}
		b.mu.Lock()
		uid, ok := b.tokens[h[len(prefix):]]
		u := b.users[uid]
		b.mu.Unlock()
		if !ok || u == nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "", "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUser{}, u)))
	})
}

func currentUser(r *http.Request) *user {
	u, _ := r.Context().Value(ctxUser{}).(*user)
	return u
}

func isAgent(u *user) bool {
	return u.Role == identity.RoleAgent || u.Role == identity.RoleAdmin
}

// visibleLocked lists tickets u may see, newest first.
func (b *Backend) visibleLocked(u *user) []*ticket {
	out := make([]*ticket, 0, len(b.order))
	for i := len(b.order) - 1; i >= 0; i-- {
		t := b.tickets[b.order[i]]
		if isAgent(u) || t.ownerID == u.ID {
			out = append(out, t)
		}
	}
	return out
}

func (b *Backend) createLocked(u *user, nt apiclient.NewTicket) *ticket {
	if nt.Priority == "" {
		nt.Priority = apiclient.PriorityMedium
	}
	now := b.now()
	due := slaFor(nt.Priority, now)
	t := &ticket{
		Ticket: apiclient.Ticket{
			ID:          newID(),
			Title:       nt.Title,
			Description: nt.Description,
			Status:      apiclient.StatusOpen,
			Priority:    nt.Priority,
			SLADue:      &due,
			User:        u.ref(),
			CreatedAt:   now,
			UpdatedAt:   now,
			Version:     1,
		},
		ownerID: u.ID,
	}
	t.activities = append(t.activities, apiclient.Activity{
		Action:    "created",
		Details:   apiclient.ActivityDetails{Message: "Ticket created"},
		User:      u.ref(),
		CreatedAt: now,
	})
	b.tickets[t.ID] = t
	b.order = append(b.order, t.ID)
	return t
}
