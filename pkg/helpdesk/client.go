package helpdesk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
	"github.com/dmitrymomot/deskkit/pkg/cache"
	"github.com/dmitrymomot/deskkit/pkg/identity"
	"github.com/dmitrymomot/deskkit/pkg/logger"
	"github.com/dmitrymomot/deskkit/pkg/mutation"
	"github.com/dmitrymomot/deskkit/pkg/pager"
	"github.com/dmitrymomot/deskkit/pkg/session"
	"github.com/dmitrymomot/deskkit/pkg/submit"
	"github.com/dmitrymomot/deskkit/pkg/validator"
)

// Client is the helpdesk client used by a presentation layer.
type Client struct {
	api     *apiclient.Client
	session *session.Manager
	updates *mutation.Coordinator[*apiclient.Ticket]
	creates *submit.Submitter[apiclient.NewTicket, *apiclient.Ticket]
	tickets *pager.Pager[apiclient.Ticket]
	details *cache.LRU[string, *apiclient.TicketDetail]
	logger  *slog.Logger

	stop     context.CancelFunc
	watching sync.WaitGroup
}

// New builds a client for the API rooted at baseURL. Call Boot before use.
func New(baseURL string, opts ...Option) (*Client, error) {
	o := options{
		logger:    logger.Discard(),
		cacheSize: DefaultDetailCacheSize,
		cacheTTL:  DefaultDetailTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Discard()
	}
	if o.cacheSize <= 0 {
		o.cacheSize = DefaultDetailCacheSize
	}

	slot := apiclient.NewCredentialSlot()
	api, err := apiclient.New(baseURL,
		apiclient.WithCredentialSlot(slot),
		apiclient.WithHTTPClient(o.httpClient),
		apiclient.WithTimeout(o.timeout),
		apiclient.WithLogger(o.logger),
		apiclient.WithUserAgent(o.userAgent),
	)
	if err != nil {
		return nil, fmt.Errorf("helpdesk: %w", err)
	}

	c := &Client{
		api:    api,
		logger: o.logger.With(logger.Component("helpdesk")),
	}
	c.session = session.New(api,
		session.WithStore(o.store),
		session.WithCredentialSlot(slot),
		session.WithLogger(o.logger),
		session.WithValidationTimeout(o.validateTTL),
	)
	c.details = cache.NewLRU[string, *apiclient.TicketDetail](o.cacheSize,
		cache.WithTTL[string, *apiclient.TicketDetail](o.cacheTTL),
	)
	c.updates = mutation.New[*apiclient.Ticket](
		mutation.PatchFunc[*apiclient.Ticket](api.UpdateTicket),
		mutation.WithRejectionHandler[*apiclient.Ticket](c.session),
		mutation.WithLogger[*apiclient.Ticket](o.logger),
	)
	c.creates = submit.NewTicketSubmitter(api,
		submit.WithRejectionHandler[apiclient.NewTicket, *apiclient.Ticket](c.session),
		submit.WithLogger[apiclient.NewTicket, *apiclient.Ticket](o.logger),
	)
	c.tickets = pager.New(pager.Tickets(api),
		pager.WithPageSize[apiclient.Ticket](o.pageSize),
		pager.WithRejectionHandler[apiclient.Ticket](c.session),
		pager.WithLogger[apiclient.Ticket](o.logger),
	)

	ctx, cancel := context.WithCancel(context.Background())
	c.stop = cancel
	sub := c.session.Subscribe(ctx)
	c.watching.Add(1)
	go c.watchSession(sub.C())
	return c, nil
}

// watchSession drops projections whenever the session generation moves,
// that is on every sign-in and sign-out.
func (c *Client) watchSession(changes <-chan session.Change) {
	defer c.watching.Done()
	var gen uint64
	for ch := range changes {
		if ch.Generation != gen || ch.State == session.Anonymous {
			c.details.Purge()
		}
		gen = ch.Generation
	}
}

// Boot resolves the session from storage. See session.Manager.Boot.
func (c *Client) Boot(ctx context.Context) error {
	return c.session.Boot(ctx)
}

// Session returns the session manager shared by every call of c.
func (c *Client) Session() *session.Manager { return c.session }

// API returns the underlying REST client.
func (c *Client) API() *apiclient.Client { return c.api }

// Pager returns the ticket pager, for callers that walk every page.
func (c *Client) Pager() *pager.Pager[apiclient.Ticket] { return c.tickets }

// Close stops background work. Safe to call more than once.
func (c *Client) Close() error {
	c.stop()
	err := c.session.Close()
	c.watching.Wait()
	return err
}

// SignIn exchanges credentials and starts an authenticated session.
// A refused login leaves the current session untouched.
func (c *Client) SignIn(ctx context.Context, email, password string) (*identity.Snapshot, error) {
	err := validator.Apply(
		validator.Email("email", strings.TrimSpace(email)),
		validator.Required("password", password),
	)
	if err != nil {
		return nil, errors.Join(apiclient.ErrValidationFailed, err)
	}

	resp, err := c.api.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	snap := resp.Snapshot()
	if err := c.session.Login(ctx, resp.Credential(), snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// SignOut ends the session. Idempotent.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.session.Logout(ctx)
	c.details.Purge()
	return err
}

// Register creates an account. It does not sign in.
func (c *Client) Register(ctx context.Context, r apiclient.Registration) (*apiclient.UserRef, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	err := validator.Apply(
		validator.Required("name", r.Name),
		validator.Email("email", r.Email),
		validator.Required("password", r.Password),
	)
	if err != nil {
		return nil, errors.Join(apiclient.ErrValidationFailed, err)
	}
	return c.api.Register(ctx, r)
}

// escalate signs the session out when err says the credential was refused.
// gen is the session generation read before the request was sent.
func (c *Client) escalate(ctx context.Context, gen uint64, err error) error {
	if err != nil && errors.Is(err, apiclient.ErrAuthInvalid) {
		c.session.CredentialRejectedAt(context.WithoutCancel(ctx), gen)
	}
	return err
}

func (c *Client) requireSession() error {
	if !c.session.IsAuthenticated() {
		return ErrNotSignedIn
	}
	return nil
}
