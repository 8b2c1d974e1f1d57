package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrymomot/deskkit/pkg/identity"
)

// Login exchanges an email and password for a credential. It does not read the slot.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/login",
		body:   map[string]string{"email": email, "password": password},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. It does not sign in; call Login afterwards.
func (c *Client) Register(ctx context.Context, r Registration) (*UserRef, error) {
	var out UserRef
	if err := c.do(ctx, request{method: http.MethodPost, path: "/register", body: r}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me validates the current credential and returns the authoritative identity.
func (c *Client) Me(ctx context.Context) (*identity.Snapshot, error) {
	var out UserRef
	if err := c.do(ctx, request{method: http.MethodGet, path: "/me", credentials: true}, &out); err != nil {
		return nil, err
	}
	return out.Snapshot(), nil
}

// ListTickets returns one page of tickets visible to the caller.
func (c *Client) ListTickets(ctx context.Context, p ListParams) (*TicketList, error) {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	if s := strings.TrimSpace(p.Query); s != "" {
		q.Set("q", s)
	}
	if p.Status != "" {
		q.Set("status", string(p.Status))
	}

	var out TicketList
	if err := c.do(ctx, request{method: http.MethodGet, path: "/tickets", query: q, credentials: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BreachedTickets lists tickets past their SLA due date.
func (c *Client) BreachedTickets(ctx context.Context) ([]Ticket, error) {
	var out struct {
		Items []Ticket `json:"items"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/tickets/breached", credentials: true}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetTicket returns a ticket with its comments and activity timeline.
func (c *Client) GetTicket(ctx context.Context, id string) (*TicketDetail, error) {
	if id == "" {
		return nil, NewValidationError("id", "ticket id is required")
	}
	var out TicketDetail
	if err := c.do(ctx, request{method: http.MethodGet, path: "/tickets/" + url.PathEscape(id), credentials: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTicket submits a new ticket under the idempotency key.
// The server returns the previously created ticket when key was already used.
func (c *Client) CreateTicket(ctx context.Context, key string, t NewTicket) (*Ticket, error) {
	if key == "" {
		return nil, NewValidationError("idempotency_key", "idempotency key is required")
	}
	var out Ticket
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/tickets",
		body:        t,
		header:      http.Header{IdempotencyHeader: []string{key}},
		credentials: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTicket applies changes guarded by version. The version is sent as given;
// a stale one yields ErrVersionConflict.
func (c *Client) UpdateTicket(ctx context.Context, id string, version int64, changes Changes) (*Ticket, error) {
	if id == "" {
		return nil, NewValidationError("id", "ticket id is required")
	}
	body := make(map[string]any, len(changes)+1)
	for k, v := range changes {
		body[k] = v
	}
	body["version"] = version

	var out Ticket
	err := c.do(ctx, request{
		method:      http.MethodPatch,
		path:        "/tickets/" + url.PathEscape(id),
		body:        body,
		credentials: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AddComment posts a comment on a ticket.
func (c *Client) AddComment(ctx context.Context, ticketID, message string) (*Comment, error) {
	if ticketID == "" {
		return nil, NewValidationError("id", "ticket id is required")
	}
	var out Comment
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/tickets/" + url.PathEscape(ticketID) + "/comments",
		body:        map[string]string{"message": message},
		credentials: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Agents returns the assignment directory.
func (c *Client) Agents(ctx context.Context) ([]Agent, error) {
	var out []Agent
	if err := c.do(ctx, request{method: http.MethodGet, path: "/agents", credentials: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
