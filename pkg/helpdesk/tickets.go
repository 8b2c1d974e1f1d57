package helpdesk

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
	"github.com/dmitrymomot/deskkit/pkg/async"
	"github.com/dmitrymomot/deskkit/pkg/logger"
	"github.com/dmitrymomot/deskkit/pkg/mutation"
	"github.com/dmitrymomot/deskkit/pkg/pager"
	"github.com/dmitrymomot/deskkit/pkg/submit"
	"github.com/dmitrymomot/deskkit/pkg/validator"
)

const MaxCommentLength = 1000

// Tickets returns a fresh list accumulator for f. Call More to load pages.
func (c *Client) Tickets(f pager.Filter) *pager.List[apiclient.Ticket] {
	return c.tickets.NewList(f)
}

// Ticket fetches a ticket with comments and timeline and stores the projection.
func (c *Client) Ticket(ctx context.Context, id string) (*apiclient.TicketDetail, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	gen := c.session.Generation()
	detail, err := c.api.GetTicket(ctx, id)
	if err != nil {
		if errors.Is(err, apiclient.ErrNotFound) {
			c.details.Invalidate(id)
		}
		return nil, c.escalate(ctx, gen, err)
	}
	if ctx.Err() == nil {
		c.details.Put(id, detail)
	}
	return detail, nil
}

// Cached returns the last fetched projection of id without I/O.
func (c *Client) Cached(id string) (*apiclient.TicketDetail, bool) {
	return c.details.Get(id)
}

// View is a ticket detail together with the assignment directory.
// Agents is empty for requesters.
type View struct {
	Detail *apiclient.TicketDetail
	Agents []apiclient.Agent
}

// TicketView loads the detail and, for agents, the directory concurrently.
func (c *Client) TicketView(ctx context.Context, id string) (*View, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	detail := async.Go(ctx, func(ctx context.Context) (any, error) {
		return c.Ticket(ctx, id)
	})
	agents := async.Resolved[any]([]apiclient.Agent(nil), nil)
	if c.session.IsAgent() {
		agents = async.Go(ctx, func(ctx context.Context) (any, error) {
			return c.Agents(ctx)
		})
	}

	res, err := async.WaitAll(ctx, detail, agents)
	if err != nil {
		return nil, err
	}
	v := &View{Detail: res[0].(*apiclient.TicketDetail)}
	v.Agents, _ = res[1].([]apiclient.Agent)
	return v, nil
}

// UpdateTicket proposes changes against expectedVersion. Whatever the outcome
// the cached projection is dropped, since even a failed attempt may have been
// committed. After an Accepted outcome the detail is reloaded so comments and
// the activity timeline match the server. Nothing is retried.
func (c *Client) UpdateTicket(ctx context.Context, id string, expectedVersion int64, changes apiclient.Changes) mutation.Outcome[*apiclient.Ticket] {
	if err := c.requireSession(); err != nil {
		return mutation.Outcome[*apiclient.Ticket]{Kind: mutation.Rejected, Reason: err.Error(), Err: err}
	}
	out := c.updates.Propose(ctx, id, expectedVersion, changes)
	c.details.Invalidate(id)
	if out.Accepted() && !out.Suppressed {
		if _, err := c.Ticket(ctx, id); err != nil {
			c.logger.WarnContext(ctx, "failed to reload ticket after update", logger.EntityID(id), logger.Error(err))
		}
	}
	return out
}

func (c *Client) SetStatus(ctx context.Context, id string, version int64, s apiclient.Status) mutation.Outcome[*apiclient.Ticket] {
	return c.UpdateTicket(ctx, id, version, apiclient.Changes{"status": s})
}

func (c *Client) SetPriority(ctx context.Context, id string, version int64, p apiclient.Priority) mutation.Outcome[*apiclient.Ticket] {
	return c.UpdateTicket(ctx, id, version, apiclient.Changes{"priority": p})
}

// AssignAgent assigns agentID. Use Unassign to clear the assignment.
func (c *Client) AssignAgent(ctx context.Context, id string, version int64, agentID string) mutation.Outcome[*apiclient.Ticket] {
	return c.UpdateTicket(ctx, id, version, apiclient.Changes{"agent": agentID})
}

func (c *Client) Unassign(ctx context.Context, id string, version int64) mutation.Outcome[*apiclient.Ticket] {
	return c.UpdateTicket(ctx, id, version, apiclient.Changes{"agent": nil})
}

// NewTicketIntent starts a create. Keep the intent until the ticket is
// created or the user abandons the form; reusing it makes retries safe.
func (c *Client) NewTicketIntent() *submit.Intent {
	return submit.NewIntent()
}

// SubmitTicket sends nt under in. An empty priority means medium.
func (c *Client) SubmitTicket(ctx context.Context, in *submit.Intent, nt apiclient.NewTicket) submit.Result[*apiclient.Ticket] {
	if err := c.requireSession(); err != nil {
		return submit.Result[*apiclient.Ticket]{Kind: submit.Rejected, Reason: err.Error(), Err: err}
	}
	nt.Title = strings.TrimSpace(nt.Title)
	nt.Description = strings.TrimSpace(nt.Description)
	if nt.Priority == "" {
		nt.Priority = apiclient.PriorityMedium
	}
	return c.creates.Submit(ctx, in, nt)
}

// AddComment posts a comment and refreshes the ticket projection.
// Comments are not version guarded.
func (c *Client) AddComment(ctx context.Context, ticketID, message string) (*apiclient.Comment, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	err := validator.Apply(
		validator.Required("message", message),
		validator.MaxRunes("message", message, MaxCommentLength),
	)
	if err != nil {
		return nil, errors.Join(apiclient.ErrValidationFailed, err)
	}

	gen := c.session.Generation()
	comment, err := c.api.AddComment(ctx, ticketID, message)
	if err != nil {
		return nil, c.escalate(ctx, gen, err)
	}
	if _, err := c.Ticket(ctx, ticketID); err != nil {
		c.details.Invalidate(ticketID)
		c.logger.WarnContext(ctx, "failed to refresh ticket after comment", logger.EntityID(ticketID), logger.Error(err))
	}
	return comment, nil
}

// Agents returns the assignment directory. Only agents and admins may ask.
func (c *Client) Agents(ctx context.Context) ([]apiclient.Agent, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	if !c.session.IsAgent() {
		return nil, ErrNotPermitted
	}
	gen := c.session.Generation()
	agents, err := c.api.Agents(ctx)
	return agents, c.escalate(ctx, gen, err)
}

// Breached lists tickets past their SLA. Only admins may ask.
func (c *Client) Breached(ctx context.Context) ([]apiclient.Ticket, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	if !c.session.IsAdmin() {
		return nil, ErrNotPermitted
	}
	gen := c.session.Generation()
	items, err := c.api.BreachedTickets(ctx)
	return items, c.escalate(ctx, gen, err)
}
