package pager

import (
	"context"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
)

// Tickets pages through GET /tickets.
func Tickets(c *apiclient.Client) Fetcher[apiclient.Ticket] {
	return FetchFunc[apiclient.Ticket](func(ctx context.Context, f Filter, cursor Cursor, limit int) (Page[apiclient.Ticket], error) {
		list, err := c.ListTickets(ctx, apiclient.ListParams{
			Limit:  limit,
			Offset: int(cursor),
			Query:  f.Query,
			Status: apiclient.Status(f.Status),
		})
		if err != nil {
			return Page[apiclient.Ticket]{}, err
		}
		return Page[apiclient.Ticket]{Items: list.Items, Next: Cursor(list.NextOffset)}, nil
	})
}
