package submit

import (
	"strings"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
	"github.com/dmitrymomot/deskkit/pkg/validator"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
)

// ValidateTicket checks a new ticket before it is sent.
func ValidateTicket(t apiclient.NewTicket) error {
	return validator.Apply(
		validator.Required("title", t.Title),
		validator.MaxRunes("title", strings.TrimSpace(t.Title), MaxTitleLength),
		validator.Required("description", t.Description),
		validator.MaxRunes("description", strings.TrimSpace(t.Description), MaxDescriptionLength),
		validator.OneOf("priority", t.Priority, []apiclient.Priority{
			apiclient.PriorityLow, apiclient.PriorityMedium, apiclient.PriorityHigh,
		}),
	)
}

// NewTicketSubmitter wires c.CreateTicket with ticket validation.
func NewTicketSubmitter(c *apiclient.Client, opts ...Option[apiclient.NewTicket, *apiclient.Ticket]) *Submitter[apiclient.NewTicket, *apiclient.Ticket] {
	base := []Option[apiclient.NewTicket, *apiclient.Ticket]{
		WithValidation[apiclient.NewTicket, *apiclient.Ticket](ValidateTicket),
	}
	return New[apiclient.NewTicket, *apiclient.Ticket](
		CreateFunc[apiclient.NewTicket, *apiclient.Ticket](c.CreateTicket),
		append(base, opts...)...,
	)
}
