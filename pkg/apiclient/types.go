package apiclient

import (
	"time"

	"github.com/dmitrymomot/deskkit/pkg/identity"
)

// Status is a ticket workflow status.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	default:
		return false
	}
}

// Priority is a ticket priority. The server derives the SLA due date from it.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// UserRef is a user as embedded in tickets, comments and /me.
type UserRef struct {
	ID    string        `json:"_id,omitempty"`
	Name  string        `json:"name,omitempty"`
	Email string        `json:"email,omitempty"`
	Role  identity.Role `json:"role,omitempty"`
}

// Snapshot converts the reference into an identity snapshot.
func (u UserRef) Snapshot() *identity.Snapshot {
	return &identity.Snapshot{
		UserID:      u.ID,
		DisplayName: u.Name,
		Email:       u.Email,
		Role:        identity.ParseRole(string(u.Role)),
	}
}

// Agent is an entry of the assignment directory.
type Agent = UserRef

// Ticket is the server's canonical ticket state.
type Ticket struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	SLADue      *time.Time `json:"sla_due,omitempty"`
	User        *UserRef   `json:"user,omitempty"`
	Agent       *UserRef   `json:"agent,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Version     int64      `json:"version"`
}

// Breached reports whether the SLA due date has passed at now for a ticket still being worked.
func (t *Ticket) Breached(now time.Time) bool {
	if t == nil || t.SLADue == nil {
		return false
	}
	if t.Status == StatusResolved || t.Status == StatusClosed {
		return false
	}
	return now.After(*t.SLADue)
}

// Comment on a ticket.
type Comment struct {
	ID        string    `json:"_id"`
	Message   string    `json:"message"`
	User      *UserRef  `json:"user,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ActivityDetails describes one timeline entry.
type ActivityDetails struct {
	Message  string `json:"message,omitempty"`
	Field    string `json:"field,omitempty"`
	OldValue any    `json:"oldValue,omitempty"`
	NewValue any    `json:"newValue,omitempty"`
}

// Activity is an entry of a ticket's timeline.
type Activity struct {
	Action    string          `json:"action"`
	Details   ActivityDetails `json:"details"`
	User      *UserRef        `json:"user,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// TicketDetail is the GET /tickets/:id payload.
type TicketDetail struct {
	Ticket     Ticket     `json:"ticket"`
	Comments   []Comment  `json:"comments"`
	Activities []Activity `json:"activities"`
}

// ListParams are the GET /tickets query parameters.
type ListParams struct {
	Limit  int
	Offset int
	Query  string
	Status Status
}

// TicketList is the GET /tickets payload.
type TicketList struct {
	Items      []Ticket `json:"items"`
	NextOffset int      `json:"next_offset"`
}

// NewTicket is the POST /tickets body.
type NewTicket struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
}

// Changes are the mutable fields of a PATCH. A nil value is sent as JSON null
// (for example "agent": nil unassigns).
type Changes map[string]any

// LoginResponse is the POST /login payload.
type LoginResponse struct {
	Token string        `json:"token"`
	Email string        `json:"email"`
	Role  identity.Role `json:"role"`
	Name  string        `json:"name"`
}

// Credential returns the credential carried by the response.
func (r *LoginResponse) Credential() identity.Credential {
	return identity.Credential{Token: r.Token, ExpiresImplicitly: true}
}

// Snapshot returns the identity carried by the response.
func (r *LoginResponse) Snapshot() *identity.Snapshot {
	return &identity.Snapshot{DisplayName: r.Name, Email: r.Email, Role: identity.ParseRole(string(r.Role))}
}

// Registration is the POST /register body.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
