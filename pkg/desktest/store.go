package desktest

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
	"github.com/dmitrymomot/deskkit/pkg/identity"
)

type user struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     identity.Role
}

func (u *user) ref() *apiclient.UserRef {
	if u == nil {
		return nil
	}
	return &apiclient.UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type ticket struct {
	apiclient.Ticket
	ownerID    string
	agentID    string
	comments   []apiclient.Comment
	activities []apiclient.Activity
}

// newID returns a 24 character hex id, the shape the production backend uses.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// slaFor is the due-date policy of the reference backend.
func slaFor(p apiclient.Priority, from time.Time) time.Time {
	switch p {
	case apiclient.PriorityHigh:
		return from.Add(4 * time.Hour)
	case apiclient.PriorityLow:
		return from.Add(72 * time.Hour)
	default:
		return from.Add(24 * time.Hour)
	}
}

func (t *ticket) matches(q string, status apiclient.Status) bool {
	if status != "" && t.Status != status {
		return false
	}
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Description), q)
}

func sortAgents(a []apiclient.Agent) {
	sort.Slice(a, func(i, j int) bool { return a[i].Email < a[j].Email })
}
