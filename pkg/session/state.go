package session

import (
	"context"

	"github.com/dmitrymomot/deskkit/pkg/identity"
	"github.com/dmitrymomot/deskkit/pkg/statemachine"
)

// State of the session lifecycle.
type State string

const (
	Unresolved         State = "unresolved"
	HydratingFromCache State = "hydrating_from_cache"
	Validating         State = "validating"
	Authenticated      State = "authenticated"
	Anonymous          State = "anonymous"
)

// Resolved reports whether the state is final until the next Login or Logout.
func (s State) Resolved() bool {
	return s == Authenticated || s == Anonymous
}

func (s State) String() string { return string(s) }

type event string

const (
	evBootEmpty   event = "boot_empty"
	evBootCached  event = "boot_cached"
	evBootBare    event = "boot_bare"
	evValidated   event = "validated"
	evInvalidated event = "invalidated"
	evLogin       event = "login"
	evLogout      event = "logout"
)

func newMachine(observer statemachine.Observer[State, event]) *statemachine.Machine[State, event] {
	return statemachine.MustNew(Unresolved,
		statemachine.WithTransition[State, event](Unresolved, evBootEmpty, Anonymous),
		statemachine.WithTransition[State, event](Unresolved, evBootCached, Validating),
		statemachine.WithTransition[State, event](Unresolved, evBootBare, HydratingFromCache),
		statemachine.WithTransition[State, event](Validating, evValidated, Authenticated),
		statemachine.WithTransition[State, event](HydratingFromCache, evValidated, Authenticated),
		statemachine.WithTransition[State, event](Validating, evInvalidated, Anonymous),
		statemachine.WithTransition[State, event](HydratingFromCache, evInvalidated, Anonymous),
		statemachine.WithAnyState[State, event](evLogin, Authenticated),
		statemachine.WithAnyState[State, event](evLogout, Anonymous),
		statemachine.WithObserver(observer),
	)
}

// Identity is the current user as seen by the client.
type Identity struct {
	identity.Snapshot
	// Confirmed is true once the server has validated the credential in this process.
	Confirmed bool
}

// Change is published on every state or identity change.
type Change struct {
	State      State
	Identity   *Identity
	Generation uint64
}

// Validator checks a credential against the server. *apiclient.Client satisfies it.
type Validator interface {
	Me(ctx context.Context) (*identity.Snapshot, error)
}
