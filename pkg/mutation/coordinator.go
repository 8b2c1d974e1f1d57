package mutation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
	"github.com/dmitrymomot/deskkit/pkg/logger"
)

// Patcher sends a version-guarded update.
type Patcher[T any] interface {
	Patch(ctx context.Context, id string, version int64, changes apiclient.Changes) (T, error)
}

// PatchFunc adapts a function to Patcher. apiclient.Client.UpdateTicket fits:
//
//	mutation.PatchFunc[*apiclient.Ticket](client.UpdateTicket)
type PatchFunc[T any] func(ctx context.Context, id string, version int64, changes apiclient.Changes) (T, error)

func (f PatchFunc[T]) Patch(ctx context.Context, id string, version int64, changes apiclient.Changes) (T, error) {
	return f(ctx, id, version, changes)
}

// Listener receives accepted server state for id.
type Listener[T any] func(ctx context.Context, id string, entity T)

// Coordinator runs proposals against one kind of entity.
type Coordinator[T any] struct {
	patcher    Patcher[T]
	onRejected apiclient.Rejecter
	listeners  []Listener[T]
	logger     *slog.Logger
	locks      *entityLocks
}

// Option configures a Coordinator.
type Option[T any] func(*Coordinator[T])

// WithRejectionHandler sets who is told when the server refuses the credential.
// Wire it to the session.Manager.
func WithRejectionHandler[T any](r apiclient.Rejecter) Option[T] {
	return func(c *Coordinator[T]) {
		c.onRejected = r
	}
}

// WithListener registers fn for accepted outcomes that were not suppressed.
func WithListener[T any](fn Listener[T]) Option[T] {
	return func(c *Coordinator[T]) {
		if fn != nil {
			c.listeners = append(c.listeners, fn)
		}
	}
}

func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(c *Coordinator[T]) {
		if l != nil {
			c.logger = l
		}
	}
}

func New[T any](p Patcher[T], opts ...Option[T]) *Coordinator[T] {
	if p == nil {
		panic("mutation: patcher is required")
	}
	c := &Coordinator[T]{
		patcher: p,
		logger:  logger.Discard(),
		locks:   newEntityLocks(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("mutation"))
	return c
}

// Propose asks the server to apply changes to entity id, provided its stored
// version still equals expectedVersion.
func (c *Coordinator[T]) Propose(ctx context.Context, id string, expectedVersion int64, changes apiclient.Changes) Outcome[T] {
	if err := checkChanges(id, changes); err != nil {
		return c.finish(ctx, id, expectedVersion, Outcome[T]{Kind: Rejected, Reason: reasonOf(err), Err: err})
	}

	release, err := c.locks.acquire(ctx, id)
	if err != nil {
		return c.finish(ctx, id, expectedVersion, Outcome[T]{Kind: TransportFailure, Err: err, Suppressed: true})
	}
	defer release()

	var gen uint64
	if c.onRejected != nil {
		gen = c.onRejected.Generation()
	}
	entity, err := c.patcher.Patch(ctx, id, expectedVersion, changes)
	out := classify(entity, err)
	if out.Kind == Rejected && errors.Is(err, apiclient.ErrAuthInvalid) && c.onRejected != nil {
		c.onRejected.CredentialRejectedAt(context.WithoutCancel(ctx), gen)
	}
	if ctx.Err() != nil {
		out.Suppressed = true
	}
	return c.finish(ctx, id, expectedVersion, out)
}

func (c *Coordinator[T]) finish(ctx context.Context, id string, version int64, out Outcome[T]) Outcome[T] {
	attrs := []any{logger.EntityID(id), logger.Version(version), logger.Outcome(out.Kind.String())}
	if out.Suppressed {
		attrs = append(attrs, slog.Bool("suppressed", true))
	}
	if out.Err != nil {
		attrs = append(attrs, logger.Error(out.Err))
	}
	level := slog.LevelDebug
	if out.Kind == TransportFailure && !out.Suppressed {
		level = slog.LevelWarn
	}
	c.logger.Log(ctx, level, "mutation proposed", attrs...)

	if out.Kind == Accepted && !out.Suppressed {
		for _, fn := range c.listeners {
			fn(ctx, id, out.Entity)
		}
	}
	return out
}

func classify[T any](entity T, err error) Outcome[T] {
	if err == nil {
		return Outcome[T]{Kind: Accepted, Entity: entity}
	}
	switch apiclient.KindOf(err) {
	case apiclient.KindVersionConflict:
		return Outcome[T]{Kind: Conflict, Reason: reasonOf(err), Err: err}
	case apiclient.KindAuthInvalid, apiclient.KindAuthorizationDenied,
		apiclient.KindValidationFailed, apiclient.KindNotFound:
		return Outcome[T]{Kind: Rejected, Reason: reasonOf(err), Err: err}
	default:
		return Outcome[T]{Kind: TransportFailure, Err: err}
	}
}

func checkChanges(id string, changes apiclient.Changes) error {
	if id == "" {
		return apiclient.NewValidationError("id", "entity id is required")
	}
	if len(changes) == 0 {
		return errors.Join(apiclient.NewValidationError("changes", ErrEmptyChanges.Error()), ErrEmptyChanges)
	}
	if _, ok := changes["version"]; ok {
		return errors.Join(apiclient.NewValidationError("version", ErrVersionInChange.Error()), ErrVersionInChange)
	}
	return nil
}

func reasonOf(err error) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return apiErr.Reason()
	}
	return err.Error()
}

// Pending returns the number of entities with a proposal running or waiting.
func (c *Coordinator[T]) Pending() int {
	return c.locks.len()
}
