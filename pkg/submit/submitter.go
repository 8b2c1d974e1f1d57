package submit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
	"github.com/dmitrymomot/deskkit/pkg/logger"
)

// Kind classifies a submission result.
type Kind int

const (
	Created Kind = iota + 1
	Rejected
	TransportFailure
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Rejected:
		return "rejected"
	case TransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Result of one Submit call.
type Result[T any] struct {
	Kind   Kind
	Entity T
	Reason string
	Err    error
	// Attempts is the number of requests made by this call.
	Attempts int
	// Recorded is set when the intent had already been created and no request was made.
	Recorded bool
	// Suppressed is set when the caller's context ended first.
	Suppressed bool
}

// Creator sends a create request under key.
type Creator[P, T any] interface {
	Create(ctx context.Context, key string, payload P) (T, error)
}

// CreateFunc adapts a function to Creator. apiclient.Client.CreateTicket fits:
//
//	submit.CreateFunc[apiclient.NewTicket, *apiclient.Ticket](client.CreateTicket)
type CreateFunc[P, T any] func(ctx context.Context, key string, payload P) (T, error)

func (f CreateFunc[P, T]) Create(ctx context.Context, key string, payload P) (T, error) {
	return f(ctx, key, payload)
}

// Submitter runs intents against a Creator.
type Submitter[P, T any] struct {
	creator    Creator[P, T]
	validate   func(P) error
	replay     bool
	onRejected apiclient.Rejecter
	logger     *slog.Logger
}

type Option[P, T any] func(*Submitter[P, T])

// WithReplay toggles the single automatic replay after a transport failure. On by default.
func WithReplay[P, T any](enabled bool) Option[P, T] {
	return func(s *Submitter[P, T]) { s.replay = enabled }
}

// WithValidation checks payloads locally; a failure is reported as Rejected without a request.
func WithValidation[P, T any](fn func(P) error) Option[P, T] {
	return func(s *Submitter[P, T]) { s.validate = fn }
}

// WithRejectionHandler sets who is told when the server refuses the credential.
func WithRejectionHandler[P, T any](r apiclient.Rejecter) Option[P, T] {
	return func(s *Submitter[P, T]) { s.onRejected = r }
}

func WithLogger[P, T any](l *slog.Logger) Option[P, T] {
	return func(s *Submitter[P, T]) {
		if l != nil {
			s.logger = l
		}
	}
}

func New[P, T any](c Creator[P, T], opts ...Option[P, T]) *Submitter[P, T] {
	if c == nil {
		panic("submit: creator is required")
	}
	s := &Submitter[P, T]{creator: c, replay: true, logger: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("submit"))
	return s
}

// Submit sends payload under the intent's key.
func (s *Submitter[P, T]) Submit(ctx context.Context, in *Intent, payload P) Result[T] {
	if in == nil {
		return Result[T]{Kind: Rejected, Reason: ErrNilIntent.Error(), Err: ErrNilIntent}
	}
	if err := in.lock(ctx); err != nil {
		return Result[T]{Kind: TransportFailure, Err: err, Suppressed: true}
	}
	defer in.unlock()

	log := s.logger.With(logger.IntentKey(in.key))

	if in.created {
		if v, ok := in.result.(T); ok {
			log.DebugContext(ctx, "intent already created, returning recorded entity")
			return Result[T]{Kind: Created, Entity: v, Recorded: true}
		}
	}

	if s.validate != nil {
		if err := s.validate(payload); err != nil {
			return Result[T]{Kind: Rejected, Reason: reasonOf(err), Err: errors.Join(apiclient.ErrValidationFailed, err)}
		}
	}
	if err := in.bind(payload); err != nil {
		return Result[T]{Kind: Rejected, Reason: reasonOf(err), Err: errors.Join(apiclient.ErrValidationFailed, err)}
	}

	res := s.attempt(ctx, in, payload)
	if res.Kind == TransportFailure && !res.Suppressed && s.replay {
		log.InfoContext(ctx, "create failed in transit, replaying once", logger.Error(res.Err))
		prev := res.Attempts
		res = s.attempt(ctx, in, payload)
		res.Attempts += prev
	}

	if res.Kind == Created {
		in.created = true
		in.result = res.Entity
	}
	log.DebugContext(ctx, "intent submitted",
		logger.Outcome(res.Kind.String()),
		slog.Int("attempts", res.Attempts),
		slog.Int("total_attempts", in.attempts),
	)
	return res
}

func (s *Submitter[P, T]) attempt(ctx context.Context, in *Intent, payload P) Result[T] {
	in.attempts++
	var gen uint64
	if s.onRejected != nil {
		gen = s.onRejected.Generation()
	}
	v, err := s.creator.Create(ctx, in.key, payload)
	res := Result[T]{Attempts: 1}
	switch kind := apiclient.KindOf(err); {
	case err == nil:
		res.Kind, res.Entity = Created, v
	case kind == apiclient.KindAuthInvalid:
		if s.onRejected != nil {
			s.onRejected.CredentialRejectedAt(context.WithoutCancel(ctx), gen)
		}
		res.Kind, res.Reason, res.Err = Rejected, reasonOf(err), err
	case kind == apiclient.KindValidationFailed, kind == apiclient.KindAuthorizationDenied,
		kind == apiclient.KindNotFound, kind == apiclient.KindVersionConflict:
		res.Kind, res.Reason, res.Err = Rejected, reasonOf(err), err
	default:
		res.Kind, res.Err = TransportFailure, err
	}
	if ctx.Err() != nil {
		res.Suppressed = true
	}
	return res
}

func reasonOf(err error) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return apiErr.Reason()
	}
	return err.Error()
}
