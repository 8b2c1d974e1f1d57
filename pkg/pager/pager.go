package pager

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
	"github.com/dmitrymomot/deskkit/pkg/logger"
)

// DefaultPageSize matches the server's default limit.
const DefaultPageSize = 10

// Cursor is an offset into a result set.
type Cursor int

// Page is one bounded slice of results.
type Page[T any] struct {
	Items []T
	// Next is the cursor of the following page, 0 when this is the last one.
	Next Cursor
}

// Last reports whether no page follows.
func (p Page[T]) Last() bool {
	return p.Next == 0
}

// Fetcher loads one page.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, f Filter, cursor Cursor, limit int) (Page[T], error)
}

// FetchFunc adapts a function to Fetcher.
type FetchFunc[T any] func(ctx context.Context, f Filter, cursor Cursor, limit int) (Page[T], error)

func (fn FetchFunc[T]) Fetch(ctx context.Context, f Filter, cursor Cursor, limit int) (Page[T], error) {
	return fn(ctx, f, cursor, limit)
}

// Pager fetches pages from a Fetcher.
type Pager[T any] struct {
	fetcher    Fetcher[T]
	size       int
	onRejected apiclient.Rejecter
	logger     *slog.Logger
}

type Option[T any] func(*Pager[T])

func WithPageSize[T any](n int) Option[T] {
	return func(p *Pager[T]) {
		if n > 0 {
			p.size = n
		}
	}
}

// WithRejectionHandler sets who is told when the server refuses the credential.
func WithRejectionHandler[T any](r apiclient.Rejecter) Option[T] {
	return func(p *Pager[T]) { p.onRejected = r }
}

func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(p *Pager[T]) {
		if l != nil {
			p.logger = l
		}
	}
}

func New[T any](f Fetcher[T], opts ...Option[T]) *Pager[T] {
	if f == nil {
		panic("pager: fetcher is required")
	}
	p := &Pager[T]{fetcher: f, size: DefaultPageSize, logger: logger.Discard()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logger.Component("pager"))
	return p
}

// PageSize returns the configured page size.
func (p *Pager[T]) PageSize() int {
	return p.size
}

// FetchPage loads the page at cursor for the normalized filter.
func (p *Pager[T]) FetchPage(ctx context.Context, f Filter, cursor Cursor) (Page[T], error) {
	if cursor < 0 {
		return Page[T]{}, ErrInvalidCursor
	}
	f = f.Normalize()

	var gen uint64
	if p.onRejected != nil {
		gen = p.onRejected.Generation()
	}
	page, err := p.fetcher.Fetch(ctx, f, cursor, p.size)
	if err != nil {
		if errors.Is(err, apiclient.ErrAuthInvalid) && p.onRejected != nil {
			p.onRejected.CredentialRejectedAt(context.WithoutCancel(ctx), gen)
		}
		p.logger.DebugContext(ctx, "page fetch failed", logger.Cursor(int(cursor)), logger.Error(err))
		return Page[T]{}, err
	}
	if page.Next < 0 {
		page.Next = 0
	}

	p.logger.DebugContext(ctx, "page fetched",
		logger.Cursor(int(cursor)),
		slog.Int("items", len(page.Items)),
		slog.Int("next", int(page.Next)),
	)
	return page, nil
}

// Walk calls fn for every page, starting from cursor 0, until the last page,
// an error from fn, or a cursor that does not advance.
func (p *Pager[T]) Walk(ctx context.Context, f Filter, fn func(Page[T]) error) error {
	var cursor Cursor
	for {
		page, err := p.FetchPage(ctx, f, cursor)
		if err != nil {
			return err
		}
		if err := fn(page); err != nil {
			return err
		}
		if page.Last() {
			return nil
		}
		if page.Next <= cursor {
			return ErrCursorStalled
		}
		cursor = page.Next
	}
}
