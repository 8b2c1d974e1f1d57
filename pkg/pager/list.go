package pager

import (
	"context"
	"slices"
	"sync"
)

// List accumulates pages for one view. Safe for concurrent use; More calls are serialized.
type List[T any] struct {
	pager *Pager[T]
	sem   chan struct{}

	mu     sync.Mutex
	filter Filter
	items  []T
	next   Cursor
	done   bool
	epoch  uint64
}

// NewList starts an empty list for f.
func (p *Pager[T]) NewList(f Filter) *List[T] {
	return &List[T]{pager: p, sem: make(chan struct{}, 1), filter: f.Normalize()}
}

// Reset drops accumulated items and restarts from cursor 0 with f.
// A page still loading for the previous filter will be discarded.
func (l *List[T]) Reset(f Filter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filter = f.Normalize()
	l.items = nil
	l.next = 0
	l.done = false
	l.epoch++
}

// SetFilter resets the list only when f differs from the current filter.
// It reports whether a reset happened.
func (l *List[T]) SetFilter(f Filter) bool {
	l.mu.Lock()
	same := l.filter.Equal(f)
	l.mu.Unlock()
	if same {
		return false
	}
	l.Reset(f)
	return true
}

// More appends the next page and returns its items.
// It returns ErrExhausted after the last page.
func (l *List[T]) More(ctx context.Context) ([]T, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.sem }()

	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return nil, ErrExhausted
	}
	epoch, f, cursor := l.epoch, l.filter, l.next
	l.mu.Unlock()

	page, err := l.pager.FetchPage(ctx, f, cursor)

	l.mu.Lock()
	defer l.mu.Unlock()
	if epoch != l.epoch {
		return nil, ErrSuperseded
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}
	if !page.Last() && page.Next <= cursor {
		l.done = true
		return nil, ErrCursorStalled
	}

	l.items = append(l.items, page.Items...)
	l.next = page.Next
	l.done = page.Last()
	return page.Items, nil
}

// Items returns a copy of everything loaded so far.
func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

// Done reports whether the last page has been loaded.
func (l *List[T]) Done() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

func (l *List[T]) Filter() Filter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
