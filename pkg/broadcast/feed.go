package broadcast

import (
	"context"
	"sync"
)

// Feed delivers published values to all current subscribers.
// All methods are safe for concurrent use.
type Feed[T any] struct {
	mu     sync.RWMutex
	subs   map[*Subscription[T]]struct{}
	latest T
	has    bool
	closed bool
	wg     sync.WaitGroup
}

func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Subscribe registers a subscription bound to ctx. On a closed feed the
// returned subscription is already closed.
func (f *Feed[T]) Subscribe(ctx context.Context) *Subscription[T] {
	sub := &Subscription[T]{ch: make(chan T, 1), stop: make(chan struct{}), feed: f}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		sub.close()
		return sub
	}
	f.subs[sub] = struct{}{}
	if f.has {
		sub.offer(f.latest)
	}

	if ctx.Done() != nil {
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			select {
			case <-ctx.Done():
				f.remove(sub)
			case <-sub.stop:
			}
		}()
	}
	return sub
}

// Publish records v as the latest value and offers it to every subscriber.
// It never blocks on readers. Publishing on a closed feed is a no-op.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.latest, f.has = v, true
	for sub := range f.subs {
		sub.offer(v)
	}
}

// Latest returns the last published value.
func (f *Feed[T]) Latest() (T, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest, f.has
}

// Len returns the number of live subscriptions.
func (f *Feed[T]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Close ends every subscription. It is safe to call more than once.
func (f *Feed[T]) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	for sub := range f.subs {
		sub.close()
	}
	clear(f.subs)
	f.mu.Unlock()

	f.wg.Wait()
	return nil
}

func (f *Feed[T]) remove(sub *Subscription[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, sub)
	sub.close()
}

// Subscription is one reader of a Feed.
type Subscription[T any] struct {
	mu     sync.Mutex
	ch     chan T
	stop   chan struct{}
	closed bool
	feed   *Feed[T]
}

// C returns the delivery channel. It is closed when the subscription ends.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Close ends the subscription. It is idempotent.
func (s *Subscription[T]) Close() error {
	s.feed.remove(s)
	return nil
}

// offer replaces an unread value with v.
func (s *Subscription[T]) offer(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- v:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- v:
	default:
	}
}

func (s *Subscription[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
	close(s.stop)
}
