package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Guard vetoes a transition when it returns false.
type Guard[S, E comparable] func(ctx context.Context, from S, event E, data any) bool

// Action runs during a transition, before the state changes. An error aborts the transition.
type Action[S, E comparable] func(ctx context.Context, from, to S, event E, data any) error

// Observer is notified after a transition has been applied.
type Observer[S, E comparable] func(ctx context.Context, from, to S, event E)

type transition[S, E comparable] struct {
	to      S
	guards  []Guard[S, E]
	actions []Action[S, E]
}

// Machine is a concurrency-safe finite-state machine.
type Machine[S, E comparable] struct {
	mu        sync.RWMutex
	initial   S
	current   S
	table     map[S]map[E][]transition[S, E]
	any       map[E][]transition[S, E]
	observers []Observer[S, E]
}

// Option configures a Machine during construction.
type Option[S, E comparable] func(*Machine[S, E]) error

// TransitionOption attaches guards and actions to a declared transition.
type TransitionOption[S, E comparable] func(*transition[S, E]) error

// New creates a machine starting in initial.
func New[S, E comparable](initial S, opts ...Option[S, E]) (*Machine[S, E], error) {
	m := &Machine[S, E]{
		initial: initial,
		current: initial,
		table:   make(map[S]map[E][]transition[S, E]),
		any:     make(map[E][]transition[S, E]),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is New that panics on a configuration error.
func MustNew[S, E comparable](initial S, opts ...Option[S, E]) *Machine[S, E] {
	m, err := New(initial, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return m
}

// WithTransition declares from --event--> to.
// Several transitions may share from and event; the first whose guards pass wins.
func WithTransition[S, E comparable](from S, event E, to S, opts ...TransitionOption[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) error {
		t, err := buildTransition(to, opts)
		if err != nil {
			return fmt.Errorf("transition %v->%v on %v: %w", from, to, event, err)
		}
		if m.table[from] == nil {
			m.table[from] = make(map[E][]transition[S, E])
		}
		m.table[from][event] = append(m.table[from][event], t)
		return nil
	}
}

// WithAnyState declares a transition on event that applies from every state.
func WithAnyState[S, E comparable](event E, to S, opts ...TransitionOption[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) error {
		t, err := buildTransition(to, opts)
		if err != nil {
			return fmt.Errorf("transition *->%v on %v: %w", to, event, err)
		}
		m.any[event] = append(m.any[event], t)
		return nil
	}
}

// WithObserver registers fn to be called after each applied transition.
func WithObserver[S, E comparable](fn Observer[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) error {
		if fn != nil {
			m.observers = append(m.observers, fn)
		}
		return nil
	}
}

func WithGuard[S, E comparable](g Guard[S, E]) TransitionOption[S, E] {
	return func(t *transition[S, E]) error {
		if g == nil {
			return ErrNilGuard
		}
		t.guards = append(t.guards, g)
		return nil
	}
}

func WithAction[S, E comparable](a Action[S, E]) TransitionOption[S, E] {
	return func(t *transition[S, E]) error {
		if a != nil {
			t.actions = append(t.actions, a)
		}
		return nil
	}
}

func buildTransition[S, E comparable](to S, opts []TransitionOption[S, E]) (transition[S, E], error) {
	t := transition[S, E]{to: to}
	for _, opt := range opts {
		if err := opt(&t); err != nil {
			return t, err
		}
	}
	return t, nil
}

// Current returns the current state.
func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Fire applies event and returns the new state.
func (m *Machine[S, E]) Fire(ctx context.Context, event E, data any) (S, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.current
	t, err := m.lookup(ctx, from, event, data)
	if err != nil {
		return from, err
	}
	for _, action := range t.actions {
		if err := action(ctx, from, t.to, event, data); err != nil {
			return from, fmt.Errorf("action failed: %w", err)
		}
	}
	m.current = t.to
	for _, fn := range m.observers {
		fn(ctx, from, t.to, event)
	}
	return t.to, nil
}

// CanFire reports whether event would be accepted in the current state.
func (m *Machine[S, E]) CanFire(ctx context.Context, event E, data any) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.lookup(ctx, m.current, event, data)
	return err == nil
}

// Reset moves the machine back to its initial state without running actions or observers.
func (m *Machine[S, E]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

func (m *Machine[S, E]) lookup(ctx context.Context, from S, event E, data any) (transition[S, E], error) {
	specific := m.table[from][event]
	candidates := make([]transition[S, E], 0, len(specific)+len(m.any[event]))
	candidates = append(candidates, specific...)
	candidates = append(candidates, m.any[event]...)
	if len(candidates) == 0 {
		return transition[S, E]{}, &NoTransitionError{State: fmt.Sprint(from), Event: fmt.Sprint(event)}
	}
	for _, t := range candidates {
		if passes(ctx, t.guards, from, event, data) {
			return t, nil
		}
	}
	return transition[S, E]{}, &RejectedError{State: fmt.Sprint(from), Event: fmt.Sprint(event)}
}

func passes[S, E comparable](ctx context.Context, guards []Guard[S, E], from S, event E, data any) bool {
	for _, g := range guards {
		if !g(ctx, from, event, data) {
			return false
		}
	}
	return true
}
