// Package statemachine is a small generic finite-state machine.
//
// States and events are any comparable types, usually string-backed enums
// declared by the owning package. Transitions are declared up front with
// functional options; Fire looks up the transition for the current state,
// evaluates its guards, runs its actions and only then moves to the target
// state. A failing action leaves the machine where it was.
//
//	const (
//	    Idle    State = "idle"
//	    Running State = "running"
//	    Start   Event = "start"
//	)
//
//	m := statemachine.MustNew(Idle,
//	    statemachine.WithTransition(Idle, Start, Running),
//	)
//	to, err := m.Fire(ctx, Start, nil)
//
// WithAnyState declares a transition that applies regardless of the current
// state; transitions declared for a specific state take precedence.
//
// Observers registered with WithObserver are called after every successful
// transition, while the machine lock is still held, so they must not call back
// into the machine.
//
// # Errors
//
// Fire returns *NoTransitionError when the event is not defined for the
// current state and *RejectedError when every candidate was vetoed by a guard:
//
//	if statemachine.IsNoTransition(err) { ... }
//	if statemachine.IsRejected(err) { ... }
package statemachine
