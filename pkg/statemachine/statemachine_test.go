package statemachine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/deskkit/pkg/statemachine"
)

type state string
type event string

const (
	draft     state = "draft"
	inReview  state = "in_review"
	approved  state = "approved"
	cancelled state = "cancelled"

	submit  event = "submit"
	approve event = "approve"
	cancel  event = "cancel"
)

func TestMachine_Fire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("basic transitions", func(t *testing.T) {
		t.Parallel()
		m := statemachine.MustNew(draft,
			statemachine.WithTransition[state, event](draft, submit, inReview),
			statemachine.WithTransition[state, event](inReview, approve, approved),
		)
		assert.Equal(t, draft, m.Current())
		assert.True(t, m.CanFire(ctx, submit, nil))
		assert.False(t, m.CanFire(ctx, approve, nil))

		to, err := m.Fire(ctx, submit, nil)
		require.NoError(t, err)
		assert.Equal(t, inReview, to)

		to, err = m.Fire(ctx, approve, nil)
		require.NoError(t, err)
		assert.Equal(t, approved, to)
		assert.Equal(t, approved, m.Current())
	})

	t.Run("undefined event", func(t *testing.T) {
		t.Parallel()
		m := statemachine.MustNew[state, event](draft)
		to, err := m.Fire(ctx, approve, nil)
		require.Error(t, err)
		assert.True(t, statemachine.IsNoTransition(err))
		assert.Equal(t, draft, to)
	})

	t.Run("guards pick the first passing transition", func(t *testing.T) {
		t.Parallel()
		isAdmin := func(_ context.Context, _ state, _ event, data any) bool { return data == "admin" }
		m := statemachine.MustNew(draft,
			statemachine.WithTransition(draft, submit, approved, statemachine.WithGuard(isAdmin)),
			statemachine.WithTransition[state, event](draft, submit, inReview),
		)
		to, err := m.Fire(ctx, submit, "admin")
		require.NoError(t, err)
		assert.Equal(t, approved, to)

		m.Reset()
		to, err = m.Fire(ctx, submit, "user")
		require.NoError(t, err)
		assert.Equal(t, inReview, to)
	})

	t.Run("all guards reject", func(t *testing.T) {
		t.Parallel()
		never := func(context.Context, state, event, any) bool { return false }
		m := statemachine.MustNew(draft,
			statemachine.WithTransition(draft, submit, inReview, statemachine.WithGuard(never)),
		)
		_, err := m.Fire(ctx, submit, nil)
		assert.True(t, statemachine.IsRejected(err))
		assert.False(t, m.CanFire(ctx, submit, nil))
		assert.Equal(t, draft, m.Current())
	})

	t.Run("failing action keeps state", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		m := statemachine.MustNew(draft,
			statemachine.WithTransition(draft, submit, inReview,
				statemachine.WithAction(func(context.Context, state, state, event, any) error { return boom })),
		)
		_, err := m.Fire(ctx, submit, nil)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, draft, m.Current())
	})

	t.Run("any state transition", func(t *testing.T) {
		t.Parallel()
		m := statemachine.MustNew(draft,
			statemachine.WithTransition[state, event](draft, submit, inReview),
			statemachine.WithAnyState[state, event](cancel, cancelled),
		)
		_, err := m.Fire(ctx, submit, nil)
		require.NoError(t, err)
		to, err := m.Fire(ctx, cancel, nil)
		require.NoError(t, err)
		assert.Equal(t, cancelled, to)

		to, err = m.Fire(ctx, cancel, nil)
		require.NoError(t, err)
		assert.Equal(t, cancelled, to)
	})

	t.Run("specific transition wins over any state", func(t *testing.T) {
		t.Parallel()
		m := statemachine.MustNew(draft,
			statemachine.WithTransition[state, event](draft, cancel, draft),
			statemachine.WithAnyState[state, event](cancel, cancelled),
		)
		to, err := m.Fire(ctx, cancel, nil)
		require.NoError(t, err)
		assert.Equal(t, draft, to)
	})
}

func TestMachine_Observer(t *testing.T) {
	t.Parallel()

	type hop struct{ from, to state }
	var hops []hop
	m := statemachine.MustNew(draft,
		statemachine.WithTransition[state, event](draft, submit, inReview),
		statemachine.WithObserver(func(_ context.Context, from, to state, _ event) {
			hops = append(hops, hop{from, to})
		}),
	)
	_, err := m.Fire(context.Background(), submit, nil)
	require.NoError(t, err)
	_, err = m.Fire(context.Background(), submit, nil)
	require.Error(t, err)

	assert.Equal(t, []hop{{draft, inReview}}, hops)
}

func TestNew_NilGuard(t *testing.T) {
	t.Parallel()

	_, err := statemachine.New(draft,
		statemachine.WithTransition(draft, submit, inReview, statemachine.WithGuard[state, event](nil)),
	)
	assert.ErrorIs(t, err, statemachine.ErrNilGuard)
	assert.Panics(t, func() {
		statemachine.MustNew(draft,
			statemachine.WithTransition(draft, submit, inReview, statemachine.WithGuard[state, event](nil)),
		)
	})
}

func TestMachine_Concurrent(t *testing.T) {
	t.Parallel()

	m := statemachine.MustNew(draft,
		statemachine.WithAnyState[state, event](submit, inReview),
		statemachine.WithAnyState[state, event](cancel, draft),
	)
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ev := submit
			if i%2 == 0 {
				ev = cancel
			}
			_, _ = m.Fire(context.Background(), ev, nil)
			_ = m.Current()
		}()
	}
	wg.Wait()
	assert.Contains(t, []state{draft, inReview}, m.Current())
}
