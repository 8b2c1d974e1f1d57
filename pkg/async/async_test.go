package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/deskkit/pkg/async"
)

func TestGo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("returns result", func(t *testing.T) {
		t.Parallel()
		f := async.Go(ctx, func(context.Context) (int, error) {
			time.Sleep(10 * time.Millisecond)
			return 42, nil
		})
		v, err := f.Await(ctx)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.True(t, f.IsComplete())
	})

	t.Run("returns error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		f := async.Go(ctx, func(context.Context) (string, error) { return "", boom })
		_, err := f.Await(ctx)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("cancelled context skips fn", func(t *testing.T) {
		t.Parallel()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		var called atomic.Bool
		f := async.Go(cctx, func(context.Context) (int, error) {
			called.Store(true)
			return 1, nil
		})
		<-f.Done()
		_, err := f.Await(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called.Load())
	})

	t.Run("panic becomes error", func(t *testing.T) {
		t.Parallel()
		f := async.Go(ctx, func(context.Context) (int, error) { panic("oops") })
		_, err := f.Await(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "oops")
	})

	t.Run("nil function", func(t *testing.T) {
		t.Parallel()
		_, err := async.Go[int](ctx, nil).Await(ctx)
		assert.ErrorIs(t, err, async.ErrNilFunc)
	})
}

func TestFuture_Await(t *testing.T) {
	t.Parallel()

	t.Run("wait context does not cancel computation", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		f := async.Go(context.Background(), func(context.Context) (int, error) {
			<-release
			return 7, nil
		})

		wctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := f.Await(wctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, f.IsComplete())

		close(release)
		v, err := f.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("resolved", func(t *testing.T) {
		t.Parallel()
		f := async.Resolved("x", nil)
		assert.True(t, f.IsComplete())
		v, err := f.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "x", v)
	})
}

func TestWaitAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("keeps order", func(t *testing.T) {
		t.Parallel()
		a := async.Go(ctx, func(context.Context) (int, error) { time.Sleep(20 * time.Millisecond); return 1, nil })
		b := async.Go(ctx, func(context.Context) (int, error) { return 2, nil })
		res, err := async.WaitAll(ctx, a, b)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, res)
	})

	t.Run("joins errors", func(t *testing.T) {
		t.Parallel()
		e1, e2 := errors.New("e1"), errors.New("e2")
		res, err := async.WaitAll(ctx,
			async.Resolved(0, e1),
			async.Resolved(5, nil),
			async.Resolved(0, e2),
		)
		assert.ErrorIs(t, err, e1)
		assert.ErrorIs(t, err, e2)
		assert.Equal(t, 5, res[1])
	})
}
