package broadcast_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/deskkit/pkg/broadcast"
)

func receive[T any](t *testing.T, sub *broadcast.Subscription[T]) T {
	t.Helper()
	select {
	case v, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func requireClosed[T any](t *testing.T, sub *broadcast.Subscription[T]) {
	t.Helper()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.C():
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestFeed_Publish(t *testing.T) {
	t.Parallel()

	t.Run("fans out to every subscriber", func(t *testing.T) {
		t.Parallel()
		f := broadcast.NewFeed[string]()
		defer f.Close()

		a := f.Subscribe(context.Background())
		b := f.Subscribe(context.Background())
		f.Publish("hello")

		assert.Equal(t, "hello", receive(t, a))
		assert.Equal(t, "hello", receive(t, b))
	})

	t.Run("slow reader sees latest value", func(t *testing.T) {
		t.Parallel()
		f := broadcast.NewFeed[int]()
		defer f.Close()

		sub := f.Subscribe(context.Background())
		for i := 1; i <= 100; i++ {
			f.Publish(i)
		}
		assert.Equal(t, 100, receive(t, sub))

		select {
		case v := <-sub.C():
			t.Fatalf("unexpected backlog value %d", v)
		default:
		}
	})

	t.Run("late subscriber gets current value", func(t *testing.T) {
		t.Parallel()
		f := broadcast.NewFeed[string]()
		defer f.Close()

		f.Publish("ready")
		sub := f.Subscribe(context.Background())
		assert.Equal(t, "ready", receive(t, sub))

		v, ok := f.Latest()
		assert.True(t, ok)
		assert.Equal(t, "ready", v)
	})

	t.Run("no value before first publish", func(t *testing.T) {
		t.Parallel()
		f := broadcast.NewFeed[string]()
		defer f.Close()

		_, ok := f.Latest()
		assert.False(t, ok)
		sub := f.Subscribe(context.Background())
		select {
		case <-sub.C():
			t.Fatal("unexpected value")
		default:
		}
	})
}

func TestFeed_Lifecycle(t *testing.T) {
	t.Parallel()

	t.Run("context cancellation ends subscription", func(t *testing.T) {
		t.Parallel()
		f := broadcast.NewFeed[int]()
		defer f.Close()

		ctx, cancel := context.WithCancel(context.Background())
		sub := f.Subscribe(ctx)
		assert.Equal(t, 1, f.Len())

		cancel()
		requireClosed(t, sub)
		assert.Eventually(t, func() bool { return f.Len() == 0 }, time.Second, 5*time.Millisecond)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		t.Parallel()
		f := broadcast.NewFeed[int]()
		defer f.Close()

		sub := f.Subscribe(context.Background())
		require.NoError(t, sub.Close())
		require.NoError(t, sub.Close())
		requireClosed(t, sub)
		assert.Zero(t, f.Len())

		f.Publish(1)
	})

	t.Run("feed close ends all subscriptions", func(t *testing.T) {
		t.Parallel()
		f := broadcast.NewFeed[int]()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		a := f.Subscribe(ctx)
		b := f.Subscribe(context.Background())

		require.NoError(t, f.Close())
		require.NoError(t, f.Close())
		requireClosed(t, a)
		requireClosed(t, b)

		c := f.Subscribe(context.Background())
		requireClosed(t, c)
		f.Publish(1)
	})
}

func TestFeed_Concurrent(t *testing.T) {
	t.Parallel()

	f := broadcast.NewFeed[int]()
	defer f.Close()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sub := f.Subscribe(ctx)
			for i := range 50 {
				f.Publish(i)
				select {
				case <-sub.C():
				default:
				}
			}
		}()
	}
	wg.Wait()
}
