package lock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/lock"
)

func TestLocalSerialisesSameKey(t *testing.T) {
	locker := lock.NewLocal()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(ctx, "cart-1", time.Second, func(context.Context) error {
				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()
				time.Sleep(2 * time.Millisecond)
				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, maxSeen)
}

func TestLocalHonoursContext(t *testing.T) {
	locker := lock.NewLocal()
	hold := make(chan struct{})
	acquired := make(chan struct{})
	go func() {
		_ = locker.WithLock(context.Background(), "k", time.Second, func(context.Context) error {
			close(acquired)
			<-hold
			return nil
		})
	}()
	<-acquired

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := locker.WithLock(ctx, "k", time.Second, func(context.Context) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
	close(hold)
}

func TestLocalGivesUpAfterMaxWait(t *testing.T) {
	locker := &lock.Local{MaxWait: 30 * time.Millisecond}
	hold := make(chan struct{})
	acquired := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = locker.WithLock(context.Background(), "cart-1", time.Second, func(context.Context) error {
			close(acquired)
			<-hold
			return nil
		})
	}()
	<-acquired

	start := time.Now()
	err := locker.WithLock(context.Background(), "cart-1", time.Second, func(context.Context) error {
		t.Fatal("callback must not run while the key is held")
		return nil
	})
	require.ErrorIs(t, err, lock.ErrNotAcquired)
	require.Less(t, time.Since(start), 500*time.Millisecond)

	close(hold)
	<-done
}

func TestLocalFallsBackToTTL(t *testing.T) {
	locker := lock.NewLocal()
	hold := make(chan struct{})
	acquired := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = locker.WithLock(context.Background(), "cart-1", time.Second, func(context.Context) error {
			close(acquired)
			<-hold
			return nil
		})
	}()
	<-acquired

	err := locker.WithLock(context.Background(), "cart-1", 20*time.Millisecond, func(context.Context) error { return nil })
	require.ErrorIs(t, err, lock.ErrNotAcquired)

	close(hold)
	<-done
}

func TestLocalReleasesIdleKeys(t *testing.T) {
	locker := lock.NewLocal()
	ctx := context.Background()
	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, locker.WithLock(ctx, key, time.Second, func(context.Context) error {
			require.Equal(t, 1, locker.Len())
			return nil
		}))
	}
	require.Zero(t, locker.Len())

	err := locker.WithLock(ctx, "a", time.Second, func(context.Context) error { return errors.New("boom") })
	require.EqualError(t, err, "boom")
	require.Zero(t, locker.Len())
}
