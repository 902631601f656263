package persist

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFastQueue(buf int) *Queue {
	q := NewQueue(buf)
	q.backoff = time.Millisecond
	return q
}

func TestQueue_AppliesInOrder(t *testing.T) {
	q := newFastQueue(16)
	q.Start(context.Background())

	var mu sync.Mutex
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		q.Enqueue("write", func(ctx context.Context) error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		})
	}
	q.Close()
	q.WaitClosed()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestQueue_RetriesUntilSuccess(t *testing.T) {
	q := newFastQueue(1)
	q.Start(context.Background())

	var calls atomic.Int32
	q.Enqueue("flaky write", func(ctx context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	q.Close()
	q.WaitClosed()

	assert.Equal(t, int32(3), calls.Load())
}

func TestQueue_GivesUpAfterBoundedAttempts(t *testing.T) {
	q := newFastQueue(1)
	q.Start(context.Background())

	var calls atomic.Int32
	q.Enqueue("doomed write", func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("still down")
	})
	q.Close()
	q.WaitClosed()

	assert.Equal(t, int32(5), calls.Load(), "retries stop at the attempt budget")
}

func TestQueue_DrainsOnContextCancel(t *testing.T) {
	q := newFastQueue(8)
	ctx, cancel := context.WithCancel(context.Background())

	var applied atomic.Int32
	for i := 0; i < 4; i++ {
		q.Enqueue("write", func(ctx context.Context) error {
			applied.Add(1)
			return nil
		})
	}
	q.Start(ctx)
	cancel()
	q.WaitClosed()

	require.Equal(t, int32(4), applied.Load(), "queued writes survive shutdown")
}
