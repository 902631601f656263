package persist

import (
	"context"
	"log"
	"sync"
	"time"
)

// Queue decouples cart mutations from store round-trips: every mutation
// enqueues a named write command and returns immediately, a single executor
// goroutine applies them in order with bounded retries. Local state stays
// optimistic; a write that still fails after the last retry is logged
// loudly, never dropped in silence.
type Queue struct {
	inbox     chan command
	closeCh   chan struct{}
	closeOnce sync.Once

	attempts int
	backoff  time.Duration
}

type command struct {
	name string
	do   func(ctx context.Context) error
}

func NewQueue(buf int) *Queue {
	return &Queue{
		inbox:    make(chan command, buf),
		closeCh:  make(chan struct{}),
		attempts: 5,
		backoff:  200 * time.Millisecond,
	}
}

// Enqueue schedules one write. The closure must carry its own snapshot of
// whatever it persists; the cart may change before it runs.
func (q *Queue) Enqueue(name string, do func(ctx context.Context) error) {
	q.inbox <- command{name: name, do: do}
}

func (q *Queue) Start(ctx context.Context) {
	go func() {
		defer close(q.closeCh)
		for {
			select {
			case <-ctx.Done():
				q.Close()
				for c := range q.inbox {
					q.apply(context.Background(), c)
				}
				return
			case c, ok := <-q.inbox:
				if !ok {
					return
				}
				q.apply(ctx, c)
			}
		}
	}()
}

func (q *Queue) apply(ctx context.Context, c command) {
	var err error
	for i := 0; i < q.attempts; i++ {
		if err = c.do(ctx); err == nil {
			return
		}
		if i < q.attempts-1 {
			time.Sleep(time.Duration(i+1) * q.backoff)
		}
	}
	log.Printf("persist: %s FAILED after %d attempts, data not saved: %v", c.name, q.attempts, err)
}

// Close stops accepting commands; the loop finishes what is queued.
func (q *Queue) Close() { q.closeOnce.Do(func() { close(q.inbox) }) }

func (q *Queue) WaitClosed() { <-q.closeCh }
