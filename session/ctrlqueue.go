package session

import (
	"sync"

	"github.com/eapache/queue"
)

// ctrlFrame is one fully-encoded outbound control frame (pong reply or
// close echo) waiting for the write-lock.
type ctrlFrame struct {
	bytes []byte
}

// ctrlQueue is the FIFO of pending outbound control frames the write-lock
// drains ahead of any in-progress data write, per spec's "pongs emitted
// in the order their pings arrived" guarantee. Backed by eapache/queue's
// amortized-O(1) ring buffer rather than a slice, since control frames
// can arrive in bursts (ping floods) and this queue is drained from a
// different goroutine than it is filled from.
type ctrlQueue struct {
	mu sync.Mutex
	q  *queue.Queue
}

func newCtrlQueue() *ctrlQueue {
	return &ctrlQueue{q: queue.New()}
}

// push enqueues a control frame for later draining.
func (c *ctrlQueue) push(f ctrlFrame) {
	c.mu.Lock()
	c.q.Add(f)
	c.mu.Unlock()
}

// drain removes and returns every queued control frame in arrival order.
func (c *ctrlQueue) drain() []ctrlFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.q.Length()
	if n == 0 {
		return nil
	}
	out := make([]ctrlFrame, n)
	for i := 0; i < n; i++ {
		out[i] = c.q.Remove().(ctrlFrame)
	}
	return out
}
