package concurrency

import "sync"

// WriteLock is a FIFO mutex: Lock calls are granted in the order they
// arrive, generalizing LockFreeQueue's single-writer discipline (ticket
// taken on Lock, served on Unlock) into the guard session.Session holds
// for the duration of one frame's transport write.
type WriteLock struct {
	mu      sync.Mutex
	cond    *sync.Cond
	ticket  uint64
	serving uint64
}

// NewWriteLock creates an unlocked WriteLock.
func NewWriteLock() *WriteLock {
	l := &WriteLock{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Lock blocks until this caller's ticket is being served.
func (l *WriteLock) Lock() {
	l.mu.Lock()
	my := l.ticket
	l.ticket++
	for l.serving != my {
		l.cond.Wait()
	}
	l.mu.Unlock()
}

// Unlock advances to the next ticket and wakes every blocked caller so
// the one whose turn is next can proceed.
func (l *WriteLock) Unlock() {
	l.mu.Lock()
	l.serving++
	l.mu.Unlock()
	l.cond.Broadcast()
}
