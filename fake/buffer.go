// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake byte pool implementation for testing.

package fake

import "sync"

// BytePool is a fake implementation of api.BytePool that hands out
// freshly allocated slices and tracks how many are currently out on
// loan, for tests asserting that session code returns every buffer it takes.
type BytePool struct {
	mu     sync.Mutex
	outGet int64
	outPut int64
}

// NewBytePool creates an empty fake byte pool.
func NewBytePool() *BytePool {
	return &BytePool{}
}

// Get implements api.BytePool.
func (p *BytePool) Get(size int) []byte {
	p.mu.Lock()
	p.outGet++
	p.mu.Unlock()
	return make([]byte, size)
}

// Put implements api.BytePool.
func (p *BytePool) Put([]byte) {
	p.mu.Lock()
	p.outPut++
	p.mu.Unlock()
}

// Outstanding returns the number of buffers obtained via Get that have
// not yet been returned via Put.
func (p *BytePool) Outstanding() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outGet - p.outPut
}
