// Package buffer provides a size-classed byte-slice pool for session
// read/write buffers and pmd scratch space.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on pool/bufferpool.go's size-class table; the NUMA-aware
// multi-node layer is dropped since nothing in this module pins work to
// a NUMA node — a session owns exactly one read buffer and one write
// buffer for its lifetime.
package buffer

import "sync"

// sizeClasses are the power-of-two buffer sizes this pool recycles.
var sizeClasses = [...]int{
	1 * 1024,
	2 * 1024,
	4 * 1024,
	8 * 1024,
	16 * 1024,
	32 * 1024,
	64 * 1024,
	128 * 1024,
	256 * 1024,
	1 * 1024 * 1024,
}

func classFor(size int) int {
	for _, c := range sizeClasses {
		if size <= c {
			return c
		}
	}
	return size
}

// Pool is a sync.Pool per size class, implementing api.BytePool.
type Pool struct {
	mu      sync.Mutex
	classes map[int]*sync.Pool
}

// New creates an empty Pool.
func New() *Pool {
	return &Pool{classes: make(map[int]*sync.Pool)}
}

// Get returns a zeroed slice of length size drawn from the smallest
// size class that fits.
func (p *Pool) Get(size int) []byte {
	class := classFor(size)
	sp := p.poolFor(class)
	if v := sp.Get(); v != nil {
		buf := v.([]byte)[:size]
		clear(buf)
		return buf
	}
	return make([]byte, size, class)
}

// Put returns buf to the pool matching its capacity's size class.
func (p *Pool) Put(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	class := classFor(cap(buf))
	sp := p.poolFor(class)
	sp.Put(buf[:0:class])
}

func (p *Pool) poolFor(class int) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	sp, ok := p.classes[class]
	if !ok {
		sp = &sync.Pool{}
		p.classes[class] = sp
	}
	return sp
}
