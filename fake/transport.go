// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for all core interfaces.

package fake

import (
	"bytes"
	"io"
	"sync"

	"github.com/momentics/wscore/api"
)

// Transport is a fake api.Transport backed by independent in-memory
// inbound and outbound byte streams, for exercising session.Session
// without a real network connection.
type Transport struct {
	mu      sync.Mutex
	inbound bytes.Buffer
	sent    bytes.Buffer
	closed  bool

	readErr  error
	writeErr error
}

// NewTransport creates a fake transport with empty inbound data.
func NewTransport() *Transport {
	return &Transport{}
}

// ReadSome implements api.Transport.
func (t *Transport) ReadSome(buf []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, api.NewError(api.ReasonTransportError, 0, "transport closed")
	}
	if t.readErr != nil {
		return 0, t.readErr
	}
	if t.inbound.Len() == 0 {
		return 0, io.EOF
	}
	return t.inbound.Read(buf)
}

// WriteAll implements api.Transport.
func (t *Transport) WriteAll(p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return api.NewError(api.ReasonTransportError, 0, "transport closed")
	}
	if t.writeErr != nil {
		return t.writeErr
	}
	t.sent.Write(p)
	return nil
}

// Teardown implements api.Transport.
func (t *Transport) Teardown() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// SetReadError configures the transport to fail the next ReadSome calls.
func (t *Transport) SetReadError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readErr = err
}

// SetWriteError configures the transport to fail the next WriteAll calls.
func (t *Transport) SetWriteError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

// FeedInbound appends bytes the next ReadSome calls will return.
func (t *Transport) FeedInbound(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inbound.Write(data)
}

// SentBytes returns everything written via WriteAll so far.
func (t *Transport) SentBytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]byte, t.sent.Len())
	copy(out, t.sent.Bytes())
	return out
}

// Closed reports whether Teardown has been called.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
