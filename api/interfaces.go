// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Transport is the two-and-a-half operation abstraction the session core
// consumes: it never imports net.Conn or crypto/tls directly. Session
// implementations are handed a Transport already past the HTTP Upgrade
// and (if applicable) TLS handshake; those concerns live in the
// handshake package and the caller's own listener setup.
type Transport interface {
	// ReadSome reads at least one byte into buf, or returns an error.
	// It may return fewer bytes than len(buf).
	ReadSome(buf []byte) (n int, err error)

	// WriteAll writes every byte of p or returns an error; partial
	// writes are never observable by the caller.
	WriteAll(p []byte) error

	// Teardown closes the underlying connection. Called exactly once,
	// when the session reaches Closed or Failed.
	Teardown() error
}

// PongObserver is the single observability hook a session exposes:
// it is invoked with the application data of every received pong frame.
type PongObserver func(data []byte)

// BytePool defines a zero-copy, reusable buffer pool; session read/write
// buffers and pmd scratch space are drawn from one of these.
type BytePool interface {
	Get(size int) []byte
	Put([]byte)
}
