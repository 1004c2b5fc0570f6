// Package session implements the WebSocket engine core above a
// transport: the receive state machine, send pipeline, permessage-deflate
// wiring, and close handshake, orchestrated by Session.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package session

import "time"

// WriteOpcode restricts the default outgoing message type to the two
// data opcodes callers may choose between.
type WriteOpcode int

const (
	WriteText WriteOpcode = iota
	WriteBinary
)

// Options configures a Session. It is passed to New and is immutable
// for the lifetime of the session; a server managing many sessions keeps
// its defaults in a control.ConfigStore and copies them per new
// connection.
type Options struct {
	// MsgMax bounds the cumulative payload size of one message, 0 meaning
	// unlimited. Default 16 MiB.
	MsgMax uint64

	// RdBufSize and WrBufSize size the Session's owned read/write
	// buffers. Default 4096.
	RdBufSize int
	WrBufSize int

	// AutoFragment enables SendPath rule 2 (chunk into WrBufSize pieces)
	// when compression is not in use. Default true.
	AutoFragment bool

	// DefaultWriteOpcode records the preferred data opcode. Write and
	// WriteMessage always take the opcode from their caller and do not
	// consult this field.
	DefaultWriteOpcode WriteOpcode

	// PMDEnabled gates whether a negotiated permessage-deflate
	// configuration is actually used; a session may negotiate pmd at
	// handshake time yet still send uncompressed frames if this is
	// false when New is called. Default true.
	PMDEnabled bool

	// CompressOutgoing is the per-session toggle for SendPath rule 1.
	// Default true.
	CompressOutgoing bool

	// IdleTimeout records the idle window the caller applies to its
	// transport (for example via nettransport.New); Session itself does
	// not read it. A transport that times out surfaces as a transport
	// error, which fails the session without sending a close frame.
	IdleTimeout time.Duration
}

// DefaultOptions returns the spec's documented defaults.
func DefaultOptions() Options {
	return Options{
		MsgMax:             16 * 1024 * 1024,
		RdBufSize:          4096,
		WrBufSize:          4096,
		AutoFragment:       true,
		DefaultWriteOpcode: WriteText,
		PMDEnabled:         true,
		CompressOutgoing:   true,
	}
}
