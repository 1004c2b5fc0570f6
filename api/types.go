// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations, DTOs, and constants.

package api

import "time"

// SessionStatus enumerates the state of a WebSocket session.
type SessionStatus int

const (
	SessionUnknown SessionStatus = iota
	SessionConnecting
	SessionActive
	SessionClosing
	SessionClosed
)

func (s SessionStatus) String() string {
	switch s {
	case SessionConnecting:
		return "connecting"
	case SessionActive:
		return "active"
	case SessionClosing:
		return "closing"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stats is the snapshot a session exposes via Session.Stats(), fed into
// a control.MetricsRegistry by the server embedding this engine.
type Stats struct {
	FramesReceived int
	FramesSent     int
	BytesReceived  uint64
	BytesSent      uint64
	OpenedAt       time.Time
	Status         SessionStatus
}
