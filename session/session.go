package session

import (
	"context"
	"time"

	"github.com/momentics/wscore/api"
	"github.com/momentics/wscore/control"
	"github.com/momentics/wscore/core/buffer"
	"github.com/momentics/wscore/core/concurrency"
	"github.com/momentics/wscore/core/pmd"
	"github.com/momentics/wscore/core/protocol"
	"github.com/momentics/wscore/handshake"
)

// Session holds a connection's role, negotiated options, receive/send
// state, and orchestrates ReceivePath, SendPath and CloseEngine above a
// caller-supplied Transport. It is safe for one concurrent reader and
// one concurrent writer (see core/concurrency.WriteLock for the
// serialization guarantee on the wire), but never for two concurrent
// readers or two concurrent writers.
type Session struct {
	role protocol.Role
	opts Options

	transport api.Transport
	bytePool  api.BytePool

	rdAcc   []byte
	rdStart int

	rd readState
	wr writeState
	cl closeState
	pmd *pmdState

	msgAccum []byte

	writeLock *concurrency.WriteLock
	ctrlQ     *ctrlQueue

	pongObserver api.PongObserver
	closeEngine  *closeEngine

	metrics  *control.MetricsRegistry
	stats    api.Stats
	openedAt time.Time
}

// New creates a Session over transport for the given role. pmdCfg is the
// result the handshake layer produced (nil if permessage-deflate was not
// negotiated); pongObserver may be nil.
func New(transport api.Transport, role protocol.Role, opts Options, pmdCfg *handshake.PMDConfig, pongObserver api.PongObserver) (*Session, error) {
	s := &Session{
		role:         role,
		opts:         opts,
		transport:    transport,
		bytePool:     buffer.New(),
		writeLock:    concurrency.NewWriteLock(),
		ctrlQ:        newCtrlQueue(),
		pongObserver: pongObserver,
		metrics:      control.NewMetricsRegistry(),
		openedAt:     timeNow(),
	}
	s.closeEngine = newCloseEngine(&s.cl)
	s.wr.autoFragment = opts.AutoFragment

	if pmdCfg != nil && opts.PMDEnabled {
		pst := &pmdState{
			serverNoContextTakeover: pmdCfg.ServerNoContextTakeover,
			clientNoContextTakeover: pmdCfg.ClientNoContextTakeover,
			serverMaxWindowBits:     pmdCfg.ServerMaxWindowBits,
			clientMaxWindowBits:     pmdCfg.ClientMaxWindowBits,
		}
		var outboundNoContext, inboundNoContext bool
		if role == protocol.RoleClient {
			outboundNoContext = pst.clientNoContextTakeover
			inboundNoContext = pst.serverNoContextTakeover
		} else {
			outboundNoContext = pst.serverNoContextTakeover
			inboundNoContext = pst.clientNoContextTakeover
		}
		d, err := pmd.NewDeflater(outboundNoContext)
		if err != nil {
			return nil, err
		}
		pst.deflater = d
		pst.inflater = pmd.NewInflater(inboundNoContext)
		s.pmd = pst
	}

	s.stats.OpenedAt = s.openedAt
	s.stats.Status = api.SessionActive
	return s, nil
}

// timeNow exists so Session construction does not call time.Now directly
// in more than one place; kept trivial on purpose.
func timeNow() time.Time { return time.Now() }

// Role reports the session's immutable role.
func (s *Session) Role() protocol.Role { return s.role }

// Status reports the session's current lifecycle state.
func (s *Session) Status() api.SessionStatus { return s.stats.Status }

// Stats returns a snapshot of this session's counters, after publishing
// them to the session's MetricsRegistry so a server aggregating many
// sessions can read the same numbers without calling into the Session
// directly.
func (s *Session) Stats() api.Stats {
	s.metrics.Set("frames_received", s.stats.FramesReceived)
	s.metrics.Set("frames_sent", s.stats.FramesSent)
	s.metrics.Set("bytes_received", s.stats.BytesReceived)
	s.metrics.Set("bytes_sent", s.stats.BytesSent)
	s.metrics.Set("status", s.stats.Status.String())
	return s.stats
}

// Metrics exposes the registry backing this session's published
// counters, for a caller that wants to merge it into a server-wide set.
func (s *Session) Metrics() *control.MetricsRegistry {
	return s.metrics
}

// PeerCloseInfo reports the code and reason the peer sent in its close
// frame, if one has been received yet.
func (s *Session) PeerCloseInfo() (code uint16, reason string, ok bool) {
	if !s.cl.closeReceived {
		return 0, "", false
	}
	return s.cl.receivedCode, s.cl.receivedReason, true
}

func (s *Session) terminalErr() *api.Error {
	if s.cl.failed {
		return failedErr
	}
	return closedErr
}

// Read blocks until one data frame's worth of application bytes is
// available, dispatching any control frames encountered along the way.
// ctx is checked only when Read is entered, before any transport read
// begins; once started, a read runs to completion per the cancellation
// contract in spec.md §5.
func (s *Session) Read(ctx context.Context) (Frame, error) {
	if s.closeEngine.isTerminal() {
		return Frame{}, s.terminalErr()
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	f, err := s.receiveFrame()
	if err != nil {
		if err.Reason == api.ReasonClosed {
			s.stats.Status = api.SessionClosed
			_ = s.transport.Teardown()
			return Frame{}, err
		}
		s.fail(err)
		return Frame{}, err
	}
	s.stats.FramesReceived++
	s.stats.BytesReceived += uint64(len(f.Data))
	if s.cl.closeReceived && s.cl.closeSent {
		s.stats.Status = api.SessionClosed
	}
	return f, nil
}

// Write sends one complete message. ctx is honored only before the
// first frame of the message begins transmitting.
func (s *Session) Write(ctx context.Context, opcode protocol.Opcode, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.WriteMessage(opcode, data); err != nil {
		if err != closedErr && err != failedErr {
			s.fail(err)
		}
		return err
	}
	return nil
}

// Close initiates a normal close handshake with CloseNormalClosure.
func (s *Session) Close() error {
	return s.CloseWithReason(protocol.CloseNormalClosure, "")
}

// CloseWithReason initiates a close handshake with the given code and
// UTF-8 reason (reason must be <=123 bytes to fit the 125-byte control
// payload limit alongside the 2-byte code).
func (s *Session) CloseWithReason(code uint16, reason string) error {
	payload, ok := s.closeEngine.initiateClose(code, reason)
	if !ok {
		return nil
	}
	s.stats.Status = api.SessionClosing
	if err := s.sendControlFrame(protocol.OpcodeClose, payload); err != nil {
		return err
	}
	return nil
}

// fail marks the session Failed, best-effort emits a close frame
// carrying the triggering error's close code, and tears down the
// transport. Matches CloseEngine.fail in spec.md §4.8.
func (s *Session) fail(cause *api.Error) {
	if s.cl.failed {
		return
	}
	s.cl.failed = true
	s.stats.Status = api.SessionClosed

	if cause != nil && cause.CloseCode != 0 {
		if payload, ok := s.closeEngine.initiateClose(cause.CloseCode, ""); ok {
			_ = s.sendControlFrame(protocol.OpcodeClose, payload)
		}
	}
	_ = s.transport.Teardown()
}
