package session

import (
	"io"

	"github.com/momentics/wscore/api"
	"github.com/momentics/wscore/core/maskkey"
	"github.com/momentics/wscore/core/protocol"
)

// ensure guarantees at least n unread bytes are available starting at
// s.rdStart, refilling from the transport as needed.
func (s *Session) ensure(n int) error {
	for len(s.rdAcc)-s.rdStart < n {
		if err := s.refill(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) refill() error {
	buf := s.bytePool.Get(s.opts.RdBufSize)
	nRead, err := s.transport.ReadSome(buf)
	if err != nil {
		s.bytePool.Put(buf)
		if err == io.EOF {
			return transportErr(err)
		}
		return transportErr(err)
	}
	if s.rdStart > 0 && s.rdStart == len(s.rdAcc) {
		s.rdAcc = s.rdAcc[:0]
		s.rdStart = 0
	}
	s.rdAcc = append(s.rdAcc, buf[:nRead]...)
	s.bytePool.Put(buf)
	return nil
}

// compactReadBuffer discards consumed bytes once the backlog grows,
// keeping long-lived sessions from retaining an ever-growing buffer.
func (s *Session) compactReadBuffer() {
	if s.rdStart == 0 {
		return
	}
	if s.rdStart == len(s.rdAcc) {
		s.rdAcc = s.rdAcc[:0]
		s.rdStart = 0
		return
	}
	if s.rdStart > 64*1024 {
		s.rdAcc = append(s.rdAcc[:0], s.rdAcc[s.rdStart:]...)
		s.rdStart = 0
	}
}

// readHeader decodes the next frame header, refilling the accumulator
// until DecodeHeader succeeds.
func (s *Session) readHeader() (protocol.Header, error) {
	for {
		h, consumed, err := protocol.DecodeHeader(s.rdAcc[s.rdStart:], s.pmd != nil)
		if err == nil {
			s.rdStart += consumed
			s.compactReadBuffer()
			return h, nil
		}
		if err != protocol.ErrNeedMoreBytes {
			return protocol.Header{}, protocolErr("frame header decode failed: %v", err)
		}
		if err := s.refill(); err != nil {
			return protocol.Header{}, err
		}
	}
}

// readFramePayload returns the raw (still masked) bytes of the current
// frame's payload, refilling as needed.
func (s *Session) readFramePayload(length uint64) ([]byte, error) {
	if err := s.ensure(int(length)); err != nil {
		return nil, err
	}
	out := s.rdAcc[s.rdStart : s.rdStart+int(length)]
	s.rdStart += int(length)
	s.compactReadBuffer()
	return out, nil
}

// validateHeaderAgainstSession applies the session-scoped invariants
// DecodeHeader cannot check on its own: masking direction by role,
// rsv1 legality by opcode/position, and continuation bookkeeping.
func (s *Session) validateHeaderAgainstSession(h protocol.Header) *api.Error {
	wantMasked := s.role == protocol.RoleServer
	if h.Masked != wantMasked {
		return protocolErr("frame masked=%v does not match required direction for role %v", h.Masked, s.role)
	}

	if h.Rsv1 {
		if h.Opcode.IsControl() || h.Opcode == protocol.OpcodeContinuation {
			return protocolErr("rsv1 set on %v frame", h.Opcode)
		}
	}

	if !h.Opcode.IsControl() {
		if h.Opcode == protocol.OpcodeContinuation {
			if !s.rd.expectingContinuation {
				return protocolErr("continuation frame without an active message")
			}
		} else if s.rd.expectingContinuation {
			return protocolErr("data frame with opcode %v while continuation expected", h.Opcode)
		}
	}
	return nil
}

// Frame is one data frame's worth of decoded, application-visible bytes
// returned by Session.Read.
type Frame struct {
	Opcode protocol.Opcode
	Fin    bool
	Data   []byte
}

// receiveFrame implements ReceivePath: it decodes and handles frames
// (dispatching any controls it encounters along the way) until one data
// frame's application-visible bytes are ready to return.
func (s *Session) receiveFrame() (Frame, *api.Error) {
	for {
		h, err := s.readHeader()
		if err != nil {
			if ae, ok := err.(*api.Error); ok {
				return Frame{}, ae
			}
			return Frame{}, transportErr(err)
		}

		if verr := s.validateHeaderAgainstSession(h); verr != nil {
			return Frame{}, verr
		}

		if h.Opcode.IsControl() {
			payload, rerr := s.readFramePayload(h.Length)
			if rerr != nil {
				return Frame{}, asAPIError(rerr)
			}
			unmasked := unmaskCopy(h, payload)
			if cerr := s.handleControlFrame(h, unmasked); cerr != nil {
				return Frame{}, cerr
			}
			if s.closeEngine.isTerminal() {
				return Frame{}, closedErr
			}
			continue
		}

		return s.receiveDataFrame(h)
	}
}

func asAPIError(err error) *api.Error {
	if ae, ok := err.(*api.Error); ok {
		return ae
	}
	return transportErr(err)
}

func unmaskCopy(h protocol.Header, payload []byte) []byte {
	out := make([]byte, len(payload))
	copy(out, payload)
	if h.Masked {
		maskkey.NewSchedule(h.Mask).Apply(out)
	}
	return out
}

func (s *Session) handleControlFrame(h protocol.Header, payload []byte) *api.Error {
	switch h.Opcode {
	case protocol.OpcodePing:
		return s.sendControlFrame(protocol.OpcodePong, payload)
	case protocol.OpcodePong:
		if s.pongObserver != nil {
			s.pongObserver(payload)
		}
		return nil
	case protocol.OpcodeClose:
		code, reason, perr := parseClosePayload(payload)
		if perr != nil {
			return perr
		}
		reply := s.closeEngine.onInboundClose(code, reason)
		if reply != nil {
			return s.sendControlFrame(protocol.OpcodeClose, reply)
		}
		return nil
	default:
		return protocolErr("unhandled control opcode %v", h.Opcode)
	}
}

// receiveDataFrame processes one data (or continuation) frame's payload
// according to spec §4.6 step 3-4.
func (s *Session) receiveDataFrame(h protocol.Header) (Frame, *api.Error) {
	newAccum := s.rd.bytesReceivedInMsg + h.Length
	if s.opts.MsgMax != 0 && newAccum > s.opts.MsgMax {
		return Frame{}, tooBigErr("message size %d exceeds msg_max %d", newAccum, s.opts.MsgMax)
	}
	s.rd.bytesReceivedInMsg = newAccum

	raw, rerr := s.readFramePayload(h.Length)
	if rerr != nil {
		return Frame{}, asAPIError(rerr)
	}
	payload := unmaskCopy(h, raw)

	if h.Opcode != protocol.OpcodeContinuation {
		s.rd.currentMessageOpcode = h.Opcode
		s.rd.compressedMessage = h.Rsv1
		s.rd.utf8.Reset()
		s.msgAccum = s.msgAccum[:0]
	}
	s.rd.expectingContinuation = !h.Fin

	if s.rd.compressedMessage {
		s.msgAccum = append(s.msgAccum, payload...)
		if !h.Fin {
			return Frame{Opcode: h.Opcode, Fin: false}, nil
		}
		if s.pmd == nil || s.pmd.inflater == nil {
			return Frame{}, protocolErr("compressed message received but permessage-deflate is not active")
		}
		plain, ierr := s.pmd.inflater.InflateMessage(s.msgAccum)
		if ierr != nil {
			return Frame{}, compressionErr(ierr)
		}
		s.msgAccum = s.msgAccum[:0]
		msgOpcode := s.rd.currentMessageOpcode
		if msgOpcode == protocol.OpcodeText {
			if !s.rd.utf8.Write(plain) || !s.rd.utf8.Finish() {
				return Frame{}, badPayloadErr("decompressed text message is not valid UTF-8")
			}
		}
		s.rd.resetMessage()
		return Frame{Opcode: msgOpcode, Fin: true, Data: plain}, nil
	}

	if s.rd.currentMessageOpcode == protocol.OpcodeText {
		if !s.rd.utf8.Write(payload) {
			return Frame{}, badPayloadErr("text message is not valid UTF-8")
		}
		if h.Fin && !s.rd.utf8.Finish() {
			return Frame{}, badPayloadErr("text message ends mid-sequence")
		}
	}

	opcode := s.rd.currentMessageOpcode
	fin := h.Fin
	if fin {
		s.rd.resetMessage()
	}
	return Frame{Opcode: opcode, Fin: fin, Data: payload}, nil
}
