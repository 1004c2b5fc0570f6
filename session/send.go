package session

import (
	"github.com/momentics/wscore/api"
	"github.com/momentics/wscore/core/maskkey"
	"github.com/momentics/wscore/core/protocol"
)

// encodeFrame builds the complete wire bytes (header + payload) of one
// frame, generating and applying a fresh mask key when this session's
// role requires masking.
func (s *Session) encodeFrame(fin, rsv1 bool, opcode protocol.Opcode, payload []byte) ([]byte, *api.Error) {
	masked := s.role == protocol.RoleClient
	body := make([]byte, len(payload))
	copy(body, payload)

	var mask [4]byte
	if masked {
		k, err := maskkey.Generate()
		if err != nil {
			return nil, transportErr(err)
		}
		mask = k
		maskkey.NewSchedule(mask).Apply(body)
	}

	hdr := make([]byte, protocol.MaxFrameHeaderLen)
	n := protocol.EncodeHeader(hdr, fin, rsv1, opcode, masked, uint64(len(body)), mask)
	out := make([]byte, n+len(body))
	copy(out, hdr[:n])
	copy(out[n:], body)
	return out, nil
}

// flushCtrlQueue writes every currently queued control frame to the
// transport under the write-lock, preserving arrival order.
func (s *Session) flushCtrlQueue() *api.Error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	return s.flushCtrlQueueLocked()
}

func (s *Session) flushCtrlQueueLocked() *api.Error {
	for _, f := range s.ctrlQ.drain() {
		if err := s.transport.WriteAll(f.bytes); err != nil {
			return transportErr(err)
		}
		s.stats.FramesSent++
	}
	return nil
}

// sendControlFrame encodes, enqueues and immediately attempts to flush a
// control frame, so a ping arriving with no write in progress still gets
// an answer promptly rather than waiting for the next WriteMessage call.
func (s *Session) sendControlFrame(opcode protocol.Opcode, payload []byte) *api.Error {
	bytes, err := s.encodeFrame(true, false, opcode, payload)
	if err != nil {
		return err
	}
	s.ctrlQ.push(ctrlFrame{bytes: bytes})
	return s.flushCtrlQueue()
}

// writeDataFrame writes one data frame's header + payload under the
// write-lock, first draining any backlog of control frames so pongs and
// close echoes are never held up behind an in-progress message.
func (s *Session) writeDataFrame(fin, rsv1 bool, opcode protocol.Opcode, payload []byte, masked bool, mask [4]byte) *api.Error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if err := s.flushCtrlQueueLocked(); err != nil {
		return err
	}

	hdr := make([]byte, protocol.MaxFrameHeaderLen)
	n := protocol.EncodeHeader(hdr, fin, rsv1, opcode, masked, uint64(len(payload)), mask)
	if err := s.transport.WriteAll(hdr[:n]); err != nil {
		return transportErr(err)
	}
	if len(payload) > 0 {
		if err := s.transport.WriteAll(payload); err != nil {
			return transportErr(err)
		}
	}
	s.stats.FramesSent++
	s.stats.BytesSent += uint64(len(payload))
	return nil
}

// WriteMessage sends data as one complete message of the given opcode
// (text or binary), applying the four SendPath rules in order.
func (s *Session) WriteMessage(opcode protocol.Opcode, data []byte) *api.Error {
	if s.closeEngine.isTerminal() {
		return s.terminalErr()
	}

	switch {
	case s.opts.CompressOutgoing && s.pmd != nil && s.pmd.deflater != nil:
		return s.sendCompressed(opcode, data)
	case s.opts.AutoFragment:
		return s.sendAutoFragmented(opcode, data)
	case s.role == protocol.RoleClient:
		return s.sendMaskedChunked(opcode, data)
	default:
		return s.sendSingleFrame(opcode, data)
	}
}

// sendCompressed implements rule 1.
func (s *Session) sendCompressed(opcode protocol.Opcode, data []byte) *api.Error {
	d := s.pmd.deflater
	if len(data) > 0 {
		if err := d.Write(data); err != nil {
			return compressionErr(err)
		}
	}
	compressed, err := d.WriteMessageEnd()
	if err != nil {
		return compressionErr(err)
	}

	if len(compressed) == 0 {
		return s.emitMaskedOrPlain(true, true, opcode, nil)
	}

	chunkSize := s.opts.WrBufSize
	if chunkSize <= 0 {
		chunkSize = len(compressed)
	}
	for off := 0; off < len(compressed); off += chunkSize {
		end := off + chunkSize
		if end > len(compressed) {
			end = len(compressed)
		}
		fin := end == len(compressed)
		frameOpcode := opcode
		rsv1 := off == 0
		if off > 0 {
			frameOpcode = protocol.OpcodeContinuation
		}
		if err := s.emitMaskedOrPlain(fin, rsv1, frameOpcode, compressed[off:end]); err != nil {
			return err
		}
	}
	return nil
}

// sendAutoFragmented implements rule 2.
func (s *Session) sendAutoFragmented(opcode protocol.Opcode, data []byte) *api.Error {
	chunkSize := s.opts.WrBufSize
	if chunkSize <= 0 {
		chunkSize = len(data)
	}
	if len(data) == 0 {
		return s.emitMaskedOrPlain(true, false, opcode, nil)
	}
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		fin := end == len(data)
		frameOpcode := opcode
		if off > 0 {
			frameOpcode = protocol.OpcodeContinuation
		}
		if err := s.emitMaskedOrPlain(fin, false, frameOpcode, data[off:end]); err != nil {
			return err
		}
	}
	return nil
}

// sendMaskedChunked implements rule 3: client role, no compression, no
// auto-fragment — the message is logically one frame but still chunked
// by write-buffer size for memory reasons.
func (s *Session) sendMaskedChunked(opcode protocol.Opcode, data []byte) *api.Error {
	return s.sendAutoFragmented(opcode, data)
}

// sendSingleFrame implements rule 4: server role, no compression, no
// fragmentation — one frame, payload written directly with no copy.
func (s *Session) sendSingleFrame(opcode protocol.Opcode, data []byte) *api.Error {
	var mask [4]byte
	return s.writeDataFrame(true, false, opcode, data, false, mask)
}

// emitMaskedOrPlain writes one frame for rules 1-3, masking it first if
// this session's role requires it; only the masking (client) path copies
// the payload into a scratch buffer.
func (s *Session) emitMaskedOrPlain(fin, rsv1 bool, opcode protocol.Opcode, payload []byte) *api.Error {
	masked := s.role == protocol.RoleClient
	if !masked {
		return s.writeDataFrame(fin, rsv1, opcode, payload, false, [4]byte{})
	}
	body := make([]byte, len(payload))
	copy(body, payload)
	k, err := maskkey.Generate()
	if err != nil {
		return transportErr(err)
	}
	maskkey.NewSchedule(k).Apply(body)
	return s.writeDataFrame(fin, rsv1, opcode, body, true, k)
}
