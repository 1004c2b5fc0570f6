package session

import (
	"encoding/binary"

	"github.com/momentics/wscore/api"
	"github.com/momentics/wscore/core/protocol"
	"github.com/momentics/wscore/core/utf8stream"
)

// closeEngine tracks close_sent/close_received and builds the close
// frames this session emits. It does not itself touch the transport;
// Session.sendControlFrame and Session.fail do, under the write-lock.
type closeEngine struct {
	state *closeState
}

func newCloseEngine(s *closeState) *closeEngine {
	return &closeEngine{state: s}
}

// buildClosePayload encodes a close frame payload: code big-endian followed by
// reason, or empty if code is 0.
func buildClosePayload(code uint16, reason string) []byte {
	if code == 0 {
		return nil
	}
	buf := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(buf, code)
	copy(buf[2:], reason)
	return buf
}

// initiateClose marks close_sent and returns the payload to send, or nil
// if a close was already sent.
func (c *closeEngine) initiateClose(code uint16, reason string) ([]byte, bool) {
	if c.state.closeSent {
		return nil, false
	}
	c.state.closeSent = true
	return buildClosePayload(code, reason), true
}

// parseClosePayload decodes an inbound close frame's payload per spec
// §4.6.2: empty, a bare 2-byte code, or a code plus UTF-8 reason.
func parseClosePayload(payload []byte) (code uint16, reason string, err *api.Error) {
	switch {
	case len(payload) == 0:
		return 0, "", nil
	case len(payload) == 1:
		return 0, "", protocolErr("close frame has 1-byte payload, expected 0 or >=2")
	default:
		code = binary.BigEndian.Uint16(payload[:2])
		if protocol.CloseCodeInvalid(code) {
			return 0, "", protocolErr("close code %d is not valid on the wire", code)
		}
		reasonBytes := payload[2:]
		var v utf8stream.Validator
		if !v.Write(reasonBytes) || !v.Finish() {
			return 0, "", protocolErr("close reason is not valid UTF-8")
		}
		return code, string(reasonBytes), nil
	}
}

// onInboundClose records a received close and decides the reply payload
// (nil reply means "already sent, no reply needed").
func (c *closeEngine) onInboundClose(code uint16, reason string) []byte {
	c.state.closeReceived = true
	c.state.receivedCode = code
	c.state.receivedReason = reason

	if c.state.closeSent {
		return nil
	}
	c.state.closeSent = true
	if code == 0 {
		return buildClosePayload(protocol.CloseNormalClosure, "")
	}
	return buildClosePayload(code, "")
}

// isTerminal reports whether the session has finished its close
// handshake or failed.
func (c *closeEngine) isTerminal() bool {
	return c.state.failed || (c.state.closeSent && c.state.closeReceived)
}
