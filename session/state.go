package session

import (
	"github.com/momentics/wscore/core/pmd"
	"github.com/momentics/wscore/core/protocol"
	"github.com/momentics/wscore/core/utf8stream"
)

// readState is the ReceivePath's mutable state, owned exclusively by
// receive operations.
type readState struct {
	expectingContinuation bool
	currentMessageOpcode  protocol.Opcode
	bytesReceivedInMsg    uint64
	compressedMessage     bool
	utf8                  utf8stream.Validator
}

func (r *readState) resetMessage() {
	r.expectingContinuation = false
	r.currentMessageOpcode = protocol.OpcodeContinuation
	r.bytesReceivedInMsg = 0
	r.compressedMessage = false
	r.utf8.Reset()
}

// writeState is the SendPath's mutable state, owned exclusively by write
// operations.
type writeState struct {
	autoFragment bool
}

// closeState tracks the bidirectional close handshake.
type closeState struct {
	closeSent      bool
	closeReceived  bool
	failed         bool
	receivedCode   uint16
	receivedReason string
}

// pmdState holds the negotiated permessage-deflate configuration and the
// live inflater/deflater pair, or is nil if pmd was not negotiated or is
// disabled for this session.
type pmdState struct {
	inflater *pmd.Inflater
	deflater *pmd.Deflater

	serverNoContextTakeover bool
	clientNoContextTakeover bool
	serverMaxWindowBits     int
	clientMaxWindowBits     int
}
