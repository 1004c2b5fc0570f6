package session

import (
	"fmt"

	"github.com/momentics/wscore/api"
	"github.com/momentics/wscore/core/protocol"
)

// protocolErr builds a ProtocolError api.Error with close code 1002.
func protocolErr(format string, args ...any) *api.Error {
	return api.NewError(api.ReasonProtocolError, protocol.CloseProtocolError, fmt.Sprintf(format, args...))
}

func badPayloadErr(format string, args ...any) *api.Error {
	return api.NewError(api.ReasonBadPayload, protocol.CloseInvalidPayloadData, fmt.Sprintf(format, args...))
}

func tooBigErr(format string, args ...any) *api.Error {
	return api.NewError(api.ReasonTooBig, protocol.CloseMessageTooBig, fmt.Sprintf(format, args...))
}

func compressionErr(cause error) *api.Error {
	return api.WrapError(api.ReasonCompressionError, protocol.CloseProtocolError, "permessage-deflate inflate failed", cause)
}

func transportErr(cause error) *api.Error {
	return api.WrapError(api.ReasonTransportError, 0, "transport operation failed", cause)
}

// closedErr and failedErr are returned by operations invoked after the
// session has reached a terminal state.
var (
	closedErr = api.NewError(api.ReasonClosed, 0, "session closed")
	failedErr = api.NewError(api.ReasonFailed, 0, "session failed")
)
