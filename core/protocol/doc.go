// Package protocol implements the RFC 6455 wire format: the frame header
// codec (encoding and bit-exact decoding, including the canonical-length
// rule) and the opcode/close-code vocabulary.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// This package has no notion of a multi-frame message, masking direction
// by role, or compression; those live in maskkey, pmd, and session
// respectively. Keeping the header codec free of session state is what
// lets it be fed partial buffers and retried without any side effects on
// ErrNeedMoreBytes.
package protocol
