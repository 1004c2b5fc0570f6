// File: core/protocol/frame_codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/momentics/wscore/core/bitio"
)

// ErrNeedMoreBytes is re-exported so callers of DecodeHeader can use a
// single sentinel for "try again once more bytes arrive".
var ErrNeedMoreBytes = bitio.ErrNeedMoreBytes

// HeaderError reports a frame header that violates an RFC 6455 invariant;
// every HeaderError is a protocol error (close code 1002).
type HeaderError struct {
	Reason string
}

func (e *HeaderError) Error() string { return "protocol: " + e.Reason }

func headerErr(format string, args ...any) error {
	return &HeaderError{Reason: fmt.Sprintf(format, args...)}
}

// Header is a decoded WebSocket frame header. Length is always the fully
// decoded 64-bit payload length, regardless of which wire form held it.
type Header struct {
	Fin    bool
	Rsv1   bool
	Rsv2   bool
	Rsv3   bool
	Opcode Opcode
	Masked bool
	Length uint64
	Mask   [4]byte // valid iff Masked
}

// DecodeHeader attempts to decode one frame header from raw. It returns
// the header, the number of bytes consumed from raw, and an error. If raw
// does not yet contain a complete header, it returns ErrNeedMoreBytes and
// consumed=0; the caller should call again once more bytes are
// available, passing the same (or a superset-prefixed) buffer.
//
// pmdNegotiated tells the decoder whether rsv1 may be set at all
// (permessage-deflate was negotiated for the session). DecodeHeader does
// not know where the frame sits in a message, so with pmdNegotiated true
// it accepts rsv1 on any frame; rejecting rsv1 on control and
// continuation frames is left to the caller.
func DecodeHeader(raw []byte, pmdNegotiated bool) (Header, int, error) {
	r := bitio.NewReader()
	r.Feed(raw)

	var h Header

	fin, err := r.ReadBits(1)
	if err != nil {
		return Header{}, 0, err
	}
	h.Fin = fin == 1

	rsv1, err := r.ReadBits(1)
	if err != nil {
		return Header{}, 0, err
	}
	rsv2, err := r.ReadBits(1)
	if err != nil {
		return Header{}, 0, err
	}
	rsv3, err := r.ReadBits(1)
	if err != nil {
		return Header{}, 0, err
	}
	h.Rsv1, h.Rsv2, h.Rsv3 = rsv1 == 1, rsv2 == 1, rsv3 == 1

	opcodeBits, err := r.ReadBits(4)
	if err != nil {
		return Header{}, 0, err
	}
	h.Opcode = Opcode(opcodeBits)

	if h.Opcode.Reserved() {
		return Header{}, 0, headerErr("reserved opcode 0x%X", opcodeBits)
	}
	if h.Rsv2 || h.Rsv3 {
		return Header{}, 0, headerErr("rsv2/rsv3 must be zero")
	}
	if h.Rsv1 && !pmdNegotiated {
		return Header{}, 0, headerErr("rsv1 set without negotiated permessage-deflate")
	}

	maskBit, err := r.ReadBits(1)
	if err != nil {
		return Header{}, 0, err
	}
	h.Masked = maskBit == 1

	len7, err := r.ReadBits(7)
	if err != nil {
		return Header{}, 0, err
	}

	if h.Opcode.IsControl() && !h.Fin {
		return Header{}, 0, headerErr("control frame must not be fragmented")
	}

	var length uint64
	switch len7 {
	case 126:
		ext, err := r.ReadBytes(2)
		if err != nil {
			return Header{}, 0, err
		}
		v := binary.BigEndian.Uint16(ext)
		if v < 126 {
			return Header{}, 0, headerErr("non-canonical 16-bit length form encodes %d", v)
		}
		length = uint64(v)
	case 127:
		ext, err := r.ReadBytes(8)
		if err != nil {
			return Header{}, 0, err
		}
		v := binary.BigEndian.Uint64(ext)
		if v&(1<<63) != 0 {
			return Header{}, 0, headerErr("64-bit length form has high bit set")
		}
		if v < 65536 {
			return Header{}, 0, headerErr("non-canonical 64-bit length form encodes %d", v)
		}
		length = v
	default:
		length = uint64(len7)
	}

	if h.Opcode.IsControl() && length > MaxControlPayloadLen {
		return Header{}, 0, headerErr("control frame payload %d exceeds %d bytes", length, MaxControlPayloadLen)
	}

	h.Length = length

	if h.Masked {
		key, err := r.ReadBytes(4)
		if err != nil {
			return Header{}, 0, err
		}
		copy(h.Mask[:], key)
	}

	if !r.Aligned() {
		return Header{}, 0, errors.New("protocol: internal: header decode left unaligned bits")
	}

	consumed := len(raw) - r.Buffered()
	return h, consumed, nil
}

// EncodeHeader writes the minimal canonical header for the given fields
// into dst (which must be at least MaxFrameHeaderLen bytes) and returns
// the number of bytes written. It omits the mask key iff masked is
// false.
func EncodeHeader(dst []byte, fin bool, rsv1 bool, opcode Opcode, masked bool, length uint64, mask [4]byte) int {
	off := 0
	b0 := byte(opcode) & 0x0F
	if fin {
		b0 |= 0x80
	}
	if rsv1 {
		b0 |= 0x40
	}
	dst[off] = b0
	off++

	var maskBit byte
	if masked {
		maskBit = 0x80
	}

	switch {
	case length <= 125:
		dst[off] = byte(length) | maskBit
		off++
	case length <= 0xFFFF:
		dst[off] = 126 | maskBit
		off++
		binary.BigEndian.PutUint16(dst[off:], uint16(length))
		off += 2
	default:
		dst[off] = 127 | maskBit
		off++
		binary.BigEndian.PutUint64(dst[off:], length)
		off += 8
	}

	if masked {
		copy(dst[off:], mask[:])
		off += 4
	}
	return off
}

// HeaderLen returns the number of bytes EncodeHeader will write for the
// given length and masked-ness, without writing anything.
func HeaderLen(masked bool, length uint64) int {
	n := 1
	switch {
	case length <= 125:
		n++
	case length <= 0xFFFF:
		n += 3
	default:
		n += 9
	}
	if masked {
		n += 4
	}
	return n
}
