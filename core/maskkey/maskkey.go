// Package maskkey implements WebSocket payload masking (RFC 6455 §5.3):
// 32-bit key generation and the rotating XOR schedule used to apply or
// reverse the mask across payload bytes delivered in arbitrary slices.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package maskkey

import "crypto/rand"

// Key is a 32-bit WebSocket masking key.
type Key [4]byte

// Generate draws a fresh masking key from a CSPRNG. math/rand is not
// acceptable here: the spec requires output that is not predictable from
// prior observable traffic, which only a cryptographic source can promise.
func Generate() (Key, error) {
	var k Key
	if _, err := rand.Read(k[:]); err != nil {
		return Key{}, err
	}
	return k, nil
}

// Schedule carries the rotation offset between successive calls so that
// masking or unmasking a payload delivered in several slices produces the
// same result as one call over the whole payload.
type Schedule struct {
	key Key
	pos uint8 // 0..3, index into key for the next byte
}

// NewSchedule starts a schedule at the beginning of key's rotation.
func NewSchedule(key Key) *Schedule {
	return &Schedule{key: key}
}

// Apply XORs buf in place against the rotating key and advances the
// schedule by len(buf) bytes. Calling Apply twice with schedules that
// started at the same offset is an involution: it recovers the original
// bytes.
func (s *Schedule) Apply(buf []byte) {
	k := s.key
	pos := s.pos
	for i := range buf {
		buf[i] ^= k[pos]
		pos = (pos + 1) & 3
	}
	s.pos = pos
}

// Pos reports the current rotation offset (0..3), mostly useful for tests.
func (s *Schedule) Pos() uint8 { return s.pos }

// MaskInPlace XORs every buffer in bufs against key in order, threading a
// single rotation across all of them — equivalent to concatenating bufs
// and masking the concatenation in one call.
func MaskInPlace(key Key, bufs ...[]byte) {
	s := NewSchedule(key)
	for _, b := range bufs {
		s.Apply(b)
	}
}
