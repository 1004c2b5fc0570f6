// Package utf8stream implements an incremental validator over the Unicode
// scalar value set for WebSocket text messages, which may be delivered
// across many non-contiguous frame payloads.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Validation rejects surrogates (U+D800..U+DFFF) and overlong encodings,
// matching RFC 3629. It never buffers more than the bytes of one partial
// multi-byte sequence (at most 3 bytes).
package utf8stream

// Validator is an incremental UTF-8 validator. The zero value is ready to
// use. It tracks how many continuation bytes remain for the sequence in
// progress and the valid range for the next one, which is what the
// overlong and surrogate rejection rules need.
type Validator struct {
	need    int  // remaining continuation bytes for the current sequence
	lo, hi  byte // allowed range for the *next* continuation byte only
	invalid bool // sticky: once false-reporting, stays invalid
}

// Write feeds additional bytes. It returns false at the earliest byte that
// cannot be a prefix of any valid string; after that, Write always returns
// false and Finish always returns false.
func (v *Validator) Write(p []byte) bool {
	if v.invalid {
		return false
	}
	for _, b := range p {
		if !v.step(b) {
			v.invalid = true
			return false
		}
	}
	return true
}

func (v *Validator) step(b byte) bool {
	if v.need == 0 {
		switch {
		case b < 0x80: // ASCII
			return true
		case b < 0xC2: // continuation byte with no lead, or overlong C0/C1 lead
			return false
		case b < 0xE0: // 2-byte sequence, lead C2..DF
			v.need = 1
			v.lo, v.hi = 0x80, 0xBF
			return true
		case b == 0xE0: // 3-byte, first continuation must be A0..BF (overlong guard)
			v.need = 2
			v.lo, v.hi = 0xA0, 0xBF
			return true
		case b < 0xED: // 3-byte, lead E1..EC
			v.need = 2
			v.lo, v.hi = 0x80, 0xBF
			return true
		case b == 0xED: // 3-byte, first continuation must be 80..9F (surrogate guard)
			v.need = 2
			v.lo, v.hi = 0x80, 0x9F
			return true
		case b < 0xF0: // 3-byte, lead EE..EF
			v.need = 2
			v.lo, v.hi = 0x80, 0xBF
			return true
		case b == 0xF0: // 4-byte, first continuation must be 90..BF (overlong guard)
			v.need = 3
			v.lo, v.hi = 0x90, 0xBF
			return true
		case b < 0xF4: // 4-byte, lead F1..F3
			v.need = 3
			v.lo, v.hi = 0x80, 0xBF
			return true
		case b == 0xF4: // 4-byte, first continuation must be 80..8F (max U+10FFFF guard)
			v.need = 3
			v.lo, v.hi = 0x80, 0x8F
			return true
		default: // F5..FF: no valid Unicode scalar starts here
			return false
		}
	}

	// Mid-sequence continuation byte.
	if b < v.lo || b > v.hi {
		return false
	}
	v.need--
	if v.need > 0 {
		// Subsequent continuation bytes (second/third) always range
		// over the full 80..BF once the first has narrowed the lead.
		v.lo, v.hi = 0x80, 0xBF
	}
	return true
}

// Finish reports whether the validator ended on a scalar-value boundary.
// It is false if a multi-byte sequence is partially pending, or if any
// prior Write already reported invalid input.
func (v *Validator) Finish() bool {
	return !v.invalid && v.need == 0
}

// Reset returns the validator to its initial state for reuse across
// messages (the session reuses one Validator per text message).
func (v *Validator) Reset() {
	*v = Validator{}
}
