package protocol_test

import (
	"testing"

	"github.com/momentics/wscore/core/protocol"
)

func TestHeaderRoundTrip(t *testing.T) {
	lengths := []uint64{0, 1, 125, 126, 65535, 65536, 1 << 20, 1 << 32}
	for _, length := range lengths {
		for _, masked := range []bool{false, true} {
			h := protocol.Header{
				Fin:    true,
				Opcode: protocol.OpcodeBinary,
				Masked: masked,
				Length: length,
				Mask:   [4]byte{0xAA, 0xBB, 0xCC, 0xDD},
			}
			buf := make([]byte, protocol.MaxFrameHeaderLen)
			n := protocol.EncodeHeader(buf, h.Fin, h.Rsv1, h.Opcode, h.Masked, h.Length, h.Mask)

			got, consumed, err := protocol.DecodeHeader(buf[:n], false)
			if err != nil {
				t.Fatalf("length=%d masked=%v: decode error: %v", length, masked, err)
			}
			if consumed != n {
				t.Fatalf("length=%d masked=%v: consumed %d want %d", length, masked, consumed, n)
			}
			if got.Fin != h.Fin || got.Opcode != h.Opcode || got.Masked != h.Masked || got.Length != h.Length {
				t.Fatalf("length=%d masked=%v: round-trip mismatch: %+v", length, masked, got)
			}
			if masked && got.Mask != h.Mask {
				t.Fatalf("mask key mismatch: %v vs %v", got.Mask, h.Mask)
			}
		}
	}
}

func TestDecodeHeaderNeedsMoreBytes(t *testing.T) {
	h := protocol.Header{Fin: true, Opcode: protocol.OpcodeText, Masked: true, Length: 300}
	buf := make([]byte, protocol.MaxFrameHeaderLen)
	n := protocol.EncodeHeader(buf, h.Fin, false, h.Opcode, h.Masked, h.Length, [4]byte{1, 2, 3, 4})

	for i := 0; i < n; i++ {
		if _, _, err := protocol.DecodeHeader(buf[:i], false); err != protocol.ErrNeedMoreBytes {
			t.Fatalf("prefix len=%d: expected ErrNeedMoreBytes, got %v", i, err)
		}
	}
	if _, consumed, err := protocol.DecodeHeader(buf[:n], false); err != nil || consumed != n {
		t.Fatalf("full header should decode cleanly: consumed=%d err=%v", consumed, err)
	}
}

func TestDecodeRejectsNonCanonicalLength16(t *testing.T) {
	// 126 marker but encodes a value that fits the 7-bit form (<126).
	raw := []byte{0x82, 126, 0x00, 0x05}
	if _, _, err := protocol.DecodeHeader(raw, false); err == nil {
		t.Fatal("expected rejection of non-canonical 16-bit length")
	}
}

func TestDecodeRejectsNonCanonicalLength64(t *testing.T) {
	raw := make([]byte, 10)
	raw[0] = 0x82
	raw[1] = 127
	// encodes 65535, which fits the 16-bit form.
	raw[2], raw[3], raw[4], raw[5], raw[6], raw[7], raw[8], raw[9] = 0, 0, 0, 0, 0, 0, 0xFF, 0xFF
	if _, _, err := protocol.DecodeHeader(raw, false); err == nil {
		t.Fatal("expected rejection of non-canonical 64-bit length")
	}
}

func TestDecodeRejects64BitHighBitSet(t *testing.T) {
	raw := make([]byte, 10)
	raw[0] = 0x82
	raw[1] = 127
	raw[2] = 0x80 // high bit set
	if _, _, err := protocol.DecodeHeader(raw, false); err == nil {
		t.Fatal("expected rejection of length with high bit set")
	}
}

func TestDecodeRejectsReservedOpcode(t *testing.T) {
	raw := []byte{0x83, 0x00} // fin=1, opcode=3 (reserved)
	if _, _, err := protocol.DecodeHeader(raw, false); err == nil {
		t.Fatal("expected rejection of reserved opcode")
	}
}

func TestDecodeRejectsRsv1WithoutPMD(t *testing.T) {
	raw := []byte{0xC1, 0x00} // fin=1, rsv1=1, opcode=text
	if _, _, err := protocol.DecodeHeader(raw, false); err == nil {
		t.Fatal("expected rejection of rsv1 without negotiated pmd")
	}
	if _, _, err := protocol.DecodeHeader(raw, true); err != nil {
		t.Fatalf("rsv1 should be accepted when pmd negotiated: %v", err)
	}
}

func TestDecodeRejectsRsv2Rsv3(t *testing.T) {
	raw := []byte{0xA1, 0x00} // fin=1, rsv2=1, opcode=text
	if _, _, err := protocol.DecodeHeader(raw, false); err == nil {
		t.Fatal("expected rejection of rsv2")
	}
}

func TestDecodeRejectsFragmentedControl(t *testing.T) {
	raw := []byte{0x09, 0x00} // fin=0, opcode=ping
	if _, _, err := protocol.DecodeHeader(raw, false); err == nil {
		t.Fatal("expected rejection of fragmented control frame")
	}
}

func TestDecodeRejectsOversizeControlPayload(t *testing.T) {
	raw := []byte{0x89, 126, 0x00, 126} // fin=1, opcode=ping, 16-bit length form = 126
	if _, _, err := protocol.DecodeHeader(raw, false); err == nil {
		t.Fatal("expected rejection of oversize control payload")
	}
}

func TestEncodeHeaderMinimalForm(t *testing.T) {
	cases := []struct {
		length   uint64
		wantForm byte
	}{
		{0, 0}, {125, 125}, {126, 126}, {65535, 126}, {65536, 127},
	}
	for _, c := range cases {
		buf := make([]byte, protocol.MaxFrameHeaderLen)
		protocol.EncodeHeader(buf, true, false, protocol.OpcodeBinary, false, c.length, [4]byte{})
		if got := buf[1] & 0x7F; got != c.wantForm {
			t.Fatalf("length=%d: got form byte %d want %d", c.length, got, c.wantForm)
		}
	}
}
