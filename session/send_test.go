package session_test

import (
	"context"
	"testing"

	"github.com/momentics/wscore/core/maskkey"
	"github.com/momentics/wscore/core/protocol"
	"github.com/momentics/wscore/fake"
	"github.com/momentics/wscore/session"
)

func TestSendSingleFrameServerNoCopy(t *testing.T) {
	s, tr := newServerSession(t)
	if err := s.Write(context.Background(), protocol.OpcodeText, []byte("Hi")); err != nil {
		t.Fatal(err)
	}
	sent := tr.SentBytes()
	want := []byte{0x81, 0x02, 'H', 'i'}
	if string(sent) != string(want) {
		t.Fatalf("got %x want %x", sent, want)
	}
}

func TestClientWriteMasksAndUnmasksToOriginal(t *testing.T) {
	tr := fake.NewTransport()
	opts := session.DefaultOptions()
	opts.AutoFragment = false
	s, err := session.New(tr, protocol.RoleClient, opts, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(context.Background(), protocol.OpcodeText, []byte("Hi")); err != nil {
		t.Fatal(err)
	}
	sent := tr.SentBytes()
	if sent[0] != 0x81 || sent[1] != 0x82 {
		t.Fatalf("expected fin=1 text masked len=2, got %x", sent)
	}
	var mask [4]byte
	copy(mask[:], sent[2:6])
	body := append([]byte{}, sent[6:8]...)
	maskkey.NewSchedule(mask).Apply(body)
	if string(body) != "Hi" {
		t.Fatalf("unmask mismatch: %q", body)
	}
}

func TestAutoFragmentChunksLargeMessage(t *testing.T) {
	tr := fake.NewTransport()
	opts := session.DefaultOptions()
	opts.WrBufSize = 4
	s, err := session.New(tr, protocol.RoleServer, opts, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(context.Background(), protocol.OpcodeText, []byte("abcdefgh")); err != nil {
		t.Fatal(err)
	}
	sent := tr.SentBytes()
	// First frame: fin=0 text len=4 "abcd"; second: fin=1 continuation len=4 "efgh"
	want := []byte{0x01, 0x04, 'a', 'b', 'c', 'd', 0x80, 0x04, 'e', 'f', 'g', 'h'}
	if string(sent) != string(want) {
		t.Fatalf("got %x want %x", sent, want)
	}
}

func TestPingFlushesAheadOfLargeWrite(t *testing.T) {
	tr := fake.NewTransport()
	opts := session.DefaultOptions()
	opts.WrBufSize = 4
	s, err := session.New(tr, protocol.RoleServer, opts, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	tr.FeedInbound(buildFrame(true, false, protocol.OpcodePing, true, nil))
	// Read returns only once a data frame arrives, so one follows the ping.
	tr.FeedInbound(buildFrame(true, false, protocol.OpcodeText, true, []byte("x")))
	if _, err := s.Read(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Larger than WrBufSize, so the write spans two frames.
	if err := s.Write(context.Background(), protocol.OpcodeText, []byte("abcdefgh")); err != nil {
		t.Fatal(err)
	}
	sent := tr.SentBytes()
	if sent[0] != 0x8A {
		t.Fatalf("expected pong to have been flushed before data frame, got %x", sent)
	}
}
