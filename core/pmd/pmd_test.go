package pmd_test

import (
	"bytes"
	"testing"

	"github.com/momentics/wscore/core/pmd"
)

func TestDeflateInflateRoundTrip(t *testing.T) {
	messages := []string{
		"Hello",
		"",
		"a longer message that should compress reasonably well well well well",
	}

	d, err := pmd.NewDeflater(false)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	inf := pmd.NewInflater(false)
	defer inf.Close()

	for _, msg := range messages {
		if err := d.Write([]byte(msg)); err != nil {
			t.Fatal(err)
		}
		compressed, err := d.WriteMessageEnd()
		if err != nil {
			t.Fatal(err)
		}
		got, err := inf.InflateMessage(compressed)
		if err != nil {
			t.Fatalf("message %q: inflate failed: %v", msg, err)
		}
		if !bytes.Equal(got, []byte(msg)) {
			t.Fatalf("message %q: got %q", msg, got)
		}
	}
}

func TestDeflateSplitAcrossFrames(t *testing.T) {
	d, err := pmd.NewDeflater(false)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	msg := "the quick brown fox jumps over the lazy dog"
	mid := len(msg) / 2
	if err := d.Write([]byte(msg[:mid])); err != nil {
		t.Fatal(err)
	}
	if err := d.Write([]byte(msg[mid:])); err != nil {
		t.Fatal(err)
	}
	compressed, err := d.WriteMessageEnd()
	if err != nil {
		t.Fatal(err)
	}

	inf := pmd.NewInflater(false)
	defer inf.Close()
	got, err := inf.InflateMessage(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != msg {
		t.Fatalf("got %q want %q", got, msg)
	}
}

func TestContextTakeoverDisabledStillRoundTrips(t *testing.T) {
	d, err := pmd.NewDeflater(true)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	inf := pmd.NewInflater(true)
	defer inf.Close()

	for i := 0; i < 5; i++ {
		msg := []byte("message number with some shared structure across calls")
		if err := d.Write(msg); err != nil {
			t.Fatal(err)
		}
		compressed, err := d.WriteMessageEnd()
		if err != nil {
			t.Fatal(err)
		}
		got, err := inf.InflateMessage(compressed)
		if err != nil {
			t.Fatalf("round %d: %v", i, err)
		}
		if !bytes.Equal(got, msg) {
			t.Fatalf("round %d: got %q", i, got)
		}
	}
}

func TestEmptyMessageProducesEmptyOutput(t *testing.T) {
	d, err := pmd.NewDeflater(false)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	compressed, err := d.WriteMessageEnd()
	if err != nil {
		t.Fatal(err)
	}

	inf := pmd.NewInflater(false)
	defer inf.Close()
	got, err := inf.InflateMessage(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty message, got %q", got)
	}
}
