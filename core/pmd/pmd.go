// Package pmd implements the permessage-deflate extension (RFC 7692): a
// per-message raw-DEFLATE codec with context-takeover policy and the
// trailing-empty-block rule.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the same compress/flate usage as
// oesand-plow/ws/frame_content.go (flate.NewReader/flate.NewWriter over
// raw DEFLATE, no zlib wrapper), generalized here into long-lived
// streaming Inflater/Deflater types that persist across messages when
// context takeover is enabled, instead of allocating one writer per
// payload.
package pmd

import (
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"io"
)

// syncTail is the 4-byte empty non-compressed DEFLATE block RFC 7692
// §7.2.1 requires appending to a message's compressed output, and which
// the sender strips before transmission.
var syncTail = [4]byte{0x00, 0x00, 0xFF, 0xFF}

// finalTail restores syncTail (so the decoder sees the sync point the
// sender stripped) and adds a genuine empty BFINAL stored block
// (header byte 0x01, LEN=0x0000, NLEN=0xFFFF) after it. compress/flate's
// Reader has no API for "decode whatever is currently decodable and
// pause without error"; it only reports success via a clean io.EOF at a
// real final block. Appending this second, real terminator is what lets
// a fresh flate.Reader per message reach io.EOF instead of
// io.ErrUnexpectedEOF — the same technique gorilla/websocket uses for
// the same reason. It is transmission-invisible: finalTail exists only
// on the inflate side of this process, never on the wire.
var finalTail = [9]byte{0x00, 0x00, 0xFF, 0xFF, 0x01, 0x00, 0x00, 0xFF, 0xFF}

// maxDictWindow is the largest LZ77 window compress/flate supports.
const maxDictWindow = 32768

// ErrCompression wraps any inflate failure (data error, needs
// dictionary, or truncated stream); the session treats it as a protocol
// violation per spec §7.
var ErrCompression = errors.New("pmd: compression error")

// Deflater compresses one message at a time into raw DEFLATE. Writes
// during a message are buffered with no flush; WriteMessageEnd issues a
// sync flush (flate.Writer.Flush, Zlib's Z_SYNC_FLUSH equivalent — it
// does not reset the compressor's dictionary, only Z_FULL_FLUSH would)
// which byte-aligns the stream with a trailing empty stored block.
type Deflater struct {
	noContextTakeover bool
	buf               bytes.Buffer
	w                 *flate.Writer
}

// NewDeflater creates a Deflater. noContextTakeover mirrors the
// session's {client|server}_no_context_takeover setting for this
// endpoint's outgoing direction.
func NewDeflater(noContextTakeover bool) (*Deflater, error) {
	w, err := flate.NewWriter(nil, flate.BestSpeed)
	if err != nil {
		return nil, err
	}
	d := &Deflater{noContextTakeover: noContextTakeover, w: w}
	d.w.Reset(&d.buf)
	return d, nil
}

// Write feeds message bytes into the compressor. It does not flush;
// compressed output only becomes available after WriteMessageEnd.
func (d *Deflater) Write(p []byte) error {
	_, err := d.w.Write(p)
	return err
}

// WriteMessageEnd flushes the compressor so every byte written so far is
// available, appends the RFC 7692 tail, strips it back off, and returns
// the final compressed bytes for this message. Per spec §9, a message
// with zero input still produces a single final frame: Flush with no
// pending input yields one 0x00 byte followed by the 4-byte tail, so the
// stripped payload is that single 0x00 byte.
func (d *Deflater) WriteMessageEnd() ([]byte, error) {
	if err := d.w.Flush(); err != nil {
		return nil, err
	}
	out := d.buf.Bytes()
	out = bytes.TrimSuffix(out, syncTail[:])
	result := make([]byte, len(out))
	copy(result, out)
	d.buf.Reset()

	if d.noContextTakeover {
		d.w.Reset(&d.buf)
	}
	return result, nil
}

// Close releases the underlying flate.Writer.
func (d *Deflater) Close() error {
	return d.w.Close()
}

// Inflater decompresses one message at a time from raw DEFLATE. When
// context takeover is enabled (the common case) it carries the trailing
// window of each message's plaintext forward as the next message's
// dictionary, so the LZ77 window persists across messages exactly as a
// single long-lived stream would; when disabled, each message decodes
// with no dictionary.
type Inflater struct {
	noContextTakeover bool
	dict              []byte // trailing ≤32KB of decompressed plaintext
	r                 flate.Resetter
	rc                io.ReadCloser
}

// NewInflater creates an Inflater. noContextTakeover mirrors the peer's
// no-context-takeover setting for the direction this Inflater decodes.
func NewInflater(noContextTakeover bool) *Inflater {
	rc := flate.NewReader(bytes.NewReader(nil))
	return &Inflater{
		noContextTakeover: noContextTakeover,
		r:                 rc.(flate.Resetter),
		rc:                rc,
	}
}

// InflateMessage decompresses the compressed bytes of one complete
// message. frames is the concatenation of every data frame's payload for
// this message in wire order, already unmasked; InflateMessage appends
// the RFC 7692 tail before inflating, per spec §4.5/§8 ("inflate
// appending 00 00 FF FF").
func (inf *Inflater) InflateMessage(frames []byte) ([]byte, error) {
	src := bytes.NewReader(append(append([]byte{}, frames...), finalTail[:]...))
	if err := inf.r.Reset(src, inf.dict); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompression, err)
	}

	var out bytes.Buffer
	if _, err := io.Copy(&out, inf.rc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompression, err)
	}

	if !inf.noContextTakeover {
		inf.dict = trailingWindow(inf.dict, out.Bytes())
	} else {
		inf.dict = nil
	}
	return out.Bytes(), nil
}

// trailingWindow returns the last maxDictWindow bytes of prev followed by
// next, capped to maxDictWindow — the dictionary the next message's
// inflate call should see to emulate a persistent LZ77 window.
func trailingWindow(prev, next []byte) []byte {
	combined := append(prev, next...)
	if len(combined) > maxDictWindow {
		combined = combined[len(combined)-maxDictWindow:]
	}
	// Detach from next's backing array so the caller is free to mutate
	// or discard next's buffer afterward.
	out := make([]byte, len(combined))
	copy(out, combined)
	return out
}

// Close releases the underlying flate.Reader.
func (inf *Inflater) Close() error {
	return inf.rc.Close()
}

