// Package nettransport adapts a net.Conn into an api.Transport, applying
// an idle deadline to every read and write so a session abandoned by its
// peer gets torn down instead of blocking forever.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package nettransport

import (
	"fmt"
	"net"
	"time"
)

// Transport wraps a net.Conn. A zero idleTimeout disables deadlines
// entirely, matching net.Conn's own default behavior.
type Transport struct {
	conn        net.Conn
	idleTimeout time.Duration
}

// New wraps conn, applying idleTimeout (if positive) before every read
// and write.
func New(conn net.Conn, idleTimeout time.Duration) *Transport {
	return &Transport{conn: conn, idleTimeout: idleTimeout}
}

// ReadSome reads at least one byte into buf, or returns an error.
func (t *Transport) ReadSome(buf []byte) (int, error) {
	if err := t.applyReadDeadline(); err != nil {
		return 0, err
	}
	n, err := t.conn.Read(buf)
	if err != nil {
		return n, fmt.Errorf("nettransport: read: %w", err)
	}
	return n, nil
}

// WriteAll writes p in full, retrying short writes.
func (t *Transport) WriteAll(p []byte) error {
	if err := t.applyWriteDeadline(); err != nil {
		return err
	}
	for len(p) > 0 {
		n, err := t.conn.Write(p)
		if err != nil {
			return fmt.Errorf("nettransport: write: %w", err)
		}
		p = p[n:]
	}
	return nil
}

// Teardown closes the underlying connection.
func (t *Transport) Teardown() error {
	return t.conn.Close()
}

func (t *Transport) applyReadDeadline() error {
	if t.idleTimeout <= 0 {
		return nil
	}
	return t.conn.SetReadDeadline(time.Now().Add(t.idleTimeout))
}

func (t *Transport) applyWriteDeadline() error {
	if t.idleTimeout <= 0 {
		return nil
	}
	return t.conn.SetWriteDeadline(time.Now().Add(t.idleTimeout))
}
