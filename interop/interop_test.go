// Package interop cross-checks this module's wire encoding against
// gorilla/websocket, in both directions: our server answering a gorilla
// client, and a gorilla server answering our client.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package interop

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/wscore/core/protocol"
	"github.com/momentics/wscore/handshake"
	"github.com/momentics/wscore/nettransport"
	"github.com/momentics/wscore/session"
)

func TestGorillaClientAgainstOurServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	serverDone := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			serverDone <- err
			return
		}
		defer conn.Close()

		hdr, result, err := handshake.AcceptUpgrade(conn)
		if err != nil {
			serverDone <- err
			return
		}
		if err := handshake.WriteUpgradeResponse(conn, hdr); err != nil {
			serverDone <- err
			return
		}

		tr := nettransport.New(conn, 5*time.Second)
		sess, err := session.New(tr, protocol.RoleServer, session.DefaultOptions(), result.PMD, nil)
		if err != nil {
			serverDone <- err
			return
		}
		f, err := sess.Read(context.Background())
		if err != nil {
			serverDone <- err
			return
		}
		serverDone <- sess.Write(context.Background(), f.Opcode, f.Data)
	}()

	dialer := websocket.Dialer{}
	conn, _, err := dialer.Dial("ws://"+ln.Addr().String()+"/", nil)
	if err != nil {
		t.Fatalf("gorilla dial: %v", err)
	}
	defer conn.Close()

	want := "hello from gorilla"
	if err := conn.WriteMessage(websocket.TextMessage, []byte(want)); err != nil {
		t.Fatalf("gorilla write: %v", err)
	}
	_, got, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("gorilla read: %v", err)
	}
	if string(got) != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if err := <-serverDone; err != nil {
		t.Fatalf("server side: %v", err)
	}
}

func TestOurClientAgainstGorillaServer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		mt, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		_ = c.WriteMessage(mt, data)
	}))
	defer srv.Close()

	host := srv.Listener.Addr().String()
	conn, err := net.Dial("tcp", host)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	req, err := http.NewRequest(http.MethodGet, "http://"+host+"/", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	if err := handshake.WriteUpgradeRequest(conn, req); err != nil {
		t.Fatal(err)
	}
	result, err := handshake.CompleteClientUpgrade(conn, req)
	if err != nil {
		t.Fatalf("complete client upgrade: %v", err)
	}

	tr := nettransport.New(conn, 5*time.Second)
	sess, err := session.New(tr, protocol.RoleClient, session.DefaultOptions(), result.PMD, nil)
	if err != nil {
		t.Fatal(err)
	}

	want := "hello from our client"
	if err := sess.Write(context.Background(), protocol.OpcodeText, []byte(want)); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := sess.Read(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(f.Data) != want {
		t.Fatalf("got %q want %q", f.Data, want)
	}
}
