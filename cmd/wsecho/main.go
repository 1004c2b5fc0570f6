// Command wsecho is a minimal native WebSocket echo server, demonstrating
// the handshake and session packages over a plain net.Conn with no HTTP
// router in front of it. It answers text and binary messages with the
// same payload, and negotiates permessage-deflate whenever the client
// offers it.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/momentics/wscore/control"
	"github.com/momentics/wscore/core/protocol"
	"github.com/momentics/wscore/handshake"
	"github.com/momentics/wscore/nettransport"
	"github.com/momentics/wscore/session"
)

func main() {
	addr := flag.String("addr", ":9001", "WebSocket listen address")
	idleTimeout := flag.Duration("idle", 90*time.Second, "idle timeout before a session is closed")
	flag.Parse()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	metrics := control.NewMetricsRegistry()
	cfg := control.NewConfigStore()
	cfg.SetConfig(map[string]any{"idle_timeout": idleTimeout.String()})

	log.Printf("wsecho listening on %s", *addr)

	var connCount, activeCount int64
	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("accept error: %v", err)
			continue
		}
		id := atomic.AddInt64(&connCount, 1)
		metrics.Set("active_connections", atomic.AddInt64(&activeCount, 1))
		go func() {
			handleConn(conn, id, *idleTimeout, metrics)
			metrics.Set("active_connections", atomic.AddInt64(&activeCount, -1))
		}()
	}
}

func handleConn(conn net.Conn, id int64, idleTimeout time.Duration, metrics *control.MetricsRegistry) {
	defer conn.Close()
	log.Printf("conn-%d: accepted from %s", id, conn.RemoteAddr())

	hdr, result, err := handshake.AcceptUpgrade(conn)
	if err != nil {
		log.Printf("conn-%d: handshake failed: %v", id, err)
		return
	}
	if err := handshake.WriteUpgradeResponse(conn, hdr); err != nil {
		log.Printf("conn-%d: writing upgrade response failed: %v", id, err)
		return
	}
	if result.PMD != nil {
		log.Printf("conn-%d: permessage-deflate negotiated (server_no_ctx=%v client_no_ctx=%v)",
			id, result.PMD.ServerNoContextTakeover, result.PMD.ClientNoContextTakeover)
	}

	opts := session.DefaultOptions()
	opts.IdleTimeout = idleTimeout
	tr := nettransport.New(conn, idleTimeout)

	sess, err := session.New(tr, protocol.RoleServer, opts, result.PMD, func(data []byte) {
		log.Printf("conn-%d: pong received (%d bytes)", id, len(data))
	})
	if err != nil {
		log.Printf("conn-%d: session init failed: %v", id, err)
		return
	}

	ctx := context.Background()
	var msgBuf []byte
	for {
		frame, err := sess.Read(ctx)
		if err != nil {
			log.Printf("conn-%d: read ended: %v", id, err)
			break
		}
		msgBuf = append(msgBuf, frame.Data...)
		if !frame.Fin {
			continue
		}
		if err := sess.Write(ctx, frame.Opcode, msgBuf); err != nil {
			log.Printf("conn-%d: write failed: %v", id, err)
			break
		}
		msgBuf = msgBuf[:0]
	}

	stats := sess.Stats()
	metrics.Set(fmt.Sprintf("conn-%d-frames-sent", id), stats.FramesSent)
	log.Printf("conn-%d: closed (frames_in=%d frames_out=%d bytes_in=%d bytes_out=%d)",
		id, stats.FramesReceived, stats.FramesSent, stats.BytesReceived, stats.BytesSent)
}
