package handshake_test

import (
	"bufio"
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/momentics/wscore/core/protocol"
	"github.com/momentics/wscore/handshake"
)

func TestAcceptUpgradeBasic(t *testing.T) {
	req := "GET /chat HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"

	hdr, res, err := handshake.AcceptUpgrade(strings.NewReader(req))
	if err != nil {
		t.Fatal(err)
	}
	if res.Role != protocol.RoleServer {
		t.Fatalf("expected RoleServer, got %v", res.Role)
	}
	if res.PMD != nil {
		t.Fatalf("expected no PMD negotiated")
	}
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got := hdr.Get("Sec-WebSocket-Accept"); got != want {
		t.Fatalf("accept key: got %q want %q", got, want)
	}
}

func TestAcceptUpgradeRejectsWrongVersion(t *testing.T) {
	req := "GET / HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"Sec-WebSocket-Version: 8\r\n\r\n"

	if _, _, err := handshake.AcceptUpgrade(strings.NewReader(req)); err == nil {
		t.Fatal("expected error for unsupported version")
	}
}

func TestAcceptUpgradeRejectsMissingKey(t *testing.T) {
	req := "GET / HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"

	if _, _, err := handshake.AcceptUpgrade(strings.NewReader(req)); err == nil {
		t.Fatal("expected error for missing Sec-WebSocket-Key")
	}
}

func TestAcceptUpgradeNegotiatesPMDWithForcedClientNoContextTakeover(t *testing.T) {
	req := "GET /chat HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"Sec-WebSocket-Version: 13\r\n" +
		"Sec-WebSocket-Extensions: permessage-deflate; client_max_window_bits\r\n\r\n"

	hdr, res, err := handshake.AcceptUpgrade(strings.NewReader(req))
	if err != nil {
		t.Fatal(err)
	}
	if res.PMD == nil {
		t.Fatal("expected PMD negotiated")
	}
	if !res.PMD.ClientNoContextTakeover {
		t.Fatal("server role must force client_no_context_takeover")
	}
	accept := hdr.Get("Sec-WebSocket-Extensions")
	if !strings.Contains(accept, "permessage-deflate") || !strings.Contains(accept, "client_no_context_takeover") {
		t.Fatalf("unexpected accept extension header: %q", accept)
	}
}

func TestWriteUpgradeResponseRoundTrip(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("Upgrade", "websocket")
	hdr.Set("Connection", "Upgrade")
	hdr.Set("Sec-WebSocket-Accept", "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=")

	var buf bytes.Buffer
	if err := handshake.WriteUpgradeResponse(&buf, hdr); err != nil {
		t.Fatal(err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(&buf), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Sec-WebSocket-Accept"); got != "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=" {
		t.Fatalf("accept header mismatch: %q", got)
	}
}

func TestCompleteClientUpgradeRejectsNonSwitching(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com/chat", nil)
	resp := "HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n"
	if _, err := handshake.CompleteClientUpgrade(strings.NewReader(resp), req); err == nil {
		t.Fatal("expected error for non-101 response")
	}
}
