// Package handshake implements the RFC 6455 HTTP Upgrade negotiation and
// the permessage-deflate (RFC 7692) extension offer/accept, producing the
// Role and optional PMDConfig that session.New needs. It is deliberately
// outside the core frame/session packages: spec §1 treats the opening
// HTTP Upgrade as an external collaborator, not part of the engine core.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package handshake

import (
	"bufio"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/momentics/wscore/core/protocol"
)

// Constants used for handshake processing.
const (
	webSocketGUID            = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
	headerConnection         = "Connection"
	headerUpgrade            = "Upgrade"
	headerSecWebSocketKey    = "Sec-WebSocket-Key"
	headerSecWebSocketVer    = "Sec-WebSocket-Version"
	headerSecWebSocketExt    = "Sec-WebSocket-Extensions"
	requiredWebSocketVersion = "13"
	maxHandshakeHeadersSize  = 8192
)

// Errors for handshake validation.
var (
	ErrInvalidUpgradeHeaders = fmt.Errorf("handshake: invalid WebSocket upgrade headers")
	ErrMissingWebSocketKey   = fmt.Errorf("handshake: missing Sec-WebSocket-Key header")
	ErrBadWebSocketVersion   = fmt.Errorf("handshake: unsupported WebSocket version; only '13' is supported")
)

// PMDConfig is the negotiated permessage-deflate configuration, matching
// spec §3's SessionState.pmd and §6's handshake collaborator output.
type PMDConfig struct {
	ServerNoContextTakeover bool
	ClientNoContextTakeover bool
	ServerMaxWindowBits     int // 8..15, default 15
	ClientMaxWindowBits     int // 8..15, default 15
}

// Result is what a successful handshake hands to session.New.
type Result struct {
	Role protocol.Role
	PMD  *PMDConfig // nil if permessage-deflate was not negotiated
}

// AcceptUpgrade reads and validates an HTTP/1.1 Upgrade request from r. It
// returns the response headers to send (including Sec-WebSocket-Accept
// and, if permessage-deflate was offered, the accepted extension token)
// and the Result describing what the resulting session should use.
//
// This engine's server role always requires clients not to reuse
// compression context, per spec §6: when the client offers
// permessage-deflate, the response always includes
// "permessage-deflate; client_no_context_takeover".
func AcceptUpgrade(r io.Reader) (http.Header, Result, error) {
	br := bufio.NewReader(r)
	req, err := http.ReadRequest(br)
	if err != nil {
		return nil, Result{}, fmt.Errorf("handshake: read request: %w", err)
	}

	total := 0
	for k, vs := range req.Header {
		total += len(k)
		for _, v := range vs {
			total += len(v)
			if total > maxHandshakeHeadersSize {
				return nil, Result{}, fmt.Errorf("handshake: headers too large")
			}
		}
	}

	if !headerContainsToken(req.Header, headerConnection, "Upgrade") ||
		!headerContainsToken(req.Header, headerUpgrade, "websocket") {
		return nil, Result{}, ErrInvalidUpgradeHeaders
	}
	if req.Header.Get(headerSecWebSocketVer) != requiredWebSocketVersion {
		return nil, Result{}, ErrBadWebSocketVersion
	}

	key := req.Header.Get(headerSecWebSocketKey)
	if key == "" {
		return nil, Result{}, ErrMissingWebSocketKey
	}

	hdr := make(http.Header)
	hdr.Set("Upgrade", "websocket")
	hdr.Set("Connection", "Upgrade")
	hdr.Set("Sec-WebSocket-Accept", acceptKey(key))

	res := Result{Role: protocol.RoleServer}
	if offer := req.Header.Get(headerSecWebSocketExt); strings.Contains(offer, "permessage-deflate") {
		pmd := parsePMDOffer(offer)
		// Server role always forces the client to drop context takeover.
		pmd.ClientNoContextTakeover = true
		res.PMD = &pmd
		hdr.Set(headerSecWebSocketExt, formatPMDAccept(pmd))
	}
	return hdr, res, nil
}

// WriteUpgradeResponse writes the HTTP/1.1 101 Switching Protocols
// response with the given headers.
func WriteUpgradeResponse(w io.Writer, hdr http.Header) error {
	if _, err := fmt.Fprintf(w, "HTTP/1.1 101 Switching Protocols\r\n"); err != nil {
		return err
	}
	for k, vs := range hdr {
		for _, v := range vs {
			if _, err := fmt.Fprintf(w, "%s: %s\r\n", k, v); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}

// WriteUpgradeRequest serializes the client's HTTP GET Upgrade request.
func WriteUpgradeRequest(w io.Writer, req *http.Request) error {
	req.RequestURI = ""
	if err := req.Write(w); err != nil {
		return fmt.Errorf("handshake: write request: %w", err)
	}
	return nil
}

// CompleteClientUpgrade reads and validates the HTTP/1.1 101 response
// from r for the given request, returning the Result the client session
// should use.
func CompleteClientUpgrade(r io.Reader, req *http.Request) (Result, error) {
	br := bufio.NewReader(r)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		return Result{}, fmt.Errorf("handshake: read response: %w", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		return Result{}, fmt.Errorf("handshake: failed: status %d", resp.StatusCode)
	}

	res := Result{Role: protocol.RoleClient}
	if accepted := resp.Header.Get(headerSecWebSocketExt); strings.Contains(accepted, "permessage-deflate") {
		pmd := parsePMDOffer(accepted)
		res.PMD = &pmd
	}
	return res, nil
}

func acceptKey(clientKey string) string {
	h := sha1.New()
	h.Write([]byte(clientKey + webSocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func parsePMDOffer(extHeader string) PMDConfig {
	pmd := PMDConfig{ServerMaxWindowBits: 15, ClientMaxWindowBits: 15}
	for _, token := range strings.Split(extHeader, ";") {
		token = strings.TrimSpace(token)
		switch {
		case token == "server_no_context_takeover":
			pmd.ServerNoContextTakeover = true
		case token == "client_no_context_takeover":
			pmd.ClientNoContextTakeover = true
		case strings.HasPrefix(token, "server_max_window_bits"):
			if v, ok := parseWindowBits(token); ok {
				pmd.ServerMaxWindowBits = v
			}
		case strings.HasPrefix(token, "client_max_window_bits"):
			if v, ok := parseWindowBits(token); ok {
				pmd.ClientMaxWindowBits = v
			}
		}
	}
	return pmd
}

func parseWindowBits(token string) (int, bool) {
	parts := strings.SplitN(token, "=", 2)
	if len(parts) != 2 {
		return 0, false
	}
	v, err := strconv.Atoi(strings.Trim(strings.TrimSpace(parts[1]), `"`))
	if err != nil || v < 8 || v > 15 {
		return 0, false
	}
	return v, true
}

func formatPMDAccept(pmd PMDConfig) string {
	tok := "permessage-deflate; client_no_context_takeover"
	if pmd.ServerNoContextTakeover {
		tok += "; server_no_context_takeover"
	}
	return tok
}

func headerContainsToken(h http.Header, headerName, token string) bool {
	vals := h[http.CanonicalHeaderKey(headerName)]
	token = strings.ToLower(token)
	for _, v := range vals {
		for _, part := range strings.Split(v, ",") {
			if strings.ToLower(strings.TrimSpace(part)) == token {
				return true
			}
		}
	}
	return false
}
