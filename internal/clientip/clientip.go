// Package clientip extracts the real client IP from an inbound request
// (C4), trusting forwarding headers only when the immediate peer is a
// configured trusted proxy.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Config controls how the socket peer and forwarding headers are
// reconciled.
type Config struct {
	// BehindProxy, when false, always returns the socket peer and
	// ignores forwarding headers entirely.
	BehindProxy bool
	// TrustedProxies lists CIDRs whose forwarding headers are believed.
	TrustedProxies []*net.IPNet
}

// ParseTrustedProxies parses a list of CIDR strings, skipping (and
// returning) any that fail to parse rather than aborting the whole set.
func ParseTrustedProxies(cidrs []string) (nets []*net.IPNet, invalid []string) {
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			invalid = append(invalid, c)
			continue
		}
		nets = append(nets, n)
	}
	return nets, invalid
}

func (c Config) isTrusted(ip string) bool {
	addr := net.ParseIP(ip)
	if addr == nil {
		return false
	}
	for _, n := range c.TrustedProxies {
		if n.Contains(addr) {
			return true
		}
	}
	return false
}

// Extract returns the client IP for r per the algorithm in spec
// section 4.4: the raw socket peer when not behind a proxy or when
// that peer itself isn't trusted; otherwise the first untrusted hop
// walking X-Forwarded-For from the right, falling back to X-Real-IP
// and finally the socket peer.
func Extract(r *http.Request, cfg Config) string {
	peer := socketPeer(r)
	if peer == "" {
		return ""
	}
	if !cfg.BehindProxy {
		return peer
	}
	if !cfg.isTrusted(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !cfg.isTrusted(hop) {
				return hop
			}
		}
	}

	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	return peer
}

func socketPeer(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
