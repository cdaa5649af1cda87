package common

import (
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the caller address without its port. Forwarding headers are
// resolved into RemoteAddr by chi's RealIP middleware ahead of this call.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	raw := strings.TrimSpace(r.RemoteAddr)
	if ap, err := netip.ParseAddrPort(raw); err == nil {
		return ap.Addr().Unmap().String()
	}
	if addr, err := netip.ParseAddr(raw); err == nil {
		return addr.Unmap().String()
	}
	return raw
}
