package middleware

import (
	"net"
	"net/http"
	"strings"
)

const unknownClient = "unknown"

// clientIP usa o endereço da conexão. Com trustProxy os headers do proxy têm precedência.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		xForwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
		if xForwardedFor != "" {
			parts := strings.Split(xForwardedFor, ",")
			if first := strings.TrimSpace(parts[0]); first != "" {
				return first
			}
		}

		xRealIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
		if xRealIP != "" {
			return xRealIP
		}
	}

	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return unknownClient
	}

	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}

	return host
}
