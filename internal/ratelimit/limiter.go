// Package ratelimit provides per-client request limiting with a local
// token-bucket backend and a Redis fixed-window backend for multi-replica
// deployments.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

// Limiter answers whether the client identified by key may proceed.
// retryAfter is only meaningful when ok is false.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}

// ClientIP extracts the client address for rate-limit keying. Forwarding
// headers are honored only when trustProxy is set.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// X-Forwarded-For can be comma-separated; first entry is the client
			if i := strings.IndexByte(xff, ','); i != -1 {
				return strings.TrimSpace(xff[:i])
			}
			return xff
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
