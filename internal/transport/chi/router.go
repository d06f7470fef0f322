package chi

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/stardex-io/stardex/internal/ratelimit"
)

// RouterConfig carries route-level middleware settings.
type RouterConfig struct {
	PathPrefix     string
	AllowedOrigins []string
	// General limits the standard API routes; Search covers the
	// query-heavy search routes. A nil limiter disables its tier.
	General        ratelimit.Limiter
	Search         ratelimit.Limiter
	TrustProxy     bool
	RequestTimeout time.Duration
}

// Handler assembles the route tree. Health and metrics stay outside the
// rate-limit tiers so probes and scrapes keep working under load.
func (s *Server) Handler(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(securityHeaders)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}).Handler)
	}
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.NotFound(notFoundHandler)
	r.MethodNotAllowed(methodNotAllowedHandler)

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Group(func(r chi.Router) {
		r.Use(rateLimitMiddleware(cfg.General, "general", cfg.TrustProxy))
		r.Get("/systems/lookup", s.LookupSystem)
		r.Get("/systems/bulk", s.BulkSystems)
		r.Get("/systems/connections", s.SystemConnections)
		r.Get("/systems/{id}/hierarchy", s.SystemHierarchy)
		r.Get("/regions/{id}/hierarchy", s.RegionHierarchy)
		r.Get("/type-names/{id}", s.TypeNameByID)
	})

	r.Group(func(r chi.Router) {
		r.Use(rateLimitMiddleware(cfg.Search, "search", cfg.TrustProxy))
		r.Get("/systems/near", s.NearSystems)
		r.Get("/systems/nearest", s.NearestSystems)
		r.Get("/systems/autocomplete", s.AutocompleteSystems)
		r.Get("/type-names/search", s.SearchTypeNames)
	})

	if cfg.PathPrefix != "" && cfg.PathPrefix != "/" {
		outer := chi.NewRouter()
		outer.NotFound(notFoundHandler)
		outer.MethodNotAllowed(methodNotAllowedHandler)
		outer.Mount(cfg.PathPrefix, r)
		return outer
	}
	return r
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware rejects over-limit clients with 429 and Retry-After.
// Limiter errors let the request through; the backends log their own
// failures.
func rateLimitMiddleware(l ratelimit.Limiter, tier string, trustProxy bool) func(next http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := tier + ":" + ratelimit.ClientIP(r, trustProxy)
			ok, retryAfter, err := l.Allow(r.Context(), key)
			if err != nil || ok {
				next.ServeHTTP(w, r)
				return
			}
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, codeRateLimited, "rate limited")
		})
	}
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, codeNotFound, "resource not found")
}

func methodNotAllowedHandler(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}
