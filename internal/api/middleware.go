package api

import (
	"net"
	"net/http"

	domainerrors "github.com/cinewatch/cinewatch/internal/errors"
	"github.com/cinewatch/cinewatch/internal/http/response"
)

// requireSignedIn rejects requests while no one is signed in.
func (s *Server) requireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.state.Identity() == nil {
			response.HandleError(w, domainerrors.Unauthenticated("sign in required"), s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitAuth limits credential attempts per client IP.
// Returns 429 Too Many Requests when the limit is exceeded.
func (s *Server) rateLimitAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !s.authLimiter.Allow(key) {
			s.logger.Warn("Rate limit exceeded",
				"ip", key,
				"path", r.URL.Path,
			)
			response.TooManyRequests(w, "Too many attempts. Please try again later.", s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of RemoteAddr, which RealIP has already
// replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
