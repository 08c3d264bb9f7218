package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/achildrenmile/qslcardgenerator/internal/server/auth"
	"github.com/achildrenmile/qslcardgenerator/internal/server/models"
)

type contextKey int

const sessionKey contextKey = iota

// sessionFrom returns the resolved session for the request, or nil when the
// request carried no valid token.
func sessionFrom(r *http.Request) *models.SessionContext {
	sc, _ := r.Context().Value(sessionKey).(*models.SessionContext)
	return sc
}

// withAuth resolves a Bearer token into a SessionContext and stashes it on
// the request context. Requests without a token, or with an expired or
// unknown one, pass through with no session; each handler decides whether
// that is acceptable.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			sc, err := s.sessions.Resolve(r.Context(), strings.TrimSpace(token))
			if err != nil {
				s.logger.Error(r.Context(), "failed to resolve session", "error", err)
				respondError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if sc != nil {
				r = r.WithContext(context.WithValue(r.Context(), sessionKey, sc))
			}
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"addr", clientAddr(r),
		)
	})
}

// clientAddr strips the port from RemoteAddr; it is both the audit source
// address and the login rate-limit key.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requireSession answers 401 and returns nil when the request has no valid
// session.
func requireSession(w http.ResponseWriter, r *http.Request) *models.SessionContext {
	sc := sessionFrom(r)
	if sc == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return nil
	}
	return sc
}

// requireAdmin is the guard for the /api/admin namespace. Unlike the
// callsign guard it may answer 403 explicitly.
func requireAdmin(w http.ResponseWriter, r *http.Request) *models.SessionContext {
	sc := requireSession(w, r)
	if sc == nil {
		return nil
	}
	if !auth.IsAdmin(sc) {
		respondError(w, http.StatusForbidden, "admin required")
		return nil
	}
	return sc
}
