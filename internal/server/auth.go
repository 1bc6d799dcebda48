package server

import (
	"crypto/subtle"
	"net/http"
)

const sessionCookie = "session"

func secretEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// requireAPIKey guards the agent-facing endpoints.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" || !secretEqual(key, s.cfg.APIKey) {
			respondError(w, http.StatusUnauthorized, "Invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireDashboard guards the administrative endpoints: a session cookie, the
// dashboard key header, or the API key all pass.
func (s *Server) requireDashboard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(sessionCookie); err == nil && s.sessions.Validate(cookie.Value) {
			next.ServeHTTP(w, r)
			return
		}
		if key := r.Header.Get("X-Dashboard-Key"); key != "" && secretEqual(key, s.cfg.DashboardPassword) {
			next.ServeHTTP(w, r)
			return
		}
		if key := r.Header.Get("X-API-Key"); key != "" && secretEqual(key, s.cfg.APIKey) {
			next.ServeHTTP(w, r)
			return
		}
		respondError(w, http.StatusUnauthorized, "Invalid or missing credentials")
	})
}
