package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mailgate/mailgate/internal/database"
	"github.com/mailgate/mailgate/internal/gmail"
)

// handleGmailAuth starts the Gmail connect flow for a user. The dashboard
// key arrives as a query parameter because a browser redirect cannot set
// headers.
func (s *Server) handleGmailAuth(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" || !secretEqual(key, s.cfg.DashboardPassword) {
		respondError(w, http.StatusUnauthorized, "Invalid or missing credentials")
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondError(w, http.StatusBadRequest, `"userId" query parameter is required`)
		return
	}

	if _, err := s.db.GetUser(r.Context(), userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, fmt.Sprintf("User %q not found", userID))
			return
		}
		s.logger.Error("failed to load user", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to start Gmail connect")
		return
	}

	http.Redirect(w, r, s.gmail.AuthURL(userID), http.StatusFound)
}

// handleGmailCallback finishes the connect flow: code exchange, profile
// lookup, credential storage.
func (s *Server) handleGmailCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	userID := r.URL.Query().Get("state")
	if code == "" || userID == "" {
		http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
		return
	}

	if _, err := s.db.GetUser(r.Context(), userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, fmt.Sprintf("User %q not found", userID), http.StatusNotFound)
			return
		}
		s.logger.Error("failed to load user", "error", err)
		http.Error(w, "Failed to connect Gmail", http.StatusInternalServerError)
		return
	}

	refreshToken, email, err := s.gmail.Exchange(r.Context(), code)
	if errors.Is(err, gmail.ErrNoRefreshToken) {
		http.Error(w, "No refresh token received. Try revoking app access in your Google account and retrying.", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.logger.Error("gmail oauth callback failed", "error", err, "user_id", userID)
		http.Error(w, "Failed to exchange authorization code. Please try again.", http.StatusInternalServerError)
		return
	}

	if err := s.db.SetGmailCredential(r.Context(), userID, &refreshToken, &email); err != nil {
		s.logger.Error("failed to store gmail credential", "error", err, "user_id", userID)
		http.Error(w, "Failed to connect Gmail", http.StatusInternalServerError)
		return
	}

	s.logger.Info("gmail connected", "user_id", userID, "email", email)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Gmail Connected</title></head>
<body>
  <h1>Gmail Connected!</h1>
  <p>Connected as <strong>%s</strong> for user <strong>%s</strong>.</p>
</body>
</html>`, email, userID)
}
