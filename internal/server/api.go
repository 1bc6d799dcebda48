package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mailgate/mailgate/internal/database"
	"github.com/mailgate/mailgate/internal/metrics"
	"github.com/mailgate/mailgate/pkg/models"
)

type sendEmailRequest struct {
	UserID      string              `json:"userId"`
	To          []string            `json:"to"`
	Cc          []string            `json:"cc"`
	Bcc         []string            `json:"bcc"`
	Subject     string              `json:"subject"`
	Body        string              `json:"body"`
	IsHTML      bool                `json:"isHtml"`
	Attachments []models.Attachment `json:"attachments"`
	ThreadID    *string             `json:"threadId"`
	InReplyTo   *string             `json:"inReplyTo"`
	References  []string            `json:"references"`
}

func (r *sendEmailRequest) validate() error {
	if r.UserID == "" {
		return errors.New(`"userId" is required`)
	}
	if len(r.To) == 0 {
		return errors.New(`"to" must be a non-empty array of email addresses`)
	}
	if r.Subject == "" {
		return errors.New(`"subject" is required`)
	}
	if r.Body == "" {
		return errors.New(`"body" is required`)
	}
	return nil
}

// handleSendEmail accepts a new send-email request, posts the approval
// prompt, and reports the request as pending approval. Nothing is sent here.
func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()

	user, err := s.db.GetUser(ctx, req.UserID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("User %q not found. Register first via POST /api/register-user.", req.UserID))
		return
	}
	if err != nil {
		s.logger.Error("failed to load user", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create email request")
		return
	}
	if !user.GmailConnected() {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("User %q has not connected Gmail. Connect via the dashboard first.", req.UserID))
		return
	}

	emailRequest := &models.EmailRequest{
		ID:           uuid.NewString(),
		UserID:       &req.UserID,
		ToAddresses:  req.To,
		CcAddresses:  req.Cc,
		BccAddresses: req.Bcc,
		Subject:      req.Subject,
		Body:         req.Body,
		IsHTML:       req.IsHTML,
		Attachments:  req.Attachments,
		ThreadID:     req.ThreadID,
		InReplyTo:    req.InReplyTo,
		References:   req.References,
	}

	if err := s.db.CreateRequest(ctx, emailRequest); err != nil {
		s.logger.Error("failed to create request", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create email request")
		return
	}

	messageID, chatID, err := s.notifier.SendPrompt(ctx, user.TelegramBotToken, user.TelegramChatID, emailRequest)
	if err != nil {
		s.logger.Error("failed to send approval prompt", "error", err, "request_id", emailRequest.ID)
		respondError(w, http.StatusInternalServerError, "Failed to create email request")
		return
	}
	if err := s.db.SetTelegramRef(ctx, emailRequest.ID, messageID, chatID); err != nil {
		s.logger.Error("failed to store prompt ref", "error", err, "request_id", emailRequest.ID)
	}

	metrics.RequestsCreated.Inc()
	s.logger.Info("email request created", "request_id", emailRequest.ID, "user_id", req.UserID)

	respondJSON(w, http.StatusOK, map[string]string{
		"requestId": emailRequest.ID,
		"status":    "pending_approval",
	})
}

// handleEmailStatus reports the current lifecycle state of a request.
func (s *Server) handleEmailStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req, err := s.db.GetRequest(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Email request not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load request", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load email request")
		return
	}

	var resolvedAt *string
	if req.ResolvedAt != nil {
		v := req.ResolvedAt.UTC().Format(time.RFC3339)
		resolvedAt = &v
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"requestId":  req.ID,
		"status":     req.Status,
		"createdAt":  req.CreatedAt.UTC().Format(time.RFC3339),
		"resolvedAt": resolvedAt,
	})
}

// handleLogin exchanges the dashboard password for a session cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" || !secretEqual(req.Password, s.cfg.DashboardPassword) {
		respondError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	token := s.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cfg.SessionTTL.Seconds()),
	})
	respondJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (s *Server) handleVerifyKey(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// handleListUsers lists registered users without exposing tokens.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.db.GetAllUsers(r.Context())
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]any{
			"id":             u.ID,
			"telegramChatId": u.TelegramChatID,
			"gmailConnected": u.GmailConnected(),
			"gmailEmail":     u.GmailEmail,
			"createdAt":      u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// handleRegisterUser upserts a user's Telegram credentials and registers the
// bot's webhook. Re-registering overwrites Telegram credentials only; an
// existing Gmail connection is untouched.
func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID           string `json:"userId"`
		TelegramBotToken string `json:"telegramBotToken"`
		TelegramChatID   int64  `json:"telegramChatId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, `"userId" is required`)
		return
	}
	if req.TelegramBotToken == "" {
		respondError(w, http.StatusBadRequest, `"telegramBotToken" is required`)
		return
	}
	if req.TelegramChatID == 0 {
		respondError(w, http.StatusBadRequest, `"telegramChatId" must be a number`)
		return
	}

	if _, err := s.db.UpsertUser(r.Context(), req.UserID, req.TelegramBotToken, req.TelegramChatID); err != nil {
		s.logger.Error("failed to register user", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}
	if err := s.notifier.SetWebhookForUser(r.Context(), req.UserID, req.TelegramBotToken); err != nil {
		s.logger.Error("failed to register webhook", "error", err, "user_id", req.UserID)
		respondError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"userId": req.UserID, "registered": true})
}

// handleDisconnectGmail clears a user's Gmail credential.
func (s *Server) handleDisconnectGmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		respondError(w, http.StatusBadRequest, `"userId" is required`)
		return
	}

	err := s.db.SetGmailCredential(r.Context(), req.UserID, nil, nil)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("User %q not found", req.UserID))
		return
	}
	if err != nil {
		s.logger.Error("failed to disconnect gmail", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to disconnect Gmail")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"userId": req.UserID, "gmailConnected": false})
}
