package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/mailgate/mailgate/internal/approval"
	"github.com/mailgate/mailgate/internal/database"
	"github.com/mailgate/mailgate/pkg/models"
)

const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// handleTelegramWebhook authenticates the callback and acknowledges it
// immediately; the state machine runs as detached follow-up work so Telegram
// never retries because of a slow send.
func (s *Server) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if !secretEqual(r.Header.Get(telegramSecretHeader), s.cfg.TelegramWebhookSecret) {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	userID := chi.URLParam(r, "userID")

	var update tgmodels.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		// Malformed body from an authenticated caller; acknowledge and drop.
		s.logger.Warn("failed to decode webhook body", "error", err, "user_id", userID)
		w.WriteHeader(http.StatusOK)
		return
	}

	w.WriteHeader(http.StatusOK)

	if update.CallbackQuery == nil {
		return
	}

	cb := models.ParseCallback(update.CallbackQuery.Data)
	if !cb.Recognized() {
		return
	}

	ref := approval.CallbackRef{CallbackID: update.CallbackQuery.ID}
	if msg := update.CallbackQuery.Message.Message; msg != nil {
		ref.ChatID = msg.Chat.ID
		ref.MessageID = msg.ID
	}

	go s.processCallback(userID, cb, ref)
}

func (s *Server) processCallback(userID string, cb models.Callback, ref approval.CallbackRef) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WebhookTimeout)
	defer cancel()

	user, err := s.db.GetUser(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		s.logger.Error("webhook received for unknown user", "user_id", userID)
		return
	}
	if err != nil {
		s.logger.Error("failed to load webhook user", "error", err, "user_id", userID)
		return
	}

	if err := s.machine.HandleCallback(ctx, user, cb, ref); err != nil {
		s.logger.Error("failed to process callback", "error", err, "request_id", cb.RequestID)
	}
}
