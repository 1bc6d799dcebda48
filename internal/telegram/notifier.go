package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/mailgate/mailgate/internal/approval"
	"github.com/mailgate/mailgate/pkg/models"
)

// Notifier delivers approval prompts and resolution edits through each
// user's own Telegram bot. Clients are created per call from the user's
// token; there is no shared bot state.
type Notifier struct {
	webhookURL    string // public base URL webhooks are registered under
	webhookSecret string
	logger        *slog.Logger
}

// New creates a Notifier.
func New(webhookURL, webhookSecret string, logger *slog.Logger) *Notifier {
	return &Notifier{
		webhookURL:    webhookURL,
		webhookSecret: webhookSecret,
		logger:        logger.With("component", "telegram"),
	}
}

func (n *Notifier) client(botToken string) (*bot.Bot, error) {
	// SkipGetMe avoids a getMe round-trip per outbound call.
	b, err := bot.New(botToken, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}
	return b, nil
}

// SendPrompt posts the approve/decline prompt for a request and returns the
// reference of the posted message.
func (n *Notifier) SendPrompt(ctx context.Context, botToken string, chatID int64, req *models.EmailRequest) (int, int64, error) {
	b, err := n.client(botToken)
	if err != nil {
		return 0, 0, err
	}

	keyboard := &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{
				{Text: "✅ Approve", CallbackData: models.Callback{Action: models.CallbackApprove, RequestID: req.ID}.Data()},
				{Text: "❌ Decline", CallbackData: models.Callback{Action: models.CallbackDecline, RequestID: req.ID}.Data()},
			},
		},
	}

	sent, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        promptText(req),
		ReplyMarkup: keyboard,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to send approval prompt: %w", err)
	}

	return sent.ID, sent.Chat.ID, nil
}

// AnswerCallback acknowledges a button press with a short toast.
func (n *Notifier) AnswerCallback(ctx context.Context, botToken, callbackID, text string) error {
	b, err := n.client(botToken)
	if err != nil {
		return err
	}
	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	}); err != nil {
		return fmt.Errorf("failed to answer callback query: %w", err)
	}
	return nil
}

// EditResolution rewrites the original prompt message in place to show the
// final state of the request.
func (n *Notifier) EditResolution(ctx context.Context, botToken string, chatID int64, messageID int, req *models.EmailRequest, outcome approval.Outcome, detail string) error {
	b, err := n.client(botToken)
	if err != nil {
		return err
	}
	if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      resolutionText(req, outcome, detail),
	}); err != nil {
		return fmt.Errorf("failed to edit prompt message: %w", err)
	}
	return nil
}

// SetWebhookForUser points the user's bot at this deployment's per-user
// webhook path, protected by the shared secret.
func (n *Notifier) SetWebhookForUser(ctx context.Context, userID, botToken string) error {
	b, err := n.client(botToken)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/webhook/telegram/%s", n.webhookURL, userID)
	if _, err := b.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:         url,
		SecretToken: n.webhookSecret,
	}); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	n.logger.Info("telegram webhook set", "user_id", userID, "url", url)
	return nil
}

// RegisterAllWebhooks re-registers webhooks for every known user. Individual
// failures are logged and skipped so one broken token does not block startup.
func (n *Notifier) RegisterAllWebhooks(ctx context.Context, users []*models.User) {
	for _, user := range users {
		if err := n.SetWebhookForUser(ctx, user.ID, user.TelegramBotToken); err != nil {
			n.logger.Error("failed to register webhook", "user_id", user.ID, "error", err)
		}
	}
	n.logger.Info("webhook registration finished", "count", len(users))
}
