package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mailgate/mailgate/internal/database"
	"github.com/mailgate/mailgate/internal/metrics"
	"github.com/mailgate/mailgate/pkg/models"
)

// ErrAuthExpired marks a send failure caused by an expired or revoked Gmail
// authorization. The Send Gateway wraps its provider errors with this
// sentinel; everything else is treated as a generic failure.
var ErrAuthExpired = errors.New("gmail authorization expired")

// Fixed user-facing failure messages. Raw provider error text never reaches
// the store or the notification channel.
const (
	MsgGmailNotConnected = "Gmail not connected for this user"
	MsgAuthExpired       = "Gmail authorization expired. Please reconnect Gmail."
	MsgSendFailed        = "Failed to send email. Please try again."
)

// Outcome of a resolved request, used when editing the prompt message.
type Outcome string

const (
	OutcomeSent     Outcome = "sent"
	OutcomeDeclined Outcome = "declined"
	OutcomeFailed   Outcome = "failed"
)

// Store is the slice of the request store the state machine needs.
type Store interface {
	GetRequest(ctx context.Context, id string) (*models.EmailRequest, error)
	TransitionFromPending(ctx context.Context, id string, status models.Status, errorMessage *string) (bool, error)
	SetStatus(ctx context.Context, id string, status models.Status, errorMessage *string) error
}

// Notifier answers callback queries and edits the original prompt to show
// the resolution. Failures here are logged by the machine, never retried.
type Notifier interface {
	AnswerCallback(ctx context.Context, botToken, callbackID, text string) error
	EditResolution(ctx context.Context, botToken string, chatID int64, messageID int, req *models.EmailRequest, outcome Outcome, detail string) error
}

// Sender transmits an approved email through the user's mail provider.
type Sender interface {
	Send(ctx context.Context, req *models.EmailRequest, refreshToken string) error
}

// CallbackRef identifies the inbound button press: the callback query to
// answer and the prompt message to edit.
type CallbackRef struct {
	CallbackID string
	ChatID     int64
	MessageID  int
}

// Machine drives the request lifecycle for inbound approval callbacks. It is
// safe for concurrent use; the store's conditional update is the only
// synchronization point, so duplicate or racing callbacks for the same
// request collapse to a single transition.
type Machine struct {
	store       Store
	notifier    Notifier
	sender      Sender
	sendTimeout time.Duration
	logger      *slog.Logger
}

// New creates a state machine.
func New(store Store, notifier Notifier, sender Sender, sendTimeout time.Duration, logger *slog.Logger) *Machine {
	return &Machine{
		store:       store,
		notifier:    notifier,
		sender:      sender,
		sendTimeout: sendTimeout,
		logger:      logger.With("component", "approval"),
	}
}

// HandleCallback processes one approve/decline button press for the given
// user. Unknown request ids and already-resolved requests are acknowledged
// and otherwise ignored; only the first callback to win the pending
// transition has any effect on state or triggers a send.
func (m *Machine) HandleCallback(ctx context.Context, user *models.User, cb models.Callback, ref CallbackRef) error {
	logger := m.logger.With("request_id", cb.RequestID, "action", cb.Action, "user_id", user.ID)

	req, err := m.store.GetRequest(ctx, cb.RequestID)
	if errors.Is(err, database.ErrNotFound) {
		// Stale or garbled callback, not an error.
		m.answer(ctx, user, ref, "Request not found")
		metrics.CallbacksProcessed.WithLabelValues(string(cb.Action), "not_found").Inc()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load request: %w", err)
	}

	if req.Status != models.StatusPending {
		// Telegram redelivers callbacks; the first one to observe pending
		// wins and every later one is a no-op with a benign answer.
		m.answer(ctx, user, ref, alreadyText(req.Status))
		metrics.CallbacksProcessed.WithLabelValues(string(cb.Action), "duplicate").Inc()
		return nil
	}

	chatID, messageID := m.promptRef(req, ref)

	switch cb.Action {
	case models.CallbackDecline:
		return m.decline(ctx, user, req, ref, chatID, messageID, logger)
	case models.CallbackApprove:
		return m.approve(ctx, user, req, ref, chatID, messageID, logger)
	}
	return nil
}

func (m *Machine) decline(ctx context.Context, user *models.User, req *models.EmailRequest, ref CallbackRef, chatID int64, messageID int, logger *slog.Logger) error {
	won, err := m.store.TransitionFromPending(ctx, req.ID, models.StatusDeclined, nil)
	if err != nil {
		return fmt.Errorf("failed to decline request: %w", err)
	}
	if !won {
		m.answerAlready(ctx, user, req.ID, ref)
		metrics.CallbacksProcessed.WithLabelValues(string(models.CallbackDecline), "duplicate").Inc()
		return nil
	}

	logger.Info("request declined")
	metrics.CallbacksProcessed.WithLabelValues(string(models.CallbackDecline), "declined").Inc()
	m.answer(ctx, user, ref, "Declined")
	m.edit(ctx, user, chatID, messageID, req, OutcomeDeclined, "")
	return nil
}

func (m *Machine) approve(ctx context.Context, user *models.User, req *models.EmailRequest, ref CallbackRef, chatID int64, messageID int, logger *slog.Logger) error {
	if !user.GmailConnected() {
		detail := MsgGmailNotConnected
		won, err := m.store.TransitionFromPending(ctx, req.ID, models.StatusFailed, &detail)
		if err != nil {
			return fmt.Errorf("failed to fail request: %w", err)
		}
		if !won {
			m.answerAlready(ctx, user, req.ID, ref)
			metrics.CallbacksProcessed.WithLabelValues(string(models.CallbackApprove), "duplicate").Inc()
			return nil
		}
		logger.Warn("approve rejected, gmail not connected")
		metrics.CallbacksProcessed.WithLabelValues(string(models.CallbackApprove), "not_connected").Inc()
		m.answer(ctx, user, ref, "Gmail not connected")
		m.edit(ctx, user, chatID, messageID, req, OutcomeFailed, detail)
		return nil
	}

	// Mark approved before attempting the send: a crash mid-send leaves the
	// record approved, never pending, so a redelivered callback cannot
	// trigger a second send.
	won, err := m.store.TransitionFromPending(ctx, req.ID, models.StatusApproved, nil)
	if err != nil {
		return fmt.Errorf("failed to approve request: %w", err)
	}
	if !won {
		m.answerAlready(ctx, user, req.ID, ref)
		metrics.CallbacksProcessed.WithLabelValues(string(models.CallbackApprove), "duplicate").Inc()
		return nil
	}

	logger.Info("request approved, sending")
	m.answer(ctx, user, ref, "Approved! Sending email...")

	sendCtx, cancel := context.WithTimeout(ctx, m.sendTimeout)
	defer cancel()

	start := time.Now()
	sendErr := m.sender.Send(sendCtx, req, *user.GmailRefreshToken)
	if sendErr != nil {
		detail := sanitizeSendError(sendErr)
		logger.Error("send failed", "error", sendErr, "detail", detail)
		metrics.SendDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
		metrics.CallbacksProcessed.WithLabelValues(string(models.CallbackApprove), "failed").Inc()
		if err := m.store.SetStatus(ctx, req.ID, models.StatusFailed, &detail); err != nil {
			return fmt.Errorf("failed to record send failure: %w", err)
		}
		m.edit(ctx, user, chatID, messageID, req, OutcomeFailed, detail)
		return nil
	}

	logger.Info("email sent", "duration", time.Since(start))
	metrics.SendDuration.WithLabelValues("sent").Observe(time.Since(start).Seconds())
	metrics.CallbacksProcessed.WithLabelValues(string(models.CallbackApprove), "sent").Inc()
	if err := m.store.SetStatus(ctx, req.ID, models.StatusSent, nil); err != nil {
		return fmt.Errorf("failed to record sent status: %w", err)
	}
	m.edit(ctx, user, chatID, messageID, req, OutcomeSent, "")
	return nil
}

// promptRef prefers the message reference carried by the callback itself and
// falls back to the one stored when the prompt was posted.
func (m *Machine) promptRef(req *models.EmailRequest, ref CallbackRef) (int64, int) {
	chatID := ref.ChatID
	messageID := ref.MessageID
	if messageID == 0 && req.TelegramMessageID != nil {
		messageID = *req.TelegramMessageID
	}
	if chatID == 0 && req.TelegramChatID != nil {
		chatID = *req.TelegramChatID
	}
	return chatID, messageID
}

func (m *Machine) answer(ctx context.Context, user *models.User, ref CallbackRef, text string) {
	if err := m.notifier.AnswerCallback(ctx, user.TelegramBotToken, ref.CallbackID, text); err != nil {
		m.logger.Warn("failed to answer callback", "error", err, "user_id", user.ID)
	}
}

// answerAlready re-reads the request after a lost conditional update so the
// acknowledgment names the status the winner set.
func (m *Machine) answerAlready(ctx context.Context, user *models.User, requestID string, ref CallbackRef) {
	text := "Already resolved"
	if req, err := m.store.GetRequest(ctx, requestID); err == nil {
		text = alreadyText(req.Status)
	}
	m.answer(ctx, user, ref, text)
}

func (m *Machine) edit(ctx context.Context, user *models.User, chatID int64, messageID int, req *models.EmailRequest, outcome Outcome, detail string) {
	if messageID == 0 || chatID == 0 {
		return
	}
	if err := m.notifier.EditResolution(ctx, user.TelegramBotToken, chatID, messageID, req, outcome, detail); err != nil {
		m.logger.Warn("failed to edit prompt message", "error", err, "request_id", req.ID)
	}
}

func alreadyText(status models.Status) string {
	return "Already " + string(status)
}

// sanitizeSendError maps a provider error to one of the fixed user-facing
// messages. Expired or revoked authorizations get the reconnect message,
// everything else the generic one.
func sanitizeSendError(err error) string {
	if errors.Is(err, ErrAuthExpired) || strings.Contains(err.Error(), "invalid_grant") {
		return MsgAuthExpired
	}
	return MsgSendFailed
}
