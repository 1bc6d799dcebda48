package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mailgate/mailgate/pkg/models"
)

// CreateRequest persists a new email request with status pending.
func (db *DB) CreateRequest(ctx context.Context, req *models.EmailRequest) error {
	query := `
		INSERT INTO email_requests (id, user_id, to_addresses, cc_addresses, bcc_addresses, subject, body, is_html, attachments, thread_id, in_reply_to, gmail_references, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, query,
		req.ID,
		req.UserID,
		req.ToAddresses,
		req.CcAddresses,
		req.BccAddresses,
		req.Subject,
		req.Body,
		req.IsHTML,
		req.Attachments,
		req.ThreadID,
		req.InReplyTo,
		req.References,
		models.StatusPending,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Status = models.StatusPending
	req.CreatedAt = now
	req.ResolvedAt = nil
	return nil
}

// GetRequest returns a request by ID
func (db *DB) GetRequest(ctx context.Context, id string) (*models.EmailRequest, error) {
	var req models.EmailRequest
	query := `SELECT * FROM email_requests WHERE id = ?`
	err := db.GetContext(ctx, &req, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return &req, nil
}

// SetStatus updates the status and error detail of a request. resolved_at is
// stamped only on the first transition into a resolved status; later calls
// leave the original resolution time alone.
func (db *DB) SetStatus(ctx context.Context, id string, status models.Status, errorMessage *string) error {
	query := `
		UPDATE email_requests
		SET status = ?, error_message = ?,
		    resolved_at = CASE WHEN ? AND resolved_at IS NULL THEN ? ELSE resolved_at END
		WHERE id = ?
	`
	result, err := db.ExecContext(ctx, query, status, errorMessage, status.Resolved(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// TransitionFromPending performs the conditional update that guards the
// approval path: the status changes only if it is still pending, and exactly
// one of any number of concurrent callers observes true. resolved_at is
// stamped by the same statement, so the winner also owns the resolution time.
func (db *DB) TransitionFromPending(ctx context.Context, id string, status models.Status, errorMessage *string) (bool, error) {
	query := `
		UPDATE email_requests
		SET status = ?, error_message = ?, resolved_at = ?
		WHERE id = ? AND status = ?
	`
	result, err := db.ExecContext(ctx, query, status, errorMessage, time.Now().UTC(), id, models.StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to transition request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// SetTelegramRef records where the approval prompt ended up.
func (db *DB) SetTelegramRef(ctx context.Context, id string, messageID int, chatID int64) error {
	query := `UPDATE email_requests SET telegram_message_id = ?, telegram_chat_id = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, messageID, chatID, id); err != nil {
		return fmt.Errorf("failed to set telegram ref: %w", err)
	}
	return nil
}

// DeleteResolvedBefore removes resolved requests older than the cutoff and
// returns how many were deleted. Pending requests are never reclaimed.
func (db *DB) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM email_requests WHERE resolved_at IS NOT NULL AND resolved_at < ?`
	result, err := db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old requests: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
