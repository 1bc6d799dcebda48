package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mailgate/mailgate/pkg/models"
)

// ErrNotFound is returned when a record is not found
var ErrNotFound = errors.New("record not found")

// UpsertUser registers a user or, if the id already exists, overwrites the
// Telegram credentials. The Gmail credential and display address are left
// untouched either way.
func (db *DB) UpsertUser(ctx context.Context, id, botToken string, chatID int64) (*models.User, error) {
	query := `
		INSERT INTO users (id, telegram_bot_token, telegram_chat_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET telegram_bot_token = excluded.telegram_bot_token, telegram_chat_id = excluded.telegram_chat_id
	`
	if _, err := db.ExecContext(ctx, query, id, botToken, chatID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return db.GetUser(ctx, id)
}

// GetUser returns a user by ID
func (db *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	query := `SELECT * FROM users WHERE id = ?`
	err := db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetAllUsers returns every registered user
func (db *DB) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	query := `SELECT * FROM users ORDER BY created_at`
	if err := db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}

// SetGmailCredential attaches or clears the Gmail connection of a user.
// Passing a nil refresh token disconnects.
func (db *DB) SetGmailCredential(ctx context.Context, id string, refreshToken, email *string) error {
	query := `UPDATE users SET gmail_refresh_token = ?, gmail_email = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, refreshToken, email, id)
	if err != nil {
		return fmt.Errorf("failed to set gmail credential: %w", err)
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
