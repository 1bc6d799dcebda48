package models

import "time"

// User represents a registered approver: the human whose Telegram chat
// receives approval prompts and whose Gmail account sends approved mail.
type User struct {
	ID                string    `db:"id"`
	TelegramBotToken  string    `db:"telegram_bot_token"`
	TelegramChatID    int64     `db:"telegram_chat_id"`
	GmailRefreshToken *string   `db:"gmail_refresh_token"` // nil until Gmail is connected
	GmailEmail        *string   `db:"gmail_email"`         // display address of the connected account
	CreatedAt         time.Time `db:"created_at"`
}

// GmailConnected reports whether the user can actually send mail.
func (u *User) GmailConnected() bool {
	return u.GmailRefreshToken != nil && *u.GmailRefreshToken != ""
}
