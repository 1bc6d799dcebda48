package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Status of an email request. A request starts pending and leaves pending
// exactly once; declined, sent and failed are terminal, approved transitions
// only to sent or failed.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
	StatusSent     Status = "sent"
	StatusFailed   Status = "failed"
)

// Resolved reports whether this status counts as a resolution, i.e. the
// request has left pending.
func (s Status) Resolved() bool {
	switch s {
	case StatusApproved, StatusDeclined, StatusSent, StatusFailed:
		return true
	}
	return false
}

// StringList is a JSON-encoded list of strings stored in a TEXT column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	return json.Unmarshal(data, l)
}

// Attachment describes one attachment of an outgoing email. Either Base64
// carries the content inline or URL points at a downloadable resource.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
	Base64      string `json:"base64,omitempty"`
	URL         string `json:"url,omitempty"`
}

// AttachmentList is a JSON-encoded list of attachments stored in a TEXT column.
type AttachmentList []Attachment

// Value implements driver.Valuer.
func (l AttachmentList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attachment list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *AttachmentList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into AttachmentList", src)
	}
	return json.Unmarshal(data, l)
}

// EmailRequest is one email-send intent awaiting or having received human
// approval.
type EmailRequest struct {
	ID           string         `db:"id"`
	UserID       *string        `db:"user_id"`
	ToAddresses  StringList     `db:"to_addresses"`
	CcAddresses  StringList     `db:"cc_addresses"`
	BccAddresses StringList     `db:"bcc_addresses"`
	Subject      string         `db:"subject"`
	Body         string         `db:"body"`
	IsHTML       bool           `db:"is_html"`
	Attachments  AttachmentList `db:"attachments"`

	// Threading triple; the three fields travel together when replying
	// inside an existing Gmail thread.
	ThreadID   *string    `db:"thread_id"`
	InReplyTo  *string    `db:"in_reply_to"`
	References StringList `db:"gmail_references"`

	Status       Status  `db:"status"`
	ErrorMessage *string `db:"error_message"`

	// Set after the approval prompt has been delivered.
	TelegramMessageID *int   `db:"telegram_message_id"`
	TelegramChatID    *int64 `db:"telegram_chat_id"`

	CreatedAt  time.Time  `db:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at"`
}
