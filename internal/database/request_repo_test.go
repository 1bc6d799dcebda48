package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailgate/mailgate/pkg/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func seedUser(t *testing.T, db *DB, id string) *models.User {
	t.Helper()
	user, err := db.UpsertUser(context.Background(), id, "bot-token", 100)
	require.NoError(t, err)
	return user
}

func seedRequest(t *testing.T, db *DB, id, userID string) *models.EmailRequest {
	t.Helper()
	req := &models.EmailRequest{
		ID:          id,
		UserID:      &userID,
		ToAddresses: models.StringList{"a@b.com", "c@d.com"},
		CcAddresses: models.StringList{"cc@b.com"},
		Subject:     "Subj",
		Body:        "Body",
	}
	require.NoError(t, db.CreateRequest(context.Background(), req))
	return req
}

func TestCreateAndGetRequest(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedUser(t, db, "alice")

	threadID := "thread-9"
	inReplyTo := "<msg-1>"
	userID := "alice"
	req := &models.EmailRequest{
		ID:          "req-1",
		UserID:      &userID,
		ToAddresses: models.StringList{"a@b.com"},
		Subject:     "Subj",
		Body:        "<p>hi</p>",
		IsHTML:      true,
		Attachments: models.AttachmentList{{Filename: "f.txt", ContentType: "text/plain", Base64: "aGk="}},
		ThreadID:    &threadID,
		InReplyTo:   &inReplyTo,
		References:  models.StringList{"<msg-0>", "<msg-1>"},
	}
	require.NoError(t, db.CreateRequest(ctx, req))

	got, err := db.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.ResolvedAt)
	assert.Equal(t, models.StringList{"a@b.com"}, got.ToAddresses)
	assert.True(t, got.IsHTML)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "f.txt", got.Attachments[0].Filename)
	require.NotNil(t, got.ThreadID)
	assert.Equal(t, "thread-9", *got.ThreadID)
	assert.Equal(t, models.StringList{"<msg-0>", "<msg-1>"}, got.References)
}

func TestGetRequestNotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetRequest(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransitionFromPendingWinsOnce(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedUser(t, db, "alice")
	seedRequest(t, db, "req-1", "alice")

	won, err := db.TransitionFromPending(ctx, "req-1", models.StatusApproved, nil)
	require.NoError(t, err)
	assert.True(t, won)

	// Second attempt loses: the row is no longer pending.
	won, err = db.TransitionFromPending(ctx, "req-1", models.StatusDeclined, nil)
	require.NoError(t, err)
	assert.False(t, won)

	got, err := db.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.NotNil(t, got.ResolvedAt)
}

func TestResolvedAtSetExactlyOnce(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedUser(t, db, "alice")
	seedRequest(t, db, "req-1", "alice")

	won, err := db.TransitionFromPending(ctx, "req-1", models.StatusApproved, nil)
	require.NoError(t, err)
	require.True(t, won)

	first, err := db.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, first.ResolvedAt)

	// The approved -> sent continuation must not move the resolution time.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, db.SetStatus(ctx, "req-1", models.StatusSent, nil))

	second, err := db.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, second.Status)
	require.NotNil(t, second.ResolvedAt)
	assert.True(t, second.ResolvedAt.Equal(*first.ResolvedAt))
}

func TestResolvedAtNullWhilePending(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedUser(t, db, "alice")
	seedRequest(t, db, "req-1", "alice")

	got, err := db.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.ResolvedAt)
}

func TestSetStatusStoresErrorDetail(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedUser(t, db, "alice")
	seedRequest(t, db, "req-1", "alice")

	detail := "Failed to send email. Please try again."
	won, err := db.TransitionFromPending(ctx, "req-1", models.StatusFailed, &detail)
	require.NoError(t, err)
	require.True(t, won)

	got, err := db.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, detail, *got.ErrorMessage)
}

func TestSetTelegramRef(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedUser(t, db, "alice")
	seedRequest(t, db, "req-1", "alice")

	require.NoError(t, db.SetTelegramRef(ctx, "req-1", 42, 100))

	got, err := db.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, got.TelegramMessageID)
	assert.Equal(t, 42, *got.TelegramMessageID)
	require.NotNil(t, got.TelegramChatID)
	assert.Equal(t, int64(100), *got.TelegramChatID)
}

func TestDeleteResolvedBefore(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedUser(t, db, "alice")

	seedRequest(t, db, "old-resolved", "alice")
	won, err := db.TransitionFromPending(ctx, "old-resolved", models.StatusSent, nil)
	require.NoError(t, err)
	require.True(t, won)

	seedRequest(t, db, "still-pending", "alice")

	// Cutoff in the future: the resolved row qualifies, the pending one never does.
	deleted, err := db.DeleteResolvedBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = db.GetRequest(ctx, "old-resolved")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetRequest(ctx, "still-pending")
	assert.NoError(t, err)
}
