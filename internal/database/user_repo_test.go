package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertUserPreservesGmailCredential(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_, err := db.UpsertUser(ctx, "alice", "token-1", 100)
	require.NoError(t, err)

	refresh := "refresh-tok"
	email := "alice@gmail.com"
	require.NoError(t, db.SetGmailCredential(ctx, "alice", &refresh, &email))

	// Re-registering overwrites Telegram credentials only.
	user, err := db.UpsertUser(ctx, "alice", "token-2", 200)
	require.NoError(t, err)

	assert.Equal(t, "token-2", user.TelegramBotToken)
	assert.Equal(t, int64(200), user.TelegramChatID)
	require.NotNil(t, user.GmailRefreshToken)
	assert.Equal(t, "refresh-tok", *user.GmailRefreshToken)
	require.NotNil(t, user.GmailEmail)
	assert.Equal(t, "alice@gmail.com", *user.GmailEmail)
	assert.True(t, user.GmailConnected())
}

func TestGetUserNotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetGmailCredentialDisconnect(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_, err := db.UpsertUser(ctx, "alice", "token", 100)
	require.NoError(t, err)

	refresh := "refresh-tok"
	require.NoError(t, db.SetGmailCredential(ctx, "alice", &refresh, nil))

	require.NoError(t, db.SetGmailCredential(ctx, "alice", nil, nil))

	user, err := db.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, user.GmailConnected())
	assert.Nil(t, user.GmailRefreshToken)
}

func TestSetGmailCredentialUnknownUser(t *testing.T) {
	db := testDB(t)
	err := db.SetGmailCredential(context.Background(), "missing", nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAllUsers(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_, err := db.UpsertUser(ctx, "alice", "t1", 100)
	require.NoError(t, err)
	_, err = db.UpsertUser(ctx, "bob", "t2", 200)
	require.NoError(t, err)

	users, err := db.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
