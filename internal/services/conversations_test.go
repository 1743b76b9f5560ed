package services

import (
	"context"
	"strings"
	"testing"

	"github.com/localnerve/botdesk/internal/models"
	"github.com/localnerve/botdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOrCreate(t *testing.T) {
	db := testutil.NewDB(t)
	bot := testutil.CreateBot(t, db, "Guide")
	other := testutil.CreateBot(t, db, "Other")
	testutil.CreateUser(t, db, "alice", "")
	testutil.CreateUser(t, db, "bob", "")
	svc := NewConversationService(db)
	ctx := context.Background()

	id, err := svc.ResolveOrCreate(ctx, "alice", bot.ID, 0, "  ")
	require.NoError(t, err)
	require.NotZero(t, id)

	conv, err := svc.Get(ctx, "alice", bot.ID, id)
	require.NoError(t, err)
	assert.Equal(t, DefaultConversationTitle, conv.Title)
	assert.Equal(t, models.ConversationStatusOpen, conv.Status)

	same, err := svc.ResolveOrCreate(ctx, "alice", bot.ID, id, "ignored")
	require.NoError(t, err)
	assert.Equal(t, id, same)

	// Another user's id, another bot's id, or an unknown id all start fresh
	for _, tc := range []struct {
		user  string
		botID uint64
		id    uint64
	}{
		{"bob", bot.ID, id},
		{"alice", other.ID, id},
		{"alice", bot.ID, id + 1000},
	} {
		fresh, err := svc.ResolveOrCreate(ctx, tc.user, tc.botID, tc.id, "Fresh")
		require.NoError(t, err)
		assert.NotEqual(t, id, fresh)

		conv, err := svc.Get(ctx, tc.user, tc.botID, fresh)
		require.NoError(t, err)
		assert.Equal(t, "Fresh", conv.Title)
	}

	_, err = svc.ResolveOrCreate(ctx, "", bot.ID, 0, "x")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConversationScope(t *testing.T) {
	db := testutil.NewDB(t)
	bot := testutil.CreateBot(t, db, "Guide")
	testutil.CreateUser(t, db, "alice", "")
	testutil.CreateUser(t, db, "bob", "")
	svc := NewConversationService(db)
	ctx := context.Background()

	id, err := svc.ResolveOrCreate(ctx, "alice", bot.ID, 0, "Mine")
	require.NoError(t, err)

	_, err = svc.Get(ctx, "bob", bot.ID, id)
	assert.ErrorIs(t, err, ErrNotFound)

	renamed, err := svc.Rename(ctx, "bob", bot.ID, id, "Stolen")
	require.NoError(t, err)
	assert.False(t, renamed)

	deleted, err := svc.Delete(ctx, "bob", bot.ID, id)
	require.NoError(t, err)
	assert.False(t, deleted)

	list, err := svc.List(ctx, "bob", bot.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	conv, err := svc.Get(ctx, "alice", bot.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "Mine", conv.Title)
}

func TestRename(t *testing.T) {
	db := testutil.NewDB(t)
	bot := testutil.CreateBot(t, db, "Guide")
	testutil.CreateUser(t, db, "alice", "")
	svc := NewConversationService(db)
	ctx := context.Background()

	id, err := svc.ResolveOrCreate(ctx, "alice", bot.ID, 0, "Before")
	require.NoError(t, err)
	before, err := svc.Get(ctx, "alice", bot.ID, id)
	require.NoError(t, err)

	renamed, err := svc.Rename(ctx, "alice", bot.ID, id, "  After  ")
	require.NoError(t, err)
	assert.True(t, renamed)

	after, err := svc.Get(ctx, "alice", bot.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "After", after.Title)
	assert.False(t, after.UpdatedAt.Before(before.UpdatedAt))

	_, err = svc.Rename(ctx, "alice", bot.ID, id, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	long := strings.Repeat("ü", maxTitleRunes+20)
	_, err = svc.Rename(ctx, "alice", bot.ID, id, long)
	require.NoError(t, err)
	after, err = svc.Get(ctx, "alice", bot.ID, id)
	require.NoError(t, err)
	assert.Equal(t, maxTitleRunes, len([]rune(after.Title)))
}

func TestListAndDelete(t *testing.T) {
	db := testutil.NewDB(t)
	bot := testutil.CreateBot(t, db, "Guide")
	testutil.CreateUser(t, db, "alice", "")
	svc := NewConversationService(db)
	messages := NewMessageService(db)
	ctx := context.Background()

	first, err := svc.ResolveOrCreate(ctx, "alice", bot.ID, 0, "First")
	require.NoError(t, err)
	second, err := svc.ResolveOrCreate(ctx, "alice", bot.ID, 0, "Second")
	require.NoError(t, err)

	list, err := svc.List(ctx, "alice", bot.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID, "newest first")
	assert.Equal(t, first, list[1].ID)

	for _, text := range []string{"a", "b"} {
		_, err := messages.Append(ctx, "alice", bot.ID, first, models.SenderUser, text, nil)
		require.NoError(t, err)
	}
	_, err = messages.Append(ctx, "alice", bot.ID, second, models.SenderUser, "keep", nil)
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, "alice", bot.ID, first)
	require.NoError(t, err)
	assert.True(t, deleted)

	var remaining int64
	require.NoError(t, db.Model(&models.Message{}).Count(&remaining).Error)
	assert.EqualValues(t, 1, remaining)

	history, err := messages.History(ctx, "alice", bot.ID, first, 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	hits, err := messages.Search(ctx, "alice", bot.ID, first, "a")
	require.NoError(t, err)
	assert.Empty(t, hits)

	kept, err := messages.History(ctx, "alice", bot.ID, second, 0)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "keep", kept[0].Text)

	_, err = svc.Get(ctx, "alice", bot.ID, first)
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err = svc.Delete(ctx, "alice", bot.ID, first)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héllo", truncateRunes("héllo", 5))
	assert.Equal(t, "hé", truncateRunes("héllo", 2))
	assert.Equal(t, "", truncateRunes("", 3))
}
