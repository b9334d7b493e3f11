package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ningoooo/rolechat/internal/profile"
	"github.com/ningoooo/rolechat/store"
)

func newTestDB(t *testing.T, dataDir string) *DB {
	t.Helper()
	d, err := NewDB(&profile.Profile{Data: dataDir})
	require.NoError(t, err)
	return d
}

func TestPersistenceAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()

	d := newTestDB(t, dataDir)
	now := time.Now().Unix()
	_, err := d.CreateConversation(ctx, &store.Conversation{
		ID:            "conv-1",
		UserID:        "u1",
		CharacterName: "精灵魔法师",
		Messages:      []store.Message{},
		CreatedTs:     now,
		UpdatedTs:     now,
	})
	require.NoError(t, err)
	require.NoError(t, d.AppendConversationMessage(ctx, &store.AppendMessage{
		ConversationID: "conv-1", Role: store.MessageRoleUser, Content: "我喜欢火系魔法",
	}))
	_, err = d.UpsertUserMemory(ctx, &store.UpsertUserMemory{
		UserID: "u1", CharacterName: "精灵魔法师", IncTotalMessages: 1, AddLikes: []string{"火系魔法"},
	})
	require.NoError(t, err)

	// Reopen from the same directory; everything must survive.
	reopened := newTestDB(t, dataDir)
	got, err := reopened.GetConversation(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "我喜欢火系魔法", got.Messages[0].Content)

	m, err := reopened.GetUserMemory(ctx, "u1", "精灵魔法师")
	require.NoError(t, err)
	assert.Equal(t, []string{"火系魔法"}, m.Likes)
}

func TestConversationsDocumentLayout(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()

	d := newTestDB(t, dataDir)
	now := time.Now().Unix()
	_, err := d.CreateConversation(ctx, &store.Conversation{
		ID: "conv-1", UserID: "u1", CharacterName: "孔子",
		Messages: []store.Message{}, CreatedTs: now, UpdatedTs: now,
	})
	require.NoError(t, err)

	// The document is a map of conversation id to conversation record.
	raw, err := os.ReadFile(filepath.Join(dataDir, "conversations.json"))
	require.NoError(t, err)
	var doc map[string]*store.Conversation
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Contains(t, doc, "conv-1")
	assert.Equal(t, "孔子", doc["conv-1"].CharacterName)
}

func TestAppendCountAndOrdering(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t, t.TempDir())

	now := time.Now().Unix()
	_, err := d.CreateConversation(ctx, &store.Conversation{
		ID: "conv-1", UserID: "u1", CharacterName: "孔子",
		Messages: []store.Message{}, CreatedTs: now, UpdatedTs: now,
	})
	require.NoError(t, err)

	contents := []string{"一", "二", "三"}
	for i, content := range contents {
		require.NoError(t, d.AppendConversationMessage(ctx, &store.AppendMessage{
			ConversationID: "conv-1", Role: store.MessageRoleUser, Content: content,
		}))
		got, err := d.GetConversation(ctx, "conv-1")
		require.NoError(t, err)
		require.Len(t, got.Messages, i+1)
	}

	got, err := d.GetConversation(ctx, "conv-1")
	require.NoError(t, err)
	for i, content := range contents {
		assert.Equal(t, content, got.Messages[i].Content)
	}
}

func TestCustomRolePersistence(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()

	d := newTestDB(t, dataDir)
	now := time.Now().Unix()
	_, err := d.CreateCustomRole(ctx, &store.CustomRole{
		ID: "role-1", Name: "星际船长", Personality: "果敢",
		IsCustom: true, CreatedTs: now, UpdatedTs: now,
	})
	require.NoError(t, err)

	reopened := newTestDB(t, dataDir)
	r, err := reopened.GetCustomRole(ctx, "role-1")
	require.NoError(t, err)
	assert.Equal(t, "星际船长", r.Name)
	assert.True(t, r.IsCustom)

	ok, err := reopened.DeleteCustomRole(ctx, "role-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

// breakDocument replaces the document file with a directory so the next
// atomic rename in saveJSON fails.
func breakDocument(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.RemoveAll(path))
	require.NoError(t, os.Mkdir(path, 0o770))
}

func TestSaveFailureRollsBackCache(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	d := newTestDB(t, dataDir)
	now := time.Now().Unix()

	_, err := d.CreateConversation(ctx, &store.Conversation{
		ID: "conv-1", UserID: "u1", CharacterName: "孔子",
		Messages: []store.Message{}, CreatedTs: now, UpdatedTs: now,
	})
	require.NoError(t, err)
	_, err = d.CreateCustomRole(ctx, &store.CustomRole{
		ID: "role-1", Name: "剑圣", CreatedTs: now, UpdatedTs: now,
	})
	require.NoError(t, err)
	_, err = d.UpsertUserMemory(ctx, &store.UpsertUserMemory{
		UserID: "u1", CharacterName: "孔子", IncTotalMessages: 1,
	})
	require.NoError(t, err)

	breakDocument(t, d.conversationsPath)
	breakDocument(t, d.rolesPath)
	breakDocument(t, d.memoriesPath)

	t.Run("AppendMessage", func(t *testing.T) {
		err := d.AppendConversationMessage(ctx, &store.AppendMessage{
			ConversationID: "conv-1", Role: store.MessageRoleUser, Content: "你好",
		})
		require.Error(t, err)
		got, err := d.GetConversation(ctx, "conv-1")
		require.NoError(t, err)
		assert.Empty(t, got.Messages)
	})

	t.Run("DeleteConversation", func(t *testing.T) {
		_, err := d.DeleteConversation(ctx, "conv-1")
		require.Error(t, err)
		_, err = d.GetConversation(ctx, "conv-1")
		require.NoError(t, err)
	})

	t.Run("UpsertMemory", func(t *testing.T) {
		_, err := d.UpsertUserMemory(ctx, &store.UpsertUserMemory{
			UserID: "u1", CharacterName: "孔子", IncTotalMessages: 1, AddLikes: []string{"读书"},
		})
		require.Error(t, err)
		got, err := d.GetUserMemory(ctx, "u1", "孔子")
		require.NoError(t, err)
		assert.Equal(t, 1, got.TotalMessages)
		assert.Empty(t, got.Likes)
	})

	t.Run("UpsertMemoryNewPair", func(t *testing.T) {
		_, err := d.UpsertUserMemory(ctx, &store.UpsertUserMemory{
			UserID: "u2", CharacterName: "孔子", IncTotalMessages: 1,
		})
		require.Error(t, err)
		_, err = d.GetUserMemory(ctx, "u2", "孔子")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("UpdateRole", func(t *testing.T) {
		newName := "刀圣"
		_, err := d.UpdateCustomRole(ctx, &store.UpdateCustomRole{ID: "role-1", Name: &newName})
		require.Error(t, err)
		got, err := d.GetCustomRole(ctx, "role-1")
		require.NoError(t, err)
		assert.Equal(t, "剑圣", got.Name)
	})

	t.Run("DeleteRole", func(t *testing.T) {
		_, err := d.DeleteCustomRole(ctx, "role-1")
		require.Error(t, err)
		_, err = d.GetCustomRole(ctx, "role-1")
		require.NoError(t, err)
	})
}
