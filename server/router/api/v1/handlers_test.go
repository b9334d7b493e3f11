package v1

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ningoooo/rolechat/store"
)

func TestListCharacters(t *testing.T) {
	_, e := newTestService(t, &stubGateway{})

	rec := doJSON(t, e, http.MethodGet, "/api/characters", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	characters := body["characters"].([]any)
	require.NotEmpty(t, characters)

	names := make([]string, 0, len(characters))
	for _, raw := range characters {
		names = append(names, raw.(map[string]any)["name"].(string))
	}
	assert.Contains(t, names, "孔子")
	assert.Contains(t, names, "精灵魔法师")
}

func TestGetCharacter(t *testing.T) {
	_, e := newTestService(t, &stubGateway{})

	rec := doJSON(t, e, http.MethodGet, "/api/characters/confucius", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	character := decodeBody(t, rec)["character"].(map[string]any)
	assert.Equal(t, "孔子", character["name"])

	rec = doJSON(t, e, http.MethodGet, "/api/characters/nobody", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["success"])
}

func TestSearchCharacters(t *testing.T) {
	_, e := newTestService(t, &stubGateway{})

	t.Run("ByTag", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/characters/search?q=%E9%AD%94%E6%B3%95", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		require.NotZero(t, body["count"])
	})

	t.Run("CategoryAll", func(t *testing.T) {
		all := decodeBody(t, doJSON(t, e, http.MethodGet, "/api/characters", nil))["characters"].([]any)

		rec := doJSON(t, e, http.MethodGet, "/api/characters/search?category=all", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(len(all)), decodeBody(t, rec)["count"])
	})
}

func TestCharacterSkill(t *testing.T) {
	gateway := &stubGateway{reply: "知之为知之，不知为不知。"}
	_, e := newTestService(t, gateway)

	rec := doJSON(t, e, http.MethodPost, "/api/characters/confucius/skills/knowledge", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "knowledge", body["skill"])
	assert.Equal(t, "知之为知之，不知为不知。", body["response"])

	rec = doJSON(t, e, http.MethodPost, "/api/characters/confucius/skills/juggling", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConversationEndpoints(t *testing.T) {
	svc, e := newTestService(t, &stubGateway{reply: "ok"})
	ctx := context.Background()

	for _, id := range []string{"c1", "c2"} {
		_, err := svc.Store.CreateConversation(ctx, id, "u1", "孔子", "思想家")
		require.NoError(t, err)
	}
	require.NoError(t, svc.Store.AppendMessage(ctx, "c1", store.MessageRoleUser, "你好"))

	t.Run("ListRequiresFilter", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/conversations", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ListByCharacterQuery", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/conversations?character=%E5%AD%94%E5%AD%90", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(2), decodeBody(t, rec)["count"])
	})

	t.Run("ListByCharacterRoute", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/conversations/character/%E5%AD%94%E5%AD%90", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "孔子", body["character_name"])
		assert.Equal(t, float64(2), body["count"])
	})

	t.Run("ListForUser", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/conversations?user_id=u1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		conversations := body["conversations"].([]any)
		require.Len(t, conversations, 2)

		ids := []string{
			conversations[0].(map[string]any)["id"].(string),
			conversations[1].(map[string]any)["id"].(string),
		}
		assert.ElementsMatch(t, []string{"c1", "c2"}, ids)
	})

	t.Run("ListWithLimit", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/conversations?user_id=u1&limit=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(1), decodeBody(t, rec)["count"])
	})

	t.Run("Delete", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodDelete, "/api/conversations/c2", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decodeBody(t, rec)["deleted"])

		rec = doJSON(t, e, http.MethodGet, "/api/conversations/c2", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Cleanup", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/conversations/cleanup?days=30", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, float64(0), body["removed"])
		assert.Equal(t, float64(30), body["retention_days"])
	})

	t.Run("Stats", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/database/stats", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		stats := decodeBody(t, rec)["stats"].(map[string]any)
		assert.Equal(t, "memory", stats["driver"])
	})
}

func TestMemoryEndpoints(t *testing.T) {
	svc, e := newTestService(t, &stubGateway{})
	ctx := context.Background()

	t.Run("GetMissingReturnsEmptyRecord", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/memory/u9/%E5%AD%94%E5%AD%90", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		memory := decodeBody(t, rec)["memory"].(map[string]any)
		assert.Equal(t, "u9", memory["user_id"])
		assert.Equal(t, float64(0), memory["total_messages"])
	})

	t.Run("UpdateThenGet", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/memory/u9/%E5%AD%94%E5%AD%90", map[string]any{
			"add_likes": []string{"读书"},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		userMemory, err := svc.Store.GetUserMemory(ctx, "u9", "孔子")
		require.NoError(t, err)
		assert.Contains(t, userMemory.Likes, "读书")
	})

	t.Run("UpdateRejectsEmptyBody", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/memory/u9/%E5%AD%94%E5%AD%90", map[string]any{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ListForUser", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/memory/u9", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, float64(1), body["count"])
	})
}

func TestCustomRoleEndpoints(t *testing.T) {
	_, e := newTestService(t, &stubGateway{})

	var roleID string

	t.Run("Create", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/roles", map[string]any{
			"name":          "星际旅人",
			"description":   "穿梭于星系之间的旅行者",
			"system_prompt": "你是一位星际旅人。",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		role := decodeBody(t, rec)["role"].(map[string]any)
		roleID = role["id"].(string)
		require.NotEmpty(t, roleID)
		assert.Equal(t, true, role["is_custom"])
	})

	t.Run("CreateRejectsCatalogNameClash", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/roles", map[string]any{"name": "孔子"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Update", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPatch, "/api/roles/"+roleID, map[string]any{
			"description": "永不停歇的星际旅行者",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		role := decodeBody(t, rec)["role"].(map[string]any)
		assert.Equal(t, "永不停歇的星际旅行者", role["description"])
		assert.Equal(t, "星际旅人", role["name"])
	})

	t.Run("ListWithKeyword", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/roles?q=%E6%98%9F%E9%99%85", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(1), decodeBody(t, rec)["count"])
	})

	t.Run("Delete", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodDelete, "/api/roles/"+roleID, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, e, http.MethodGet, "/api/roles/"+roleID, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestVoiceTranscribe(t *testing.T) {
	_, e := newTestService(t, &stubGateway{reply: "你好世界"})

	t.Run("MissingFile", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/voice/transcribe", strings.NewReader(""))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Upload", func(t *testing.T) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreateFormFile("audio", "clip.wav")
		require.NoError(t, err)
		_, err = part.Write([]byte("fake-wav-bytes"))
		require.NoError(t, err)
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/voice/transcribe", &buf)
		req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		require.Contains(t, body, "transcription")
		assert.Equal(t, "你好世界", body["transcription"])
	})
}

func TestVoiceSynthesize(t *testing.T) {
	_, e := newTestService(t, &stubGateway{reply: "binary-audio"})

	t.Run("EmptyText", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/voice/synthesize", map[string]any{"text": " "})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ReturnsAudio", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/voice/synthesize", map[string]any{"text": "你好"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "audio/mpeg", rec.Header().Get(echo.HeaderContentType))
		assert.Equal(t, "binary-audio", rec.Body.String())
	})
}

func TestHealth(t *testing.T) {
	_, e := newTestService(t, &stubGateway{})

	rec := doJSON(t, e, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])

	storage := body["storage"].(map[string]any)
	assert.Equal(t, "memory", storage["driver"])
	assert.Equal(t, "ok", storage["status"])
	assert.Equal(t, true, storage["volatile"])

	features := body["features"].(map[string]any)
	assert.Equal(t, true, features["user_memory"])
	assert.Equal(t, false, features["voice"])
}
