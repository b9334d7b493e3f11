package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/ningoooo/rolechat/internal/catalog"
	"github.com/ningoooo/rolechat/internal/profile"
	"github.com/ningoooo/rolechat/server/ai"
	apierr "github.com/ningoooo/rolechat/server/internal/errors"
	"github.com/ningoooo/rolechat/store"
	memdb "github.com/ningoooo/rolechat/store/db/memory"
)

// stubGateway returns canned replies and records every prompt it receives.
type stubGateway struct {
	reply   string
	err     error
	prompts [][]ai.Message
}

func (g *stubGateway) CompleteChat(_ context.Context, messages []ai.Message) (string, error) {
	g.prompts = append(g.prompts, messages)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *stubGateway) Transcribe(context.Context, []byte, string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *stubGateway) Synthesize(context.Context, string, string, string) ([]byte, error) {
	if g.err != nil {
		return nil, g.err
	}
	return []byte(g.reply), nil
}

func newTestService(t *testing.T, gateway ai.Gateway) (*APIV1Service, *echo.Echo) {
	t.Helper()

	p := &profile.Profile{
		Mode:          "dev",
		Driver:        "memory",
		Version:       "test",
		HistoryWindow: 20,
	}
	st := store.New(memdb.NewDB(), p)
	svc := NewAPIV1Service(p, st, catalog.Default(), gateway)

	e := echo.New()
	svc.RegisterRoutes(e)
	return svc, e
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestChatTurn(t *testing.T) {
	gateway := &stubGateway{reply: "你好，很高兴见到你。"}
	svc, e := newTestService(t, gateway)

	rec := doJSON(t, e, http.MethodPost, "/api/chat", map[string]any{
		"message":      "你好",
		"character_id": "confucius",
		"user_id":      "u1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, true, body["success"])
	require.Contains(t, body, "response")
	require.Equal(t, "你好，很高兴见到你。", body["response"])
	require.Equal(t, "孔子", body["character_name"])
	require.NotEmpty(t, body["conversation_id"])

	// Both turns are persisted and the conversation is retrievable by
	// the returned id.
	conversationID := body["conversation_id"].(string)
	svc.DrainMemoryJobs()

	rec = doJSON(t, e, http.MethodGet, "/api/conversations/"+conversationID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	conv := decodeBody(t, rec)["conversation"].(map[string]any)
	messages := conv["messages"].([]any)
	require.Len(t, messages, 2)
	first := messages[0].(map[string]any)
	require.Equal(t, "user", first["role"])
	require.Equal(t, "你好", first["content"])
	second := messages[1].(map[string]any)
	require.Equal(t, "assistant", second["role"])
}

func TestChatValidation(t *testing.T) {
	_, e := newTestService(t, &stubGateway{reply: "ok"})

	t.Run("EmptyMessage", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/chat", map[string]any{
			"message":      "   ",
			"character_id": "confucius",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		require.Equal(t, false, body["success"])
		require.NotEmpty(t, body["error"])
	})

	t.Run("MissingCharacter", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/chat", map[string]any{"message": "你好"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("UnknownCharacter", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/chat", map[string]any{
			"message":      "你好",
			"character_id": "no-such-character",
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
		body := decodeBody(t, rec)
		require.Equal(t, false, body["success"])
	})
}

func TestChatModelErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"AuthError", apierr.Unauthorized("API密钥无效，请配置正确的OpenAI API密钥"), http.StatusUnauthorized},
		{"RateLimited", apierr.RateLimitExceeded("API请求频率过高，请稍后重试"), http.StatusTooManyRequests},
		{"Timeout", apierr.Timeout("模型API请求超时，请稍后重试", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, e := newTestService(t, &stubGateway{err: tc.err})
			rec := doJSON(t, e, http.MethodPost, "/api/chat", map[string]any{
				"message":      "你好",
				"character_id": "confucius",
			})
			require.Equal(t, tc.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			require.Equal(t, false, body["success"])
			errMsg := body["error"].(string)
			require.NotEmpty(t, errMsg)
			require.NotContains(t, errMsg, "goroutine")
		})
	}
}

// TestChatMemoryScenario walks the full memory loop: a preference stated
// in one turn surfaces in the system entry of the next.
func TestChatMemoryScenario(t *testing.T) {
	gateway := &stubGateway{reply: "原来如此，火焰的舞者。"}
	svc, e := newTestService(t, gateway)

	rec := doJSON(t, e, http.MethodPost, "/api/chat", map[string]any{
		"message":        "我喜欢火系魔法",
		"character_name": "精灵魔法师",
		"user_id":        "u-mage",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	conversationID := decodeBody(t, rec)["conversation_id"].(string)

	svc.DrainMemoryJobs()

	userMemory, err := svc.Store.GetUserMemory(context.Background(), "u-mage", "精灵魔法师")
	require.NoError(t, err)
	require.Contains(t, userMemory.Likes, "火系魔法")
	require.Equal(t, 2, userMemory.TotalMessages)
	require.NotZero(t, userMemory.LastConversationTs)

	rec = doJSON(t, e, http.MethodPost, "/api/chat", map[string]any{
		"message":         "你还记得我喜欢什么吗？",
		"character_name":  "精灵魔法师",
		"conversation_id": conversationID,
		"user_id":         "u-mage",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, gateway.prompts, 2)
	secondPrompt := gateway.prompts[1]
	require.Equal(t, "system", secondPrompt[0].Role)
	require.Contains(t, secondPrompt[0].Content, "火系魔法")
	// The second turn also sees the first turn's history.
	require.Equal(t, "我喜欢火系魔法", secondPrompt[1].Content)

	svc.DrainMemoryJobs()
}

func TestChatAdHocCharacter(t *testing.T) {
	gateway := &stubGateway{reply: "在下临时角色。"}
	svc, e := newTestService(t, gateway)

	rec := doJSON(t, e, http.MethodPost, "/api/chat", map[string]any{
		"message":               "你好",
		"character_name":        "临时角色",
		"character_description": "一位只在本次会话登场的神秘访客",
		"user_id":               "u-adhoc",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "临时角色", body["character_name"])

	svc.DrainMemoryJobs()

	// The supplied description is snapshotted onto the conversation and
	// flows into the generated system entry.
	conversation, err := svc.Store.GetConversation(context.Background(), body["conversation_id"].(string))
	require.NoError(t, err)
	require.Equal(t, "一位只在本次会话登场的神秘访客", conversation.CharacterDescription)
	require.Contains(t, gateway.prompts[0][0].Content, "一位只在本次会话登场的神秘访客")

	// Without a description an unknown character is still rejected.
	rec = doJSON(t, e, http.MethodPost, "/api/chat", map[string]any{
		"message":        "你好",
		"character_name": "不存在的角色",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatAdoptsClientConversationID(t *testing.T) {
	svc, e := newTestService(t, &stubGateway{reply: "ok"})

	rec := doJSON(t, e, http.MethodPost, "/api/chat", map[string]any{
		"message":         "你好",
		"character_id":    "socrates",
		"conversation_id": "client-made-id",
		"user_id":         "u2",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "client-made-id", decodeBody(t, rec)["conversation_id"])

	svc.DrainMemoryJobs()

	conversation, err := svc.Store.GetConversation(context.Background(), "client-made-id")
	require.NoError(t, err)
	require.Equal(t, "苏格拉底", conversation.CharacterName)
}

func TestChatGeneratesUserID(t *testing.T) {
	svc, e := newTestService(t, &stubGateway{reply: "ok"})

	rec := doJSON(t, e, http.MethodPost, "/api/chat", map[string]any{
		"message":      "你好",
		"character_id": "harry-potter",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.NotEmpty(t, body["user_id"])

	svc.DrainMemoryJobs()
}

func TestChatWithCustomRole(t *testing.T) {
	svc, e := newTestService(t, &stubGateway{reply: "吾乃剑圣。"})

	role, err := svc.Store.CreateCustomRole(context.Background(), &store.CustomRole{
		ID:           "role-swordmaster",
		Name:         "剑圣",
		Description:  "一位隐居的剑术宗师",
		SystemPrompt: "你是一位隐居山林的剑圣。",
		IsCustom:     true,
		CreatedTs:    time.Now().Unix(),
		UpdatedTs:    time.Now().Unix(),
	})
	require.NoError(t, err)

	gateway := svc.Gateway.(*stubGateway)
	rec := doJSON(t, e, http.MethodPost, "/api/chat", map[string]any{
		"message":      "请教剑术",
		"character_id": role.ID,
		"user_id":      "u3",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "剑圣", decodeBody(t, rec)["character_name"])
	require.Equal(t, "你是一位隐居山林的剑圣。", gateway.prompts[0][0].Content)

	svc.DrainMemoryJobs()
}
