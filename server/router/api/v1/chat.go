package v1

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/ningoooo/rolechat/internal/catalog"
	"github.com/ningoooo/rolechat/plugin/ai/prompt"
	apierr "github.com/ningoooo/rolechat/server/internal/errors"
	"github.com/ningoooo/rolechat/store"
)

type chatRequest struct {
	Message        string `json:"message"`
	CharacterID    string `json:"character_id"`
	CharacterName  string `json:"character_name"`
	// CharacterDescription lets clients chat with an ad-hoc persona that
	// exists in neither the catalog nor the custom roles. It is
	// snapshotted onto the conversation at creation.
	CharacterDescription string `json:"character_description"`
	ConversationID       string `json:"conversation_id"`
	UserID               string `json:"user_id"`
}

// PostChat runs one conversational turn: resolve the character, assemble
// the prompt from stored history and memory, call the model, persist both
// turns and kick off background memory extraction.
func (s *APIV1Service) PostChat(c echo.Context) error {
	ctx := c.Request().Context()

	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return replyBadRequest(c, "请求格式错误")
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return replyBadRequest(c, "消息内容不能为空")
	}

	character, err := s.resolveCharacter(ctx, req.CharacterID, req.CharacterName)
	if err != nil {
		// An unknown character with a supplied description becomes an
		// ad-hoc persona; the description is snapshotted onto the
		// conversation when it is created.
		if req.CharacterDescription == "" || apierr.Code(err) != apierr.ErrCodeNotFound {
			return replyError(c, err)
		}
		adHocName := req.CharacterName
		if adHocName == "" {
			adHocName = req.CharacterID
		}
		character = &catalog.Character{
			Name:        adHocName,
			Description: req.CharacterDescription,
		}
	}

	userID := req.UserID
	if userID == "" {
		userID = shortuuid.New()
	}

	conversation, err := s.resolveConversation(ctx, req.ConversationID, userID, character)
	if err != nil {
		return replyError(c, apierr.StorageUnavailable(err))
	}

	// Memory is an enhancement; a failed read degrades to a memoryless
	// prompt rather than failing the turn.
	userMemory, err := s.Store.GetUserMemory(ctx, userID, character.Name)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Warn("failed to load user memory", "user_id", userID, "character", character.Name, "error", err)
		userMemory = nil
	}

	messages, err := s.Prompt.Build(prompt.BuildContext{
		CharacterName:        character.Name,
		CharacterDescription: character.Description,
		SystemPrompt:         character.SystemPrompt,
		Memory:               userMemory,
		History:              conversation.Messages,
		UserMessage:          req.Message,
	})
	if err != nil {
		return replyError(c, err)
	}

	reply, err := s.Gateway.CompleteChat(ctx, messages)
	if err != nil {
		s.Metrics.RecordModelError()
		return replyError(c, err)
	}
	s.Metrics.RecordChatTurn()

	if err := s.Store.AppendMessage(ctx, conversation.ID, store.MessageRoleUser, req.Message); err != nil {
		return replyError(c, apierr.StorageUnavailable(err))
	}
	if err := s.Store.AppendMessage(ctx, conversation.ID, store.MessageRoleAssistant, reply); err != nil {
		return replyError(c, apierr.StorageUnavailable(err))
	}

	s.extractMemoryAsync(userID, character.Name, req.Message)

	return replyOK(c, map[string]any{
		"conversation_id": conversation.ID,
		"user_id":         userID,
		"character_name":  character.Name,
		"response":        reply,
	})
}

// resolveCharacter looks up a persona by id or name, checking the built-in
// catalog first and user-created custom roles second.
func (s *APIV1Service) resolveCharacter(ctx context.Context, id, name string) (*catalog.Character, error) {
	if id == "" && name == "" {
		return nil, apierr.InvalidArgument("必须指定角色")
	}

	if id != "" {
		if ch, ok := s.Catalog.FindByID(id); ok {
			return ch, nil
		}
		role, err := s.Store.GetCustomRole(ctx, id)
		if err == nil {
			return customRoleCharacter(role), nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, apierr.StorageUnavailable(err)
		}
	}
	if name != "" {
		if ch, ok := s.Catalog.FindByName(name); ok {
			return ch, nil
		}
		roles, err := s.Store.ListCustomRoles(ctx, &store.FindCustomRole{})
		if err != nil {
			return nil, apierr.StorageUnavailable(err)
		}
		for _, role := range roles {
			if strings.EqualFold(role.Name, name) {
				return customRoleCharacter(role), nil
			}
		}
	}
	return nil, apierr.NotFound("角色不存在")
}

func customRoleCharacter(role *store.CustomRole) *catalog.Character {
	return &catalog.Character{
		ID:           role.ID,
		Name:         role.Name,
		Description:  role.Description,
		Personality:  role.Personality,
		Category:     role.Category,
		Tags:         role.Tags,
		Image:        role.Image,
		SystemPrompt: role.SystemPrompt,
		IsCustom:     true,
	}
}

// resolveConversation loads the referenced conversation or starts a fresh
// one. A client-supplied id that does not exist yet is adopted rather than
// rejected, so clients may mint ids ahead of the first turn.
func (s *APIV1Service) resolveConversation(ctx context.Context, id, userID string, character *catalog.Character) (*store.Conversation, error) {
	if id != "" {
		conversation, err := s.Store.GetConversation(ctx, id)
		if err == nil {
			return conversation, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	} else {
		id = uuid.NewString()
	}
	return s.Store.CreateConversation(ctx, id, userID, character.Name, character.Description)
}

// extractMemoryAsync scans the user's message for preference statements
// and merges them into the memory record. It runs detached from the
// request and only logs on failure.
func (s *APIV1Service) extractMemoryAsync(userID, characterName, message string) {
	s.memoryJobs.Add(1)
	go func() {
		defer s.memoryJobs.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		extraction, err := s.Extractor.Extract(ctx, message)
		if err != nil {
			slog.Warn("memory extraction failed", "user_id", userID, "error", err)
			return
		}

		upsert := extraction.ToUpsert(userID, characterName)
		// Each turn stores two messages, the user's and the reply.
		upsert.IncTotalMessages = 2
		upsert.LastConversationTs = time.Now().Unix()
		if _, err := s.Store.UpsertUserMemory(ctx, &upsert); err != nil {
			slog.Warn("failed to persist user memory", "user_id", userID, "character", characterName, "error", err)
		}
	}()
}
