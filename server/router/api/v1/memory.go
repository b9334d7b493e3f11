package v1

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ningoooo/rolechat/store"
)

// ListUserMemories returns all memory records for a user across
// characters.
func (s *APIV1Service) ListUserMemories(c echo.Context) error {
	memories, err := s.Store.ListUserMemories(c.Request().Context(), pathParam(c, "userID"))
	if err != nil {
		return replyError(c, err)
	}
	return replyOK(c, map[string]any{
		"memories": memories,
		"count":    len(memories),
	})
}

// GetUserMemory returns the memory record for a (user, character) pair.
// A pair that has never produced a memory yields an empty record rather
// than an error, so clients need no special case for new users.
func (s *APIV1Service) GetUserMemory(c echo.Context) error {
	userID := pathParam(c, "userID")
	characterName := pathParam(c, "character")

	userMemory, err := s.Store.GetUserMemory(c.Request().Context(), userID, characterName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			userMemory = &store.UserMemory{
				UserID:        userID,
				CharacterName: characterName,
				Likes:         []string{},
				Dislikes:      []string{},
			}
		} else {
			return replyError(c, err)
		}
	}
	return replyOK(c, map[string]any{"memory": userMemory})
}

type updateMemoryRequest struct {
	AddLikes    []string          `json:"add_likes"`
	AddDislikes []string          `json:"add_dislikes"`
	SetExtra    map[string]string `json:"set_extra"`
}

// UpdateUserMemory lets clients write memory facts directly, merging with
// the stored record under the same rules as the extractor.
func (s *APIV1Service) UpdateUserMemory(c echo.Context) error {
	var req updateMemoryRequest
	if err := c.Bind(&req); err != nil {
		return replyBadRequest(c, "请求格式错误")
	}
	if len(req.AddLikes) == 0 && len(req.AddDislikes) == 0 && len(req.SetExtra) == 0 {
		return replyBadRequest(c, "没有可更新的记忆内容")
	}

	userMemory, err := s.Store.UpsertUserMemory(c.Request().Context(), &store.UpsertUserMemory{
		UserID:        pathParam(c, "userID"),
		CharacterName: pathParam(c, "character"),
		AddLikes:      req.AddLikes,
		AddDislikes:   req.AddDislikes,
		SetExtra:      req.SetExtra,
	})
	if err != nil {
		return replyError(c, err)
	}
	return replyOK(c, map[string]any{"memory": userMemory})
}
