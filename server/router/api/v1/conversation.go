package v1

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ningoooo/rolechat/store"
)

// ListConversations lists conversations, most recently active first,
// filtered by user and/or character. At least one filter is required.
func (s *APIV1Service) ListConversations(c echo.Context) error {
	ctx := c.Request().Context()

	find := &store.FindConversation{}
	if userID := c.QueryParam("user_id"); userID != "" {
		find.UserID = &userID
	}
	if character := c.QueryParam("character"); character != "" {
		find.CharacterName = &character
	}
	if find.UserID == nil && find.CharacterName == nil {
		return replyBadRequest(c, "必须指定user_id或character")
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return replyBadRequest(c, "limit参数无效")
		}
		find.Limit = &limit
	}

	conversations, err := s.Store.ListConversations(ctx, find)
	if err != nil {
		return replyError(c, err)
	}
	return replyOK(c, map[string]any{
		"conversations": conversations,
		"count":         len(conversations),
	})
}

// ListConversationsByCharacter lists every conversation held with one
// character across all users.
func (s *APIV1Service) ListConversationsByCharacter(c echo.Context) error {
	characterName := pathParam(c, "name")

	conversations, err := s.Store.ListConversations(c.Request().Context(), &store.FindConversation{
		CharacterName: &characterName,
	})
	if err != nil {
		return replyError(c, err)
	}
	return replyOK(c, map[string]any{
		"character_name": characterName,
		"conversations":  conversations,
		"count":          len(conversations),
	})
}

// GetConversation returns one conversation with its full message list.
func (s *APIV1Service) GetConversation(c echo.Context) error {
	conversation, err := s.Store.GetConversation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return replyError(c, err)
	}
	return replyOK(c, map[string]any{"conversation": conversation})
}

// DeleteConversation removes one conversation and its messages.
func (s *APIV1Service) DeleteConversation(c echo.Context) error {
	deleted, err := s.Store.DeleteConversation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return replyError(c, err)
	}
	return replyOK(c, map[string]any{"deleted": deleted})
}

// CleanupConversations drops conversations idle longer than the retention
// period, 30 days unless overridden.
func (s *APIV1Service) CleanupConversations(c echo.Context) error {
	retentionDays := 30
	if raw := c.QueryParam("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			return replyBadRequest(c, "days参数无效")
		}
		retentionDays = days
	}

	removed, err := s.Store.CleanupConversations(c.Request().Context(), retentionDays)
	if err != nil {
		return replyError(c, err)
	}
	return replyOK(c, map[string]any{
		"removed":        removed,
		"retention_days": retentionDays,
	})
}

// GetDatabaseStats reports driver-level object counts.
func (s *APIV1Service) GetDatabaseStats(c echo.Context) error {
	stats, err := s.Store.Stats(c.Request().Context())
	if err != nil {
		return replyError(c, err)
	}
	return replyOK(c, map[string]any{"stats": stats})
}
