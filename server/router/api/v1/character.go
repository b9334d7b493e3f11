package v1

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ningoooo/rolechat/server/ai"
)

// ListCharacters returns the built-in catalog.
func (s *APIV1Service) ListCharacters(c echo.Context) error {
	return replyOK(c, map[string]any{
		"characters": s.Catalog.All(),
	})
}

// GetCharacter returns one catalog character by id.
func (s *APIV1Service) GetCharacter(c echo.Context) error {
	id := c.Param("id")
	character, ok := s.Catalog.FindByID(id)
	if !ok {
		role, err := s.Store.GetCustomRole(c.Request().Context(), id)
		if err != nil {
			return replyError(c, err)
		}
		character = customRoleCharacter(role)
	}
	return replyOK(c, map[string]any{"character": character})
}

// SearchCharacters filters the catalog by a free-text query and an
// optional category. An empty query with category "all" returns everything.
func (s *APIV1Service) SearchCharacters(c echo.Context) error {
	query := c.QueryParam("q")
	category := c.QueryParam("category")
	results := s.Catalog.Search(query, category)
	return replyOK(c, map[string]any{
		"characters": results,
		"count":      len(results),
	})
}

// skillPrompts maps a skill name to the instruction appended to the
// character's persona for a one-shot demonstration turn.
var skillPrompts = map[string]string{
	"knowledge": "请用你的身份和口吻，分享一段你最擅长领域的知识，控制在150字以内。",
	"emotion":   "请用你的身份和口吻，说一段安慰和鼓励用户的话，控制在150字以内。",
	"creative":  "请用你的身份和口吻，即兴创作一小段故事或诗句，控制在150字以内。",
}

// PostCharacterSkill runs a stateless one-shot demonstration of a
// character skill. Nothing is persisted.
func (s *APIV1Service) PostCharacterSkill(c echo.Context) error {
	ctx := c.Request().Context()

	character, err := s.resolveCharacter(ctx, c.Param("id"), "")
	if err != nil {
		return replyError(c, err)
	}

	skill := strings.ToLower(c.Param("skill"))
	instruction, ok := skillPrompts[skill]
	if !ok {
		return replyBadRequest(c, fmt.Sprintf("未知的技能类型: %s", skill))
	}

	system := character.SystemPrompt
	if system == "" {
		system = fmt.Sprintf("你正在扮演角色\"%s\"。%s", character.Name, character.Description)
	}

	reply, err := s.Gateway.CompleteChat(ctx, []ai.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: instruction},
	})
	if err != nil {
		s.Metrics.RecordModelError()
		return replyError(c, err)
	}
	s.Metrics.RecordChatTurn()

	return replyOK(c, map[string]any{
		"character_name": character.Name,
		"skill":          skill,
		"response":       reply,
	})
}
