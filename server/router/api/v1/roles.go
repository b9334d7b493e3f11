package v1

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/ningoooo/rolechat/store"
)

type createRoleRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Personality  string   `json:"personality"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
	Image        string   `json:"image"`
	SystemPrompt string   `json:"system_prompt"`
}

// CreateCustomRole stores a user-created persona. The role id is minted
// server-side.
func (s *APIV1Service) CreateCustomRole(c echo.Context) error {
	var req createRoleRequest
	if err := c.Bind(&req); err != nil {
		return replyBadRequest(c, "请求格式错误")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return replyBadRequest(c, "角色名称不能为空")
	}
	if _, ok := s.Catalog.FindByName(req.Name); ok {
		return replyBadRequest(c, "角色名称与内置角色冲突")
	}

	now := time.Now().Unix()
	role, err := s.Store.CreateCustomRole(c.Request().Context(), &store.CustomRole{
		ID:           "role-" + shortuuid.New(),
		Name:         req.Name,
		Description:  req.Description,
		Personality:  req.Personality,
		Category:     req.Category,
		Tags:         req.Tags,
		Image:        req.Image,
		SystemPrompt: req.SystemPrompt,
		IsCustom:     true,
		CreatedTs:    now,
		UpdatedTs:    now,
	})
	if err != nil {
		return replyError(c, err)
	}
	return replyOK(c, map[string]any{"role": role})
}

// ListCustomRoles lists custom roles, optionally filtered by keyword.
func (s *APIV1Service) ListCustomRoles(c echo.Context) error {
	find := &store.FindCustomRole{}
	if keyword := c.QueryParam("q"); keyword != "" {
		find.Keyword = &keyword
	}
	roles, err := s.Store.ListCustomRoles(c.Request().Context(), find)
	if err != nil {
		return replyError(c, err)
	}
	return replyOK(c, map[string]any{
		"roles": roles,
		"count": len(roles),
	})
}

// GetCustomRole returns one custom role by id.
func (s *APIV1Service) GetCustomRole(c echo.Context) error {
	role, err := s.Store.GetCustomRole(c.Request().Context(), c.Param("id"))
	if err != nil {
		return replyError(c, err)
	}
	return replyOK(c, map[string]any{"role": role})
}

type updateRoleRequest struct {
	Name         *string   `json:"name"`
	Description  *string   `json:"description"`
	Personality  *string   `json:"personality"`
	Category     *string   `json:"category"`
	Tags         *[]string `json:"tags"`
	Image        *string   `json:"image"`
	SystemPrompt *string   `json:"system_prompt"`
}

// UpdateCustomRole applies a partial update; absent fields keep their
// stored values.
func (s *APIV1Service) UpdateCustomRole(c echo.Context) error {
	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return replyBadRequest(c, "请求格式错误")
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return replyBadRequest(c, "角色名称不能为空")
		}
		if _, ok := s.Catalog.FindByName(trimmed); ok {
			return replyBadRequest(c, "角色名称与内置角色冲突")
		}
		req.Name = &trimmed
	}

	role, err := s.Store.UpdateCustomRole(c.Request().Context(), &store.UpdateCustomRole{
		ID:           c.Param("id"),
		Name:         req.Name,
		Description:  req.Description,
		Personality:  req.Personality,
		Category:     req.Category,
		Tags:         req.Tags,
		Image:        req.Image,
		SystemPrompt: req.SystemPrompt,
	})
	if err != nil {
		return replyError(c, err)
	}
	return replyOK(c, map[string]any{"role": role})
}

// DeleteCustomRole removes a custom role. Existing conversations with the
// role keep their stored history.
func (s *APIV1Service) DeleteCustomRole(c echo.Context) error {
	deleted, err := s.Store.DeleteCustomRole(c.Request().Context(), c.Param("id"))
	if err != nil {
		return replyError(c, err)
	}
	return replyOK(c, map[string]any{"deleted": deleted})
}
