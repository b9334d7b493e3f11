package v1

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	apierr "github.com/ningoooo/rolechat/server/internal/errors"
	"github.com/ningoooo/rolechat/store"
)

// errorEnvelope is the uniform failure shape. Every non-2xx response body
// carries it so clients never parse two error formats.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// replyError maps an error to its HTTP status and envelope. Unknown
// errors become 500 with a generic message so internals never leak.
func replyError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	message := "服务器内部错误，请稍后重试"

	var typed *apierr.Error
	switch {
	case errors.As(err, &typed):
		status = typed.HTTPStatus()
		message = typed.Message
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
		message = "未找到请求的资源"
	case errors.Is(err, store.ErrAlreadyExists):
		status = http.StatusBadRequest
		message = "资源已存在"
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(status, errorEnvelope{Success: false, Error: message})
}

func replyBadRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, errorEnvelope{Success: false, Error: message})
}

// replyOK wraps a payload map with success=true.
func replyOK(c echo.Context, payload map[string]any) error {
	body := map[string]any{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	return c.JSON(http.StatusOK, body)
}

// pathParam returns the named path parameter with percent-encoding
// removed. Non-ASCII character names arrive escaped in the raw path.
func pathParam(c echo.Context, name string) string {
	raw := c.Param(name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
