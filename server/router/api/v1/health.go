package v1

import (
	"log/slog"

	"github.com/labstack/echo/v4"
)

// GetHealth reports service status, store connectivity and feature flags.
// A broken store degrades the report instead of failing the endpoint so
// probes can still read the version.
func (s *APIV1Service) GetHealth(c echo.Context) error {
	ctx := c.Request().Context()

	storage := "ok"
	if err := s.Store.Ping(ctx); err != nil {
		slog.Warn("store ping failed", "driver", s.Store.DriverName(), "error", err)
		storage = "unavailable"
	}

	return replyOK(c, map[string]any{
		"status":  "healthy",
		"version": s.Profile.Version,
		"mode":    s.Profile.Mode,
		"storage": map[string]any{
			"driver":   s.Store.DriverName(),
			"status":   storage,
			"volatile": s.Store.Volatile(),
		},
		"features": map[string]any{
			"user_memory": true,
			"voice":       s.Profile.HasModelKey(),
		},
		"metrics": s.Metrics.Snapshot(),
	})
}
