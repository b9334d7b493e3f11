// Package server wires the echo HTTP server around the store, catalog and
// model gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/ningoooo/rolechat/internal/catalog"
	"github.com/ningoooo/rolechat/internal/profile"
	"github.com/ningoooo/rolechat/server/ai"
	apiv1 "github.com/ningoooo/rolechat/server/router/api/v1"
	"github.com/ningoooo/rolechat/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	apiService *apiv1.APIV1Service
}

func NewServer(ctx context.Context, profile *profile.Profile, st *store.Store) (*Server, error) {
	if err := st.Ping(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to ping store")
	}

	echoServer := echo.New()
	echoServer.Debug = profile.Mode == "dev"
	echoServer.HideBanner = true
	echoServer.HidePort = true

	echoServer.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			slog.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	echoServer.Use(echomw.Recover())
	echoServer.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
	}))

	gateway := ai.NewProvider(profile)
	apiService := apiv1.NewAPIV1Service(profile, st, catalog.Default(), gateway)
	apiService.RegisterRoutes(echoServer)

	return &Server{
		Profile:    profile,
		Store:      st,
		echoServer: echoServer,
		apiService: apiService,
	}, nil
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started",
		"address", address,
		"mode", s.Profile.Mode,
		"driver", s.Store.DriverName(),
		"version", s.Profile.Version)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Shutdown(shutdownCtx)
	}()

	if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains background memory writes, stops the HTTP listener and
// closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	s.apiService.DrainMemoryJobs()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server stopped")
}
