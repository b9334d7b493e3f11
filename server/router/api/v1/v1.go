// Package v1 exposes the REST surface: chat, voice, characters,
// conversations, user memory, custom roles and health.
package v1

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"

	"github.com/ningoooo/rolechat/internal/catalog"
	"github.com/ningoooo/rolechat/internal/profile"
	"github.com/ningoooo/rolechat/plugin/ai/memory"
	"github.com/ningoooo/rolechat/plugin/ai/prompt"
	"github.com/ningoooo/rolechat/server/ai"
	"github.com/ningoooo/rolechat/server/internal/observability"
	"github.com/ningoooo/rolechat/server/middleware"
	"github.com/ningoooo/rolechat/store"
)

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Catalog *catalog.Catalog
	Gateway ai.Gateway

	Prompt    *prompt.Builder
	Extractor memory.Extractor
	Metrics   *observability.Metrics

	// synthesisSemaphore limits concurrent speech synthesis to keep
	// audio buffers from exhausting memory.
	synthesisSemaphore *semaphore.Weighted

	modelLimiter *middleware.RateLimiter

	// memoryJobs tracks in-flight background memory extractions so
	// shutdown can drain them.
	memoryJobs sync.WaitGroup
}

// DrainMemoryJobs blocks until all background memory extractions finish.
func (s *APIV1Service) DrainMemoryJobs() {
	s.memoryJobs.Wait()
}

func NewAPIV1Service(profile *profile.Profile, st *store.Store, cat *catalog.Catalog, gateway ai.Gateway) *APIV1Service {
	return &APIV1Service{
		Profile:            profile,
		Store:              st,
		Catalog:            cat,
		Gateway:            gateway,
		Prompt:             prompt.NewBuilder(profile.HistoryWindow),
		Extractor:          memory.NewKeywordExtractor(),
		Metrics:            observability.NewMetrics(),
		synthesisSemaphore: semaphore.NewWeighted(3),
		modelLimiter:       middleware.NewRateLimiter(time.Second/5, 10),
	}
}

// RegisterRoutes mounts all v1 handlers on the /api group.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	apiGroup := echoServer.Group("/api")

	apiGroup.GET("/health", s.GetHealth)

	modelGroup := apiGroup.Group("", s.modelLimiter.Middleware())
	modelGroup.POST("/chat", s.PostChat)
	modelGroup.POST("/voice/transcribe", s.PostVoiceTranscribe)
	modelGroup.POST("/voice/synthesize", s.PostVoiceSynthesize)
	modelGroup.POST("/characters/:id/skills/:skill", s.PostCharacterSkill)

	apiGroup.GET("/characters", s.ListCharacters)
	apiGroup.GET("/characters/search", s.SearchCharacters)
	apiGroup.GET("/characters/:id", s.GetCharacter)

	apiGroup.GET("/conversations", s.ListConversations)
	apiGroup.GET("/conversations/character/:name", s.ListConversationsByCharacter)
	apiGroup.GET("/conversations/:id", s.GetConversation)
	apiGroup.DELETE("/conversations/:id", s.DeleteConversation)
	apiGroup.POST("/conversations/cleanup", s.CleanupConversations)

	apiGroup.GET("/memory/:userID", s.ListUserMemories)
	apiGroup.GET("/memory/:userID/:character", s.GetUserMemory)
	apiGroup.POST("/memory/:userID/:character", s.UpdateUserMemory)

	apiGroup.GET("/roles", s.ListCustomRoles)
	apiGroup.POST("/roles", s.CreateCustomRole)
	apiGroup.GET("/roles/:id", s.GetCustomRole)
	apiGroup.PATCH("/roles/:id", s.UpdateCustomRole)
	apiGroup.DELETE("/roles/:id", s.DeleteCustomRole)

	apiGroup.GET("/database/stats", s.GetDatabaseStats)
}
