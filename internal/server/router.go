package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/studyfold/studyspace-backend/internal/http/handlers"
	"github.com/studyfold/studyspace-backend/internal/http/middleware"
	"github.com/studyfold/studyspace-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log                  *logger.Logger
	AllowOrigins         []string
	AgentCallbackToken   string
	LearningSpaceHandler *handlers.LearningSpaceHandler
	ArtifactHandler      *handlers.ArtifactHandler
	RealtimeHandler      *handlers.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("studyspace-backend"))
	router.Use(middleware.AttachRequestContext())
	router.Use(middleware.RequestLogger(cfg.Log))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-User-ID", "X-Session-ID", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(middleware.RequireIdentity())
	{
		api.POST("/learning-spaces", cfg.LearningSpaceHandler.Create)
		api.GET("/learning-spaces", cfg.LearningSpaceHandler.List)
		api.GET("/learning-spaces/:id", cfg.LearningSpaceHandler.Get)
		api.DELETE("/learning-spaces/:id", cfg.LearningSpaceHandler.Delete)
		api.POST("/learning-spaces/:id/generate", cfg.LearningSpaceHandler.Retrigger)
		api.POST("/learning-spaces/sources", cfg.LearningSpaceHandler.UploadSource)

		api.GET("/learning-spaces/:id/artifacts", cfg.ArtifactHandler.Status)
		api.POST("/learning-spaces/:id/audio-overview", cfg.ArtifactHandler.GenerateAudio)

		api.GET("/sse/stream", cfg.RealtimeHandler.Stream)
		api.POST("/sse/subscribe", cfg.RealtimeHandler.Subscribe)
		api.POST("/sse/unsubscribe", cfg.RealtimeHandler.Unsubscribe)
	}

	// ===============
	// || Agent     ||
	// ===============
	internal := router.Group("/internal")
	internal.Use(middleware.RequireAgentToken(cfg.AgentCallbackToken))
	{
		internal.PUT("/learning-spaces/:id/artifacts/:kind", cfg.ArtifactHandler.Apply)
	}

	return router
}
