package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/studyfold/studyspace-backend/internal/clients/agent"
	"github.com/studyfold/studyspace-backend/internal/clients/gcp"
	"github.com/studyfold/studyspace-backend/internal/db"
	"github.com/studyfold/studyspace-backend/internal/http/handlers"
	"github.com/studyfold/studyspace-backend/internal/observability"
	"github.com/studyfold/studyspace-backend/internal/platform/logger"
	"github.com/studyfold/studyspace-backend/internal/realtime"
	"github.com/studyfold/studyspace-backend/internal/realtime/bus"
	"github.com/studyfold/studyspace-backend/internal/repos"
	"github.com/studyfold/studyspace-backend/internal/server"
	"github.com/studyfold/studyspace-backend/internal/services"
)

type App struct {
	Log    *logger.Logger
	DB     *gorm.DB
	Router *gin.Engine
	Cfg    Config
	Hub    *realtime.Hub
	Feed   *realtime.Feed
	Bus    bus.Bus

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "studyspace-backend",
		Environment: cfg.Environment,
	})

	database, err := db.NewDatabaseService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := database.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := database.DB()

	hub := realtime.NewHub(log)
	feed := realtime.NewFeed(hub, log)

	feedBus, err := bus.NewRedisBus(log)
	if err != nil {
		log.Warn("redis feed bus unavailable, using in-process bus", "error", err)
		feedBus = bus.NewLocalBus()
	}

	agentClient, err := agent.NewHTTPClient(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init agent client: %w", err)
	}

	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		// Uploads degrade to topic-only spaces; creation still works.
		log.Warn("bucket service unavailable; source uploads disabled", "error", err)
		bucket = nil
	}

	spaceRepo := repos.NewLearningSpaceRepo(theDB, log)
	spaceService := services.NewLearningSpaceService(theDB, log, spaceRepo, agentClient, bucket, feedBus)
	artifactService := services.NewArtifactService(theDB, log, spaceRepo, agentClient, feedBus)

	router := server.NewRouter(server.RouterConfig{
		Log:                  log,
		AllowOrigins:         cfg.AllowOrigins,
		AgentCallbackToken:   cfg.AgentCallbackToken,
		LearningSpaceHandler: handlers.NewLearningSpaceHandler(log, spaceService),
		ArtifactHandler:      handlers.NewArtifactHandler(log, artifactService),
		RealtimeHandler:      handlers.NewRealtimeHandler(log, hub),
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Hub:          hub,
		Feed:         feed,
		Bus:          feedBus,
		otelShutdown: otelShutdown,
	}, nil
}

// Start begins forwarding bus messages into the local hub so this
// replica's SSE clients see mutations published by any replica.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if err := a.Bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
		cancel()
		a.cancel = nil
		return fmt.Errorf("start feed forwarder: %w", err)
	}
	return nil
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(a.Cfg.HTTPAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Bus != nil {
		_ = a.Bus.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
