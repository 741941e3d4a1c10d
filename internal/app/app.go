package app

import (
	"context"
	"log/slog"

	httpapp "github.com/faceoff-app/backend/internal/app/http"
	"github.com/faceoff-app/backend/internal/config"
	"github.com/faceoff-app/backend/internal/handlers"
	"github.com/faceoff-app/backend/internal/metrics"
	"github.com/faceoff-app/backend/internal/middleware"
	"github.com/faceoff-app/backend/internal/realtime"
	"github.com/faceoff-app/backend/internal/repo/postgres"
	"github.com/faceoff-app/backend/internal/routes"
	"github.com/faceoff-app/backend/internal/services"
	"github.com/prometheus/client_golang/prometheus"
)

type App struct {
	HTTPServer *httpapp.App
	Voting     *services.Voting
	Auth       *services.Auth
	Hub        *realtime.Hub

	storage   *postgres.Storage
	hubCancel context.CancelFunc
}

func NewApp(log *slog.Logger, cfg *config.Config) *App {
	storage, err := postgres.New(cfg.StoragePath)
	if err != nil {
		panic(err)
	}

	registry := prometheus.NewRegistry()
	votingMetrics := metrics.NewVotingMetrics("faceoff", registry)

	hub := realtime.NewHub(log, votingMetrics.Subscribers)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	authService := services.NewAuth(log, storage, storage, []byte(cfg.Auth.TokenSecret), cfg.Auth.TokenTTL)
	votingService := services.NewVoting(log, storage, storage, storage, storage, hub, votingMetrics)

	authMiddleware := middleware.NewAuthMiddleware(authService)

	h := routes.Handlers{
		Auth:     handlers.NewAuthHandler(authService, votingService),
		Voting:   handlers.NewVotingHandler(votingService),
		Admin:    handlers.NewAdminHandler(votingService, authService),
		Realtime: handlers.NewRealtimeHandler(log, hub),
	}

	httpApp := httpapp.NewApp(log, cfg.HTTP.Port, cfg.ClientOrigins, h, authMiddleware, registry)

	return &App{
		HTTPServer: httpApp,
		Voting:     votingService,
		Auth:       authService,
		Hub:        hub,
		storage:    storage,
		hubCancel:  hubCancel,
	}
}

func (a *App) Stop(ctx context.Context) error {
	if err := a.HTTPServer.Stop(ctx); err != nil {
		return err
	}
	a.hubCancel()
	return a.storage.Close()
}
