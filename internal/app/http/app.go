package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/faceoff-app/backend/internal/middleware"
	"github.com/faceoff-app/backend/internal/routes"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	engine *gin.Engine
	server *http.Server
	log    *slog.Logger
}

// NewApp builds the gin engine: CORS, public/private/admin route groups,
// health check and prometheus endpoint.
func NewApp(
	log *slog.Logger,
	port int,
	clientOrigins []string,
	h routes.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	registry *prometheus.Registry,
) *App {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     clientOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowWebSockets:  true,
	}))

	api := r.Group("/api")
	{
		routes.RegisterPublicRoutes(api, h, authMiddleware.Optional())

		privateGroup := api.Group("", authMiddleware.Require())
		routes.RegisterPrivateRoutes(privateGroup, h)

		adminGroup := api.Group("/admin", authMiddleware.Require(), middleware.RequireAdmin())
		routes.RegisterAdminRoutes(adminGroup, h)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}

	return &App{
		engine: r,
		server: httpServer,
		log:    log,
	}
}

func (a *App) Run() error {
	a.log.Info("HTTP server is running", slog.String("addr", a.server.Addr))
	return a.server.ListenAndServe()
}

func (a *App) Stop(ctx context.Context) error {
	a.log.Info("HTTP server is stopping")
	return a.server.Shutdown(ctx)
}

func (a *App) Engine() *gin.Engine {
	return a.engine
}
