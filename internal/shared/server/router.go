package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"student-dashboard/internal/cv"
	"student-dashboard/internal/notifications"
	"student-dashboard/internal/pages"
	"student-dashboard/internal/session"
	"student-dashboard/internal/shared/config"
	"student-dashboard/internal/shared/metrics"
	"student-dashboard/internal/shared/server/middleware"
	"student-dashboard/internal/shared/server/respond"
)

// RouterDeps carries the handlers and services the router mounts.
type RouterDeps struct {
	Config   config.Config
	Resolver middleware.Resolver

	SessionHandler       *session.Handler
	NotificationsHandler *notifications.Handler
	CVHandler            *cv.Handler
	PagesHandler         *pages.Handler

	Notifications *notifications.Service
	CV            *cv.Service
	Pages         *pages.Registry

	// Ping reports database health; nil means the in-memory repositories are in use.
	Ping func(ctx context.Context) error
	// RateLimiter is shared across requests; nil builds a fresh one.
	RateLimiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Resolver),
		middleware.RateLimit(middleware.DefaultLimits(), middleware.RouteGroup, deps.RateLimiter),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		health := gin.H{"ok": true, "db": "memory"}
		if deps.Ping != nil {
			if err := deps.Ping(c.Request.Context()); err != nil {
				respond.JSON(c, http.StatusServiceUnavailable, gin.H{"ok": false, "db": "down"})
				return
			}
			health["db"] = "up"
		}
		respond.JSON(c, http.StatusOK, health)
	})

	registerMeRoutes(api, meDeps{Notifications: deps.Notifications, CV: deps.CV, Pages: deps.Pages})
	if deps.SessionHandler != nil {
		deps.SessionHandler.RegisterRoutes(api)
	}
	if deps.NotificationsHandler != nil {
		deps.NotificationsHandler.RegisterRoutes(api)
	}
	if deps.CVHandler != nil {
		deps.CVHandler.RegisterRoutes(api)
	}
	if deps.PagesHandler != nil {
		deps.PagesHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
