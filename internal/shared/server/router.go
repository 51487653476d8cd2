package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"legaldocs-backend/internal/documents"
	"legaldocs-backend/internal/jobs"
	"legaldocs-backend/internal/realtime"
	"legaldocs-backend/internal/shared/config"
	"legaldocs-backend/internal/shared/metrics"
	"legaldocs-backend/internal/shared/server/middleware"
	"legaldocs-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Config    config.Config
	Documents *documents.Handler
	Jobs      *jobs.Handler
	Realtime  *realtime.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT": {Rate: 5, Burst: 10},
				"POLLING": {Rate: 20, Burst: 40},
			},
			GroupFor: rateLimitGroup,
		}),
	)

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/health", healthHandler)

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler)
	if deps.Documents != nil {
		deps.Documents.RegisterRoutes(api)
	}
	if deps.Jobs != nil {
		deps.Jobs.RegisterRoutes(api)
	}
	if deps.Realtime != nil {
		deps.Realtime.RegisterRoutes(api)
	}

	return r
}

func healthHandler(c *gin.Context) {
	respond.JSON(c, http.StatusOK, gin.H{"ok": true})
}

// rateLimitGroup gives status polls a higher budget than mutations.
func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method == http.MethodGet &&
		(strings.HasPrefix(c.FullPath(), "/api/v1/jobs/") || strings.HasSuffix(c.FullPath(), "/status")) {
		return "POLLING"
	}
	return "DEFAULT"
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
