package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/videoconf/internal/auth"
	"github.com/vovakirdan/videoconf/internal/config"
	"github.com/vovakirdan/videoconf/internal/core"
	"github.com/vovakirdan/videoconf/internal/service/conference"
)

// Deps are the collaborators served over HTTP.
type Deps struct {
	Conference *conference.Service
	Hub        *core.Hub
	JWT        *auth.JWTConfig
	// StartRateLimit caps call starts per user per minute. Zero disables it.
	StartRateLimit int
}

// NewRouter builds the root handler: /ws is served directly so the websocket
// upgrade can hijack the connection, everything else goes through gin.
func NewRouter(deps Deps, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(deps.Hub, deps.JWT, logger))
	mux.Handle("/", newAPIRouter(deps, logger))
	return mux
}

// newAPIRouter builds the gin engine with every API route.
func newAPIRouter(deps Deps, logger *zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	handlers := NewConferenceHandlers(deps.Conference, logger)
	limiter := newRateLimiter(deps.StartRateLimit, time.Minute)

	api := router.Group("/api")
	api.Use(AuthMiddleware(deps.JWT, logger))
	{
		api.POST("/rooms/:id/calls", RateLimitMiddleware(limiter, logger), handlers.StartCall)
		api.GET("/calls/:id", handlers.GetCall)
		api.POST("/calls/:id/join", handlers.JoinCall)
		api.POST("/calls/:id/cancel", handlers.CancelCall)
	}

	return router
}

// NewServer wraps handler in an HTTP server configured from cfg.
func NewServer(cfg config.ServerConfig, handler stdhttp.Handler) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
