package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wsrelay/internal/config"
	"github.com/vovakirdan/wsrelay/internal/core"
	"github.com/vovakirdan/wsrelay/internal/metrics"
)

// NewServer builds the HTTP server exposing the relay socket and its operational endpoints.
// rec may be nil, in which case /metrics is not mounted.
//
// The socket is served by the plain mux: gin's writer refuses to hijack once the
// upgrade response has been written.
func NewServer(relay *core.Relay, rec *metrics.Recorder, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	members := NewMemberHandlers(relay, logger)
	api := router.Group("/api")
	api.GET("/members", members.List)

	if rec != nil {
		router.GET("/metrics", gin.WrapH(rec.Handler()))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, ErrorResponse{Error: "not found"})
	})

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(relay, cfg, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
