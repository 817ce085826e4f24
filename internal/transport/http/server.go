package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/drawsync/internal/config"
	"github.com/vovakirdan/drawsync/internal/core"
)

// NewRouter builds the gin engine with all routes.
func NewRouter(hub *core.Hub, cfg config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.ClientOrigin))

	rooms := NewRoomHandlers(hub, logger)
	router.GET("/health", rooms.Health)
	router.GET("/room/:roomId", rooms.Exists)
	router.GET("/room/:roomId/export.png", rooms.ExportPNG)
	router.GET("/room/:roomId/export.pdf", rooms.ExportPDF)

	ws := NewWSHandler(hub, logger, WSOptions{
		ClientOrigin:       cfg.ClientOrigin,
		MaxMessageBytes:    cfg.MaxMessageBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		EventBuffer:        cfg.EventBuffer,
	})
	router.GET("/ws", gin.WrapH(ws))

	return router
}

// NewServer builds an HTTP server with basic routes.
func NewServer(hub *core.Hub, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(hub, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
