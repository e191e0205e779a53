package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomrelay/internal/config"
	"github.com/vovakirdan/roomrelay/internal/core"
	"github.com/vovakirdan/roomrelay/internal/stream"
)

// streamReadSlack lets a chunk over the relay limit reach the relay, which
// answers it with an error control message instead of closing the socket.
const streamReadSlack = 64 << 10

// NewServer builds the HTTP server: REST endpoints, the ws and stream
// channels and the static client.
func NewServer(hub *core.Hub, relay *stream.Relay, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	api := NewAPIHandlers(hub, relay, cfg, logger)
	router.GET("/health", api.Health)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/webrtc-config", api.WebRTCConfig)
		apiGroup.GET("/users", api.Users)
		apiGroup.GET("/rooms/:code", api.Room)
		apiGroup.GET("/rooms/:code/messages", api.RoomMessages)
		apiGroup.POST("/rooms/code", api.NewRoomCode)
	}

	if cfg.StaticDir != "" {
		router.NoRoute(gin.WrapH(stdhttp.FileServer(stdhttp.Dir(cfg.StaticDir))))
	}

	// Websocket upgrades are served outside gin.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, cfg.AllowedOrigins, cfg.MaxMessageBytes, cfg.ClientQueueSize, logger))
	mux.Handle("/stream", NewStreamHandler(relay, cfg.AllowedOrigins, int64(relay.MaxChunk())+streamReadSlack, cfg.Stream.QueueSize, logger))
	mux.Handle("/", router)

	handler := cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})(mux)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
