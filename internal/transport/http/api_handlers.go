package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomrelay/internal/config"
	"github.com/vovakirdan/roomrelay/internal/core"
	"github.com/vovakirdan/roomrelay/internal/proto"
	"github.com/vovakirdan/roomrelay/internal/stream"
	"github.com/vovakirdan/roomrelay/internal/utils"
)

const roomCodeAttempts = 8

// APIHandlers provides HTTP handlers for REST API endpoints.
type APIHandlers struct {
	hub     *core.Hub
	relay   *stream.Relay
	cfg     *config.Config
	started time.Time
	log     *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(hub *core.Hub, relay *stream.Relay, cfg *config.Config, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		hub:     hub,
		relay:   relay,
		cfg:     cfg,
		started: time.Now(),
		log:     logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string  `json:"status"`
	Uptime      float64 `json:"uptime"`
	Rooms       int     `json:"rooms"`
	Connections int     `json:"connections"`
	StreamRooms int     `json:"stream_rooms"`
	Environment string  `json:"environment"`
	Protocol    int     `json:"protocol"`
	Timestamp   string  `json:"timestamp"`
}

// WebRTCConfigResponse tells browsers which ICE servers to use.
type WebRTCConfigResponse struct {
	STUNServers []string           `json:"stunServers"`
	ICEServers  []webrtc.ICEServer `json:"iceServers"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	Code         string              `json:"code"`
	CreatorID    string              `json:"creator_id"`
	CreatedAt    string              `json:"created_at"`
	LastActivity string              `json:"last_activity"`
	Participants []proto.Participant `json:"participants"`
	Messages     int                 `json:"messages"`
}

// RoomCodeResponse carries a freshly generated room code.
type RoomCodeResponse struct {
	Code string `json:"code"`
}

// Health reports liveness and a few gauges.
// GET /health
func (h *APIHandlers) Health(c *gin.Context) {
	now := time.Now()
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		Uptime:      now.Sub(h.started).Seconds(),
		Rooms:       h.hub.Registry().Count(),
		Connections: h.hub.ConnectionCount(),
		StreamRooms: h.relay.RoomCount(),
		Environment: h.cfg.Environment,
		Protocol:    proto.ProtocolVersion,
		Timestamp:   now.UTC().Format(time.RFC3339),
	})
}

// WebRTCConfig returns the configured ICE servers.
// GET /api/webrtc-config
func (h *APIHandlers) WebRTCConfig(c *gin.Context) {
	c.JSON(http.StatusOK, WebRTCConfigResponse{STUNServers: stunURLs(h.cfg.ICEServers), ICEServers: h.cfg.ICEServers})
}

// stunURLs collects the stun: and stuns: urls of servers.
func stunURLs(servers []webrtc.ICEServer) []string {
	out := make([]string, 0, len(servers))
	for _, server := range servers {
		for _, u := range server.URLs {
			if strings.HasPrefix(u, "stun:") || strings.HasPrefix(u, "stuns:") {
				out = append(out, u)
			}
		}
	}
	return out
}

// Users lists the display names currently online.
// GET /api/users
func (h *APIHandlers) Users(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.OnlineUsers())
}

// Room returns a summary of a live room.
// GET /api/rooms/:code
func (h *APIHandlers) Room(c *gin.Context) {
	code := c.Param("code")
	info, err := h.hub.Registry().Room(code)
	if err != nil {
		h.roomError(c, code, err)
		return
	}

	c.JSON(http.StatusOK, RoomResponse{
		Code:         info.Code,
		CreatorID:    info.CreatorID,
		CreatedAt:    info.CreatedAt.Format(time.RFC3339),
		LastActivity: info.LastActivity.Format(time.RFC3339),
		Participants: participantsToProto(info.Participants),
		Messages:     info.HistoryLen,
	})
}

// RoomMessages returns the stored chat history of a room.
// GET /api/rooms/:code/messages
func (h *APIHandlers) RoomMessages(c *gin.Context) {
	code := c.Param("code")
	history, err := h.hub.Registry().History(code)
	if err != nil {
		h.roomError(c, code, err)
		return
	}

	messages := make([]proto.EventMessage, 0, len(history))
	for _, msg := range history {
		messages = append(messages, messageToProto(msg))
	}
	c.JSON(http.StatusOK, messages)
}

// NewRoomCode hands out a code that no live room uses.
// POST /api/rooms/code
func (h *APIHandlers) NewRoomCode(c *gin.Context) {
	for i := 0; i < roomCodeAttempts; i++ {
		code := utils.NewRoomCode()
		if !h.hub.Registry().Exists(code) {
			c.JSON(http.StatusOK, RoomCodeResponse{Code: code})
			return
		}
	}
	h.log.Error().Int("attempts", roomCodeAttempts).Msg("could not find a free room code")
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "no free room code, try again"})
}

func (h *APIHandlers) roomError(c *gin.Context, code string, err error) {
	if errors.Is(err, core.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}
	h.log.Error().Err(err).Str("room", code).Msg("room lookup failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
