package handlers

import (
	"log/slog"

	"github.com/coder/websocket"
	"github.com/faceoff-app/backend/internal/realtime"
	"github.com/gin-gonic/gin"
)

type RealtimeHandler struct {
	log *slog.Logger
	hub *realtime.Hub
}

func NewRealtimeHandler(log *slog.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{log: log, hub: hub}
}

// Subscribe handles GET /realtime: upgrades to a websocket and streams one
// PollView event per successful vote until the peer disconnects. Updates
// published before the upgrade are not replayed.
func (h *RealtimeHandler) Subscribe(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		// Accept has already written its own HTTP error response.
		h.log.Info("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := realtime.NewClient(h.hub, conn)
	h.hub.Register(client)

	go client.WritePump(c.Request.Context())
	client.ReadPump(c.Request.Context())
}
