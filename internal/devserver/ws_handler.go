package devserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sharanperla/Greenleaf-client/internal/proto"
	"github.com/sharanperla/Greenleaf-client/internal/utils"
)

// WSHandler upgrades room subscriptions and relays hub pushes to the socket.
// The socket is push-only; anything the client sends is discarded.
type WSHandler struct {
	hub *Hub
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *Hub, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, log: logger}
}

// Serve handles GET /ws/chat/:room/.
func (h *WSHandler) Serve(c *gin.Context) {
	roomName := strings.TrimSpace(c.Param("room"))
	if roomName == "" {
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "room is required"})
		return
	}
	_, username, _ := currentUser(c)

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := NewClient(utils.NewID(), roomName, username)
	if !h.hub.Register(client) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.hub.Unregister(client)

	// CloseRead discards inbound frames and cancels ctx once the peer goes away.
	ctx := conn.CloseRead(c.Request.Context())

	err = h.writeLoop(ctx, conn, client)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *Client) error {
	for {
		select {
		case payload, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws frame")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
