package notification

import (
	"net/http"

	"advisorbooking/internal/middleware"
	"advisorbooking/internal/pkg/logging"
	"advisorbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler streams new notifications to the connected user.
type WSHandler struct {
	hub    *Hub
	logger *logging.Logger
}

func NewWSHandler(hub *Hub, logger *logging.Logger) *WSHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WSHandler{hub: hub, logger: logger}
}

// HandleWebSocket serves GET /ws/notifications. Clients only listen.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "user_id", user.ID, "error", err)
		return
	}

	h.logger.Info("notification stream connected", "user_id", user.ID)
	h.hub.ServeWS(conn, user.ID)
	h.logger.Info("notification stream disconnected", "user_id", user.ID)
}
