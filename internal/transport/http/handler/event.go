package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// pingInterval keeps the connection alive through idle proxies; must be
// shorter than writeWait's deadline on the other side.
const pingInterval = 30 * time.Second
const writeWait = 10 * time.Second

type EventHandler struct {
	facade   *usecase.Facade
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewEventHandler(facade *usecase.Facade, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		facade: facade,
		logger: logger.With("component", "event_handler"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Stream upgrades to a WebSocket and forwards every engine event as a JSON
// text frame until the client disconnects or the server shuts down.
func (h *EventHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := h.facade.SubscribeEvents()
	defer sub.Close()

	go h.drainReads(conn)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if ev.Detail == "lagged" {
				h.logger.Warn("event stream subscriber fell behind, events were dropped")
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("marshal event", "error", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}

// drainReads discards inbound frames; the protocol is server-push only, but
// the read pump must stay active so the connection's close frame is seen.
func (h *EventHandler) drainReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
