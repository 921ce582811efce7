package ws

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	maxBacklog   = 100
	subBuffer    = 64
)

// Feed publishes logged events
type Feed interface {
	Subscribe(buffer int) (<-chan types.Event, func())
	Recent(n int) []types.Event
}

// Message is one frame sent to clients
type Message struct {
	Type    string       `json:"type"`
	Message string       `json:"message,omitempty"`
	Event   *types.Event `json:"event,omitempty"`
}

// Handler manages WebSocket connections
type Handler struct {
	feed     Feed
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler accepting browser connections
// from allowOrigins. An empty list or "*" accepts any origin.
func NewHandler(feed Feed, allowOrigins []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		feed:     feed,
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(allowOrigins)},
		logger:   logger,
	}
}

// originChecker matches the Origin header against allowed origins.
// Requests without an Origin header do not come from a browser and pass.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// HandleStream upgrades the request and streams events until the client leaves
func (h *Handler) HandleStream(c *gin.Context) {
	backlog := 0
	if raw := c.Query("backlog"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxBacklog {
			c.JSON(http.StatusBadRequest, gin.H{"error": "backlog must be between 0 and 100"})
			return
		}
		backlog = n
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := h.feed.Subscribe(subBuffer)
	defer unsubscribe()

	closed := make(chan struct{})
	go h.readLoop(conn, closed)

	if err := h.send(conn, Message{Type: "system", Message: "connected to navigation event feed"}); err != nil {
		return
	}
	if backlog > 0 {
		for _, ev := range h.feed.Recent(backlog) {
			ev := ev
			if err := h.send(conn, Message{Type: "event", Event: &ev}); err != nil {
				return
			}
		}
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				h.closeNormally(conn, "feed closed")
				return
			}
			if err := h.send(conn, Message{Type: "event", Event: &ev}); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop consumes client frames so control messages are processed
func (h *Handler) readLoop(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, msg Message) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Handler) closeNormally(conn *websocket.Conn, reason string) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(writeWait))
}
