package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms
	pendingRequests  = 4
)

// Message types.
const (
	msgState   = "state"
	msgCommand = "command"
	msgError   = "error"

	reqToggle = "toggle"
)

const (
	errBadMessage         = "invalid message"
	errUnsupportedMessage = "unsupported message type"
)

type pushConfig struct {
	interval time.Duration
}

func defaultPushConfig() pushConfig {
	return pushConfig{interval: defaultInterval}
}

// wsEnvelope wraps every server message.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// wsRequest is a client message, e.g. {"type":"toggle"}.
type wsRequest struct {
	Type string `json:"type"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConnect streams the dashboard view: once on connect, on every state
// change and on a fixed interval. Clients may send {"type":"toggle"}.
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	quit := make(chan struct{})
	defer close(quit)
	reqs := make(chan wsRequest, pendingRequests)
	go h.startReader(conn, reqs, done, quit)

	changes, stopWatch := h.services.Dashboard.Watch()
	defer stopWatch()

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	ctx := c.Request.Context()
	if err := h.sendState(conn); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		var err error
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = conn.WriteMessage(websocket.PingMessage, nil)
		case <-ticker.C:
			err = h.sendState(conn)
		case <-changes:
			err = h.sendState(conn)
		case req := <-reqs:
			err = h.handleRequest(ctx, conn, req)
		}
		if err != nil {
			if h.log != nil {
				h.log.Infow("ws_write_failed", "err", err)
			}
			return
		}
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	interval := h.wsPush.interval
	if interval <= 0 {
		interval = defaultInterval
	}

	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return interval
}

// startReader decodes client messages and detects closure. All writes stay
// on the wsConnect goroutine.
func (h *Handler) startReader(conn *websocket.Conn, reqs chan<- wsRequest, done chan<- struct{}, quit <-chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			req = wsRequest{}
		}
		select {
		case reqs <- req:
		case <-quit:
			return
		}
	}
}

func (h *Handler) handleRequest(ctx context.Context, conn *websocket.Conn, req wsRequest) error {
	switch req.Type {
	case reqToggle:
		cmd, view := h.services.Control.ToggleManualWater(ctx)
		return h.write(conn, wsEnvelope{Type: msgCommand, Data: ToggleResponse{
			Status:  statusAccepted,
			Command: cmd,
			State:   view,
		}})
	case "":
		return h.write(conn, wsEnvelope{Type: msgError, Error: errBadMessage})
	default:
		return h.write(conn, wsEnvelope{Type: msgError, Error: errUnsupportedMessage})
	}
}

func (h *Handler) sendState(conn *websocket.Conn) error {
	return h.write(conn, wsEnvelope{Type: msgState, Data: h.services.Dashboard.View()})
}

func (h *Handler) write(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}
