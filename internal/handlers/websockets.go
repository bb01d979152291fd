package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"digital_microscope/internal/service"

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
	commandQueueLen  = 8
)

// Message types on the socket.
const (
	wsTypeState   = "state"
	wsTypeResult  = "result"
	wsTypeError   = "error"
	wsTypeCommand = "command"
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// wsCommand is sent by clients: {"type":"command","line":"tube move up"}.
type wsCommand struct {
	Type string `json:"type"`
	Line string `json:"line"`
}

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{CheckOrigin: h.checkOrigin}
}

// checkOrigin accepts requests without an Origin header (non-browser
// clients) and, when origins are configured, only those listed.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.origins) == 0 {
		return true
	}
	origin = strings.TrimSuffix(origin, "/")
	for _, allowed := range h.origins {
		if strings.EqualFold(origin, strings.TrimSuffix(allowed, "/")) {
			return true
		}
	}
	return false
}

// wsConnect streams state envelopes and, for clients that passed a valid
// ?token=, executes command messages.
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)
	authorized := h.wsAuthorized(c.Query("token"))

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
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

	// The reader only parses; all writes happen in this goroutine.
	done := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)
	cmds := make(chan string, commandQueueLen)
	go h.startReader(conn, cmds, done, stop)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	ctx := c.Request.Context()
	if err := h.sendState(ctx, conn); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := h.sendState(ctx, conn); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		case line := <-cmds:
			if err := h.runCommand(ctx, conn, line, authorized); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

func (h *Handler) wsAuthorized(token string) bool {
	if token == "" || h.services.Authorization == nil {
		return false
	}
	_, err := h.services.ParseToken(token)
	return err == nil
}

// Helper: parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	interval := defaultInterval

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

// Helper: startReader forwards command lines until the connection closes.
// Anything that is not a command message is ignored.
func (h *Handler) startReader(conn *websocket.Conn, cmds chan<- string, done chan<- struct{}, stop <-chan struct{}) {
	defer close(done)
	for {
		typ, payload, err := conn.ReadMessage()
		if err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		var msg wsCommand
		if err := json.Unmarshal(payload, &msg); err != nil || msg.Type != wsTypeCommand {
			continue
		}
		select {
		case cmds <- msg.Line:
		case <-stop:
			return
		}
	}
}

// Helper: runCommand executes one line and writes the result followed by the
// new state.
func (h *Handler) runCommand(ctx context.Context, conn *websocket.Conn, line string, authorized bool) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if !authorized {
		return conn.WriteJSON(wsEnvelope{Type: wsTypeError, Error: "unauthorized: connect with ?token="})
	}
	if strings.TrimSpace(line) == "" {
		return conn.WriteJSON(wsEnvelope{Type: wsTypeError, Error: errEmptyLine})
	}

	res, err := h.services.Console.Exec(ctx, service.SourceWebSocket, line)
	if err != nil && h.log != nil {
		h.log.Warnw("command_side_effects_failed", "err", err, "line", line, "source", service.SourceWebSocket)
	}
	out := res.Output
	if out == nil {
		out = []string{}
	}
	if err := conn.WriteJSON(wsEnvelope{Type: wsTypeResult, Data: CommandResponse{
		Code:    res.Code,
		Command: res.Command,
		Output:  out,
	}}); err != nil {
		return err
	}
	return h.sendState(ctx, conn)
}

// Helper: sendState fetches and writes the current state with a write deadline.
func (h *Handler) sendState(ctx context.Context, conn *websocket.Conn) error {
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_get_state_failed", "err", err)
		}
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: wsTypeState, Data: st})
}
