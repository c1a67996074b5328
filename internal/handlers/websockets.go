package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"esp32_supervisor/internal/logger"
	"esp32_supervisor/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000
)

// wsEnvelope is the only message shape sent on /ws.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Origins are enforced by the CORS layer in front of the router.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// stateStream pushes supervisor snapshots to one websocket client.
type stateStream struct {
	conn     *websocket.Conn
	monitor  service.Monitoring
	log      *logger.Logger
	interval time.Duration
	changed  chan struct{}
}

// @Summary      Supervisor state stream
// @Description  Pushes {"type":"state"} envelopes on every change and at least once per interval (?interval=2s or ?interval_ms=2000, max 10s).
// @Tags         device
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorw("ws_upgrade_failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	s := &stateStream{
		conn:     conn,
		monitor:  h.services.Monitoring,
		log:      h.log,
		interval: interval,
		changed:  make(chan struct{}, 1),
	}
	s.run(c.Request.Context())
}

func (s *stateStream) run(ctx context.Context) {
	s.conn.SetReadLimit(maxMsgSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go s.drain(done)

	// Runs under monitoring locks: signal only.
	sub := s.monitor.Subscribe(s.signal)
	defer func() { _ = sub.Close() }()

	ticker := time.NewTicker(s.interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	if err := s.send(ctx); err != nil {
		s.log.Infow("ws_write_failed_initial", "err", err)
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Infow("ws_ping_failed", "err", err)
				return
			}
		case <-s.changed:
			if err := s.send(ctx); err != nil {
				s.log.Infow("ws_write_failed", "trigger", "change", "err", err)
				return
			}
			ticker.Reset(s.interval)
		case <-ticker.C:
			if err := s.send(ctx); err != nil {
				s.log.Infow("ws_write_failed", "trigger", "interval", "err", err)
				return
			}
		}
	}
}

func (s *stateStream) signal() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// drain reads until the client goes away so control frames are processed.
func (s *stateStream) drain(done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.log.Debugw("ws_read_closed", "err", err)
			return
		}
	}
}

func (s *stateStream) send(ctx context.Context) error {
	st, err := s.monitor.GetState(ctx)
	if err != nil {
		s.log.Errorw("ws_get_state_failed", "err", err)
		return err
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(wsEnvelope{Type: "state", Data: st})
}

// parseInterval reads ?interval=2s or ?interval_ms=2000, bounded by maxInterval.
// interval wins when both are valid.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
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
	return defaultInterval
}
