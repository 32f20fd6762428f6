package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-controller/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-controller/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-controller/internal/statuscache"
)

// WebSocket message types.
const (
	WSTypeSnapshot = "snapshot"
	WSTypeChanged  = "changed"
)

// defaultPingInterval is used when the WebSocket config leaves it unset.
const defaultPingInterval = 30 * time.Second

// WSMessage is a status message pushed to a stream client.
type WSMessage struct {
	Type      string         `json:"type"`
	Panel     string         `json:"panel"`
	Timestamp string         `json:"timestamp"`
	Statuses  map[int]string `json:"statuses"`
}

// Hub tracks open status streams so they can be closed on shutdown.
type Hub struct {
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient is one open status stream.
type WSClient struct {
	conn   *websocket.Conn
	panel  string
	cancel context.CancelFunc
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Panels are served from other origins on the local network
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "panel", c.panel, "clients", n)
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client disconnected", "panel", c.panel, "clients", n)
}

// ClientCount returns the number of open streams.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll stops every open stream.
func (h *Hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.cancel()
	}
}

// handleStream upgrades to a WebSocket that first sends the current status
// of every requested id, then pushes each batch of changes as it lands.
//
// Each stream owns a change record keyed by a per-connection id, so streams
// never take changes from long polls or from other streams of the same panel.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	panel := chi.URLParam(r, "panel")
	ids, err := parseIDs(chi.URLParam(r, "ids"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	// The request context ends when the handler returns; the stream owns
	// its own lifetime.
	ctx, cancel := context.WithCancel(context.Background())
	client := &WSClient{conn: conn, panel: panel, cancel: cancel}

	s.hub.Register(client)
	defer func() {
		cancel()
		s.hub.Unregister(client)
		conn.Close()
	}()

	table := s.cache.ChangedStatuses()
	record := statuscache.NewChangedStatusRecord(streamRecordPanel(panel), ids)
	table.Insert(record)
	defer table.Remove(record.Key())

	go client.readPump(s.wsCfg)
	client.writePump(ctx, record, s.wsCfg, s.statusesOf)
}

// streamRecordPanel returns the record panel name for one stream of panel.
func streamRecordPanel(panel string) string {
	return panel + "#ws-" + uuid.NewString()
}

// readPump drains client frames so pongs and close frames are processed.
// It cancels the stream when the connection fails.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer c.cancel()

	if cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	}
	pingInterval, pongWait := streamIntervals(cfg)
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	}
}

// writePump sends the initial snapshot, then waits on record and sends each
// batch of changes. Waits are bounded by the ping interval so the connection
// is probed while idle.
func (c *WSClient) writePump(ctx context.Context, record *statuscache.ChangedStatusRecord, cfg config.WebSocketConfig, statuses func([]int) map[int]string) {
	pingInterval, pongWait := streamIntervals(cfg)

	// Anything pending predates the snapshot.
	record.Reset()
	if err := c.send(WSTypeSnapshot, statuses(record.PolledIDs()), pongWait); err != nil {
		return
	}

	for {
		changed, err := record.Wait(ctx, pingInterval)
		switch {
		case errors.Is(err, statuscache.ErrWaitTimeout):
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		case err != nil:
			// Cancelled or the record was closed.
			//nolint:errcheck // Best-effort close message
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(pongWait))
			return
		}

		if len(changed) == 0 {
			continue
		}
		if err := c.send(WSTypeChanged, statuses(changed), pongWait); err != nil {
			return
		}
	}
}

// streamIntervals returns the ping interval and pong wait from cfg, falling
// back to defaults for unset values.
func streamIntervals(cfg config.WebSocketConfig) (ping, pong time.Duration) {
	ping = time.Duration(cfg.PingInterval) * time.Second
	if ping <= 0 {
		ping = defaultPingInterval
	}
	pong = time.Duration(cfg.PongTimeout) * time.Second
	if pong <= 0 {
		pong = ping / 3
	}
	return ping, pong
}

func (c *WSClient) send(msgType string, statuses map[int]string, deadline time.Duration) error {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		Panel:     c.panel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Statuses:  statuses,
	})
	if err != nil {
		return err
	}
	//nolint:errcheck // Best-effort deadline; write error caught below
	c.conn.SetWriteDeadline(time.Now().Add(deadline))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
