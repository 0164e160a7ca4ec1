package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/amoylab/hydrowatch/pkg/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

type client struct {
	id       string
	deviceID string
	conn     *websocket.Conn
	writeMu  sync.Mutex
}

// write serialises frames; gorilla connections allow one writer at a time
func (c *client) write(fn func() error) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return fn()
}

// Hub tracks dashboard websocket clients per device and the last reading per metric
type Hub struct {
	logger       *zap.Logger
	metrics      *metrics.Metrics
	upgrader     websocket.Upgrader
	pingInterval time.Duration

	mu      sync.RWMutex
	clients map[string]*client
	latest  map[string]map[string]Reading // device -> metric -> reading
}

// NewHub creates a hub. allowOrigin decides websocket origin checks; nil allows all.
func NewHub(lg *zap.Logger, m *metrics.Metrics, pingInterval time.Duration, allowOrigin func(string) bool) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		logger:       lg.Named("realtime.hub"),
		metrics:      m,
		pingInterval: pingInterval,
		clients:      make(map[string]*client),
		latest:       make(map[string]map[string]Reading),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowOrigin == nil {
					return true
				}
				return allowOrigin(origin)
			},
		},
	}
}

// Serve upgrades the request and streams updates for deviceID until the
// client goes away. The latest known readings are sent first.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, deviceID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade websocket connection", zap.Error(err))
		return
	}
	c := &client{id: uuid.NewString(), deviceID: deviceID, conn: conn}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.metrics.ClientConnected()
	h.logger.Info("websocket client connected", zap.String("client_id", c.id), zap.String("device_id", deviceID))

	defer h.remove(c)

	for _, reading := range h.Latest(deviceID) {
		u := reading.ToUpdate()
		if err := c.write(func() error { return conn.WriteJSON(u) }); err != nil {
			return
		}
	}

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()
	_ = c.conn.Close()
	if ok {
		h.metrics.ClientDisconnected()
		h.logger.Info("websocket client disconnected", zap.String("client_id", c.id))
	}
}

// Broadcast records r as the latest value and pushes it to the device's clients
func (h *Hub) Broadcast(r Reading) {
	h.mu.Lock()
	byMetric, ok := h.latest[r.DeviceID]
	if !ok {
		byMetric = make(map[string]Reading)
		h.latest[r.DeviceID] = byMetric
	}
	byMetric[r.Metric] = r
	targets := make([]*client, 0)
	for _, c := range h.clients {
		if c.deviceID == r.DeviceID {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	u := r.ToUpdate()
	for _, c := range targets {
		if err := c.write(func() error { return c.conn.WriteJSON(u) }); err != nil {
			h.logger.Debug("write failed, dropping client", zap.String("client_id", c.id), zap.Error(err))
			h.remove(c)
		}
	}
}

// Latest returns the last reading per metric for deviceID
func (h *Hub) Latest(deviceID string) map[string]Reading {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]Reading, len(h.latest[deviceID]))
	for k, v := range h.latest[deviceID] {
		out[k] = v
	}
	return out
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run pings every client until ctx is done, then closes them all
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.CloseAll()
			return
		case <-ticker.C:
			h.pingAll()
		}
	}
}

func (h *Hub) pingAll() {
	h.mu.RLock()
	snapshot := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	for _, c := range snapshot {
		err := c.write(func() error {
			return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
		})
		if err != nil {
			h.logger.Debug("ping failed, removing connection", zap.String("client_id", c.id), zap.Error(err))
			h.remove(c)
		}
	}
}

// CloseAll closes every client connection
func (h *Hub) CloseAll() {
	h.mu.RLock()
	snapshot := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()
	for _, c := range snapshot {
		h.remove(c)
	}
}
