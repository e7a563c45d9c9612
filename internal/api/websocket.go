package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumen-labs/lumen-core/internal/engine"
	"github.com/lumen-labs/lumen-core/internal/infrastructure/logging"
	"github.com/lumen-labs/lumen-core/internal/led"
	"github.com/lumen-labs/lumen-core/internal/program"
)

// WebSocket message types.
const (
	WSTypeSnapshot = "snapshot"
	WSTypeDelta    = "delta"
	WSTypeProgram  = "program"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256

	// engineEventBuffer sizes the server's engine subscription. Running
	// at full tick rate the engine emits 20 events a second, so 64
	// absorbs multi-second marshal-and-fan-out stalls before the engine
	// downgrades the relay to snapshot resync.
	engineEventBuffer = 64
)

// wsCell is one cell change on the wire.
type wsCell struct {
	ID    int    `json:"id"`
	Color string `json:"color"`
}

// wsSnapshot carries the complete lamp state: one colour string per
// cell, indexed by cell id. Sent on connect and whenever a client has
// fallen behind the delta stream.
type wsSnapshot struct {
	Type    string   `json:"type"`
	Seq     uint64   `json:"seq"`
	Cells   []string `json:"cells"`
	Pattern string   `json:"pattern,omitempty"`
	Paused  bool     `json:"paused,omitempty"`
}

// wsDelta carries the cells that changed in one engine frame.
type wsDelta struct {
	Type  string   `json:"type"`
	Seq   uint64   `json:"seq"`
	Cells []wsCell `json:"cells"`
}

// wsProgram carries a program lifecycle event, fields flattened
// alongside the type tag.
type wsProgram struct {
	Type string `json:"type"`
	program.StatusEvent
}

// Hub manages WebSocket connections and broadcasts lamp state.
// Every client receives every message; there is no subscription
// protocol, the stream is the product.
type Hub struct {
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient is one connected browser. The pumps share the connection:
// readPump owns inbound traffic and deadlines, writePump owns all
// writes including pings.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// derived from the websocket config at accept time
	readLimit    int64
	pingInterval time.Duration
	idleDeadline time.Duration
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
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

// Run starts the hub's main loop. It blocks until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", h.ClientCount())
}

// Unregister removes a client from the hub.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
}

// BroadcastDelta sends one frame's cell changes to every client.
func (h *Hub) BroadcastDelta(seq uint64, cells []led.CellChange) {
	msg := wsDelta{Type: WSTypeDelta, Seq: seq, Cells: make([]wsCell, len(cells))}
	for i, c := range cells {
		msg.Cells[i] = wsCell{ID: c.ID, Color: c.Color.Hex()}
	}
	h.broadcast(msg)
}

// BroadcastSnapshot sends the full lamp state to every client. Clients
// replace their local state wholesale; a sequence gap on their side is
// resolved by this message, not by replaying deltas.
func (h *Hub) BroadcastSnapshot(seq uint64, cells []led.Color) {
	h.broadcast(wsSnapshot{Type: WSTypeSnapshot, Seq: seq, Cells: hexCells(cells)})
}

// ProgramEvent broadcasts a program lifecycle event to every client.
// It satisfies program.Notifier: trySend never blocks and nothing here
// calls back into the scheduler.
func (h *Hub) ProgramEvent(ev program.StatusEvent) {
	h.broadcast(wsProgram{Type: WSTypeProgram, StatusEvent: ev})
}

// broadcast marshals one message and fans it out.
// Lock ordering: the client list is snapshotted under the hub lock,
// then released before sending.
func (h *Hub) broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.trySend(data)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

// relayEngineEvents forwards engine change events to the hub until the
// context ends or the engine closes the channel.
func (s *Server) relayEngineEvents(ctx context.Context, events <-chan engine.Event, unsub func()) {
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Full {
				s.hub.BroadcastSnapshot(ev.Seq, ev.Snapshot)
			} else {
				s.hub.BroadcastDelta(ev.Seq, ev.Cells)
			}
		}
	}
}

// handleWebSocket upgrades the HTTP connection and streams lamp state.
// The first message is always a full snapshot, queued before the
// client joins the broadcast set so no delta can precede it.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.View(r.Context())
	if err != nil {
		writeInternalError(w, "engine unavailable")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	pingInterval := time.Duration(s.wsCfg.PingInterval) * time.Second
	pongWait := time.Duration(s.wsCfg.PongTimeout) * time.Second
	client := &WSClient{
		hub:          s.hub,
		conn:         conn,
		send:         make(chan []byte, wsSendBufferSize),
		readLimit:    int64(s.wsCfg.MaxMessageSize),
		pingInterval: pingInterval,
		idleDeadline: pingInterval + pongWait,
	}

	greeting, err := json.Marshal(wsSnapshot{
		Type:    WSTypeSnapshot,
		Seq:     view.Seq,
		Cells:   hexCells(view.Cells),
		Pattern: view.Pattern,
		Paused:  view.Paused,
	})
	if err != nil {
		s.logger.Error("failed to marshal websocket greeting", "error", err)
		conn.Close()
		return
	}
	client.send <- greeting

	s.hub.Register(client)

	go client.writePump()
	go client.readPump()
}

// extendDeadline pushes the read deadline out by the idle window.
// A connection that answers neither pings nor sends anything for that
// long is presumed dead.
func (c *WSClient) extendDeadline() error {
	return c.conn.SetReadDeadline(time.Now().Add(c.idleDeadline))
}

// readPump drains inbound traffic. The stream is push-only so
// payloads are discarded, but the reads keep pong handling and close
// detection alive. Any inbound message also counts as liveness, since
// some browsers never answer protocol-level pings.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.readLimit)
	//nolint:errcheck // best-effort initial deadline
	c.extendDeadline()
	c.conn.SetPongHandler(func(string) error { return c.extendDeadline() })

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		//nolint:errcheck // best-effort deadline reset
		c.extendDeadline()
	}
}

// writePump is the only goroutine that writes to the connection. It
// drains the send buffer and pings on the configured interval; any
// write failure ends the client.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	writeWait := c.idleDeadline - c.pingInterval

	write := func(messageType int, data []byte) error {
		//nolint:errcheck // deadline failure surfaces on the write itself
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.conn.WriteMessage(messageType, data)
	}

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// hub closed the channel
				//nolint:errcheck // best-effort goodbye
				write(websocket.CloseMessage, nil)
				return
			}
			if err := write(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues data for the client without ever blocking the
// broadcast path. A full buffer means the client is too slow for the
// frame rate; the message is dropped and the next snapshot squares
// them up. The recover absorbs the send-on-closed-channel race when a
// client disconnects mid-broadcast.
func (c *WSClient) trySend(data []byte) {
	defer func() { _ = recover() }()

	select {
	case c.send <- data:
	default:
	}
}
