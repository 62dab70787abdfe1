package presence

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/angelmondragon/easyshop-backend/pkg/logger"
	"github.com/angelmondragon/easyshop-backend/pkg/metrics"
)

// ErrConnectionGone is returned when the target connection is closed.
var ErrConnectionGone = errors.New("connection not found")

// ErrSendBufferFull is returned when a slow client cannot take more events.
var ErrSendBufferFull = errors.New("send buffer full")

// Handler receives client frames and disconnects.
type Handler interface {
	Dispatch(ctx context.Context, connID string, principal Principal, event Event)
	Disconnect(ctx context.Context, connID string)
}

type HubOptions struct {
	SendBuffer     int
	PingInterval   time.Duration
	WriteWait      time.Duration
	MaxMessage     int64
	AllowedOrigins []string
	Logger         *logger.Logger
	Metrics        *metrics.PresenceMetrics
}

// Hub owns the websocket connections. Each connection has one reader and
// one writer goroutine joined by a buffered channel.
type Hub struct {
	opts     HubOptions
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	conns   map[string]*conn
	handler Handler
	closed  bool
}

type conn struct {
	id        string
	ws        *websocket.Conn
	send      chan Event
	principal Principal
}

func NewHub(opts HubOptions) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 32
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = 10 * time.Second
	}
	if opts.MaxMessage <= 0 {
		opts.MaxMessage = 64 << 10
	}
	h := &Hub{opts: opts, conns: make(map[string]*conn)}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Attach sets the frame handler. It must be called before Serve.
func (h *Hub) Attach(handler Handler) {
	h.mu.Lock()
	h.handler = handler
	h.mu.Unlock()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// Serve upgrades the request and blocks until the connection closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, principal Principal) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &conn{
		id:        uuid.NewString(),
		ws:        ws,
		send:      make(chan Event, h.opts.SendBuffer),
		principal: principal,
	}
	if !h.add(c) {
		_ = ws.Close()
		return errors.New("hub closed")
	}

	ctx := context.WithoutCancel(r.Context())
	if h.opts.Logger != nil {
		ctx = h.opts.Logger.WithFields(ctx, map[string]any{
			"connection_id": c.id,
			"actor_role":    principal.Role.String(),
			"entity_id":     principal.EntityID,
		})
		h.opts.Logger.Info(ctx, "realtime client connected")
	}
	h.opts.Metrics.Connected(principal.Role.String())

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(c)
	}()
	h.readLoop(ctx, c)
	<-done

	h.opts.Metrics.Disconnected(principal.Role.String())
	if h.opts.Logger != nil {
		h.opts.Logger.Info(ctx, "realtime client disconnected")
	}
	return nil
}

func (h *Hub) readLoop(ctx context.Context, c *conn) {
	defer func() {
		h.remove(c.id)
		if handler := h.currentHandler(); handler != nil {
			handler.Disconnect(ctx, c.id)
		}
	}()

	pongWait := h.opts.PingInterval * 2
	c.ws.SetReadLimit(h.opts.MaxMessage)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var event Event
		if err := c.ws.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && h.opts.Logger != nil {
				h.opts.Logger.Warn(h.opts.Logger.WithField(ctx, "error", err.Error()), "realtime read failed")
			}
			return
		}
		if handler := h.currentHandler(); handler != nil {
			handler.Dispatch(ctx, c.id, c.principal, event)
		}
	}
}

func (h *Hub) writeLoop(c *conn) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send queues event for one connection without blocking.
func (h *Hub) Send(connID string, event Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[connID]
	if !ok {
		return ErrConnectionGone
	}
	return h.enqueue(c, event)
}

// Broadcast queues event for every connection. Full buffers drop it.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.conns {
		_ = h.enqueue(c, event)
	}
}

func (h *Hub) enqueue(c *conn, event Event) error {
	select {
	case c.send <- event:
		return nil
	default:
		h.opts.Metrics.Dropped("slow_consumer")
		return ErrSendBufferFull
	}
}

// Count reports the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close ends every connection and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.ws.Close()
	}
}

func (h *Hub) add(c *conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[c.id] = c
	return true
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.conns[id]; ok {
		delete(h.conns, id)
		close(c.send)
	}
}

func (h *Hub) currentHandler() Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.handler
}
