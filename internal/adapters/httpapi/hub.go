package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"

	"threadlab/internal/core"
	"threadlab/pkg/domain"
)

const (
	broadcastBuffer = 64
	clientBuffer    = 8
	writeTimeout    = 5 * time.Second
)

var (
	_ core.Publisher = (*Hub)(nil)
	_ core.Watcher   = (*Hub)(nil)
)

type client struct {
	session string
	conn    *websocket.Conn
	send    chan []byte
}

type frame struct {
	session string
	data    []byte
}

// Hub fans session snapshots out to websocket subscribers. The run loop owns
// the subscriber set; publishers never block on slow clients.
type Hub struct {
	upgrader websocket.Upgrader
	logger   core.Logger

	register  chan *client
	remove    chan *client
	broadcast chan frame
	closing   chan string
	done      chan struct{}
	stopped   chan struct{}
	stopOnce  sync.Once

	dropped atomic.Uint64
	clients map[string]map[*client]struct{}

	watchMu  sync.RWMutex
	watchers map[string]int
}

// NewHub starts a hub. Stop releases its goroutine and connections.
func NewHub(logger core.Logger) *Hub {
	if logger == nil {
		logger = nopLogger{}
	}
	h := &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:    logger,
		register:  make(chan *client),
		remove:    make(chan *client),
		broadcast: make(chan frame, broadcastBuffer),
		closing:   make(chan string),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		clients:   make(map[string]map[*client]struct{}),
		watchers:  make(map[string]int),
	}
	go h.run()
	return h
}

// Publish implements core.Publisher.
func (h *Hub) Publish(sessionID string, snap domain.SessionSnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		h.logger.Error("marshal snapshot", "session", sessionID, "error", err)
		return
	}
	select {
	case h.broadcast <- frame{session: sessionID, data: data}:
	default:
		h.drop(sessionID)
	}
}

// Close implements core.Publisher by disconnecting every subscriber of the session.
func (h *Hub) Close(sessionID string) {
	select {
	case h.closing <- sessionID:
	case <-h.done:
	}
}

// Watching implements core.Watcher.
func (h *Hub) Watching(sessionID string) bool {
	h.watchMu.RLock()
	defer h.watchMu.RUnlock()
	return h.watchers[sessionID] > 0
}

// Dropped returns the number of frames discarded because a buffer was full.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Stop disconnects every subscriber and ends the run loop.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
	<-h.stopped
}

// Subscribe upgrades the request and streams the session's snapshots,
// starting with initial. alive, when set, is checked once the subscriber is
// registered: a session closed in the meantime has already had its Close, so
// the subscriber is disconnected here instead.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, sessionID string, initial domain.SessionSnapshot, alive func() bool) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "session", sessionID, "error", err)
		return
	}
	c := &client{session: sessionID, conn: conn, send: make(chan []byte, clientBuffer)}
	if data, err := json.Marshal(initial); err == nil {
		c.send <- data
	}
	// The writer starts only once the client is registered, so a subscriber
	// that has read the initial snapshot is guaranteed to see later frames.
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
		go c.writeLoop()
		return
	}
	go c.writeLoop()
	if alive != nil && !alive() {
		h.Close(sessionID)
	}

	go func() {
		defer func() {
			select {
			case h.remove <- c:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					h.logger.Warn("websocket read failed", "session", sessionID, "error", err)
				}
				return
			}
		}
	}()
}

func (h *Hub) run() {
	defer close(h.stopped)
	for {
		select {
		case c := <-h.register:
			set, ok := h.clients[c.session]
			if !ok {
				set = make(map[*client]struct{})
				h.clients[c.session] = set
			}
			set[c] = struct{}{}
			h.setWatchers(c.session, len(set))
		case c := <-h.remove:
			h.detach(c)
		case id := <-h.closing:
			for c := range h.clients[id] {
				h.detach(c)
			}
		case f := <-h.broadcast:
			for c := range h.clients[f.session] {
				select {
				case c.send <- f.data:
				default:
					h.drop(f.session)
				}
			}
		case <-h.done:
			for _, set := range h.clients {
				for c := range set {
					h.detach(c)
				}
			}
			return
		}
	}
}

func (h *Hub) detach(c *client) {
	set, ok := h.clients[c.session]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.session)
	}
	h.setWatchers(c.session, len(set))
	close(c.send)
}

func (h *Hub) setWatchers(sessionID string, n int) {
	h.watchMu.Lock()
	defer h.watchMu.Unlock()
	if n == 0 {
		delete(h.watchers, sessionID)
		return
	}
	h.watchers[sessionID] = n
}

func (h *Hub) drop(sessionID string) {
	n := h.dropped.Inc()
	h.logger.Warn("dropped snapshot frame", "session", sessionID, "dropped_total", n)
}

// writeLoop is the only writer on the connection. It sends a close frame once
// the hub closes the send channel.
func (c *client) writeLoop() {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			// Closing the conn fails the reader, which detaches the client
			// and ends this drain.
			_ = c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
