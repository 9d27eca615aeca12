package realtime

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/fourbar/fourbar/pkg/observability"
)

const (
	clientBuffer = 16
	pingPeriod   = 30 * time.Second
	pongWait     = 2 * pingPeriod
	writeWait    = 10 * time.Second
	maxReadSize  = 512
)

// Client is one WebSocket listener.
type Client struct {
	ch    chan []byte
	topic string
}

// Messages returns the client's outgoing message channel. It is closed when
// the client is unregistered.
func (c *Client) Messages() <-chan []byte {
	return c.ch
}

// Options configure a Hub.
type Options struct {
	// AllowedOrigins restricts WebSocket upgrades to these Origin headers.
	// Every origin is accepted when empty.
	AllowedOrigins []string

	// Logger receives connection errors. Discarded when nil.
	Logger *log.Logger
}

// Hub manages listeners grouped by topic.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	subs     map[string]map[int]func(Event)
	nextSub  int
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// NewHub creates an empty hub.
func NewHub(opts Options) *Hub {
	h := &Hub{
		clients: make(map[*Client]struct{}),
		subs:    make(map[string]map[int]func(Event)),
		logger:  opts.Logger,
	}
	if h.logger == nil {
		h.logger = log.New(io.Discard)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(opts.AllowedOrigins) == 0 {
				return true
			}
			return slices.Contains(opts.AllowedOrigins, r.Header.Get("Origin"))
		},
	}
	return h
}

// Register adds a client for a topic and returns it.
func (h *Hub) Register(topic string) *Client {
	c := &Client{
		ch:    make(chan []byte, clientBuffer),
		topic: topic,
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.ch)
	}
	h.mu.Unlock()
}

// Subscribe calls fn for every event on topic until the returned cancel
// function is called. fn runs on the broadcasting goroutine.
func (h *Hub) Subscribe(topic string, fn func(Event)) (cancel func()) {
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[int]func(Event))
	}
	h.subs[topic][id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs[topic], id)
		if len(h.subs[topic]) == 0 {
			delete(h.subs, topic)
		}
		h.mu.Unlock()
	}
}

// Broadcast sends ev to every listener of its community. It returns the
// number of WebSocket clients reached and the number skipped because their
// buffer was full. Subscribers are called after the clients are queued.
func (h *Hub) Broadcast(ctx context.Context, ev Event) (delivered, dropped int) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encode event", "type", ev.Type, "err", err)
		return 0, 0
	}

	h.mu.RLock()
	for c := range h.clients {
		if c.topic != ev.CommunityID {
			continue
		}
		select {
		case c.ch <- msg:
			delivered++
		default:
			dropped++
		}
	}
	subs := make([]func(Event), 0, len(h.subs[ev.CommunityID]))
	for _, fn := range h.subs[ev.CommunityID] {
		subs = append(subs, fn)
	}
	h.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
	observability.Realtime().OnBroadcast(ctx, ev.CommunityID, ev.Type, delivered, dropped)
	return delivered, dropped
}

// ClientCount returns the number of WebSocket clients on a topic.
func (h *Hub) ClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for c := range h.clients {
		if c.topic == topic {
			n++
		}
	}
	return n
}

// ServeWS upgrades the request and streams the topic's events until the
// client disconnects. Incoming messages are read and discarded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, topic string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Debug("websocket upgrade failed", "topic", topic, "err", err)
		return
	}

	ctx := r.Context()
	c := h.Register(topic)
	observability.Realtime().OnConnect(ctx, topic, h.ClientCount(topic))

	go h.writer(conn, c)

	conn.SetReadLimit(maxReadSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.Unregister(c)
	observability.Realtime().OnDisconnect(ctx, topic, h.ClientCount(topic))
}

func (h *Hub) writer(conn *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.ch:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("websocket write failed", "topic", c.topic, "err", err)
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
