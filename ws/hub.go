package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"rps-duel-server/config"
	"rps-duel-server/lobby"
	"rps-duel-server/wsutil"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub maintains the set of live connections and is the single transport the
// rest of the server ever calls to deliver wire bytes (it implements
// lobby.Transport). Grounded on the teacher's Hub (Clients map, Register/
// Unregister channels, ServeWS), re-pointed at lobby.LobbyRegistry instead
// of a Matchmaker.
type Hub struct {
	mu       sync.Mutex
	clients  map[string]*Client // connID -> client

	register   chan *Client
	unregister chan *Client

	Registry *lobby.LobbyRegistry
	Config   *config.Config
	log      *slog.Logger
}

// NewHub creates a Hub bound to reg. log may be nil.
func NewHub(cfg *config.Config, reg *lobby.LobbyRegistry, log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		Registry:   reg,
		Config:     cfg,
		log:        log,
	}
}

// Send implements lobby.Transport: deliver raw wire bytes to connID, or
// drop silently if that connection is no longer registered.
func (h *Hub) Send(connID string, data []byte) {
	h.mu.Lock()
	c, ok := h.clients[connID]
	h.mu.Unlock()
	if !ok {
		return
	}
	wsutil.SafeSend(c.Send, data)
}

// Run is the hub's main loop. Cancel ctx to stop accepting registrations
// (used for coordinated shutdown from main.go).
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if h.log != nil {
				h.log.Info("hub shutdown signal received", "tag", "ws")
			}
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.ConnID] = c
			n := len(h.clients)
			h.mu.Unlock()
			if h.log != nil {
				h.log.Info("client connected", "tag", "ws", "connId", c.ConnID, "total", n)
			}

		case c := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[c.ConnID]
			if ok {
				delete(h.clients, c.ConnID)
			}
			n := len(h.clients)
			h.mu.Unlock()
			if !ok {
				continue
			}
			close(c.Send)
			if h.log != nil {
				h.log.Info("client disconnected", "tag", "ws", "connId", c.ConnID, "total", n)
			}
			h.Registry.HandleDisconnect(c.ConnID)
		}
	}
}

// ServeWS upgrades an HTTP request to a websocket connection and starts its
// read/write pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.log != nil {
			h.log.Warn("websocket upgrade failed", "tag", "ws", "err", err)
		}
		return
	}

	c := newClient(h, conn)
	h.register <- c

	go c.WritePump()
	go c.ReadPump()
}
