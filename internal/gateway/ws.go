package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MartinAltmayer/pokerserver-sub000/internal/lobby"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// connection is one WebSocket subscriber of a single table.
type connection struct {
	conn       *websocket.Conn
	send       chan []byte
	tableName  string
	playerName string
}

// hub fans table updates out to the subscribers of each table.
type hub struct {
	lobby   *lobby.Lobby
	resolve func(token string) (string, bool)

	mu   sync.RWMutex
	subs map[string]map[*connection]bool
}

func newHub(lby *lobby.Lobby, resolve func(token string) (string, bool)) *hub {
	return &hub{
		lobby:   lby,
		resolve: resolve,
		subs:    make(map[string]map[*connection]bool),
	}
}

// handleWebSocket subscribes a client to the table named in the query.
// An optional uuid identifies the viewer so their own hole cards are
// included in the pushed views.
func (h *hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	tableName := r.URL.Query().Get("table")
	if tableName == "" {
		http.Error(w, "missing table parameter", http.StatusBadRequest)
		return
	}
	playerName := ""
	if name, ok := h.resolve(r.URL.Query().Get("uuid")); ok {
		playerName = name
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] upgrade failed: %v", err)
		return
	}

	c := &connection{
		conn:       conn,
		send:       make(chan []byte, 16),
		tableName:  tableName,
		playerName: playerName,
	}
	h.add(c)
	log.Printf("[Gateway] client subscribed to table %s", tableName)

	go c.writePump()
	go h.readPump(c)

	h.pushView(c)
}

func (h *hub) add(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[c.tableName] == nil {
		h.subs[c.tableName] = make(map[*connection]bool)
	}
	h.subs[c.tableName][c] = true
}

// remove unsubscribes a connection. The send channel stays open because
// a broadcast may still hold a snapshot containing the connection; the
// writePump exits through the closed connection instead.
func (h *hub) remove(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.subs[c.tableName]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.subs, c.tableName)
		}
	}
}

// notifyTable pushes a fresh view of the table to every subscriber.
func (h *hub) notifyTable(tableName string) {
	h.mu.RLock()
	conns := make([]*connection, 0, len(h.subs[tableName]))
	for c := range h.subs[tableName] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		h.pushView(c)
	}
}

func (h *hub) pushView(c *connection) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	view, err := h.lobby.TableView(ctx, c.tableName, c.playerName)
	if err != nil {
		log.Printf("[Gateway] loading view of table %s failed: %v", c.tableName, err)
		return
	}
	payload, err := json.Marshal(view)
	if err != nil {
		log.Printf("[Gateway] marshal view of table %s failed: %v", c.tableName, err)
		return
	}
	select {
	case c.send <- payload:
	default:
		// slow client, drop the update
	}
}

func (h *hub) readPump(c *connection) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] read failed: %v", err)
			}
			return
		}
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
