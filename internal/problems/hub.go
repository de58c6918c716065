// Package problems streams the marker sets of the workspace to websocket
// clients.
package problems

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"

	"github.com/Shurtu-gal/studio/internal/editor"

	"github.com/gorilla/websocket"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("studio.problems")

const (
	OpInit    = "init"
	OpMarkers = "markers"
)

// Problem is the marker set of one document.
type Problem struct {
	URI     string          `json:"uri"`
	Markers []editor.Marker `json:"markers"`
}

// Message is sent to clients. "init" carries every document with markers,
// "markers" carries one document whose set was replaced.
type Message struct {
	Op       string    `json:"op"`
	Problems []Problem `json:"problems,omitempty"`
	Problem  *Problem  `json:"problem,omitempty"`
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type Hub struct {
	mu      sync.Mutex
	markers map[string][]editor.Marker

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		markers: make(map[string][]editor.Marker),
		clients: make(map[*websocket.Conn]bool),
	}
}

// Markers replaces the set of uri and broadcasts it.
func (h *Hub) Markers(uri string, markers []editor.Marker) {
	h.mu.Lock()
	if len(markers) == 0 {
		delete(h.markers, uri)
	} else {
		h.markers[uri] = append([]editor.Marker(nil), markers...)
	}
	h.mu.Unlock()

	if markers == nil {
		markers = []editor.Marker{}
	}
	h.broadcast(Message{Op: OpMarkers, Problem: &Problem{URI: uri, Markers: markers}})
}

// Snapshot returns every document with markers sorted by uri.
func (h *Hub) Snapshot() []Problem {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := make([]Problem, 0, len(h.markers))
	for uri, markers := range h.markers {
		result = append(result, Problem{URI: uri, Markers: append([]editor.Marker(nil), markers...)})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].URI < result[j].URI })
	return result
}

func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("failed to marshal %s message: %v", msg.Op, err)
		return
	}
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warningf("broadcast error: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ServeHTTP upgrades the connection, sends the init snapshot and keeps the
// client registered until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warningf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// Snapshot, write and register under the broadcast lock so no update
	// falls between init and the first broadcast.
	h.clientsMu.Lock()
	data, err := json.Marshal(Message{Op: OpInit, Problems: h.Snapshot()})
	if err != nil {
		h.clientsMu.Unlock()
		log.Errorf("failed to marshal init message: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.clientsMu.Unlock()
		return
	}
	h.clients[conn] = true
	h.clientsMu.Unlock()

	defer func() {
		h.clientsMu.Lock()
		delete(h.clients, conn)
		h.clientsMu.Unlock()
	}()

	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}
