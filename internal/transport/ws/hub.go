package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MsgResponseSubmitted MessageType = "response_submitted"
	MsgFeedClosed        MessageType = "feed_closed"
	MsgError             MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages the live dashboard connections of form creators. A form
// may have several open dashboards (multiple tabs, or an admin
// watching alongside the creator).
type Hub struct {
	// formID -> connection set
	conns map[string]map[*Connection]bool

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// Connection represents one dashboard WebSocket connection
type Connection struct {
	FormID string
	UserID string
	Send   chan []byte
	Hub    *Hub
}

// BroadcastMessage is a message for every dashboard watching a form
type BroadcastMessage struct {
	FormID  string
	Message *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.FormID] == nil {
				h.conns[conn.FormID] = make(map[*Connection]bool)
			}
			h.conns[conn.FormID][conn] = true
			h.mu.Unlock()
			log.Printf("User %s watching form %s", conn.UserID, conn.FormID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.conns[conn.FormID]; ok {
				if conns[conn] {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.conns, conn.FormID)
					}
					log.Printf("User %s stopped watching form %s", conn.UserID, conn.FormID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Message)
			if err != nil {
				log.Printf("Failed to marshal ws message: %v", err)
				continue
			}

			h.mu.RLock()
			for conn := range h.conns[msg.FormID] {
				select {
				case conn.Send <- data:
				default:
					// Slow consumer, drop the message
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection to the hub
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection from the hub
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToCreator pushes an event to every dashboard watching the
// form. Implements service.Broadcaster.
func (h *Hub) BroadcastToCreator(formID string, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal ws payload: %v", err)
		return
	}

	h.broadcast <- &BroadcastMessage{
		FormID:  formID,
		Message: &Message{Type: MessageType(msgType), Payload: data},
	}
}
