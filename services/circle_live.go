package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fastTrackAPI/internal/types/circle"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// LiveClient is a single WebSocket connection subscribed to one circle room.
type LiveClient struct {
	ClerkID string
	Conn    *websocket.Conn
	Send    chan []byte
	room    *CircleRoom
}

// LiveEvent is the envelope written to every client in a room.
type LiveEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// CircleRoom fans messages out to the connected clients of one circle.
type CircleRoom struct {
	CircleID   string
	Clients    map[*LiveClient]bool
	Register   chan *LiveClient
	Unregister chan *LiveClient
	Broadcast  chan []byte
	done       chan struct{}
}

func newCircleRoom(circleID string) *CircleRoom {
	return &CircleRoom{
		CircleID:   circleID,
		Clients:    make(map[*LiveClient]bool),
		Register:   make(chan *LiveClient),
		Unregister: make(chan *LiveClient),
		Broadcast:  make(chan []byte, 16),
		done:       make(chan struct{}),
	}
}

func (r *CircleRoom) run(m *CircleLiveManager) {
	for {
		select {
		case client := <-r.Register:
			r.Clients[client] = true
			log.Printf("Circle %s: client %s connected (%d online)", r.CircleID, client.ClerkID, len(r.Clients))

		case client := <-r.Unregister:
			if _, ok := r.Clients[client]; ok {
				delete(r.Clients, client)
				close(client.Send)
			}
			if len(r.Clients) == 0 {
				m.deleteRoom(r.CircleID)
				return
			}

		case msg := <-r.Broadcast:
			for client := range r.Clients {
				select {
				case client.Send <- msg:
				default:
					// Slow client, drop it.
					delete(r.Clients, client)
					close(client.Send)
				}
			}

		case <-r.done:
			for client := range r.Clients {
				close(client.Send)
			}
			return
		}
	}
}

// CircleLiveManager owns one room per circle with live listeners.
type CircleLiveManager struct {
	mu    sync.RWMutex
	rooms map[string]*CircleRoom
}

func NewCircleLiveManager() *CircleLiveManager {
	return &CircleLiveManager{rooms: make(map[string]*CircleRoom)}
}

func (m *CircleLiveManager) GetOrCreateRoom(circleID string) *CircleRoom {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[circleID]; ok {
		return room
	}
	room := newCircleRoom(circleID)
	m.rooms[circleID] = room
	go room.run(m)
	return room
}

func (m *CircleLiveManager) deleteRoom(circleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, circleID)
}

// BroadcastMessage pushes a freshly stored message to the circle's live
// clients. A circle with no listeners is a no-op.
func (m *CircleLiveManager) BroadcastMessage(circleID string, msg *circle.Message) {
	m.mu.RLock()
	room, ok := m.rooms[circleID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	data, err := json.Marshal(LiveEvent{Type: "message", Payload: msg})
	if err != nil {
		log.Printf("Failed to marshal live event: %v", err)
		return
	}
	select {
	case room.Broadcast <- data:
	default:
		log.Printf("Circle %s: broadcast buffer full, dropping event", circleID)
	}
}

func NewLiveClient(clerkID string, conn *websocket.Conn, room *CircleRoom) *LiveClient {
	return &LiveClient{
		ClerkID: clerkID,
		Conn:    conn,
		Send:    make(chan []byte, 32),
		room:    room,
	}
}

// ReadPump drains the connection so pings and close frames are handled.
// Clients post messages over HTTP; inbound socket frames are ignored.
func (c *LiveClient) ReadPump() {
	defer func() {
		c.room.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error for %s: %v", c.ClerkID, err)
			}
			return
		}
	}
}

func (c *LiveClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
