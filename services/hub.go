package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ChristophStock/tvteam-ted/models"
	"github.com/ChristophStock/tvteam-ted/telemetry"
)

// Hub fans session events out to every connected client (control console,
// voter devices, public display) and relays client intents back to the
// session service. It also keeps the single latest display mode and video
// cache aggregate in memory so a client connecting mid-session is caught up
// immediately instead of waiting for the next push.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	session    *SessionService

	stateMu   sync.Mutex
	lastMode  string
	lastCache *models.VideoCacheStatus
}

// Client is one websocket connection managed by the hub.
type Client struct {
	hub    *Hub
	id     string
	socket *websocket.Conn
	send   chan []byte
}

// Message is the wire envelope for both directions.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func NewHub(session *SessionService) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		session:    session,
	}
}

// Run processes registrations and fan-out. Call it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			telemetry.ConnectedClients.Set(float64(total))
			log.Printf("Client %s connected - total clients: %d", client.id, total)
			h.sendCatchUp(client)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			telemetry.ConnectedClients.Set(float64(total))
			log.Printf("Client %s disconnected - total clients: %d", client.id, total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish implements the session service's Publisher port. The latest
// display mode and video cache aggregate are cached for late joiners; all
// other events are pure fan-out.
func (h *Hub) Publish(event Event) {
	switch event.Type {
	case EventResultView:
		if mode, ok := event.Payload.(string); ok {
			h.CacheDisplayMode(mode)
		}
	case EventVideoCacheStatus:
		if status, ok := event.Payload.(*models.VideoCacheStatus); ok {
			h.setCacheStatus(status)
		}
	}
	data, err := json.Marshal(Message{Type: event.Type, Payload: event.Payload})
	if err != nil {
		log.Printf("Error marshaling %s event: %v", event.Type, err)
		return
	}
	telemetry.BroadcastsTotal.WithLabelValues(event.Type).Inc()
	h.broadcast <- data
}

// CacheDisplayMode seeds the catch-up cache; main calls it once at startup
// with the persisted mode, afterwards Publish keeps it current.
func (h *Hub) CacheDisplayMode(mode string) {
	h.stateMu.Lock()
	h.lastMode = mode
	h.stateMu.Unlock()
}

func (h *Hub) setCacheStatus(status *models.VideoCacheStatus) {
	h.stateMu.Lock()
	h.lastCache = status
	h.stateMu.Unlock()
}

// CacheSnapshot returns the latest video cache aggregate, or nil before the
// display client reported one.
func (h *Hub) CacheSnapshot() *models.VideoCacheStatus {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	return h.lastCache
}

// sendCatchUp pushes the last known display mode and cache aggregate to a
// single freshly connected client.
func (h *Hub) sendCatchUp(client *Client) {
	h.stateMu.Lock()
	mode := h.lastMode
	cache := h.lastCache
	h.stateMu.Unlock()

	if mode != "" {
		h.sendTo(client, Message{Type: EventResultView, Payload: mode})
	}
	if cache != nil {
		h.sendTo(client, Message{Type: EventVideoCacheStatus, Payload: cache})
	}
}

func (h *Hub) sendTo(client *Client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling %s message: %v", msg.Type, err)
		return
	}
	select {
	case client.send <- data:
	default:
		log.Printf("Client %s send buffer full, dropping %s", client.id, msg.Type)
	}
}

// relayExcept delivers a message to every client but the sender.
func (h *Hub) relayExcept(sender *Client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling %s message: %v", msg.Type, err)
		return
	}
	h.mutex.Lock()
	for client := range h.clients {
		if client == sender {
			continue
		}
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
	h.mutex.Unlock()
}

// RegisterClient wraps an upgraded websocket connection and starts its
// pumps. Events are written by a single goroutine per client, so each
// connection sees broadcasts in emission order.
func (h *Hub) RegisterClient(conn *websocket.Conn) *Client {
	client := &Client{
		hub:    h,
		id:     uuid.NewString(),
		socket: conn,
		send:   make(chan []byte, 256),
	}
	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message from %s: %v", c.id, err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer c.socket.Close()

	for message := range c.send {
		if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

// handleMessage processes one client intent.
func (c *Client) handleMessage(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch msg.Type {
	case "ping":
		c.hub.sendTo(c, Message{Type: "pong", Payload: "pong"})

	case "getActiveQuestion":
		status, err := c.hub.session.GetVotingStatus(ctx)
		if err != nil {
			log.Printf("Error loading active question for %s: %v", c.id, err)
			return
		}
		c.hub.sendTo(c, Message{Type: EventActiveQuestion, Payload: status.Question})

	case "sendEmoji":
		// Pure relay, no state kept.
		c.hub.Publish(Event{Type: EventShowEmoji, Payload: msg.Payload})

	case "setResultView":
		mode, ok := msg.Payload.(string)
		if !ok {
			log.Printf("Client %s sent setResultView with non-string payload", c.id)
			return
		}
		// The service persists and publishes the resultView event.
		if err := c.hub.session.SetDisplayMode(ctx, mode); err != nil {
			log.Printf("Error setting display mode from %s: %v", c.id, err)
		}

	case "resultVideoCacheStatus":
		data, err := json.Marshal(msg.Payload)
		if err != nil {
			log.Printf("Error re-encoding cache status from %s: %v", c.id, err)
			return
		}
		var status models.VideoCacheStatus
		if err := json.Unmarshal(data, &status); err != nil {
			log.Printf("Error decoding cache status from %s: %v", c.id, err)
			return
		}
		c.hub.setCacheStatus(&status)
		telemetry.BroadcastsTotal.WithLabelValues(EventVideoCacheStatus).Inc()
		c.hub.relayExcept(c, Message{Type: EventVideoCacheStatus, Payload: &status})

	default:
		log.Printf("Client %s sent unknown message type %q", c.id, msg.Type)
	}
}
