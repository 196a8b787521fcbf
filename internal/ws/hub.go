package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// TopicAdmin is the room every authenticated dashboard socket joins.
const TopicAdmin = "admin"

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// topicEvent is an internal struct for routing events to one room.
// A non-empty Operator limits delivery to that admin session's sockets.
type topicEvent struct {
	Topic    string
	Operator string
	Event    Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by topic
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *topicEvent

	// Closed once Run returns
	done chan struct{}

	mu     sync.RWMutex
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *topicEvent, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop and returns when ctx is done.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.topic] == nil {
				h.rooms[client.topic] = make(map[*Client]bool)
			}
			h.rooms[client.topic][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.dropLocked(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.logger.Error("marshal ws event", zap.String("type", event.Event.Type), zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.Topic] {
				if event.Operator != "" && client.operator != event.Operator {
					continue
				}
				select {
				case client.send <- message:
				default:
					// Slow consumer
					h.dropLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) dropLocked(client *Client) {
	clients, ok := h.rooms[client.topic]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.topic)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.dropLocked(client)
		}
	}
}

// Broadcast sends an event to every client in the topic's room.
// Events sent after the hub stopped are dropped.
func (h *Hub) Broadcast(topic string, event Event) {
	h.send(&topicEvent{Topic: topic, Event: event})
}

func (h *Hub) send(te *topicEvent) {
	select {
	case h.broadcast <- te:
	case <-h.done:
	}
}

// Publish marshals payload and broadcasts it under eventType.
func (h *Hub) Publish(topic, eventType string, payload any) {
	h.PublishTo(topic, "", eventType, payload)
}

// PublishTo is Publish limited to the sockets of one admin session.
// An empty operator reaches the whole room.
func (h *Hub) PublishTo(topic, operator, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal ws payload", zap.String("type", eventType), zap.Error(err))
		return
	}
	h.send(&topicEvent{Topic: topic, Operator: operator, Event: Event{Type: eventType, Payload: data}})
}

// Subscribers counts the clients currently in topic's room.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[topic])
}
