// Package realtime fans message ledger events out to the connected members of a chat.
package realtime

import (
	"sync"
	"time"

	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

const (
	EventMessageNew    = "messages.new"
	EventMessageUpdate = "messages.update"
	EventMessageDelete = "messages.delete"
	EventError         = "error"

	sendBufferSize = 64
)

type Event struct {
	Type      string          `json:"type"`
	ChatID    uint            `json:"chat_id,omitempty"`
	MessageID uint            `json:"message_id,omitempty"`
	Message   *models.Message `json:"message,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Client is one open connection of a user, events queue up in its send buffer.
type Client struct {
	UserID uint

	send   chan []byte
	closed bool
}

func (v *Client) Messages() <-chan []byte {
	return v.send
}

// Hub keeps the open connections grouped by user, one user may hold several.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
}

// H is the hub the services publish to.
var H = NewHub()

func NewHub() *Hub {
	return &Hub{clients: make(map[uint]map[*Client]struct{})}
}

func (v *Hub) Subscribe(userId uint) *Client {
	client := &Client{UserID: userId, send: make(chan []byte, sendBufferSize)}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.clients[userId] == nil {
		v.clients[userId] = make(map[*Client]struct{})
	}
	v.clients[userId][client] = struct{}{}

	log.Debug().Uint("user", userId).Int("connections", len(v.clients[userId])).Msg("Realtime client subscribed.")
	return client
}

// Unsubscribe removes the client and closes its send buffer, calling it twice is harmless.
func (v *Hub) Unsubscribe(client *Client) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if client.closed {
		return
	}
	client.closed = true

	if set, ok := v.clients[client.UserID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(v.clients, client.UserID)
		}
	}
	close(client.send)
}

// Connections counts the open connections of the user.
func (v *Hub) Connections(userId uint) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.clients[userId])
}

// Publish hands the event to every connection of the given users.
// A connection whose buffer is full misses the event instead of stalling the sender.
func (v *Hub) Publish(userIds []uint, event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	payload, err := jsoniter.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("Unable to encode realtime event...")
		return
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, userId := range userIds {
		for client := range v.clients[userId] {
			select {
			case client.send <- payload:
			default:
				log.Warn().Uint("user", userId).Str("type", event.Type).Msg("Realtime buffer is full, event dropped...")
			}
		}
	}
}

// Send queues the event for a single connection.
func (v *Hub) Send(client *Client, event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	payload, err := jsoniter.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("Unable to encode realtime event...")
		return
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if client.closed {
		return
	}
	select {
	case client.send <- payload:
	default:
		log.Warn().Uint("user", client.UserID).Str("type", event.Type).Msg("Realtime buffer is full, event dropped...")
	}
}
