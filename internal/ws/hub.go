// Package ws pushes session status events (busy indicator transitions) to
// connected browsers.
package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Hub maintains the set of active clients and broadcasts status events.
// The clients map is owned by the Run goroutine; all mutation goes through
// the channels.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			log.Debug().Str("addr", client.Conn.RemoteAddr().String()).Msg("WebSocket client registered")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Client blocked or gone, drop it.
					close(client.Send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// RegisterClient registers a new client with the hub.
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// Notify broadcasts one status event. Satisfies session.Notifier.
func (h *Hub) Notify(event string, payload interface{}) {
	message, err := json.Marshal(map[string]interface{}{"type": event, "payload": payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to marshal status event")
		return
	}
	select {
	case h.broadcast <- message:
	default:
		log.Warn().Str("event", event).Msg("Status broadcast buffer full, dropping event")
	}
}
