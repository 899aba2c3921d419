package websocket

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/saransh1220/talentbook/internal/shared/logging"
)

type UnicastMessage struct {
	UserID  uuid.UUID
	Message []byte
}

// Hub maintains the set of active clients and routes messages to them.
// A user may hold several connections; unicast reaches all of them.
type Hub struct {
	clients map[*Client]bool

	unicast    chan UnicastMessage
	register   chan *Client
	unregister chan *Client

	stop     chan struct{}
	stopOnce sync.Once

	connected atomic.Int64
	log       logging.Logger
}

func NewHub(log logging.Logger) *Hub {
	return &Hub{
		unicast:    make(chan UnicastMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),

		clients: make(map[*Client]bool),
		stop:    make(chan struct{}),
		log:     logging.OrDefault(log).With("component", "notification.hub"),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.connected.Add(1)
			h.log.Debug("client registered", "user_id", client.userID, "remote", client.remoteAddr())
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.log.Debug("client unregistered", "user_id", client.userID, "remote", client.remoteAddr())
			}
		case msg := <-h.unicast:
			delivered := 0
			for client := range h.clients {
				if client.userID == msg.UserID {
					h.deliver(client, msg.Message)
					delivered++
				}
			}
			h.log.Debug("unicast", "user_id", msg.UserID, "connections", delivered)
		case <-h.stop:
			for client := range h.clients {
				h.drop(client)
			}
			h.log.Info("hub stopped")
			return
		}
	}
}

// deliver never blocks the hub; a client whose buffer is full is disconnected.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		h.log.Warn("dropping slow client", "user_id", client.userID)
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.connected.Add(-1)
}

// SendToUser queues message for every connection of userID.
func (h *Hub) SendToUser(userID uuid.UUID, message []byte) {
	select {
	case h.unicast <- UnicastMessage{UserID: userID, Message: message}:
	case <-h.stop:
	}
}

// Connected returns the number of registered connections.
func (h *Hub) Connected() int {
	return int(h.connected.Load())
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.stop:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}
