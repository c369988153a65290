package ws

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"taskboard/pkg/logger"
)

// Client merepresentasikan satu koneksi WebSocket milik seorang user.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Mu     sync.Mutex
}

// Event dikirim ke client setiap ada mutasi task.
type Event struct {
	Type string      `json:"type"` // task_created, task_updated, task_deleted, tasks_cleared
	Data interface{} `json:"data,omitempty"`
}

// Hub mengelola koneksi WebSocket per user dan menyiarkan event task
// hanya ke koneksi milik user yang bersangkutan.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	publish chan userEvent
	clients map[string]map[*Client]bool
}

type userEvent struct {
	userID string
	event  Event
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		publish:    make(chan userEvent, 64),
		clients:    make(map[string]map[*Client]bool),
	}
}

// Publish mengirim event ke seluruh koneksi milik user.
// Aman dipanggil dengan hub nil (fitur websocket dimatikan, mis. saat test).
func (h *Hub) Publish(userID string, event Event) {
	if h == nil {
		return
	}
	select {
	case h.publish <- userEvent{userID: userID, event: event}:
	default:
		// Hub penuh; event notifikasi boleh hilang.
	}
}

// Run menjalankan loop Hub untuk register, unregister, dan publish.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
		case client := <-h.Unregister:
			if conns, ok := h.clients[client.UserID]; ok {
				if conns[client] {
					delete(conns, client)
					client.Conn.Close()
				}
				if len(conns) == 0 {
					delete(h.clients, client.UserID)
				}
			}
		case ue := <-h.publish:
			conns := h.clients[ue.userID]
			if len(conns) == 0 {
				continue
			}
			message, err := json.Marshal(ue.event)
			if err != nil {
				logger.ErrorLogger.Error("Error encoding ws event", zap.Error(err))
				continue
			}
			for client := range conns {
				client.Mu.Lock()
				err := client.Conn.WriteMessage(websocket.TextMessage, message)
				client.Mu.Unlock()
				if err != nil {
					delete(conns, client)
					client.Conn.Close()
				}
			}
		}
	}
}
