// Package websocket fans out pass events to connected live viewers.
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"freshscan/internal/logger"
	"freshscan/internal/model"

	"github.com/gorilla/websocket"
)

// PassEvent is broadcast to viewers after every completed detection pass.
type PassEvent struct {
	Session        string   `json:"session"`
	Pass           string   `json:"pass"`
	Mode           string   `json:"mode"`
	Total          int      `json:"total"`
	AboveThreshold int      `json:"above_threshold"`
	Labels         []string `json:"labels"`
}

// NewPassEvent builds the event for a detection set.
func NewPassEvent(sessionID string, set *model.DetectionSet) PassEvent {
	labels := set.Labels()
	if labels == nil {
		labels = []string{}
	}
	return PassEvent{
		Session:        sessionID,
		Pass:           set.PassID,
		Mode:           set.Mode,
		Total:          set.Total,
		AboveThreshold: set.AboveThreshold,
		Labels:         labels,
	}
}

type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register/unregister/broadcast requests until ctx is done, then
// closes every client.
func (h *HubService) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return nil

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client connected. Total: %d", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client disconnected. Total: %d", count)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				err := client.WriteMessage(websocket.TextMessage, message)
				if err != nil {
					h.logger.Error("Error sending message: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues message for all viewers. It never blocks; when the queue is
// full the message is dropped.
func (h *HubService) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warning("Broadcast queue full - dropping message")
	}
}

// BroadcastPass sends a pass event to all viewers.
func (h *HubService) BroadcastPass(event PassEvent) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
