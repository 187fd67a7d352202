package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"vendorcompliance/logger"
)

// Event is pushed to connected users after a workflow change.
type Event struct {
	Type         string      `json:"type"`
	SubmissionID string      `json:"submissionId,omitempty"`
	DocumentID   string      `json:"documentId,omitempty"`
	Data         interface{} `json:"data,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
}

const (
	EventSubmissionSubmitted = "SUBMISSION_SUBMITTED"
	EventReviewStarted       = "REVIEW_STARTED"
	EventDocumentReviewed    = "DOCUMENT_REVIEWED"
	EventDocumentResubmitted = "DOCUMENT_RESUBMITTED"
	EventSubmissionFinalized = "SUBMISSION_FINALIZED"
	EventActivity            = "ACTIVITY"
)

type delivery struct {
	userID string
	role   string
	data   []byte
}

// Hub tracks websocket connections by user id. A user may hold several
// connections at once; each gets every message addressed to that user.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	done       chan struct{}
	closeOnce  sync.Once
	mu         sync.RWMutex
}

type Client struct {
	userID string
	role   string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 64),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	log := logger.Get()
	log.Info("websocket hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[client.userID]; !ok {
				h.clients[client.userID] = make(map[*Client]struct{})
			}
			h.clients[client.userID][client] = struct{}{}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case d := <-h.deliver:
			h.mu.Lock()
			for _, client := range h.targets(d) {
				select {
				case client.send <- d.data:
				default:
					log.Warn("dropping slow websocket client", zap.String("user_id", client.userID))
					h.remove(client)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for _, clients := range h.clients {
				for client := range clients {
					h.remove(client)
				}
			}
			h.mu.Unlock()
			log.Info("websocket hub stopped")
			return
		}
	}
}

// targets is called with mu held.
func (h *Hub) targets(d delivery) []*Client {
	var out []*Client
	if d.userID != "" {
		for client := range h.clients[d.userID] {
			out = append(out, client)
		}
		return out
	}
	for _, clients := range h.clients {
		for client := range clients {
			if client.role == d.role {
				out = append(out, client)
			}
		}
	}
	return out
}

// remove is called with mu held and is a no-op for clients already removed.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}
}

// Notify sends the event to every connection of userID.
func (h *Hub) Notify(userID string, event Event) {
	h.enqueue(delivery{userID: userID}, event)
}

// NotifyRole sends the event to every connection whose user has role.
func (h *Hub) NotifyRole(role string, event Event) {
	h.enqueue(delivery{role: role}, event)
}

func (h *Hub) enqueue(d delivery, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		logger.Get().Error("marshal websocket event", zap.Error(err))
		return
	}
	d.data = data
	select {
	case h.deliver <- d:
	case <-h.done:
	}
}

// ConnectionCount reports how many live connections userID holds.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Close disconnects every client and stops Run.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) drop(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
