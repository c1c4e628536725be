package sse

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quiz-hub/quiz-hub/internal/domain/notification"
)

// Hub manages SSE clients grouped by session.
type Hub struct {
	logger zerolog.Logger

	mu       sync.RWMutex
	clients  map[string]*notification.SSEClient
	sessions map[uuid.UUID]map[string]*notification.SSEClient
}

var _ notification.SSEHub = (*Hub)(nil)

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:   logger.With().Str("service", "sse").Logger(),
		clients:  make(map[string]*notification.SSEClient),
		sessions: make(map[uuid.UUID]map[string]*notification.SSEClient),
	}
}

func (h *Hub) Register(client *notification.SSEClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ClientID] = client
	group := h.sessions[client.Session]
	if group == nil {
		group = make(map[string]*notification.SSEClient)
		h.sessions[client.Session] = group
	}
	group[client.ClientID] = client
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	c.Close()
	delete(h.clients, clientID)
	if group := h.sessions[c.Session]; group != nil {
		delete(group, clientID)
		if len(group) == 0 {
			delete(h.sessions, c.Session)
		}
	}
}

func (h *Hub) GetClient(clientID string) *notification.SSEClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[clientID]
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) SessionClientCount(session uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[session])
}

// Publish delivers msg to the clients of its session it is addressed to.
// Slow clients lose the message.
func (h *Hub) Publish(msg *notification.Message) {
	frame := notification.NewSSEMessage(msg)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.sessions[msg.Session] {
		if !msg.For(c.Participant) {
			continue
		}
		if !trySend(c, frame) {
			h.logger.Debug().
				Str("client", c.ClientID).
				Str("event", frame.Event).
				Msg("sse client too slow, message dropped")
		}
	}
}

func (h *Hub) SendToClient(clientID string, message *notification.SSEMessage) error {
	h.mu.RLock()
	c := h.clients[clientID]
	h.mu.RUnlock()
	if c == nil {
		return notification.ErrClientNotFound
	}
	if !trySend(c, message) {
		return notification.ErrChannelFull
	}
	return nil
}

// Start closes every client once ctx is done.
func (h *Hub) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		h.Stop()
	}()
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
	h.sessions = make(map[uuid.UUID]map[string]*notification.SSEClient)
}

func trySend(c *notification.SSEClient, msg *notification.SSEMessage) bool {
	select {
	case c.MessageChan <- msg:
		return true
	default:
		return false
	}
}
