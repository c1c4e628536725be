// Package websocket is the bidirectional participant transport: inbound
// frames become dispatcher messages, notifications go out as JSON frames.
package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/quiz-hub/quiz-hub/internal/application/dispatcher"
	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/notification"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
	sendBuffer     = 128
)

// Sessions receives inbound participant messages.
type Sessions interface {
	Dispatch(ctx context.Context, session uuid.UUID, m dispatcher.Message) error
}

// Frame is one inbound client frame.
type Frame struct {
	Verb string   `json:"verb"`
	Args []string `json:"args,omitempty"`
}

type rejection struct {
	Verb  string `json:"verb"`
	Error string `json:"error"`
}

type client struct {
	session     uuid.UUID
	participant string
	conn        *websocket.Conn
	send        chan *notification.Message
	once        sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Gateway tracks participant connections per session.
type Gateway struct {
	sessions Sessions
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*client]struct{}
}

var _ notification.Publisher = (*Gateway)(nil)

func NewGateway(sessions Sessions, logger zerolog.Logger) *Gateway {
	return &Gateway{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger.With().Str("service", "websocket").Logger(),
		clients: make(map[uuid.UUID]map[*client]struct{}),
	}
}

// Serve upgrades the request and runs the connection of participant in
// session until either side closes it. Closing the socket disconnects the
// participant from the session.
func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request, session uuid.UUID, participant string) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn().Err(err).Str("session", session.String()).Msg("websocket upgrade failed")
		return
	}
	c := &client{
		session:     session,
		participant: participant,
		conn:        conn,
		send:        make(chan *notification.Message, sendBuffer),
	}
	g.register(c)
	g.logger.Debug().Str("session", session.String()).Str("participant", participant).Msg("participant connected")

	go g.writeLoop(c)
	g.readLoop(c)

	g.unregister(c)
	err = g.sessions.Dispatch(context.Background(), session, dispatcher.Message{Sender: participant, Verb: dispatcher.VerbDisconnect})
	if err != nil && !isRejection(err) {
		g.logger.Warn().Err(err).Str("session", session.String()).Msg("disconnect failed")
	}
}

func (g *Gateway) readLoop(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var f Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Debug().Err(err).Str("participant", c.participant).Msg("websocket read failed")
			}
			return
		}
		m := dispatcher.Message{Sender: c.participant, Verb: f.Verb, Args: f.Args}
		if err := g.sessions.Dispatch(context.Background(), c.session, m); err != nil {
			g.reject(c, f.Verb, err)
		}
	}
}

func (g *Gateway) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reject answers the sender alone with an ERROR frame.
func (g *Gateway) reject(c *client, verb string, err error) {
	msg := notification.NewMessage(c.session, notification.EventError, rejection{Verb: verb, Error: err.Error()}, c.participant)
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.clients[c.session][c]; ok {
		trySend(c, msg)
	}
}

// Publish queues msg on every connection of its session it is addressed
// to. A full queue drops the message for that connection.
func (g *Gateway) Publish(msg *notification.Message) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for c := range g.clients[msg.Session] {
		if !msg.For(c.participant) {
			continue
		}
		if !trySend(c, msg) {
			g.logger.Debug().
				Str("participant", c.participant).
				Str("event", string(msg.Event)).
				Msg("websocket client too slow, message dropped")
		}
	}
}

// SessionClientCount returns the open connections of session.
func (g *Gateway) SessionClientCount(session uuid.UUID) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients[session])
}

// Stop closes every connection.
func (g *Gateway) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for session, group := range g.clients {
		for c := range group {
			c.close()
		}
		delete(g.clients, session)
	}
}

func (g *Gateway) register(c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	group := g.clients[c.session]
	if group == nil {
		group = make(map[*client]struct{})
		g.clients[c.session] = group
	}
	group[c] = struct{}{}
}

func (g *Gateway) unregister(c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if group := g.clients[c.session]; group != nil {
		delete(group, c)
		if len(group) == 0 {
			delete(g.clients, c.session)
		}
	}
	c.close()
}

func trySend(c *client, msg *notification.Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func isRejection(err error) bool {
	var pv *game.ProtocolViolation
	return errors.As(err, &pv)
}
