package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiz-hub/quiz-hub/internal/application/dispatcher"
	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/notification"
)

type fakeSessions struct {
	got chan dispatcher.Message
}

func (f *fakeSessions) Dispatch(ctx context.Context, session uuid.UUID, m dispatcher.Message) error {
	f.got <- m
	if m.Verb == "DANCE" {
		return game.Violation(m.Verb, game.ErrUnknownVerb)
	}
	return nil
}

func (f *fakeSessions) next(t *testing.T) dispatcher.Message {
	t.Helper()
	select {
	case m := <-f.got:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no message dispatched")
		return dispatcher.Message{}
	}
}

func setup(t *testing.T) (*Gateway, *fakeSessions, uuid.UUID, *websocket.Conn) {
	t.Helper()
	sessions := &fakeSessions{got: make(chan dispatcher.Message, 8)}
	gw := NewGateway(sessions, zerolog.Nop())
	session := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gw.Serve(w, r, session, "ann")
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return gw, sessions, session, conn
}

func readMessage(t *testing.T, conn *websocket.Conn) notification.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m notification.Message
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestGateway_InboundFramesAreDispatched(t *testing.T) {
	_, sessions, _, conn := setup(t)

	require.NoError(t, conn.WriteJSON(Frame{Verb: "ANSWER", Args: []string{"Nile"}}))
	m := sessions.next(t)
	assert.Equal(t, "ann", m.Sender)
	assert.Equal(t, "ANSWER", m.Verb)
	assert.Equal(t, []string{"Nile"}, m.Args)
}

func TestGateway_PublishDeliversAddressedMessages(t *testing.T) {
	gw, sessions, session, conn := setup(t)
	require.NoError(t, conn.WriteJSON(Frame{Verb: "INFO"}))
	sessions.next(t)
	require.Equal(t, 1, gw.SessionClientCount(session))

	gw.Publish(notification.NewMessage(session, notification.EventStakeAsk, nil, "bob"))
	gw.Publish(notification.NewMessage(uuid.New(), notification.EventStage, nil))
	gw.Publish(notification.NewMessage(session, notification.EventStage, map[string]string{"stage": "ROUND"}))

	m := readMessage(t, conn)
	assert.Equal(t, notification.EventStage, m.Event)
	assert.Equal(t, session, m.Session)
	assert.JSONEq(t, `{"stage":"ROUND"}`, string(m.Data))
}

func TestGateway_RejectionGoesToSenderOnly(t *testing.T) {
	_, sessions, _, conn := setup(t)

	require.NoError(t, conn.WriteJSON(Frame{Verb: "DANCE"}))
	sessions.next(t)

	m := readMessage(t, conn)
	assert.Equal(t, notification.EventError, m.Event)
	assert.Equal(t, []string{"ann"}, m.To)
	assert.Contains(t, string(m.Data), "unknown verb")
}

func TestGateway_ClosingDisconnects(t *testing.T) {
	gw, sessions, session, conn := setup(t)
	require.NoError(t, conn.WriteJSON(Frame{Verb: "INFO"}))
	sessions.next(t)

	require.NoError(t, conn.Close())
	m := sessions.next(t)
	assert.Equal(t, dispatcher.VerbDisconnect, m.Verb)
	assert.Eventually(t, func() bool { return gw.SessionClientCount(session) == 0 }, 2*time.Second, 10*time.Millisecond)
}
