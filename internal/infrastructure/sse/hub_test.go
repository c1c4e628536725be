package sse

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiz-hub/quiz-hub/internal/domain/notification"
)

func drain(c *notification.SSEClient) []string {
	var events []string
	for {
		select {
		case m := <-c.MessageChan:
			events = append(events, m.Event)
		default:
			return events
		}
	}
}

func TestHub_PublishRoutesBySessionAndParticipant(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	session, other := uuid.New(), uuid.New()

	ann := notification.NewSSEClient("c1", session, "ann")
	bob := notification.NewSSEClient("c2", session, "bob")
	watcher := notification.NewSSEClient("c3", session, "")
	stranger := notification.NewSSEClient("c4", other, "ann")
	for _, c := range []*notification.SSEClient{ann, bob, watcher, stranger} {
		hub.Register(c)
	}
	assert.Equal(t, 3, hub.SessionClientCount(session))

	hub.Publish(notification.NewMessage(session, notification.EventStage, map[string]string{"stage": "ROUND"}))
	hub.Publish(notification.NewMessage(session, notification.EventStakeAsk, nil, "ann"))

	assert.Equal(t, []string{"STAGE", "STAKE_ASK"}, drain(ann))
	assert.Equal(t, []string{"STAGE"}, drain(bob))
	assert.Equal(t, []string{"STAGE"}, drain(watcher))
	assert.Empty(t, drain(stranger))
}

func TestHub_UnregisterClosesClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	session := uuid.New()
	c := notification.NewSSEClient("c1", session, "ann")
	hub.Register(c)

	hub.Unregister("c1")
	_, open := <-c.MessageChan
	assert.False(t, open)
	assert.Zero(t, hub.SessionClientCount(session))
	assert.Nil(t, hub.GetClient("c1"))
	assert.ErrorIs(t, hub.SendToClient("c1", &notification.SSEMessage{}), notification.ErrClientNotFound)
}

func TestHub_SlowClientDropsMessages(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	session := uuid.New()
	c := notification.NewSSEClient("c1", session, "")
	hub.Register(c)

	for i := 0; i < cap(c.MessageChan)+5; i++ {
		hub.Publish(notification.NewMessage(session, notification.EventTimer, nil))
	}
	assert.Len(t, c.MessageChan, cap(c.MessageChan))
	require.ErrorIs(t, hub.SendToClient("c1", &notification.SSEMessage{}), notification.ErrChannelFull)
}
