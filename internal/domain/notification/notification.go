package notification

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event names an outbound notification kind.
type Event string

const (
	EventConnected      Event = "CONNECTED"
	EventDisconnected   Event = "DISCONNECTED"
	EventInfo           Event = "INFO"
	EventConfig         Event = "CONFIG"
	EventStage          Event = "STAGE"
	EventPackage        Event = "PACKAGE"
	EventRound          Event = "ROUND"
	EventTable          Event = "TABLE"
	EventChooser        Event = "CHOOSER"
	EventChoice         Event = "CHOICE"
	EventQuestion       Event = "QUESTION"
	EventContent        Event = "CONTENT"
	EventOptions        Event = "OPTIONS"
	EventTry            Event = "TRY"
	EventEndTry         Event = "END_TRY"
	EventAnswerer       Event = "ANSWERER"
	EventAnswer         Event = "ANSWER"
	EventValidation     Event = "VALIDATION"
	EventPerson         Event = "PERSON"
	EventPass           Event = "PASS"
	EventRightAnswer    Event = "RIGHT_ANSWER"
	EventQuestionEnd    Event = "QUESTION_END"
	EventScores         Event = "SCORES"
	EventStakeAsk       Event = "STAKE_ASK"
	EventStake          Event = "STAKE"
	EventStaker         Event = "STAKER"
	EventAuctionEnd     Event = "AUCTION_END"
	EventSelectPlayer   Event = "SELECT_PLAYER"
	EventCatGiven       Event = "CAT_GIVEN"
	EventCatPrice       Event = "CAT_PRICE"
	EventDeleteAsk      Event = "DELETE_ASK"
	EventThemeDeleted   Event = "THEME_DELETED"
	EventFinalStakeAsk  Event = "FINAL_STAKE_ASK"
	EventFinalStakeMade Event = "FINAL_STAKE_MADE"
	EventAppellation    Event = "APPELLATION"
	EventVote           Event = "VOTE"
	EventVoteResult     Event = "VOTE_RESULT"
	EventTimer          Event = "TIMER"
	EventPause          Event = "PAUSE"
	EventReportAsk      Event = "REPORT_ASK"
	EventWinner         Event = "WINNER"
	EventGameEnd        Event = "GAME_END"
	EventBlocked        Event = "BLOCKED"
	EventError          Event = "ERROR"
)

var (
	ErrClientNotFound = errors.New("SSE client not found")
	ErrChannelFull    = errors.New("SSE message channel full")
)

// Message is one outbound notification. An empty To means every participant
// of the session.
type Message struct {
	ID        uuid.UUID       `json:"id"`
	Session   uuid.UUID       `json:"session"`
	Event     Event           `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	To        []string        `json:"to,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage builds a message, encoding data as JSON. Data that fails to
// encode is dropped.
func NewMessage(session uuid.UUID, event Event, data any, to ...string) *Message {
	m := &Message{
		ID:        uuid.New(),
		Session:   session,
		Event:     event,
		To:        to,
		Timestamp: time.Now().UTC(),
	}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			m.Data = raw
		}
	}
	return m
}

// Broadcast reports whether the message goes to everybody.
func (m *Message) Broadcast() bool {
	return len(m.To) == 0
}

// For reports whether participant should receive the message.
func (m *Message) For(participant string) bool {
	if m.Broadcast() {
		return true
	}
	for _, to := range m.To {
		if to == participant {
			return true
		}
	}
	return false
}

// Publisher delivers messages to a transport. Publish must not block.
type Publisher interface {
	Publish(msg *Message)
}

// Publishers fans a message out to several transports.
type Publishers []Publisher

func (ps Publishers) Publish(msg *Message) {
	for _, p := range ps {
		if p != nil {
			p.Publish(msg)
		}
	}
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(msg *Message)

func (f PublisherFunc) Publish(msg *Message) { f(msg) }

// SSEClient represents an active SSE connection
type SSEClient struct {
	ClientID    string
	Session     uuid.UUID
	Participant string
	ConnectedAt time.Time
	MessageChan chan *SSEMessage
}

// NewSSEClient creates a new SSE client. An empty participant receives only
// broadcasts.
func NewSSEClient(clientID string, session uuid.UUID, participant string) *SSEClient {
	return &SSEClient{
		ClientID:    clientID,
		Session:     session,
		Participant: participant,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *SSEMessage, 100),
	}
}

// Close closes the client's message channel
func (c *SSEClient) Close() {
	close(c.MessageChan)
}

// SSEMessage represents a message to be sent via SSE
type SSEMessage struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Retry     *int            `json:"retry,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewSSEMessage converts a notification into its SSE frame.
func NewSSEMessage(msg *Message) *SSEMessage {
	data := msg.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	return &SSEMessage{
		ID:        msg.ID.String(),
		Event:     string(msg.Event),
		Data:      data,
		Timestamp: msg.Timestamp,
	}
}
