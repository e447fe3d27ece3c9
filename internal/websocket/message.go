package websocket

import (
	"time"

	"github.com/isdelr/pitchzone-be/internal/models"
)

// Actions understood on the live feed.
const (
	ActionPitchUpdated = "pitch_updated"
	ActionSubscribe    = "subscribe_pitch"
	ActionUnsubscribe  = "unsubscribe_pitch"
	ActionSubscribed   = "subscribed"
	ActionUnsubscribed = "unsubscribed"
	ActionPing         = "ping"
	ActionPong         = "pong"
	ActionError        = "error"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action    string      `json:"action"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewPitchUpdatedMessage announces the new funding state of a pitch.
func NewPitchUpdatedMessage(p models.Pitch) Message {
	return Message{Action: ActionPitchUpdated, Payload: p, Timestamp: time.Now().UTC()}
}

// NewTopicMessage acknowledges a subscribe or unsubscribe request.
func NewTopicMessage(action, pitchID string) Message {
	return Message{
		Action:    action,
		Payload:   map[string]string{"pitchId": pitchID},
		Timestamp: time.Now().UTC(),
	}
}

// NewErrorMessage reports a bad client request.
func NewErrorMessage(msg string) Message {
	return Message{
		Action:    ActionError,
		Payload:   map[string]string{"error": msg},
		Timestamp: time.Now().UTC(),
	}
}

// NewPongMessage answers a client ping.
func NewPongMessage() Message {
	return Message{Action: ActionPong, Timestamp: time.Now().UTC()}
}
