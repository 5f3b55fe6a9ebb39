package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

const messageVersion = 1

// ChangeMessage is the wire form of a confirmed store change.
type ChangeMessage struct {
	Version     int         `json:"version"`
	PublishedAt time.Time   `json:"published_at"`
	Change      core.Change `json:"change"`
}

func NewChangeMessage(c core.Change) *ChangeMessage {
	return &ChangeMessage{Version: messageVersion, PublishedAt: time.Now().UTC(), Change: c}
}

// RoutingKey is "<kind>.<op>", e.g. "expense.created".
func (m *ChangeMessage) RoutingKey() string {
	return RoutingKey(m.Change.Kind, m.Change.Op)
}

func RoutingKey(kind core.Kind, op core.ChangeOp) string {
	return fmt.Sprintf("%s.%s", kind, op)
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.Change.Kind == "":
		return nil, errors.New("change message without kind")
	case msg.Change.Op != core.ChangeCreated && msg.Change.Op != core.ChangeDeleted:
		return nil, fmt.Errorf("change message with unknown op %q", msg.Change.Op)
	case msg.Change.ID == "":
		return nil, errors.New("change message without id")
	}
	return &msg, nil
}
