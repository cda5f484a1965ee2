package queue

import (
	"encoding/json"
	"errors"
	"strings"
)

// MessageVersion is bumped when the message shape changes incompatibly.
const MessageVersion = 1

var ErrMissingOwnerID = errors.New("missing owner id")

// Message asks a worker to run the automatic validations for one owner.
type Message struct {
	OwnerID    string   `json:"ownerId"`
	Categories []string `json:"categories,omitempty"`
	ActorID    string   `json:"actorId,omitempty"`
	RequestID  string   `json:"requestId"`
	EnqueuedAt string   `json:"enqueuedAt"`
	Version    int      `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if strings.TrimSpace(msg.OwnerID) == "" {
		return msg, ErrMissingOwnerID
	}
	return msg, nil
}
