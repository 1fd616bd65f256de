package queue

import "encoding/json"

// MessageVersion is the current payload version.
const MessageVersion = 1

// Message is the payload sent to downstream queue consumers. Retry marks a
// manual re-trigger, which may restart a failed record.
type Message struct {
	ResumeID   string `json:"resumeId"`
	Retry      bool   `json:"retry,omitempty"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
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
	return msg, nil
}
