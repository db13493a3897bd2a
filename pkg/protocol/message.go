package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client-originated message types.
const (
	TypeSetIdentity       = "setIdentity"
	TypeJoinRoom          = "joinRoom"
	TypeLeaveRoom         = "leaveRoom"
	TypeNewAnnotation     = "newAnnotation"
	TypeUpdatedAnnotation = "updatedAnnotation"
	TypeDeletedAnnotation = "deletedAnnotation"
	TypeCursorPosition    = "cursorPosition"
	TypeSelection         = "selection"
	TypeLockAnnotation    = "lockAnnotation"
	TypeUnlockAnnotation  = "unlockAnnotation"
)

// Server-originated message types.
const (
	TypeRoomJoined   = "roomJoined"
	TypeUserJoined   = "userJoined"
	TypeUserLeft     = "userLeft"
	TypeLockGranted  = "lockGranted"
	TypeLockReleased = "lockReleased"
	TypeDenied       = "denied"
	TypeError        = "error"
)

// Denial codes carried by TypeDenied notices.
const (
	DeniedLocked    = "LOCKED"
	DeniedNotHolder = "NOT_HOLDER"
)

// ErrEmptyType is returned when a message envelope has no type.
var ErrEmptyType = errors.New("protocol: empty message type")

// Message is the envelope for every client-to-server message. The
// payload stays raw until the handler for the type decodes it.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses a raw JSON message into an envelope.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("protocol: decode message: %w", err)
	}
	if m.Type == "" {
		return nil, ErrEmptyType
	}
	return &m, nil
}

// DecodePayload decodes the envelope payload into v.
func (m *Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("protocol: %s: missing payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("protocol: %s: decode payload: %w", m.Type, err)
	}
	return nil
}

// Encode builds the wire form of a server-to-client message. Payloads
// are plain structs or maps; a nil payload produces a bare envelope.
func Encode(msgType string, payload any) ([]byte, error) {
	env := struct {
		Type    string `json:"type"`
		Payload any    `json:"payload,omitempty"`
	}{Type: msgType, Payload: payload}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", msgType, err)
	}
	return data, nil
}
