package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"chathub/internal/models"

	"github.com/google/uuid"
)

// Inbound event names, as sent by clients over the socket.
const (
	EventJoinRoom      = "joinRoom"
	EventLeaveRoom     = "leaveRoom"
	EventSendMessage   = "sendMessage"
	EventEditMessage   = "editMessage"
	EventDeleteMessage = "deleteMessage"
	EventTyping        = "typing"
	EventStopTyping    = "stopTyping"
)

// Outbound event names, as emitted by the server.
const (
	EventRoomMessages   = "roomMessages"
	EventNewMessage     = "newMessage"
	EventMessageEdited  = "messageEdited"
	EventMessageDeleted = "messageDeleted"
	EventUserJoined     = "userJoined"
	EventUserLeft       = "userLeft"
	EventUserTyping     = "userTyping"
	EventError          = "error"
)

// Frame is the envelope for every inbound client event. The payload stays
// raw until the event name selects a concrete type.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type SendMessagePayload struct {
	RoomID      string             `json:"roomId"`
	Text        string             `json:"text"`
	MessageType models.MessageType `json:"messageType,omitempty"`
	ReplyTo     *uuid.UUID         `json:"replyTo,omitempty"`
}

type EditMessagePayload struct {
	MessageID uuid.UUID `json:"messageId"`
	Text      string    `json:"text"`
}

type DeleteMessagePayload struct {
	MessageID uuid.UUID `json:"messageId"`
}

// DecodeFrame parses the envelope and rejects frames with unknown or
// missing event names before any payload is examined.
func DecodeFrame(raw []byte) (*Frame, error) {
	frame := &Frame{}
	if err := json.Unmarshal(raw, frame); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch frame.Event {
	case EventJoinRoom, EventLeaveRoom, EventSendMessage,
		EventEditMessage, EventDeleteMessage, EventTyping, EventStopTyping:
		return frame, nil
	case "":
		return nil, fmt.Errorf("missing event name")
	default:
		return nil, fmt.Errorf("unknown event %q", frame.Event)
	}
}

// DecodeRoom unpacks a payload that carries only a room id, used by
// joinRoom, leaveRoom, typing, and stopTyping.
func DecodeRoom(data json.RawMessage) (*RoomPayload, error) {
	p := &RoomPayload{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}
	p.RoomID = strings.TrimSpace(p.RoomID)
	if p.RoomID == "" {
		return nil, fmt.Errorf("roomId is required")
	}
	return p, nil
}

func DecodeSendMessage(data json.RawMessage) (*SendMessagePayload, error) {
	p := &SendMessagePayload{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}
	p.RoomID = strings.TrimSpace(p.RoomID)
	if p.RoomID == "" {
		return nil, fmt.Errorf("roomId is required")
	}
	return p, nil
}

func DecodeEditMessage(data json.RawMessage) (*EditMessagePayload, error) {
	p := &EditMessagePayload{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}
	if p.MessageID == uuid.Nil {
		return nil, fmt.Errorf("messageId is required")
	}
	return p, nil
}

func DecodeDeleteMessage(data json.RawMessage) (*DeleteMessagePayload, error) {
	p := &DeleteMessagePayload{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}
	if p.MessageID == uuid.Nil {
		return nil, fmt.Errorf("messageId is required")
	}
	return p, nil
}
