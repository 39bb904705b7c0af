package models

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	TypeText   MessageType = "text"
	TypeImage  MessageType = "image"
	TypeFile   MessageType = "file"
	TypeSystem MessageType = "system"
)

// MaxTextLength is the upper bound on message text in characters, matching
// the VARCHAR(1000) column constraint in the messages table.
const MaxTextLength = 1000

func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeFile, TypeSystem:
		return true
	}
	return false
}

type Message struct {
	ID         uuid.UUID   `json:"id"`
	RoomID     string      `json:"roomId"`
	SenderID   uuid.UUID   `json:"senderId"`
	SenderName string      `json:"senderName"`
	Text       string      `json:"text"`
	Type       MessageType `json:"messageType"`
	ReplyTo    *uuid.UUID  `json:"replyTo,omitempty"`
	Edited     bool        `json:"edited"`
	EditedAt   *time.Time  `json:"editedAt,omitempty"`
	Deleted    bool        `json:"-"`
	CreatedAt  time.Time   `json:"createdAt"`
}
