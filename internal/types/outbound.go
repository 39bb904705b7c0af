package types

import (
	"encoding/json"
	"log"

	"chathub/internal/models"

	"github.com/google/uuid"
)

// UserInfo is the sender/actor profile attached to outbound events,
// mirroring what the web client renders next to each message.
type UserInfo struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
}

func UserInfoFrom(u *models.User) UserInfo {
	return UserInfo{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.Display(),
	}
}

type RoomMessagesPayload struct {
	RoomID   string            `json:"roomId"`
	Messages []*models.Message `json:"messages"`
}

type NewMessagePayload struct {
	Message *models.Message `json:"message"`
	Sender  UserInfo        `json:"sender"`
	RoomID  string          `json:"roomId"`
}

type MessageDeletedPayload struct {
	MessageID uuid.UUID `json:"messageId"`
	RoomID    string    `json:"roomId"`
}

type RoomEventPayload struct {
	User    UserInfo `json:"user"`
	RoomID  string   `json:"roomId"`
	Message string   `json:"message"`
}

type TypingPayload struct {
	User     UserInfo `json:"user"`
	RoomID   string   `json:"roomId"`
	IsTyping bool     `json:"isTyping"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Encode wraps a payload in the outbound envelope. Marshal failures are a
// programming error on our own types; they are logged and yield nil, which
// enqueue paths treat as a no-op.
func Encode(event string, payload any) []byte {
	raw, err := json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}{Event: event, Data: payload})
	if err != nil {
		log.Printf("[TYPES] Failed to encode %s event: %v", event, err)
		return nil
	}
	return raw
}
