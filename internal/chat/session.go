package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"chathub/internal/models"
	"chathub/internal/repository"
	"chathub/internal/types"

	"github.com/google/uuid"
)

// MessageStore is the durable message contract the session needs. The
// Postgres repository satisfies it; tests swap in fakes.
type MessageStore interface {
	Append(ctx context.Context, roomID string, sender *models.User, text string, msgType models.MessageType, replyTo *uuid.UUID) (*models.Message, error)
	Recent(ctx context.Context, roomID string, limit int) ([]*models.Message, error)
	Edit(ctx context.Context, id uuid.UUID, newText string, requester *models.User) (*models.Message, error)
	SoftDelete(ctx context.Context, id uuid.UUID, requester *models.User) (*models.Message, error)
}

const opTimeout = 5 * time.Second

// Session orchestrates one authenticated connection: registration, event
// dispatch, and teardown. The identity is resolved before the session is
// built and never re-verified.
type Session struct {
	client       *Client
	registry     *Registry
	broadcast    *Broadcaster
	store        MessageStore
	presence     *PresenceTracker
	typing       *Typing
	historyLimit int

	teardownOnce sync.Once
}

func NewSession(client *Client, registry *Registry, broadcast *Broadcaster, store MessageStore, presence *PresenceTracker, typing *Typing, historyLimit int) *Session {
	return &Session{
		client:       client,
		registry:     registry,
		broadcast:    broadcast,
		store:        store,
		presence:     presence,
		typing:       typing,
		historyLimit: historyLimit,
	}
}

// Open registers the connection and flips the user online. A duplicate
// connection id is fatal to this connection: the caller must close the
// transport without running the session.
func (s *Session) Open(ctx context.Context) error {
	if err := s.registry.Register(s.client.ID(), s.client.User().ID); err != nil {
		return err
	}
	s.presence.MarkOnline(ctx, s.client.User().ID)
	log.Printf("[SESSION] User %s connected (%s)", s.client.User().Username, s.client.ID())
	return nil
}

// Run pumps the connection until the transport dies, then performs
// teardown. Blocks until the connection is gone.
func (s *Session) Run() {
	go s.client.WritePump()
	defer s.Teardown()
	s.client.ReadPump(s.handleFrame)
}

func (s *Session) handleFrame(raw []byte) {
	frame, err := types.DecodeFrame(raw)
	if err != nil {
		s.sendError(err.Error())
		return
	}

	switch frame.Event {
	case types.EventJoinRoom:
		s.handleJoin(frame)
	case types.EventLeaveRoom:
		s.handleLeave(frame)
	case types.EventSendMessage:
		s.handleSend(frame)
	case types.EventEditMessage:
		s.handleEdit(frame)
	case types.EventDeleteMessage:
		s.handleDelete(frame)
	case types.EventTyping:
		s.handleTyping(frame, true)
	case types.EventStopTyping:
		s.handleTyping(frame, false)
	}
}

func (s *Session) handleJoin(frame *types.Frame) {
	p, err := types.DecodeRoom(frame.Data)
	if err != nil {
		s.sendError(err.Error())
		return
	}

	// Joining a room already joined is a no-op success: no duplicate
	// history push, no duplicate join notice.
	if !s.registry.AddRoom(s.client.ID(), p.RoomID) {
		return
	}

	// Subscribe before fetching history so a message racing with the join
	// cannot be missed; a rare duplicate is the client's to dedupe by id.
	s.broadcast.Join(p.RoomID, s.client)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	history, err := s.store.Recent(ctx, p.RoomID, s.historyLimit)
	if err != nil {
		log.Printf("[SESSION] History fetch failed for room %s: %v", p.RoomID, err)
		s.sendError("Failed to load room history")
	} else {
		if history == nil {
			history = []*models.Message{}
		}
		s.client.Enqueue(types.Encode(types.EventRoomMessages, types.RoomMessagesPayload{
			RoomID:   p.RoomID,
			Messages: history,
		}))
	}

	user := s.client.User()
	s.broadcast.Broadcast(p.RoomID, types.Encode(types.EventUserJoined, types.RoomEventPayload{
		User:    types.UserInfoFrom(user),
		RoomID:  p.RoomID,
		Message: fmt.Sprintf("%s joined the room", user.Display()),
	}), s.client.ID())

	log.Printf("[SESSION] %s joined room %s", user.Username, p.RoomID)
}

func (s *Session) handleLeave(frame *types.Frame) {
	p, err := types.DecodeRoom(frame.Data)
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.leaveRoom(p.RoomID)
}

// leaveRoom is idempotent: a second leave for the same room is a no-op with
// no duplicate leave notice.
func (s *Session) leaveRoom(roomID string) {
	if !s.registry.RemoveRoom(s.client.ID(), roomID) {
		return
	}
	s.broadcast.Leave(roomID, s.client.ID())

	user := s.client.User()
	s.broadcast.Broadcast(roomID, types.Encode(types.EventUserLeft, types.RoomEventPayload{
		User:    types.UserInfoFrom(user),
		RoomID:  roomID,
		Message: fmt.Sprintf("%s left the room", user.Display()),
	}), s.client.ID())

	log.Printf("[SESSION] %s left room %s", user.Username, roomID)
}

func (s *Session) handleSend(frame *types.Frame) {
	p, err := types.DecodeSendMessage(frame.Data)
	if err != nil {
		s.sendError(err.Error())
		return
	}
	if !s.isJoined(p.RoomID) {
		s.sendError("Join the room before sending messages")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	// Durability before visibility: nothing is broadcast unless the append
	// succeeded.
	msg, err := s.store.Append(ctx, p.RoomID, s.client.User(), p.Text, p.MessageType, p.ReplyTo)
	if err != nil {
		s.sendStoreError(err)
		return
	}

	// Policy: the sender receives its own newMessage broadcast; clients
	// must not optimistically duplicate.
	s.broadcast.Broadcast(p.RoomID, types.Encode(types.EventNewMessage, types.NewMessagePayload{
		Message: msg,
		Sender:  types.UserInfoFrom(s.client.User()),
		RoomID:  p.RoomID,
	}), "")
}

func (s *Session) handleEdit(frame *types.Frame) {
	p, err := types.DecodeEditMessage(frame.Data)
	if err != nil {
		s.sendError(err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	msg, err := s.store.Edit(ctx, p.MessageID, p.Text, s.client.User())
	if err != nil {
		s.sendStoreError(err)
		return
	}

	s.broadcast.Broadcast(msg.RoomID, types.Encode(types.EventMessageEdited, types.NewMessagePayload{
		Message: msg,
		Sender:  types.UserInfoFrom(s.client.User()),
		RoomID:  msg.RoomID,
	}), "")
}

func (s *Session) handleDelete(frame *types.Frame) {
	p, err := types.DecodeDeleteMessage(frame.Data)
	if err != nil {
		s.sendError(err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	msg, err := s.store.SoftDelete(ctx, p.MessageID, s.client.User())
	if err != nil {
		s.sendStoreError(err)
		return
	}

	s.broadcast.Broadcast(msg.RoomID, types.Encode(types.EventMessageDeleted, types.MessageDeletedPayload{
		MessageID: msg.ID,
		RoomID:    msg.RoomID,
	}), "")
}

func (s *Session) handleTyping(frame *types.Frame, typing bool) {
	p, err := types.DecodeRoom(frame.Data)
	if err != nil {
		s.sendError(err.Error())
		return
	}
	if !s.isJoined(p.RoomID) {
		return
	}

	if typing {
		s.typing.Signal(p.RoomID, s.client.User(), s.client.ID())
	} else {
		s.typing.Stop(p.RoomID, s.client.User(), s.client.ID())
	}
}

// Teardown leaves all joined rooms, marks the user offline, and
// unregisters the connection, in that order. It runs exactly once and
// completes registry and presence cleanup even if a leave notice fails.
func (s *Session) Teardown() {
	s.teardownOnce.Do(func() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[SESSION] Recovered during leave notices for %s: %v", s.client.ID(), r)
				}
			}()
			for _, roomID := range s.registry.Rooms(s.client.ID()) {
				s.leaveRoom(roomID)
			}
		}()

		s.presence.MarkOffline(s.client.User().ID)
		s.registry.Unregister(s.client.ID())
		s.client.Close()
		log.Printf("[SESSION] User %s disconnected (%s)", s.client.User().Username, s.client.ID())
	})
}

func (s *Session) isJoined(roomID string) bool {
	for _, r := range s.registry.Rooms(s.client.ID()) {
		if r == roomID {
			return true
		}
	}
	return false
}

func (s *Session) sendError(message string) {
	s.client.Enqueue(encodeError(message))
}

// sendStoreError maps store failures onto client-facing error events. The
// failure stays with the originating connection; nothing else in the room
// sees it.
func (s *Session) sendStoreError(err error) {
	switch {
	case errors.Is(err, repository.ErrValidation):
		s.sendError(err.Error())
	case errors.Is(err, repository.ErrForbidden):
		s.sendError("You can only modify your own messages")
	case errors.Is(err, repository.ErrNotFound):
		s.sendError("Message not found")
	case errors.Is(err, repository.ErrAlreadyDeleted):
		s.sendError("Message is already deleted")
	case errors.Is(err, repository.ErrStorageUnavailable):
		log.Printf("[SESSION] Storage unavailable: %v", err)
		s.sendError("Message could not be saved, please retry")
	default:
		log.Printf("[SESSION] Unexpected failure: %v", err)
		s.sendError("Something went wrong")
	}
}

func encodeError(message string) []byte {
	return types.Encode(types.EventError, types.ErrorPayload{Message: message})
}
