package chat

import (
	"context"
	"sync"
	"time"

	"chathub/internal/models"
	"chathub/internal/types"

	"github.com/google/uuid"
)

type typingKey struct {
	roomID string
	userID uuid.UUID
}

// Typing tracks ephemeral per-room per-user typing signals. Entries expire
// after the window with no explicit clear; the receiving UI enforces expiry
// on its side, the sweep here only bounds server memory.
type Typing struct {
	mu        sync.Mutex
	window    time.Duration
	lastSeen  map[typingKey]time.Time
	broadcast *Broadcaster
}

func NewTyping(window time.Duration, broadcast *Broadcaster) *Typing {
	return &Typing{
		window:    window,
		lastSeen:  make(map[typingKey]time.Time),
		broadcast: broadcast,
	}
}

// Signal refreshes the typing timestamp for (room, user) and notifies the
// rest of the room. The signaling connection is excluded from the fan-out.
func (t *Typing) Signal(roomID string, user *models.User, excludeConn string) {
	t.mu.Lock()
	t.lastSeen[typingKey{roomID: roomID, userID: user.ID}] = time.Now()
	t.mu.Unlock()

	t.broadcast.Broadcast(roomID, types.Encode(types.EventUserTyping, types.TypingPayload{
		User:     types.UserInfoFrom(user),
		RoomID:   roomID,
		IsTyping: true,
	}), excludeConn)
}

// Stop clears the signal immediately and broadcasts a not-typing event.
// Clients would otherwise clear on expiry; an explicit stop just gets there
// sooner.
func (t *Typing) Stop(roomID string, user *models.User, excludeConn string) {
	t.mu.Lock()
	delete(t.lastSeen, typingKey{roomID: roomID, userID: user.ID})
	t.mu.Unlock()

	t.broadcast.Broadcast(roomID, types.Encode(types.EventUserTyping, types.TypingPayload{
		User:     types.UserInfoFrom(user),
		RoomID:   roomID,
		IsTyping: false,
	}), excludeConn)
}

// activeIn returns the user ids with an unexpired typing signal in a room.
func (t *Typing) activeIn(roomID string) []uuid.UUID {
	cutoff := time.Now().Add(-t.window)

	t.mu.Lock()
	defer t.mu.Unlock()

	var active []uuid.UUID
	for key, last := range t.lastSeen {
		if key.roomID == roomID && last.After(cutoff) {
			active = append(active, key.userID)
		}
	}
	return active
}

// Sweep drops entries older than the window and returns how many were
// removed.
func (t *Typing) Sweep() int {
	cutoff := time.Now().Add(-t.window)

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key, last := range t.lastSeen {
		if last.Before(cutoff) {
			delete(t.lastSeen, key)
			removed++
		}
	}
	return removed
}

// Run sweeps expired signals until the context is cancelled.
func (t *Typing) Run(ctx context.Context) {
	ticker := time.NewTicker(t.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}
