package chat

import (
	"encoding/json"
	"testing"
	"time"

	"chathub/internal/models"
	"chathub/internal/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typingUser(name string) *models.User {
	return &models.User{ID: uuid.New(), Username: name, Role: models.RoleUser, IsActive: true}
}

func decodeFrameEvent(t *testing.T, payload []byte) (string, json.RawMessage) {
	t.Helper()
	var envelope struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &envelope))
	return envelope.Event, envelope.Data
}

func TestTypingSignalBroadcastsExcludingSender(t *testing.T) {
	b := NewBroadcaster()
	sender := &fakeSub{id: "sender"}
	peer := &fakeSub{id: "peer"}
	b.Join("general", sender)
	b.Join("general", peer)

	typing := NewTyping(2*time.Second, b)
	user := typingUser("alice")
	typing.Signal("general", user, "sender")

	assert.Empty(t, sender.received())
	got := peer.received()
	require.Len(t, got, 1)

	event, data := decodeFrameEvent(t, got[0])
	assert.Equal(t, types.EventUserTyping, event)

	var p types.TypingPayload
	require.NoError(t, json.Unmarshal(data, &p))
	assert.True(t, p.IsTyping)
	assert.Equal(t, "general", p.RoomID)
	assert.Equal(t, user.ID, p.User.ID)
}

func TestTypingStopBroadcastsNotTyping(t *testing.T) {
	b := NewBroadcaster()
	peer := &fakeSub{id: "peer"}
	b.Join("general", peer)

	typing := NewTyping(2*time.Second, b)
	user := typingUser("alice")
	typing.Signal("general", user, "sender")
	typing.Stop("general", user, "sender")

	got := peer.received()
	require.Len(t, got, 2)

	_, data := decodeFrameEvent(t, got[1])
	var p types.TypingPayload
	require.NoError(t, json.Unmarshal(data, &p))
	assert.False(t, p.IsTyping)

	assert.Empty(t, typing.activeIn("general"))
}

func TestTypingRefreshAndExpiry(t *testing.T) {
	typing := NewTyping(50*time.Millisecond, NewBroadcaster())
	user := typingUser("alice")

	typing.Signal("general", user, "")
	assert.Len(t, typing.activeIn("general"), 1)

	// Repeated signals inside the window refresh the timestamp.
	time.Sleep(30 * time.Millisecond)
	typing.Signal("general", user, "")
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, typing.activeIn("general"), 1, "refreshed signal must still be active")

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, typing.activeIn("general"), "signal must expire after the window")

	removed := typing.Sweep()
	assert.Equal(t, 1, removed)
}

func TestTypingSweepKeepsFreshEntries(t *testing.T) {
	typing := NewTyping(time.Minute, NewBroadcaster())
	typing.Signal("general", typingUser("alice"), "")

	assert.Equal(t, 0, typing.Sweep())
	assert.Len(t, typing.activeIn("general"), 1)
}
