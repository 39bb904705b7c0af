package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndDuplicate(t *testing.T) {
	r := NewRegistry()
	userID := uuid.New()

	require.NoError(t, r.Register("conn-1", userID))
	assert.Equal(t, 1, r.Count())

	err := r.Register("conn-1", userID)
	assert.ErrorIs(t, err, ErrDuplicateConnection)
	assert.Equal(t, 1, r.Count())
}

func TestRegistryAddRoomIdempotent(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("conn-1", uuid.New()))

	assert.True(t, r.AddRoom("conn-1", "general"))
	assert.False(t, r.AddRoom("conn-1", "general"), "second join must be a no-op")
	assert.Equal(t, []string{"general"}, r.Rooms("conn-1"))
}

func TestRegistryAddRoomUnknownConnection(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.AddRoom("ghost", "general"))
}

func TestRegistryRemoveRoom(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("conn-1", uuid.New()))
	r.AddRoom("conn-1", "general")

	assert.True(t, r.RemoveRoom("conn-1", "general"))
	assert.False(t, r.RemoveRoom("conn-1", "general"), "second leave must be a no-op")
	assert.Empty(t, r.Rooms("conn-1"))
}

func TestRegistryUnregisterReturnsJoinedRooms(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("conn-1", uuid.New()))
	r.AddRoom("conn-1", "general")
	r.AddRoom("conn-1", "random")

	rooms := r.Unregister("conn-1")
	assert.ElementsMatch(t, []string{"general", "random"}, rooms)
	assert.Equal(t, 0, r.Count())

	assert.Nil(t, r.Unregister("conn-1"), "unregistering twice returns nil")
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", n)
			if err := r.Register(connID, uuid.New()); err != nil {
				t.Errorf("register %s: %v", connID, err)
				return
			}
			r.AddRoom(connID, "general")
			r.AddRoom(connID, fmt.Sprintf("room-%d", n%5))
			r.Unregister(connID)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.Count())
}
