package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeSub collects delivered payloads; full simulates a slow consumer whose
// queue never accepts.
type fakeSub struct {
	id   string
	mu   sync.Mutex
	got  [][]byte
	full bool
}

func (f *fakeSub) ID() string { return f.id }

func (f *fakeSub) Enqueue(payload []byte) bool {
	if f.full {
		return false
	}
	f.mu.Lock()
	f.got = append(f.got, payload)
	f.mu.Unlock()
	return true
}

func (f *fakeSub) received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.got...)
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	b := NewBroadcaster()
	a := &fakeSub{id: "a"}
	c := &fakeSub{id: "c"}
	b.Join("general", a)
	b.Join("general", c)

	b.Broadcast("general", []byte("hello"), "")

	assert.Len(t, a.received(), 1)
	assert.Len(t, c.received(), 1)
}

func TestBroadcastIsolationBetweenRooms(t *testing.T) {
	b := NewBroadcaster()
	a := &fakeSub{id: "a"}
	c := &fakeSub{id: "c"}
	b.Join("room-a", a)
	b.Join("room-b", c)

	b.Broadcast("room-a", []byte("only for a"), "")

	assert.Len(t, a.received(), 1)
	assert.Empty(t, c.received(), "room-b subscriber must not see room-a traffic")
}

func TestBroadcastExcludesSender(t *testing.T) {
	b := NewBroadcaster()
	sender := &fakeSub{id: "sender"}
	other := &fakeSub{id: "other"}
	b.Join("general", sender)
	b.Join("general", other)

	b.Broadcast("general", []byte("joined"), "sender")

	assert.Empty(t, sender.received())
	assert.Len(t, other.received(), 1)
}

func TestBroadcastEmptyRoomIsNoOp(t *testing.T) {
	b := NewBroadcaster()
	b.Broadcast("nobody-home", []byte("hello"), "")
}

func TestBroadcastPreservesOrderPerSubscriber(t *testing.T) {
	b := NewBroadcaster()
	a := &fakeSub{id: "a"}
	c := &fakeSub{id: "c"}
	b.Join("general", a)
	b.Join("general", c)

	b.Broadcast("general", []byte("first"), "")
	b.Broadcast("general", []byte("second"), "")
	b.Broadcast("general", []byte("third"), "")

	want := [][]byte{[]byte("first"), []byte("second"), []byte("third")}
	assert.Equal(t, want, a.received())
	assert.Equal(t, want, c.received())
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	b := NewBroadcaster()
	slow := &fakeSub{id: "slow", full: true}
	healthy := &fakeSub{id: "healthy"}
	b.Join("general", slow)
	b.Join("general", healthy)

	b.Broadcast("general", []byte("hello"), "")

	assert.Empty(t, slow.received())
	assert.Len(t, healthy.received(), 1)
}

func TestLeaveRemovesSubscriberAndDropsEmptyRoom(t *testing.T) {
	b := NewBroadcaster()
	a := &fakeSub{id: "a"}
	b.Join("general", a)
	assert.Equal(t, 1, b.Subscribers("general"))

	b.Leave("general", "a")
	assert.Equal(t, 0, b.Subscribers("general"))

	// Leaving an unknown room or a room already left is safe.
	b.Leave("general", "a")
	b.Leave("never-existed", "a")
}

func TestConcurrentJoinLeaveBroadcast(t *testing.T) {
	b := NewBroadcaster()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sub := &fakeSub{id: string(rune('a' + n))}
			b.Join("general", sub)
			b.Broadcast("general", []byte("x"), "")
			b.Leave("general", sub.ID())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, b.Subscribers("general"))
}
