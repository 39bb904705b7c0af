package chat

import (
	"log"
	"sync"
)

// Subscriber is the delivery end of one live connection. Enqueue must not
// block: it reports false when the outbound queue is full or closed, and the
// broadcaster moves on to the next subscriber.
type Subscriber interface {
	ID() string
	Enqueue(payload []byte) bool
}

type room struct {
	mu   sync.Mutex
	subs map[string]Subscriber
}

// Broadcaster maintains the live subscriber set per room and fans events out
// to it. Each room carries its own lock so unrelated rooms never contend;
// holding the room lock across the fan-out keeps per-room delivery order
// identical for every subscriber.
type Broadcaster struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{rooms: make(map[string]*room)}
}

// Join adds a subscriber to the room's live set. Rooms are created
// implicitly on first join. The outer lock is held through the insert so a
// concurrent empty-room cleanup cannot orphan the subscriber.
func (b *Broadcaster) Join(roomID string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rm, ok := b.rooms[roomID]
	if !ok {
		rm = &room{subs: make(map[string]Subscriber)}
		b.rooms[roomID] = rm
	}
	rm.mu.Lock()
	rm.subs[sub.ID()] = sub
	rm.mu.Unlock()
}

// Leave removes a subscriber from the room. Empty rooms are dropped so the
// map doesn't accumulate ids of long-dead rooms.
func (b *Broadcaster) Leave(roomID, connID string) {
	b.mu.RLock()
	rm, ok := b.rooms[roomID]
	b.mu.RUnlock()
	if !ok {
		return
	}

	rm.mu.Lock()
	delete(rm.subs, connID)
	empty := len(rm.subs) == 0
	rm.mu.Unlock()

	if empty {
		b.mu.Lock()
		rm.mu.Lock()
		if len(rm.subs) == 0 {
			delete(b.rooms, roomID)
		}
		rm.mu.Unlock()
		b.mu.Unlock()
	}
}

// Broadcast delivers payload to every current subscriber of the room except
// the optionally excluded connection. Delivery to a slow or closed
// subscriber is skipped, never waited on. Broadcasting to an unknown or
// empty room is a safe no-op.
func (b *Broadcaster) Broadcast(roomID string, payload []byte, exclude string) {
	if payload == nil {
		return
	}

	b.mu.RLock()
	rm, ok := b.rooms[roomID]
	b.mu.RUnlock()
	if !ok {
		return
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	for id, sub := range rm.subs {
		if id == exclude {
			continue
		}
		if !sub.Enqueue(payload) {
			log.Printf("[BROADCAST] Subscriber %s queue full, dropping event for room %s", id, roomID)
		}
	}
}

// Subscribers returns the number of live subscribers in a room.
func (b *Broadcaster) Subscribers(roomID string) int {
	b.mu.RLock()
	rm, ok := b.rooms[roomID]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.subs)
}
