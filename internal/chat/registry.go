package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateConnection signals a connection id collision in the registry.
// It should never occur in correct operation and is fatal to that
// connection.
var ErrDuplicateConnection = errors.New("connection already registered")

type connState struct {
	userID    uuid.UUID
	rooms     map[string]struct{}
	createdAt time.Time
}

// Registry tracks each live connection's identity and room memberships.
// Pure in-memory state, rebuilt from scratch on restart.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connState
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*connState)}
}

func (r *Registry) Register(connID string, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; ok {
		return ErrDuplicateConnection
	}
	r.conns[connID] = &connState{
		userID:    userID,
		rooms:     make(map[string]struct{}),
		createdAt: time.Now(),
	}
	return nil
}

// AddRoom records a room membership. Reports whether the membership is new;
// joining a room already joined is a no-op success.
func (r *Registry) AddRoom(connID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return false
	}
	if _, joined := c.rooms[roomID]; joined {
		return false
	}
	c.rooms[roomID] = struct{}{}
	return true
}

// RemoveRoom drops a room membership. Reports whether the connection was
// actually a member, so callers can suppress duplicate leave notices.
func (r *Registry) RemoveRoom(connID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return false
	}
	if _, joined := c.rooms[roomID]; !joined {
		return false
	}
	delete(c.rooms, roomID)
	return true
}

// Rooms returns a snapshot of the connection's current memberships.
func (r *Registry) Rooms(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connID]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// Unregister removes the connection and implicitly leaves all rooms,
// returning the set of room ids that were joined so callers can emit
// leave notices. Unregistering an unknown connection returns nil.
func (r *Registry) Unregister(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return nil
	}
	delete(r.conns, connID)

	rooms := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
