package chat

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// PresenceStore is the durable side of presence, implemented by the user
// repository. The core only ever touches these two fields of the user
// entity.
type PresenceStore interface {
	SetOnline(ctx context.Context, id uuid.UUID) error
	SetOffline(ctx context.Context, id uuid.UUID, lastSeen time.Time) error
}

// PresenceTracker flips the online flag on connect/disconnect and stamps
// last-seen on the way out. Store failures are logged, not propagated:
// session teardown must finish regardless.
type PresenceTracker struct {
	store   PresenceStore
	timeout time.Duration
}

func NewPresenceTracker(store PresenceStore) *PresenceTracker {
	return &PresenceTracker{store: store, timeout: 5 * time.Second}
}

func (p *PresenceTracker) MarkOnline(ctx context.Context, userID uuid.UUID) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.store.SetOnline(ctx, userID); err != nil {
		log.Printf("[PRESENCE] Failed to mark %s online: %v", userID, err)
	}
}

// MarkOffline uses a background context so the update survives a
// request-scoped context that died with the transport.
func (p *PresenceTracker) MarkOffline(userID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.store.SetOffline(ctx, userID, time.Now().UTC()); err != nil {
		log.Printf("[PRESENCE] Failed to mark %s offline: %v", userID, err)
	}
}
