package tasks

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// retentionWindow is how long soft-deleted messages stay in storage before
// the sweeper removes the rows for good.
const retentionWindow = 30 * 24 * time.Hour

type purger interface {
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MessageSweeper permanently removes soft-deleted messages past the
// retention window on a nightly schedule.
type MessageSweeper struct {
	repo purger
}

func NewMessageSweeper(repo purger) *MessageSweeper {
	return &MessageSweeper{repo: repo}
}

func (s *MessageSweeper) Start() {
	c := cron.New()

	_, err := c.AddFunc("0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		purged, err := s.repo.PurgeDeletedBefore(ctx, time.Now().Add(-retentionWindow))
		if err != nil {
			log.Printf("[WORKER] Message retention sweep failed: %v", err)
			return
		}
		if purged > 0 {
			log.Printf("[WORKER] Purged %d soft-deleted messages", purged)
		}
	})
	if err != nil {
		log.Printf("[WORKER] Error scheduling cron: %v", err)
		return
	}

	c.Start()
}
