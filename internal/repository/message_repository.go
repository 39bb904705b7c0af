package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"chathub/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepo interface {
	Append(ctx context.Context, roomID string, sender *models.User, text string, msgType models.MessageType, replyTo *uuid.UUID) (*models.Message, error)
	Recent(ctx context.Context, roomID string, limit int) ([]*models.Message, error)
	Page(ctx context.Context, roomID string, limit int, before time.Time) ([]*models.Message, bool, error)
	Search(ctx context.Context, roomID, term string, limit int) ([]*models.Message, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
	Stats(ctx context.Context, roomID string) (*RoomStats, error)
	Edit(ctx context.Context, id uuid.UUID, newText string, requester *models.User) (*models.Message, error)
	SoftDelete(ctx context.Context, id uuid.UUID, requester *models.User) (*models.Message, error)
}

type PostgresMessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *PostgresMessageRepo {
	return &PostgresMessageRepo{pool: pool}
}

const messageColumns = `id, room_id, sender_id, sender_name, content, msg_type, reply_to, is_edited, edited_at, created_at`

// ValidateDraft normalizes and checks outgoing message content before it
// touches storage. Returns the trimmed text and effective type.
func ValidateDraft(text string, msgType models.MessageType) (string, models.MessageType, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", "", fmt.Errorf("%w: message text is required", ErrValidation)
	}
	if utf8.RuneCountInString(trimmed) > models.MaxTextLength {
		return "", "", fmt.Errorf("%w: message cannot exceed %d characters", ErrValidation, models.MaxTextLength)
	}
	if msgType == "" {
		msgType = models.TypeText
	}
	if !msgType.Valid() {
		return "", "", fmt.Errorf("%w: invalid message type %q", ErrValidation, msgType)
	}
	return trimmed, msgType, nil
}

func (r *PostgresMessageRepo) Append(ctx context.Context, roomID string, sender *models.User, text string, msgType models.MessageType, replyTo *uuid.UUID) (*models.Message, error) {
	trimmed, effectiveType, err := ValidateDraft(text, msgType)
	if err != nil {
		return nil, err
	}

	if replyTo != nil {
		if _, err := r.GetByID(ctx, *replyTo); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: reply message not found", ErrValidation)
			}
			return nil, err
		}
	}

	m := &models.Message{
		ID:         uuid.New(),
		RoomID:     roomID,
		SenderID:   sender.ID,
		SenderName: sender.Display(),
		Text:       trimmed,
		Type:       effectiveType,
		ReplyTo:    replyTo,
		CreatedAt:  time.Now().UTC(),
	}

	const query = `
        INSERT INTO messages (id, room_id, sender_id, sender_name, content, msg_type, reply_to, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.pool.Exec(ctx, query,
		m.ID, m.RoomID, m.SenderID, m.SenderName, m.Text, m.Type, m.ReplyTo, m.CreatedAt,
	)
	if err != nil {
		log.Printf("[REPO ERROR] Failed to save message %s from %s: %v", m.ID, m.SenderName, err)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return m, nil
}

// Recent returns the latest non-deleted messages for a room in chronological
// order. The store's natural order is newest-first, so the rows are reversed
// before return.
func (r *PostgresMessageRepo) Recent(ctx context.Context, roomID string, limit int) ([]*models.Message, error) {
	const query = `
        SELECT ` + messageColumns + `
        FROM messages
        WHERE room_id = $1 AND is_deleted = false
        ORDER BY created_at DESC
        LIMIT $2`

	messages, err := r.queryMessages(ctx, query, roomID, limit)
	if err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

// Page returns up to limit messages strictly older than before, in
// chronological order. The second return value signals that more history may
// exist, true iff a full page came back.
func (r *PostgresMessageRepo) Page(ctx context.Context, roomID string, limit int, before time.Time) ([]*models.Message, bool, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	const query = `
        SELECT ` + messageColumns + `
        FROM messages
        WHERE room_id = $1 AND is_deleted = false AND created_at < $2
        ORDER BY created_at DESC
        LIMIT $3`

	messages, err := r.queryMessages(ctx, query, roomID, before, limit)
	if err != nil {
		return nil, false, err
	}
	hasMore := len(messages) == limit
	reverse(messages)
	return messages, hasMore, nil
}

func (r *PostgresMessageRepo) Search(ctx context.Context, roomID, term string, limit int) ([]*models.Message, error) {
	const query = `
        SELECT ` + messageColumns + `
        FROM messages
        WHERE room_id = $1 AND is_deleted = false AND content ILIKE '%' || $2 || '%'
        ORDER BY created_at DESC
        LIMIT $3`

	return r.queryMessages(ctx, query, roomID, term, limit)
}

func (r *PostgresMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	const query = `
        SELECT ` + messageColumns + `, is_deleted
        FROM messages
        WHERE id = $1`

	m := &models.Message{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.RoomID, &m.SenderID, &m.SenderName, &m.Text, &m.Type,
		&m.ReplyTo, &m.Edited, &m.EditedAt, &m.CreatedAt, &m.Deleted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return m, nil
}

// Edit replaces the text of an existing message. Only the sender or a
// moderator may edit; soft-deleted messages stay immutable.
func (r *PostgresMessageRepo) Edit(ctx context.Context, id uuid.UUID, newText string, requester *models.User) (*models.Message, error) {
	trimmed, _, err := ValidateDraft(newText, models.TypeText)
	if err != nil {
		return nil, err
	}

	m, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(m, requester); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	const query = `
        UPDATE messages
        SET content = $2, is_edited = true, edited_at = $3
        WHERE id = $1 AND is_deleted = false`

	tag, err := r.pool.Exec(ctx, query, id, trimmed, now)
	if err != nil {
		log.Printf("[REPO ERROR] Failed to edit message %s: %v", id, err)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAlreadyDeleted
	}

	m.Text = trimmed
	m.Edited = true
	m.EditedAt = &now
	return m, nil
}

// SoftDelete marks a message invisible to normal reads while retaining the
// row, and returns the deleted record so callers know which room to notify.
// Deleting an already-deleted message fails with ErrAlreadyDeleted.
func (r *PostgresMessageRepo) SoftDelete(ctx context.Context, id uuid.UUID, requester *models.User) (*models.Message, error) {
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(m, requester); err != nil {
		return nil, err
	}

	const query = `
        UPDATE messages
        SET is_deleted = true, deleted_at = $2
        WHERE id = $1 AND is_deleted = false`

	tag, err := r.pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		log.Printf("[REPO ERROR] Failed to delete message %s: %v", id, err)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAlreadyDeleted
	}

	m.Deleted = true
	return m, nil
}

// RoomStats summarizes a room's message activity.
type RoomStats struct {
	TotalMessages int64 `json:"totalMessages"`
	MessagesToday int64 `json:"messagesToday"`
	ActiveUsers   int64 `json:"activeUsers"`
}

// Stats counts a room's non-deleted messages, today's messages, and the
// distinct senders active in the last 24 hours.
func (r *PostgresMessageRepo) Stats(ctx context.Context, roomID string) (*RoomStats, error) {
	const query = `
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE created_at >= date_trunc('day', now())),
            COUNT(DISTINCT sender_id) FILTER (WHERE created_at >= now() - interval '24 hours')
        FROM messages
        WHERE room_id = $1 AND is_deleted = false`

	stats := &RoomStats{}
	err := r.pool.QueryRow(ctx, query, roomID).Scan(
		&stats.TotalMessages, &stats.MessagesToday, &stats.ActiveUsers,
	)
	if err != nil {
		log.Printf("[REPO ERROR] Stats query failed for room %s: %v", roomID, err)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return stats, nil
}

// PurgeDeletedBefore permanently removes soft-deleted rows past the retention
// window. Called only by the scheduled cleanup task, never by request paths.
func (r *PostgresMessageRepo) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM messages WHERE is_deleted = true AND deleted_at < $1`

	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return tag.RowsAffected(), nil
}

func authorize(m *models.Message, requester *models.User) error {
	if m.SenderID != requester.ID && !requester.CanModerate() {
		return ErrForbidden
	}
	if m.Deleted {
		return ErrAlreadyDeleted
	}
	return nil
}

func (r *PostgresMessageRepo) queryMessages(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("[REPO ERROR] Message query failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m := &models.Message{}
		err := rows.Scan(
			&m.ID, &m.RoomID, &m.SenderID, &m.SenderName, &m.Text, &m.Type,
			&m.ReplyTo, &m.Edited, &m.EditedAt, &m.CreatedAt,
		)
		if err != nil {
			log.Printf("[REPO ERROR] Scan failed: %v", err)
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return messages, nil
}

func reverse(messages []*models.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
