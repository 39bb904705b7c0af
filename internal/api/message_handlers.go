package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chathub/internal/middleware"
	"chathub/internal/models"
	"chathub/internal/repository"

	"github.com/google/uuid"
)

const dbTimeout = 5 * time.Second

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, repository.ErrForbidden):
		http.Error(w, "You can only modify your own messages", http.StatusForbidden)
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "Message not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrAlreadyDeleted):
		http.Error(w, "Message is already deleted", http.StatusBadRequest)
	default:
		log.Printf("[API] Storage failure: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func parseLimit(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return min(n, max)
}

func roomIDFrom(r *http.Request) (string, bool) {
	roomID := strings.TrimSpace(r.PathValue("roomId"))
	return roomID, roomID != ""
}

// HistoryHandler serves GET /api/messages/{roomId}?limit&before with
// paginated chronological history.
func HistoryHandler(repo repository.MessageRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, ok := roomIDFrom(r)
		if !ok {
			http.Error(w, "Room ID is required", http.StatusBadRequest)
			return
		}

		limit := parseLimit(r, 50, 100)

		var before time.Time
		if raw := r.URL.Query().Get("before"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				http.Error(w, "Invalid date format for \"before\" parameter", http.StatusBadRequest)
				return
			}
			before = parsed
		}

		ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
		defer cancel()

		messages, hasMore, err := repo.Page(ctx, roomID, limit, before)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if messages == nil {
			messages = []*models.Message{}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"messages": messages,
			"roomId":   roomID,
			"count":    len(messages),
			"hasMore":  hasMore,
		})
	}
}

// RecentHandler serves GET /api/messages/recent/{roomId}?limit for the
// initial room load.
func RecentHandler(repo repository.MessageRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, ok := roomIDFrom(r)
		if !ok {
			http.Error(w, "Room ID is required", http.StatusBadRequest)
			return
		}

		limit := parseLimit(r, 20, 50)

		ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
		defer cancel()

		messages, err := repo.Recent(ctx, roomID, limit)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if messages == nil {
			messages = []*models.Message{}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"messages": messages,
			"roomId":   roomID,
			"count":    len(messages),
		})
	}
}

// SearchHandler serves GET /api/messages/search/{roomId}?q&limit with
// case-insensitive substring matches, newest first.
func SearchHandler(repo repository.MessageRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, ok := roomIDFrom(r)
		if !ok {
			http.Error(w, "Room ID is required", http.StatusBadRequest)
			return
		}

		term := strings.TrimSpace(r.URL.Query().Get("q"))
		if term == "" {
			http.Error(w, "Search term is required", http.StatusBadRequest)
			return
		}

		limit := parseLimit(r, 20, 50)

		ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
		defer cancel()

		messages, err := repo.Search(ctx, roomID, term, limit)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if messages == nil {
			messages = []*models.Message{}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"messages":   messages,
			"roomId":     roomID,
			"searchTerm": term,
			"count":      len(messages),
		})
	}
}

// StatsHandler serves GET /api/messages/stats/{roomId} with message counts
// and recently active senders.
func StatsHandler(repo repository.MessageRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, ok := roomIDFrom(r)
		if !ok {
			http.Error(w, "Room ID is required", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
		defer cancel()

		stats, err := repo.Stats(ctx, roomID)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"roomId":        roomID,
			"totalMessages": stats.TotalMessages,
			"messagesToday": stats.MessagesToday,
			"activeUsers":   stats.ActiveUsers,
		})
	}
}

type postMessageRequest struct {
	Text        string             `json:"text"`
	MessageType models.MessageType `json:"messageType"`
	ReplyTo     *uuid.UUID         `json:"replyTo"`
}

// PostMessageHandler serves POST /api/messages/{roomId}, the durability
// fallback alongside the live event path. The message is persisted but not
// broadcast; connected clients pick it up on their next history load.
func PostMessageHandler(repo repository.MessageRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, ok := roomIDFrom(r)
		if !ok {
			http.Error(w, "Room ID is required", http.StatusBadRequest)
			return
		}

		user, ok := middleware.UserFrom(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		var payload postMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
		defer cancel()

		msg, err := repo.Append(ctx, roomID, user, payload.Text, payload.MessageType, payload.ReplyTo)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{"message": msg})
	}
}

type editMessageRequest struct {
	Text string `json:"text"`
}

// EditMessageHandler serves PUT /api/messages/{messageId}.
func EditMessageHandler(repo repository.MessageRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messageID, err := uuid.Parse(r.PathValue("messageId"))
		if err != nil {
			http.Error(w, "Invalid message ID", http.StatusBadRequest)
			return
		}

		user, ok := middleware.UserFrom(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		var payload editMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
		defer cancel()

		msg, err := repo.Edit(ctx, messageID, payload.Text, user)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"message": msg})
	}
}

// DeleteMessageHandler serves DELETE /api/messages/{messageId} as a soft
// delete.
func DeleteMessageHandler(repo repository.MessageRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messageID, err := uuid.Parse(r.PathValue("messageId"))
		if err != nil {
			http.Error(w, "Invalid message ID", http.StatusBadRequest)
			return
		}

		user, ok := middleware.UserFrom(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
		defer cancel()

		if _, err := repo.SoftDelete(ctx, messageID, user); err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "messageId": messageID})
	}
}
