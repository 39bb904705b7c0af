package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"chathub/internal/auth"
	"chathub/internal/chat"
	"chathub/internal/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	limiterBurst  = 5
	limiterRefill = 500 * time.Millisecond
)

// WSHandler performs the authentication handshake and hands the connection
// to a Session. All collaborators are injected once at process start.
type WSHandler struct {
	verifier         *auth.Verifier
	registry         *chat.Registry
	broadcast        *chat.Broadcaster
	store            chat.MessageStore
	presence         *chat.PresenceTracker
	typing           *chat.Typing
	historyLimit     int
	queueSize        int
	handshakeTimeout time.Duration
	upgrader         websocket.Upgrader
}

func NewWSHandler(verifier *auth.Verifier, registry *chat.Registry, broadcast *chat.Broadcaster, store chat.MessageStore, presence *chat.PresenceTracker, typing *chat.Typing, historyLimit, queueSize int, handshakeTimeout time.Duration) *WSHandler {
	return &WSHandler{
		verifier:         verifier,
		registry:         registry,
		broadcast:        broadcast,
		store:            store,
		presence:         presence,
		typing:           typing,
		historyLimit:     historyLimit,
		queueSize:        queueSize,
		handshakeTimeout: handshakeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  512,
			WriteBufferSize: 512,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS handles GET /ws. The credential is verified exactly once, within
// the handshake timeout, before the transport is upgraded; a connection
// that cannot authenticate never reaches the session loop.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.handshakeTimeout)
	defer cancel()

	user, err := h.verifier.Verify(ctx, middleware.BearerToken(r))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUnauthenticated):
			http.Error(w, "Access token required", http.StatusUnauthorized)
		case errors.Is(err, auth.ErrInvalidCredential):
			http.Error(w, "Invalid token", http.StatusUnauthorized)
		case errors.Is(err, auth.ErrAccountInactive):
			http.Error(w, "Account is deactivated", http.StatusUnauthorized)
		default:
			log.Printf("[WS] Handshake verification failed: %v", err)
			http.Error(w, "Authentication failed", http.StatusInternalServerError)
		}
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := chat.NewClient(
		uuid.NewString(),
		user,
		conn,
		h.queueSize,
		middleware.NewRateLimiter(limiterBurst, limiterRefill),
	)

	session := chat.NewSession(client, h.registry, h.broadcast, h.store, h.presence, h.typing, h.historyLimit)
	if err := session.Open(r.Context()); err != nil {
		log.Printf("[WS] Session open failed for %s: %v", user.Username, err)
		conn.Close()
		return
	}

	go session.Run()
}
