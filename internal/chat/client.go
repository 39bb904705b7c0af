package chat

import (
	"log"
	"sync"
	"time"

	"chathub/internal/middleware"
	"chathub/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 10 * time.Second

	// Inbound frames carry at most 1000 characters of text. A character can
	// cost up to 6 bytes after JSON escaping, plus the envelope on top.
	maxFrameSize = 8192
)

// Client owns one websocket transport: the outbound queue, the write pump,
// and the read loop. It implements Subscriber for the broadcaster; Enqueue
// never blocks.
type Client struct {
	id      string
	user    *models.User
	conn    *websocket.Conn
	send    chan []byte
	limiter *middleware.RateLimiter

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(id string, user *models.User, conn *websocket.Conn, queueSize int, limiter *middleware.RateLimiter) *Client {
	return &Client{
		id:      id,
		user:    user,
		conn:    conn,
		send:    make(chan []byte, queueSize),
		limiter: limiter,
		done:    make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) User() *models.User { return c.user }

// Enqueue hands a payload to the write pump without blocking. Returns false
// when the queue is full or the client is closed; the caller drops the
// event rather than stalling the room.
func (c *Client) Enqueue(payload []byte) bool {
	if payload == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close signals the pumps to stop and tears down the transport. Safe to
// call from any goroutine, any number of times.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// WritePump drains the outbound queue onto the transport, batching whatever
// is already queued into a single frame, and keeps the connection alive
// with pings. Runs in its own goroutine; exits on write failure or Close.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump reads frames off the transport and feeds them to handle until
// the connection dies. Over-limit senders get an error event instead of
// having their frame processed.
func (c *Client) ReadPump(handle func(raw []byte)) {
	defer c.Close()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[CLIENT] Unexpected close for %s: %v", c.user.Username, err)
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			c.Enqueue(encodeError("Rate limit exceeded, slow down"))
			continue
		}

		handle(raw)
	}
}
