package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 256
)

// conn wraps one websocket connection with a buffered outbound channel, the
// same non-blocking-send shape most gorilla/websocket clients use.
type conn struct {
	ws   *websocket.Conn
	send chan []byte
	mu   sync.Mutex
}

func newConn(c *websocket.Conn) *conn {
	return &conn{ws: c, send: make(chan []byte, sendBuffer)}
}

// enqueue attempts a non-blocking send; a full buffer means a stalled
// client, and the message is dropped rather than blocking the caller.
func (c *conn) enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
	}
}

// writePump drains send until either ctx is cancelled (readLoop exiting on
// disconnect) or a write fails, so the goroutine always terminates instead
// of blocking forever on a channel nothing closes. On cancellation it still
// flushes whatever is already buffered in send (a reply enqueued just
// before teardown) before returning, rather than racing select's random
// branch choice against a pending write.
func (c *conn) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.drain()
			return
		case payload := <-c.send:
			if !c.write(payload) {
				return
			}
		}
	}
}

// drain flushes every payload already buffered in send, best-effort, without
// blocking for new ones.
func (c *conn) drain() {
	for {
		select {
		case payload := <-c.send:
			if !c.write(payload) {
				return
			}
		default:
			return
		}
	}
}

func (c *conn) write(payload []byte) (ok bool) {
	c.mu.Lock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.ws.WriteMessage(websocket.TextMessage, payload)
	c.mu.Unlock()
	return err == nil
}

func (c *conn) sendPing() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}

func (c *conn) close() {
	_ = c.ws.Close()
}
