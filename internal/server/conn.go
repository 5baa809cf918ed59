package server

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendQueueSize  = 256
)

var (
	errConnClosed   = errors.New("connection closed")
	errSlowConsumer = errors.New("outbound queue full")
)

// conn wraps one websocket connection. All writes go through the outbound
// queue and a single write pump; the session's callbacks run on bus and
// router goroutines and never touch the socket directly.
type conn struct {
	log      *slog.Logger
	ws       *websocket.Conn
	outbound chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(ws *websocket.Conn, log *slog.Logger) *conn {
	return &conn{
		log:      log,
		ws:       ws,
		outbound: make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
	}
}

// Send queues a frame for reliable, in-order delivery. A full queue closes
// the connection: delivering execution reports out of order or with gaps is
// worse than losing the connection.
func (c *conn) Send(frame []byte) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	select {
	case c.outbound <- frame:
		return nil
	case <-c.done:
		return errConnClosed
	default:
		c.log.Warn("Outbound queue full, closing connection")
		c.Close()
		return errSlowConsumer
	}
}

// TrySend queues a frame best effort. The caller absorbs the drop.
func (c *conn) TrySend(frame []byte) bool {
	select {
	case c.outbound <- frame:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Close shuts the connection down once. Safe from any goroutine.
func (c *conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// writePump owns all socket writes: queued frames, pings, and the closing
// handshake. Runs in its own goroutine per connection.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.outbound:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
