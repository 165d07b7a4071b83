package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// sendQueueSize is how many broadcast frames a client may lag behind before it is dropped.
const sendQueueSize = 32

// client is one dashboard connection. gorilla allows a single concurrent writer, hence writeMu.
// Broadcast frames go through send and are written by the client's own pump goroutine.
type client struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex

	send     chan []byte
	done     chan struct{}
	stopOnce sync.Once
}

func newClient(id string, conn *websocket.Conn) *client {
	return &client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

// enqueue hands payload to the pump without blocking. It reports false when the
// queue is full or the client is gone.
func (c *client) enqueue(payload []byte) bool {
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

// pump writes queued frames until the client stops or a write fails.
func (c *client) pump(onFail func(error)) {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			if err := c.write(websocket.TextMessage, payload); err != nil {
				onFail(err)
				return
			}
		}
	}
}

// stop ends the pump and closes the socket. Safe to call more than once.
func (c *client) stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// write sets a short write deadline and writes a message.
func (c *client) write(mt int, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(mt, payload)
}

func (c *client) writeJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, payload)
}

func (c *client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
}

// close sends a close control frame with the given code and reason, then stops the client.
func (c *client) close(code int, reason string) {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(wsCloseAckWindow),
	)
	c.writeMu.Unlock()
	c.stop()
}
