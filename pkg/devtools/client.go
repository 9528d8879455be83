package devtools

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// client is one connected inspector.
type client struct {
	id   string
	conn *websocket.Conn

	send chan Frame
	done chan struct{}

	closeOnce sync.Once
}

func (s *Server) addClient(conn *websocket.Conn) *client {
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Frame, s.cfg.SendBuffer),
		done: make(chan struct{}),
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return nil
	}
	s.clients[c.id] = c
	s.mu.Unlock()
	return c
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	c.close()
}

// enqueue offers a frame to the client. Reports false when the buffer is
// full, which the server treats as a slow client.
func (c *client) enqueue(f Frame) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writeLoop drains the send buffer and keeps the connection alive with
// pings.
func (c *client) writeLoop(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case f := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(f); err != nil {
				c.close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			return
		}
	}
}

// readLoop consumes inspector commands until the connection drops.
func (c *client) readLoop(s *Server) {
	defer s.removeClient(c)

	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				s.logger.Debug("devtools: read error", "client", c.id, "error", err)
			}
			return
		}
		s.apply(c, cmd)
	}
}
