package ws

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/racehub/internal/protocol"
	"github.com/vovakirdan/racehub/internal/race"
)

// connection is one websocket client. It implements race.SessionHandle so the
// coordinator can queue messages without touching the socket.
type connection struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	cfg    Config
	logger *log.Logger

	closeOnce sync.Once
}

func newConnection(conn *websocket.Conn, cfg Config, logger *log.Logger) *connection {
	return &connection{
		conn:   conn,
		send:   make(chan []byte, cfg.SendBuffer),
		done:   make(chan struct{}),
		cfg:    cfg,
		logger: logger,
	}
}

// Send encodes msg and queues it for the write pump. A client that cannot
// keep up is disconnected.
func (c *connection) Send(msg protocol.Outbound) error {
	select {
	case <-c.done:
		return race.ErrSessionClosed
	default:
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("send buffer full, dropping client", "type", msg.MessageType())
		c.close()
		return race.ErrSendBufferFull
	}
}

// close ends the connection. The send channel is left open so a concurrent
// Send never panics; the write pump exits on done instead.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *connection) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("ping failed", "error", err)
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// readPump decodes inbound frames and hands them to submit until the client
// goes away. Malformed frames are dropped without closing the connection.
func (c *connection) readPump(submit func(protocol.Inbound)) {
	defer c.close()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("read loop panic, closing connection", "panic", r)
		}
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Debug("unexpected close", "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))

		msg, err := protocol.Decode(payload)
		if err != nil {
			c.logger.Debug("discarding malformed message", "error", err)
			continue
		}
		submit(msg)
	}
}
