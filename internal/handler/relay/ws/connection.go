package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendQueueFull    = errors.New("send queue full")
)

// connection is one downstream browser client. It is Open until close runs,
// then Closed for good.
type connection struct {
	id           string
	conn         *websocket.Conn
	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	onClose      func(*connection)
	writeTimeout time.Duration
}

func newConnection(id string, conn *websocket.Conn, sendBufferSize int, writeTimeout time.Duration, onClose func(*connection)) *connection {
	return &connection{
		id:           id,
		conn:         conn,
		send:         make(chan []byte, sendBufferSize),
		done:         make(chan struct{}),
		onClose:      onClose,
		writeTimeout: writeTimeout,
	}
}

func (c *connection) ID() string { return c.id }

// Send queues payload for the write pump without blocking the caller.
func (c *connection) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// close tears the connection down once, whoever calls it first.
func (c *connection) close(reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.onClose != nil {
			c.onClose(c)
		}

		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = c.conn.Close()

		logrus.WithFields(logrus.Fields{
			"conn_id": c.id,
			"reason":  reason,
		}).Info("client disconnected")
	})
}

func (c *connection) writePump() {
	for {
		select {
		case payload := <-c.send:
			if c.writeTimeout > 0 {
				_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.close("write failed: " + err.Error())
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *connection) readPump(onMessage func(*connection, []byte)) {
	reason := "closed by client"
	defer func() {
		c.close(reason)
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				reason = "read failed: " + err.Error()
			}
			return
		}

		if messageType != websocket.TextMessage {
			logrus.WithField("conn_id", c.id).Debug("ignoring non-text client message")
			continue
		}

		onMessage(c, data)
	}
}
