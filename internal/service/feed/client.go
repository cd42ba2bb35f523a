package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	defaultReconnectDelay   = 5 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	controlWriteTimeout     = 5 * time.Second
)

var ErrStopped = errors.New("feed client stopped")

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateStopped      State = "stopped"
)

// Conn is the subset of *websocket.Conn used by the client.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

type DialFunc func(ctx context.Context, url string) (Conn, error)

type FrameHandler func(ctx context.Context, frame []byte) error

type timer interface {
	Stop() bool
}

type scheduleFunc func(d time.Duration, f func()) timer

type Config struct {
	URL              string
	ReconnectDelay   time.Duration
	PingInterval     time.Duration
	HandshakeTimeout time.Duration
}

// Client keeps exactly one upstream connection alive. Any close or error
// tears the connection down and schedules a single reconnect after the
// fixed ReconnectDelay, forever.
type Client struct {
	cfg           Config
	handler       FrameHandler
	dial          DialFunc
	schedule      scheduleFunc
	onStateChange func(State)

	mu             sync.Mutex
	ctx            context.Context
	state          State
	conn           Conn
	connDone       chan struct{}
	generation     uint64
	reconnectTimer timer
	failures       int
}

type Option func(*Client)

func WithDialFunc(dial DialFunc) Option {
	return func(c *Client) {
		c.dial = dial
	}
}

func WithStateObserver(observer func(State)) Option {
	return func(c *Client) {
		c.onStateChange = observer
	}
}

func withScheduler(schedule scheduleFunc) Option {
	return func(c *Client) {
		c.schedule = schedule
	}
}

func NewClient(cfg Config, handler FrameHandler, opts ...Option) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}

	c := &Client{
		cfg:     cfg,
		handler: handler,
		state:   StateDisconnected,
		schedule: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
	c.dial = websocketDialer(cfg.HandshakeTimeout)

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func websocketDialer(handshakeTimeout time.Duration) DialFunc {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}

	return func(ctx context.Context, url string) (Conn, error) {
		conn, _, err := dialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// Run connects and blocks until ctx is done, then stops the client.
func (c *Client) Run(ctx context.Context) error {
	if err := c.start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	c.Stop()

	return nil
}

func (c *Client) start(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		return ErrStopped
	}
	c.ctx = ctx
	gen := c.beginAttemptLocked()
	c.mu.Unlock()

	c.notify(StateConnecting)
	c.connect(ctx, gen)

	return nil
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Client) Status() string {
	return string(c.State())
}

func (c *Client) Connected() bool {
	return c.State() == StateConnected
}

// Stop closes the live connection and cancels a pending reconnect. The
// client cannot be restarted.
func (c *Client) Stop() {
	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		return
	}

	c.state = StateStopped
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.conn != nil {
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = c.conn.Close()
		c.conn = nil
	}
	c.closeConnDoneLocked()
	c.mu.Unlock()

	c.notify(StateStopped)
	logrus.WithField("url", c.cfg.URL).Info("upstream feed stopped")
}

// beginAttemptLocked starts a new connection generation. Events carrying an
// older generation are ignored.
func (c *Client) beginAttemptLocked() uint64 {
	c.generation++
	c.state = StateConnecting
	return c.generation
}

func (c *Client) connect(ctx context.Context, gen uint64) {
	logrus.WithField("url", c.cfg.URL).Info("connecting to upstream feed")

	conn, err := c.dial(ctx, c.cfg.URL)
	if err != nil {
		c.handleDisconnect(gen, fmt.Errorf("dial upstream: %w", err))
		return
	}

	c.mu.Lock()
	if c.state == StateStopped || gen != c.generation {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.connDone = make(chan struct{})
	done := c.connDone
	c.failures = 0
	c.state = StateConnected
	c.mu.Unlock()

	c.notify(StateConnected)
	logrus.WithField("url", c.cfg.URL).Info("upstream feed connected")

	go c.readLoop(ctx, gen, conn)
	if c.cfg.PingInterval > 0 {
		go c.heartbeat(gen, conn, done)
	}
}

func (c *Client) readLoop(ctx context.Context, gen uint64, conn Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(gen, fmt.Errorf("read upstream: %w", err))
			return
		}

		if err := c.handler(ctx, frame); err != nil {
			logrus.Warnf("dropping upstream frame: %v", err)
		}
	}
}

func (c *Client) heartbeat(gen uint64, conn Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(controlWriteTimeout))
			if err != nil {
				c.handleDisconnect(gen, fmt.Errorf("ping upstream: %w", err))
				return
			}
		case <-done:
			return
		}
	}
}

// handleDisconnect is the single entry point for close and error events.
// Only the first event of the current generation schedules a reconnect.
func (c *Client) handleDisconnect(gen uint64, cause error) {
	c.mu.Lock()
	if c.state == StateStopped || gen != c.generation || c.reconnectTimer != nil {
		c.mu.Unlock()
		return
	}

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.closeConnDoneLocked()
	c.failures++
	failures := c.failures
	c.state = StateDisconnected
	c.reconnectTimer = c.schedule(c.cfg.ReconnectDelay, c.reconnect)
	c.mu.Unlock()

	c.notify(StateDisconnected)
	logrus.WithFields(logrus.Fields{
		"url":      c.cfg.URL,
		"retry_in": c.cfg.ReconnectDelay.String(),
		"attempt":  failures,
	}).Warnf("upstream feed disconnected: %v", cause)
}

func (c *Client) reconnect() {
	c.mu.Lock()
	c.reconnectTimer = nil
	if c.state == StateStopped {
		c.mu.Unlock()
		return
	}
	ctx := c.ctx
	if ctx.Err() != nil {
		c.mu.Unlock()
		c.Stop()
		return
	}
	gen := c.beginAttemptLocked()
	c.mu.Unlock()

	c.notify(StateConnecting)
	c.connect(ctx, gen)
}

func (c *Client) closeConnDoneLocked() {
	if c.connDone != nil {
		close(c.connDone)
		c.connDone = nil
	}
}

func (c *Client) notify(state State) {
	if c.onStateChange != nil {
		c.onStateChange(state)
	}
}
