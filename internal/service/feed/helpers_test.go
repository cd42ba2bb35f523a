package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var errUpstreamDown = errors.New("upstream unavailable")

type fakeTimer struct {
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (t *fakeTimer) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type scheduled struct {
	delay time.Duration
	fire  func()
	timer *fakeTimer
}

// fakeScheduler records reconnect timers instead of waiting for them.
type fakeScheduler struct {
	mu      sync.Mutex
	pending []scheduled
	delays  []time.Duration
}

func (s *fakeScheduler) Schedule(d time.Duration, f func()) timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &fakeTimer{}
	s.pending = append(s.pending, scheduled{delay: d, fire: f, timer: t})
	s.delays = append(s.delays, d)
	return t
}

func (s *fakeScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *fakeScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// takeOnly asserts exactly one timer is pending and removes it.
func (s *fakeScheduler) takeOnly(t *testing.T) scheduled {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) != 1 {
		t.Fatalf("pending reconnect timers = %d, want 1", len(s.pending))
	}
	next := s.pending[0]
	s.pending = s.pending[:0]
	return next
}

type fakeConn struct {
	frames    chan []byte
	failures  chan error
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	pingErr error
	pings   int
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames:   make(chan []byte, 16),
		failures: make(chan error, 1),
		closed:   make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case frame := <-c.frames:
		return websocket.TextMessage, frame, nil
	case err := <-c.failures:
		return 0, nil, err
	case <-c.closed:
		return 0, nil, errors.New("use of closed network connection")
	}
}

func (c *fakeConn) WriteControl(messageType int, _ []byte, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if messageType == websocket.PingMessage {
		c.pings++
		return c.pingErr
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) Fail(err error) {
	c.failures <- err
}

func (c *fakeConn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// fakeDialer fails the first `failures` attempts and then hands out fresh
// fake connections.
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	attempts int
	conns    []*fakeConn
	newConn  func() *fakeConn
}

func (d *fakeDialer) Dial(_ context.Context, _ string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.attempts++
	if d.attempts <= d.failures {
		return nil, errUpstreamDown
	}

	conn := newFakeConn()
	if d.newConn != nil {
		conn = d.newConn()
	}
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) Attempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

func (d *fakeDialer) Last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func noopHandler(context.Context, []byte) error { return nil }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func (c *Client) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}
