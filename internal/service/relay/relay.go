package relay

import (
	"context"
	"sync"
	"time"

	"github.com/krobus00/price-relay/internal/entity"
	"github.com/sirupsen/logrus"
)

const (
	defaultPublishTimeout   = 2 * time.Second
	defaultPublishQueueSize = 256
)

// Relay turns raw upstream frames into routed ticker updates.
type Relay struct {
	router           *Router
	publishers       []entity.TickerPublisher
	publishTimeout   time.Duration
	publishQueueSize int

	mu      sync.RWMutex
	closed  bool
	workers []*publishWorker
}

type Option func(*Relay)

func WithPublishers(publishers ...entity.TickerPublisher) Option {
	return func(r *Relay) {
		r.publishers = append(r.publishers, publishers...)
	}
}

func WithPublishTimeout(timeout time.Duration) Option {
	return func(r *Relay) {
		if timeout > 0 {
			r.publishTimeout = timeout
		}
	}
}

func WithPublishQueueSize(size int) Option {
	return func(r *Relay) {
		if size > 0 {
			r.publishQueueSize = size
		}
	}
}

// NewRelay starts one queue worker per publisher. Close stops them.
func NewRelay(router *Router, opts ...Option) *Relay {
	r := &Relay{
		router:           router,
		publishTimeout:   defaultPublishTimeout,
		publishQueueSize: defaultPublishQueueSize,
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, publisher := range r.publishers {
		w := newPublishWorker(publisher, r.publishQueueSize, r.publishTimeout)
		r.workers = append(r.workers, w)
		go w.run()
	}

	return r
}

// HandleFrame is called once per upstream frame, in arrival order. The
// returned error is only ever a parse error; the frame is dropped.
// Publishers never block it: a full publisher queue drops the update.
func (r *Relay) HandleFrame(ctx context.Context, frame []byte) error {
	update, err := ParseFrame(frame)
	if err != nil {
		return err
	}

	r.router.Dispatch(update)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil
	}
	for _, w := range r.workers {
		w.enqueue(update)
	}

	return nil
}

// Close stops accepting updates and waits for queued ones to be published.
func (r *Relay) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, w := range r.workers {
		close(w.queue)
	}
	r.mu.Unlock()

	for _, w := range r.workers {
		<-w.done
	}
}

type publishWorker struct {
	publisher entity.TickerPublisher
	queue     chan entity.TickerUpdate
	done      chan struct{}
	timeout   time.Duration
}

func newPublishWorker(publisher entity.TickerPublisher, size int, timeout time.Duration) *publishWorker {
	return &publishWorker{
		publisher: publisher,
		queue:     make(chan entity.TickerUpdate, size),
		done:      make(chan struct{}),
		timeout:   timeout,
	}
}

func (w *publishWorker) enqueue(update entity.TickerUpdate) {
	select {
	case w.queue <- update:
	default:
		logrus.WithField("symbol", update.Symbol).Warn("ticker publish queue full, dropping update")
	}
}

func (w *publishWorker) run() {
	defer close(w.done)

	for update := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		err := w.publisher.PublishTicker(ctx, update)
		cancel()
		if err != nil {
			logrus.WithField("symbol", update.Symbol).Warnf("failed to publish ticker: %v", err)
		}
	}
}
