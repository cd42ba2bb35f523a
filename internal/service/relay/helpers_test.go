package relay

import (
	"context"
	"errors"
	"sync"

	"github.com/krobus00/price-relay/internal/entity"
)

var errSendFailed = errors.New("send failed")

type fakeSubscriber struct {
	id       string
	mu       sync.Mutex
	received []string
	failWith error
	panics   bool
}

func newFakeSubscriber(id string) *fakeSubscriber {
	return &fakeSubscriber{id: id}
}

func (f *fakeSubscriber) ID() string { return f.id }

func (f *fakeSubscriber) Send(payload []byte) error {
	if f.panics {
		panic("socket gone")
	}
	if f.failWith != nil {
		return f.failWith
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, string(payload))
	return nil
}

func (f *fakeSubscriber) Received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

type fakePublisher struct {
	mu      sync.Mutex
	updates []entity.TickerUpdate
	err     error
}

func (f *fakePublisher) PublishTicker(_ context.Context, update entity.TickerUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update)
	return f.err
}

func (f *fakePublisher) Updates() []entity.TickerUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.TickerUpdate(nil), f.updates...)
}

// blockingPublisher holds every publish until its context expires or
// Release is called.
type blockingPublisher struct {
	release   chan struct{}
	closeOnce sync.Once
}

func newBlockingPublisher() *blockingPublisher {
	return &blockingPublisher{release: make(chan struct{})}
}

func (b *blockingPublisher) PublishTicker(ctx context.Context, _ entity.TickerUpdate) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.release:
		return nil
	}
}

func (b *blockingPublisher) Release() {
	b.closeOnce.Do(func() { close(b.release) })
}
