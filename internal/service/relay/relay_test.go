package relay

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

const ethFrame = `{"data":{"s":"ETHUSDT","c":"3500.12","E":1700000000000,"P":"1.2"}}`

func TestRelay_HandleFrame_SelectedAndDefaultClients(t *testing.T) {
	registry := NewRegistry("btcusdt")
	publisher := &fakePublisher{}
	r := NewRelay(NewRouter(registry), WithPublishers(publisher))

	selecting := newFakeSubscriber("selecting")
	defaulted := newFakeSubscriber("defaulted")
	registry.Register(selecting)
	registry.Register(defaulted)
	if err := registry.SetSymbol(selecting, "ethusdt"); err != nil {
		t.Fatalf("SetSymbol: %v", err)
	}

	if err := r.HandleFrame(context.Background(), []byte(ethFrame)); err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}
	btcFrame := `{"data":{"s":"BTCUSDT","c":"64000.01","E":1700000000500,"P":"-0.4"}}`
	if err := r.HandleFrame(context.Background(), []byte(btcFrame)); err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}

	wantEth := `{"symbol":"ethusdt","price":"3500.12","timestamp":1700000000000,"change24h":"1.2"}`
	if got := selecting.Received(); len(got) != 1 || got[0] != wantEth {
		t.Errorf("selecting client got %v, want [%s]", got, wantEth)
	}

	wantBtc := `{"symbol":"btcusdt","price":"64000.01","timestamp":1700000000500,"change24h":"-0.4"}`
	if got := defaulted.Received(); len(got) != 1 || got[0] != wantBtc {
		t.Errorf("default client got %v, want [%s]", got, wantBtc)
	}

	r.Close()
	if got := len(publisher.Updates()); got != 2 {
		t.Errorf("publisher saw %d updates, want 2", got)
	}
}

func TestRelay_HandleFrame_MissingDataDeliversNothing(t *testing.T) {
	registry := NewRegistry("btcusdt")
	publisher := &fakePublisher{}
	r := NewRelay(NewRouter(registry), WithPublishers(publisher))

	sub := newFakeSubscriber("c1")
	registry.Register(sub)

	err := r.HandleFrame(context.Background(), []byte(`{"stream":"btcusdt@ticker"}`))
	if !errors.Is(err, ErrMissingPayload) {
		t.Errorf("error = %v, want ErrMissingPayload", err)
	}
	if len(sub.Received()) != 0 {
		t.Errorf("subscriber received %v", sub.Received())
	}
	r.Close()
	if len(publisher.Updates()) != 0 {
		t.Errorf("publisher received %d updates", len(publisher.Updates()))
	}
}

func TestRelay_PublisherErrorDoesNotFailFrame(t *testing.T) {
	registry := NewRegistry("ethusdt")
	failing := &fakePublisher{err: errors.New("nats down")}
	healthy := &fakePublisher{}
	r := NewRelay(NewRouter(registry), WithPublishers(failing, healthy))

	sub := newFakeSubscriber("c1")
	registry.Register(sub)

	if err := r.HandleFrame(context.Background(), []byte(ethFrame)); err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}
	if len(sub.Received()) != 1 {
		t.Errorf("subscriber got %d messages, want 1", len(sub.Received()))
	}
	r.Close()
	if len(failing.Updates()) != 1 {
		t.Errorf("failing publisher got %d updates, want 1", len(failing.Updates()))
	}
	if len(healthy.Updates()) != 1 {
		t.Errorf("second publisher got %d updates, want 1", len(healthy.Updates()))
	}
}

func TestRelay_HangingPublisherDoesNotDelayDispatch(t *testing.T) {
	registry := NewRegistry("ethusdt")
	hanging := newBlockingPublisher()
	r := NewRelay(NewRouter(registry),
		WithPublishers(hanging, hanging),
		WithPublishTimeout(5*time.Second),
		WithPublishQueueSize(1),
	)
	defer func() {
		hanging.Release()
		r.Close()
	}()

	sub := newFakeSubscriber("c1")
	registry.Register(sub)

	started := time.Now()
	for i := 0; i < 5; i++ {
		frame := fmt.Sprintf(`{"data":{"s":"ETHUSDT","c":"35%02d.1","E":%d,"P":"1"}}`, i, i)
		if err := r.HandleFrame(context.Background(), []byte(frame)); err != nil {
			t.Fatalf("HandleFrame %d: %v", i, err)
		}
	}
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Errorf("5 frames took %s with a hanging publisher", elapsed)
	}

	if got := len(sub.Received()); got != 5 {
		t.Errorf("subscriber got %d updates, want 5", got)
	}
}

func TestRelay_CloseDrainsQueueAndIgnoresLaterFrames(t *testing.T) {
	registry := NewRegistry("ethusdt")
	publisher := &fakePublisher{}
	r := NewRelay(NewRouter(registry), WithPublishers(publisher))

	for i := 0; i < 3; i++ {
		if err := r.HandleFrame(context.Background(), []byte(ethFrame)); err != nil {
			t.Fatalf("HandleFrame: %v", err)
		}
	}
	r.Close()
	r.Close()

	if got := len(publisher.Updates()); got != 3 {
		t.Errorf("publisher got %d updates, want 3 drained on Close", got)
	}

	if err := r.HandleFrame(context.Background(), []byte(ethFrame)); err != nil {
		t.Fatalf("HandleFrame after Close: %v", err)
	}
	if got := len(publisher.Updates()); got != 3 {
		t.Errorf("publisher got %d updates after Close, want 3", got)
	}
}
