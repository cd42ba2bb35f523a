package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/krobus00/price-relay/internal/entity"
	"github.com/segmentio/kafka-go"
)

type fakeKafkaWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeKafkaWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaTickerPublisher_PublishTicker(t *testing.T) {
	writer := &fakeKafkaWriter{}
	pub := NewKafkaTickerPublisher(writer, "relay-1")

	err := pub.PublishTicker(context.Background(), entity.TickerUpdate{
		Symbol:    "BTCUSDT",
		Price:     entity.Number(`64000.5`),
		EventTime: 1700000000000,
		Change24h: entity.NumberFromString("-1.25"),
	})
	if err != nil {
		t.Fatalf("PublishTicker: %v", err)
	}

	if len(writer.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "btcusdt" {
		t.Errorf("key = %q, want btcusdt", msg.Key)
	}
	want := `{"relay":"relay-1","data":{"symbol":"btcusdt","price":64000.5,"timestamp":1700000000000,"change24h":"-1.25"}}`
	if string(msg.Value) != want {
		t.Errorf("value = %s, want %s", msg.Value, want)
	}

	if err := pub.Close(); err != nil || !writer.closed {
		t.Errorf("Close: err=%v closed=%v", err, writer.closed)
	}
}

func TestKafkaTickerPublisher_WriteError(t *testing.T) {
	writer := &fakeKafkaWriter{err: errors.New("broker unavailable")}

	err := NewKafkaTickerPublisher(writer, "relay-1").PublishTicker(context.Background(), entity.TickerUpdate{
		Symbol: "btcusdt",
		Price:  entity.NumberFromString("1"),
	})
	if err == nil {
		t.Error("expected write error")
	}
}
