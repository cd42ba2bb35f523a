package publisher

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/krobus00/price-relay/internal/entity"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaTickerPublisher mirrors relayed tickers to a kafka topic keyed by
// symbol, so one partition sees a symbol's updates in order.
type KafkaTickerPublisher struct {
	writer KafkaWriter
	source string
}

func NewKafkaTickerPublisher(writer KafkaWriter, source string) *KafkaTickerPublisher {
	return &KafkaTickerPublisher{writer: writer, source: source}
}

// NewKafkaWriter builds an async writer; delivery errors are only logged.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"topic":    topic,
					"messages": len(messages),
				}).Warnf("kafka ticker delivery failed: %v", err)
			}
		},
	}
}

func (p *KafkaTickerPublisher) PublishTicker(ctx context.Context, update entity.TickerUpdate) error {
	msg := update.Message()

	payload, err := json.Marshal(entity.TickerEvent{
		Relay: p.source,
		Data:  msg,
	})
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Symbol),
		Value: payload,
	})
}

func (p *KafkaTickerPublisher) Close() error {
	return p.writer.Close()
}
