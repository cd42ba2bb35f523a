package publisher

import (
	"context"
	"errors"
	"time"

	"github.com/krobus00/price-relay/internal/constant"
	"github.com/krobus00/price-relay/internal/entity"
	"github.com/krobus00/price-relay/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const tickerStreamMaxAge = time.Hour

// JetstreamTickerPublisher mirrors relayed tickers to ticker.<symbol> for
// other services.
type JetstreamTickerPublisher struct {
	js     nats.JetStreamContext
	source string
}

func NewJetstreamTickerPublisher(js nats.JetStreamContext, source string) *JetstreamTickerPublisher {
	return &JetstreamTickerPublisher{js: js, source: source}
}

func (p *JetstreamTickerPublisher) JetstreamEventInit(ctx context.Context) error {
	streamConfig := &nats.StreamConfig{
		Name:      constant.TickerStreamName,
		Subjects:  []string{constant.TickerStreamSubjectAll},
		Retention: nats.LimitsPolicy,
		Storage:   nats.MemoryStorage,
		MaxAge:    tickerStreamMaxAge,
	}

	stream, err := p.js.StreamInfo(constant.TickerStreamName, nats.Context(ctx))
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		logrus.Error(err)
		return err
	}

	if stream == nil {
		logrus.Infof("creating stream: %s", constant.TickerStreamName)
		_, err = p.js.AddStream(streamConfig, nats.Context(ctx))
		return err
	}

	logrus.Infof("updating stream: %s", constant.TickerStreamName)
	_, err = p.js.UpdateStream(streamConfig, nats.Context(ctx))
	if err != nil {
		logrus.Error(err)
		return err
	}

	return nil
}

func (p *JetstreamTickerPublisher) PublishTicker(ctx context.Context, update entity.TickerUpdate) error {
	msg := update.Message()

	return util.PublishEvent(ctx, p.js, constant.GetTickerStreamSubject(msg.Symbol), entity.TickerEvent{
		Relay: p.source,
		Data:  msg,
	})
}
