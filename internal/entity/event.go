package entity

import "context"

type Publisher interface {
	JetstreamEventInit(ctx context.Context) error
}

// TickerPublisher receives every ticker update after it has been fanned out
// to downstream clients.
type TickerPublisher interface {
	PublishTicker(ctx context.Context, update TickerUpdate) error
}

type TickerEvent struct {
	Relay string        `json:"relay"`
	Data  TickerMessage `json:"data"`
}
