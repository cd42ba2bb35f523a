package relay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/krobus00/price-relay/internal/entity"
)

var (
	ErrMalformedFrame = errors.New("malformed upstream frame")
	ErrMissingPayload = errors.New("upstream frame has no data payload")
)

// ParseFrame extracts a TickerUpdate from one combined-stream frame.
func ParseFrame(frame []byte) (entity.TickerUpdate, error) {
	var envelope entity.UpstreamEnvelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return entity.TickerUpdate{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	if envelope.Data == nil {
		return entity.TickerUpdate{}, ErrMissingPayload
	}

	data := envelope.Data
	symbol := strings.TrimSpace(data.Symbol)
	if symbol == "" {
		return entity.TickerUpdate{}, fmt.Errorf("%w: missing symbol", ErrMalformedFrame)
	}

	if _, err := data.LastPrice.Decimal(); err != nil {
		return entity.TickerUpdate{}, fmt.Errorf("%w: invalid price for %s: %v", ErrMalformedFrame, symbol, err)
	}

	if _, err := data.PercentChange.Decimal(); err != nil {
		return entity.TickerUpdate{}, fmt.Errorf("%w: invalid change for %s: %v", ErrMalformedFrame, symbol, err)
	}

	return entity.TickerUpdate{
		Symbol:    symbol,
		Price:     data.LastPrice,
		EventTime: data.EventTime,
		Change24h: data.PercentChange,
	}, nil
}
