package entity

import (
	"bytes"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyNumber   = errors.New("empty number")
	ErrInvalidNumber = errors.New("number must be a json string or number")
)

// Number keeps a numeric field exactly as the upstream sent it, either as a
// quoted string ("3500.12") or a bare json number (3500.12).
type Number []byte

func NumberFromString(s string) Number {
	return Number(`"` + s + `"`)
}

func (n Number) MarshalJSON() ([]byte, error) {
	if len(n) == 0 {
		return []byte("null"), nil
	}
	return n, nil
}

func (n *Number) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*n = nil
		return nil
	}
	*n = append((*n)[:0], trimmed...)
	return nil
}

// Text returns the number without surrounding quotes.
func (n Number) Text() string {
	return strings.Trim(string(n), `"`)
}

func (n Number) IsZero() bool {
	return len(n) == 0
}

func (n Number) Decimal() (decimal.Decimal, error) {
	if n.IsZero() {
		return decimal.Zero, ErrEmptyNumber
	}
	if n[0] != '"' && n[0] != '-' && (n[0] < '0' || n[0] > '9') {
		return decimal.Zero, ErrInvalidNumber
	}
	return decimal.NewFromString(n.Text())
}

// UpstreamEnvelope is one frame of a combined ticker stream.
type UpstreamEnvelope struct {
	Stream string          `json:"stream"`
	Data   *UpstreamTicker `json:"data"`
}

type UpstreamTicker struct {
	Event         string `json:"e"`
	EventTime     int64  `json:"E"`
	Symbol        string `json:"s"`
	LastPrice     Number `json:"c"`
	PercentChange Number `json:"P"`
}

type TickerUpdate struct {
	Symbol    string
	Price     Number
	EventTime int64
	Change24h Number
}

// Message renders the update in the downstream wire format.
func (u TickerUpdate) Message() TickerMessage {
	return TickerMessage{
		Symbol:    strings.ToLower(u.Symbol),
		Price:     u.Price,
		Timestamp: u.EventTime,
		Change24h: u.Change24h,
	}
}

type TickerMessage struct {
	Symbol    string `json:"symbol"`
	Price     Number `json:"price"`
	Timestamp int64  `json:"timestamp"`
	Change24h Number `json:"change24h"`
}

type ClientRequest struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
}
