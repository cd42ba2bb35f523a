package relay

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name       string
		frame      string
		wantSymbol string
		wantPrice  string
		wantErr    error
	}{
		{
			name:       "combined stream ticker",
			frame:      `{"stream":"ethusdt@ticker","data":{"e":"24hrTicker","s":"ETHUSDT","c":"3500.12","E":1700000000000,"P":"1.2"}}`,
			wantSymbol: "ETHUSDT",
			wantPrice:  "3500.12",
		},
		{
			name:       "numeric price",
			frame:      `{"data":{"s":"BTCUSDT","c":64000,"E":1,"P":0.5}}`,
			wantSymbol: "BTCUSDT",
			wantPrice:  "64000",
		},
		{name: "no data key", frame: `{"result":null,"id":1}`, wantErr: ErrMissingPayload},
		{name: "null data", frame: `{"data":null}`, wantErr: ErrMissingPayload},
		{name: "invalid json", frame: `{"data":`, wantErr: ErrMalformedFrame},
		{name: "not an object", frame: `"hello"`, wantErr: ErrMalformedFrame},
		{name: "missing symbol", frame: `{"data":{"c":"1","E":1,"P":"1"}}`, wantErr: ErrMalformedFrame},
		{name: "missing price", frame: `{"data":{"s":"BTCUSDT","E":1,"P":"1"}}`, wantErr: ErrMalformedFrame},
		{name: "garbage price", frame: `{"data":{"s":"BTCUSDT","c":"n/a","E":1,"P":"1"}}`, wantErr: ErrMalformedFrame},
		{name: "missing change", frame: `{"data":{"s":"BTCUSDT","c":"1","E":1}}`, wantErr: ErrMalformedFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			update, err := ParseFrame([]byte(tt.frame))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if update.Symbol != tt.wantSymbol {
				t.Errorf("Symbol = %q, want %q", update.Symbol, tt.wantSymbol)
			}
			if update.Price.Text() != tt.wantPrice {
				t.Errorf("Price = %q, want %q", update.Price.Text(), tt.wantPrice)
			}
		})
	}
}

func TestParseFrame_NumericFieldsStayNumbers(t *testing.T) {
	update, err := ParseFrame([]byte(`{"data":{"s":"ETHUSDT","c":3500.12,"E":1700000000000,"P":-1.5}}`))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}

	payload, err := json.Marshal(update.Message())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"symbol":"ethusdt","price":3500.12,"timestamp":1700000000000,"change24h":-1.5}`
	if string(payload) != want {
		t.Errorf("payload = %s, want %s", payload, want)
	}
}
