package entity

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestTickerUpdate_MessageKeepsRawNumbers(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  string
	}{
		{
			name:  "string prices",
			frame: `{"s":"ETHUSDT","c":"3500.12","E":1700000000000,"P":"1.2"}`,
			want:  `{"symbol":"ethusdt","price":"3500.12","timestamp":1700000000000,"change24h":"1.2"}`,
		},
		{
			name:  "numeric prices",
			frame: `{"s":"BTCUSDT","c":64000.5,"E":1700000000001,"P":-0.25}`,
			want:  `{"symbol":"btcusdt","price":64000.5,"timestamp":1700000000001,"change24h":-0.25}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ticker UpstreamTicker
			if err := json.Unmarshal([]byte(tt.frame), &ticker); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			update := TickerUpdate{
				Symbol:    ticker.Symbol,
				Price:     ticker.LastPrice,
				EventTime: ticker.EventTime,
				Change24h: ticker.PercentChange,
			}

			got, err := json.Marshal(update.Message())
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("message = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNumber_Decimal(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: `"3500.12"`, want: "3500.12"},
		{raw: `42`, want: "42"},
		{raw: `"-1.5"`, want: "-1.5"},
		{raw: `"abc"`, wantErr: true},
		{raw: `true`, wantErr: true},
		{raw: ``, wantErr: true},
	}

	for _, tt := range tests {
		got, err := Number(tt.raw).Decimal()
		if (err != nil) != tt.wantErr {
			t.Errorf("Number(%s).Decimal() error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got.String() != tt.want {
			t.Errorf("Number(%s).Decimal() = %s, want %s", tt.raw, got.String(), tt.want)
		}
	}
}
