package feed

import (
	"errors"
	"testing"
)

func TestBuildStreamURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		symbols []string
		suffix  string
		want    string
		wantErr error
	}{
		{
			name:    "lowercases and joins",
			base:    "wss://stream.binance.com:9443/stream",
			symbols: []string{"BTCUSDT", "EthUsdt"},
			suffix:  "@ticker",
			want:    "wss://stream.binance.com:9443/stream?streams=btcusdt@ticker/ethusdt@ticker",
		},
		{
			name:    "drops duplicates and blanks",
			base:    "wss://feed.test/stream",
			symbols: []string{"btcusdt", " ", "BTCUSDT", "solusdt"},
			want:    "wss://feed.test/stream?streams=btcusdt@ticker/solusdt@ticker",
		},
		{
			name:    "keeps other query params",
			base:    "wss://feed.test/stream?timeUnit=MILLISECOND",
			symbols: []string{"btcusdt"},
			suffix:  "@miniTicker",
			want:    "wss://feed.test/stream?timeUnit=MILLISECOND&streams=btcusdt@miniTicker",
		},
		{
			name:    "no symbols",
			base:    "wss://feed.test/stream",
			symbols: nil,
			wantErr: ErrNoSymbols,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildStreamURL(tt.base, tt.symbols, tt.suffix)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("url = %s, want %s", got, tt.want)
			}
		})
	}
}
