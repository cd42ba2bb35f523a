package feed

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrNoSymbols = errors.New("no symbols configured for upstream stream")

const defaultStreamSuffix = "@ticker"

// BuildStreamURL encodes every symbol into a combined-stream url, e.g.
// wss://host/stream?streams=btcusdt@ticker/ethusdt@ticker.
func BuildStreamURL(baseURL string, symbols []string, suffix string) (string, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("invalid upstream url: %w", err)
	}

	if suffix == "" {
		suffix = defaultStreamSuffix
	}

	seen := make(map[string]bool, len(symbols))
	streams := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		normalized := strings.ToLower(strings.TrimSpace(symbol))
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		streams = append(streams, normalized+suffix)
	}

	if len(streams) == 0 {
		return "", ErrNoSymbols
	}

	// The stream list is left unescaped: upstreams expect the literal '@'
	// and '/' separators.
	query := base.Query()
	query.Del("streams")
	encoded := query.Encode()
	if encoded != "" {
		encoded += "&"
	}
	base.RawQuery = encoded + "streams=" + strings.Join(streams, "/")

	return base.String(), nil
}
