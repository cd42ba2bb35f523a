package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/krobus00/price-relay/internal/entity"
	"github.com/krobus00/price-relay/internal/service/relay"
	"github.com/sirupsen/logrus"
)

const tickersPathPrefix = "/v1/tickers/"

// UpstreamStatus reports the state of the upstream feed connection.
type UpstreamStatus interface {
	Status() string
	Connected() bool
}

type TickerReader interface {
	GetLatest(ctx context.Context, symbol string) (entity.TickerMessage, bool, error)
}

type StatusResponse struct {
	Upstream      string   `json:"upstream"`
	Clients       int      `json:"clients"`
	Symbols       []string `json:"symbols"`
	DefaultSymbol string   `json:"default_symbol"`
}

type Handler struct {
	registry *relay.Registry
	upstream UpstreamStatus
	symbols  []string
	tickers  TickerReader
}

// NewRelayHTTPHandler builds the status endpoints. tickers may be nil when the
// ticker cache is disabled.
func NewRelayHTTPHandler(registry *relay.Registry, upstream UpstreamStatus, symbols []string, tickers TickerReader) *Handler {
	return &Handler{
		registry: registry,
		upstream: upstream,
		symbols:  symbols,
		tickers:  tickers,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc("/readyz", h.Readyz)
	mux.HandleFunc("/v1/relay/status", h.Status)
	mux.HandleFunc(tickersPathPrefix, h.GetTicker)
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) Readyz(w http.ResponseWriter, _ *http.Request) {
	if !h.upstream.Connected() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream " + h.upstream.Status()))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Upstream:      h.upstream.Status(),
		Clients:       h.registry.Len(),
		Symbols:       h.symbols,
		DefaultSymbol: h.registry.DefaultSymbol(),
	})
}

func (h *Handler) GetTicker(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	symbol := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(r.URL.Path, tickersPathPrefix)))
	if symbol == "" || strings.Contains(symbol, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "symbol is required"})
		return
	}

	if h.tickers == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "ticker cache disabled"})
		return
	}

	ticker, found, err := h.tickers.GetLatest(r.Context(), symbol)
	if err != nil {
		logrus.WithField("symbol", symbol).Errorf("failed to read ticker cache: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "ticker not found"})
		return
	}

	writeJSON(w, http.StatusOK, ticker)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
