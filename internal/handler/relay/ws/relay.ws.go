package ws

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/krobus00/price-relay/internal/constant"
	"github.com/krobus00/price-relay/internal/entity"
	"github.com/krobus00/price-relay/internal/service/relay"
	"github.com/sirupsen/logrus"
)

const (
	defaultSendBufferSize = 64
	defaultWriteTimeout   = 5 * time.Second
)

type Config struct {
	SendBufferSize int
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// Handler accepts downstream clients and applies their symbol selections
// to the registry.
type Handler struct {
	registry *relay.Registry
	upgrader websocket.Upgrader
	cfg      Config
}

func NewRelayWSHandler(registry *relay.Registry, cfg Config) *Handler {
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaultSendBufferSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	h := &Handler{
		registry: registry,
		cfg:      cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

func (h *Handler) Register(mux *http.ServeMux, path string) {
	mux.Handle(path, h)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithField("remote_addr", r.RemoteAddr).Warnf("websocket upgrade failed: %v", err)
		return
	}

	c := newConnection(uuid.NewString(), conn, h.cfg.SendBufferSize, h.cfg.WriteTimeout, h.unregister)
	h.registry.Register(c)

	logrus.WithFields(logrus.Fields{
		"conn_id":     c.ID(),
		"remote_addr": r.RemoteAddr,
		"symbol":      h.registry.DefaultSymbol(),
	}).Info("client connected")

	go c.writePump()
	c.readPump(h.handleMessage)
}

// CloseAll disconnects every registered client.
func (h *Handler) CloseAll() {
	for _, sub := range h.registry.Snapshot() {
		if c, ok := sub.Subscriber.(*connection); ok {
			c.close("server shutdown")
		}
	}
}

func (h *Handler) unregister(c *connection) {
	h.registry.Unregister(c)
}

func (h *Handler) handleMessage(c *connection, data []byte) {
	logger := logrus.WithField("conn_id", c.ID())

	var req entity.ClientRequest
	if err := json.Unmarshal(data, &req); err != nil {
		logger.Warnf("ignoring malformed client message: %v", err)
		return
	}

	switch req.Action {
	case constant.ActionGetPrice:
		symbol := strings.TrimSpace(req.Symbol)
		if symbol == "" {
			logger.Warn("ignoring getPrice without symbol")
			return
		}

		if err := h.registry.SetSymbol(c, symbol); err != nil {
			if errors.Is(err, relay.ErrNotFound) {
				logger.Debug("ignoring symbol selection from unregistered client")
				return
			}
			logger.Error(err)
			return
		}

		logger.WithField("symbol", strings.ToLower(symbol)).Info("client selected symbol")
	default:
		logger.WithField("action", req.Action).Warn("ignoring unknown client action")
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}

	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}

	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}

	return false
}
