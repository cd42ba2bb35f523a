package relay

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/krobus00/price-relay/internal/entity"
	"github.com/sirupsen/logrus"
)

// Router delivers one ticker update to every subscriber whose symbol matches.
type Router struct {
	registry *Registry
}

func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Dispatch scans all subscriptions once and returns how many subscribers
// accepted the update. Send failures stay with the failing subscriber.
func (r *Router) Dispatch(update entity.TickerUpdate) int {
	var payload []byte
	delivered := 0

	for _, sub := range r.registry.Snapshot() {
		if !strings.EqualFold(sub.Symbol, update.Symbol) {
			continue
		}

		if payload == nil {
			encoded, err := json.Marshal(update.Message())
			if err != nil {
				logrus.WithField("symbol", update.Symbol).Errorf("failed to encode ticker update: %v", err)
				return 0
			}
			payload = encoded
		}

		if err := deliver(sub.Subscriber, payload); err != nil {
			logrus.WithFields(logrus.Fields{
				"conn_id": sub.Subscriber.ID(),
				"symbol":  sub.Symbol,
			}).Debugf("ticker delivery failed: %v", err)
			continue
		}

		delivered++
	}

	return delivered
}

func deliver(sub Subscriber, payload []byte) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic during send: %v", recovered)
		}
	}()

	return sub.Send(payload)
}
