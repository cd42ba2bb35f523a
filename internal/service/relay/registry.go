package relay

import (
	"errors"
	"strings"
	"sync"
)

var ErrNotFound = errors.New("subscriber not registered")

// Subscriber is one live downstream connection.
type Subscriber interface {
	ID() string
	Send(payload []byte) error
}

type Subscription struct {
	Subscriber Subscriber
	Symbol     string
}

// Registry maps every live downstream connection to the one symbol it
// currently follows.
type Registry struct {
	mu            sync.RWMutex
	defaultSymbol string
	entries       map[string]*Subscription
}

func NewRegistry(defaultSymbol string) *Registry {
	return &Registry{
		defaultSymbol: normalizeSymbol(defaultSymbol),
		entries:       make(map[string]*Subscription),
	}
}

func (r *Registry) DefaultSymbol() string {
	return r.defaultSymbol
}

// Register adds sub with the default symbol. Registering the same id again
// keeps the existing selection.
func (r *Registry) Register(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[sub.ID()]; ok {
		return
	}

	r.entries[sub.ID()] = &Subscription{Subscriber: sub, Symbol: r.defaultSymbol}
}

func (r *Registry) SetSymbol(sub Subscriber, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[sub.ID()]
	if !ok {
		return ErrNotFound
	}

	entry.Symbol = normalizeSymbol(symbol)
	return nil
}

// Unregister reports whether an entry was removed.
func (r *Registry) Unregister(sub Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[sub.ID()]; !ok {
		return false
	}

	delete(r.entries, sub.ID())
	return true
}

func (r *Registry) SymbolOf(sub Subscriber) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[sub.ID()]
	if !ok {
		return "", ErrNotFound
	}

	return entry.Symbol, nil
}

// Snapshot copies the current subscriptions so callers can iterate without
// holding the lock.
func (r *Registry) Snapshot() []Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]Subscription, 0, len(r.entries))
	for _, entry := range r.entries {
		subs = append(subs, *entry)
	}

	return subs
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

func normalizeSymbol(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}
