package symbol

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/krobus00/price-relay/internal/config"
	"github.com/krobus00/price-relay/internal/entity"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoSymbols          = errors.New("no supported symbols configured")
	ErrDefaultUnsupported = errors.New("default symbol is not a supported symbol")
	ErrRepositoryRequired = errors.New("relay symbol repository is required for database source")
)

type RelaySymbolRepository interface {
	GetActive(ctx context.Context) ([]entity.RelaySymbol, error)
}

// SymbolSet is the fixed set of symbols the relay subscribes to upstream.
type SymbolSet struct {
	Symbols       []string
	DefaultSymbol string
}

func (s SymbolSet) Contains(symbol string) bool {
	symbol = normalize(symbol)
	for _, v := range s.Symbols {
		if v == symbol {
			return true
		}
	}
	return false
}

type SymbolService struct {
	cfg  config.RelayConfig
	repo RelaySymbolRepository
}

// NewSymbolService resolves symbols from cfg. repo is only read when the
// symbol source is database and may be nil otherwise.
func NewSymbolService(cfg config.RelayConfig, repo RelaySymbolRepository) *SymbolService {
	return &SymbolService{cfg: cfg, repo: repo}
}

func (s *SymbolService) Resolve(ctx context.Context) (SymbolSet, error) {
	var (
		symbols   []string
		dbDefault string
	)

	switch s.cfg.SymbolSource {
	case config.SymbolSourceDatabase:
		if s.repo == nil {
			return SymbolSet{}, ErrRepositoryRequired
		}

		rows, err := s.repo.GetActive(ctx)
		if err != nil {
			return SymbolSet{}, fmt.Errorf("load relay symbols: %w", err)
		}
		for _, row := range rows {
			symbols = append(symbols, row.Symbol)
			if row.IsDefault && dbDefault == "" {
				dbDefault = normalize(row.Symbol)
			}
		}
	default:
		symbols = s.cfg.Symbols
	}

	set := SymbolSet{Symbols: dedupe(symbols)}
	if len(set.Symbols) == 0 {
		return SymbolSet{}, ErrNoSymbols
	}

	set.DefaultSymbol = normalize(s.cfg.DefaultSymbol)
	if set.DefaultSymbol == "" {
		set.DefaultSymbol = dbDefault
	}
	if set.DefaultSymbol == "" {
		set.DefaultSymbol = set.Symbols[0]
	}
	if !set.Contains(set.DefaultSymbol) {
		return SymbolSet{}, fmt.Errorf("%w: %s", ErrDefaultUnsupported, set.DefaultSymbol)
	}

	logrus.WithFields(logrus.Fields{
		"source":         s.cfg.SymbolSource,
		"symbols":        strings.Join(set.Symbols, ","),
		"default_symbol": set.DefaultSymbol,
	}).Info("relay symbols resolved")

	return set, nil
}

func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, v := range symbols {
		v = normalize(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func normalize(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}
