// Package directory serves symbol searches against the fallback
// provider's coin directory, annotating results with the primary
// exchange pair when one exists.
package directory

import (
	"context"
	"log"

	"github.com/mgoncalves/portfolio-engine/internal/cache"
	"github.com/mgoncalves/portfolio-engine/internal/domain"
)

const defaultLimit = 20

// Service handles symbol directory lookups
type Service struct {
	Searcher domain.SymbolSearcher
	Lister   domain.SymbolLister
	Cache    *cache.Cache
}

// NewService creates a new directory Service instance
func NewService(searcher domain.SymbolSearcher, lister domain.SymbolLister, directoryCache *cache.Cache) *Service {
	return &Service{
		Searcher: searcher,
		Lister:   lister,
		Cache:    directoryCache,
	}
}

// Search returns up to limit matches for the query. Each match whose
// symbol trades against USDT on the primary exchange carries the pair
// symbol, so callers can submit holdings under the primary namespace.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]domain.SymbolMatch, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	matches, err := s.Searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(matches) > limit {
		matches = matches[:limit]
	}

	symbols := s.primarySymbols(ctx)

	for i := range matches {
		pair := matches[i].Symbol + "USDT"
		if symbols[pair] {
			matches[i].PrimarySymbol = pair
		}
	}

	return matches, nil
}

// primarySymbols returns the primary exchange's trading symbols, cached
// for the directory TTL. A listing failure only disables annotation.
func (s *Service) primarySymbols(ctx context.Context) map[string]bool {
	const key = "symbols:primary"

	if payload, ok := s.Cache.Get(key); ok {
		if symbols, ok := payload.(map[string]bool); ok {
			return symbols
		}
	}

	symbols, err := s.Lister.Symbols(ctx)
	if err != nil {
		log.Printf("directory: symbol listing unavailable: %v", err)
		return nil
	}

	s.Cache.Put(key, symbols, cache.SymbolDirectory)

	return symbols
}
