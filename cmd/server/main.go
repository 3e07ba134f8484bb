package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mgoncalves/portfolio-engine/internal/adapter/httpapi"
	"github.com/mgoncalves/portfolio-engine/internal/adapter/provider"
	"github.com/mgoncalves/portfolio-engine/internal/cache"
	"github.com/mgoncalves/portfolio-engine/internal/config"
	"github.com/mgoncalves/portfolio-engine/internal/metrics"
	"github.com/mgoncalves/portfolio-engine/internal/usecase/directory"
	"github.com/mgoncalves/portfolio-engine/internal/usecase/history"
	"github.com/mgoncalves/portfolio-engine/internal/usecase/resolver"
	"github.com/mgoncalves/portfolio-engine/internal/usecase/valuation"
)

func main() {
	// 1. Configuration and metrics
	cfg := config.Load()
	metrics.Register()

	// Monetary fields serialize as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true

	// 2. Shared TTL cache, swept in the background so expired entries
	// do not accumulate between lookups
	priceCache := cache.New(cache.TTLs{
		cache.CurrentPrice:     cfg.CurrentPriceTTL,
		cache.HistoricalSeries: cfg.HistoricalSeriesTTL,
		cache.SymbolDirectory:  cfg.SymbolDirectoryTTL,
	})

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	priceCache.StartSweeper(sweepCtx, cfg.CacheSweepInterval)

	// 3. Provider adapters, each behind its own rate-limited fetcher so
	// the fallback's stricter throttle never delays the primary
	retry := provider.RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
	}

	binance := provider.NewBinance(cfg.BinanceBaseURL,
		provider.NewFetcher("binance", cfg.BinanceMinInterval, retry, nil))
	coingecko := provider.NewCoinGecko(cfg.CoinGeckoBaseURL,
		provider.NewFetcher("coingecko", cfg.CoinGeckoMinInterval, retry, nil))

	// 4. Initialize Services (Use Cases)
	resolverService := resolver.NewService(binance, coingecko, priceCache)
	valuationService := valuation.NewService(resolverService, cfg.MaxConcurrentResolves)
	historyService := history.NewService(resolverService, cfg.MaxConcurrentResolves)
	directoryService := directory.NewService(coingecko, binance, priceCache)

	// 5. Start HTTP Server
	apiServer := httpapi.NewServer(
		resolverService,
		valuationService,
		historyService,
		directoryService,
		cfg.RequestTimeout,
	)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("HTTP server listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP server: %v", err)
		}
	}()

	// Graceful shutdown
	waitForShutdown(httpServer, stopSweeper)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(httpServer *http.Server, stopSweeper context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal: %v. Shutting down gracefully...", sig)

	stopSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}

	log.Println("HTTP server stopped")
}
