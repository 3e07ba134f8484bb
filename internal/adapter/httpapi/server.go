// Package httpapi exposes the engine's operations as a JSON HTTP API,
// consumed by the routing layer in front of this service.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/mgoncalves/portfolio-engine/internal/domain"
)

const (
	defaultHistoryDays = 7
	maxHistoryDays     = 365
	minSearchLength    = 2
)

// ValuationService computes a portfolio snapshot from holdings
type ValuationService interface {
	Valuate(ctx context.Context, holdings []domain.AssetHolding) *domain.PortfolioSnapshot
}

// HistoryService reconstructs a portfolio value curve from holdings
type HistoryService interface {
	History(ctx context.Context, holdings []domain.AssetHolding, days int) ([]domain.PortfolioHistoryPoint, error)
}

// DirectoryService searches the symbol directory
type DirectoryService interface {
	Search(ctx context.Context, query string, limit int) ([]domain.SymbolMatch, error)
}

// Server wires the engine's use cases to HTTP routes
type Server struct {
	router *mux.Router

	resolver  domain.PriceResolver
	valuation ValuationService
	history   HistoryService
	directory DirectoryService

	requestTimeout time.Duration
}

// NewServer creates the HTTP adapter. requestTimeout bounds each
// request's upstream work; unfinished assets are reported with a timeout
// error instead of blocking the response.
func NewServer(
	resolver domain.PriceResolver,
	valuationService ValuationService,
	historyService HistoryService,
	directoryService DirectoryService,
	requestTimeout time.Duration,
) *Server {
	s := &Server{
		router:         mux.NewRouter(),
		resolver:       resolver,
		valuation:      valuationService,
		history:        historyService,
		directory:      directoryService,
		requestTimeout: requestTimeout,
	}

	s.router.Use(requestLogger)
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/price/{identifier}", s.handlePrice).Methods("GET")
	s.router.HandleFunc("/portfolio/valuate", s.handleValuate).Methods("POST")
	s.router.HandleFunc("/portfolio/history", s.handleHistory).Methods("POST")
	s.router.HandleFunc("/search/{query}", s.handleSearch).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) requestContext(request *http.Request) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return request.Context(), func() {}
	}

	return context.WithTimeout(request.Context(), s.requestTimeout)
}

func (s *Server) handleIndex(writer http.ResponseWriter, request *http.Request) {
	respondJSON(writer, http.StatusOK, map[string]any{
		"message": "Crypto Portfolio Valuation Engine",
		"endpoints": map[string]string{
			"price":   "/price/{identifier} - Get live price for an asset",
			"valuate": "/portfolio/valuate - Calculate current portfolio value",
			"history": "/portfolio/history?days=N - Reconstruct portfolio value history",
			"search":  "/search/{query} - Search the symbol directory",
			"health":  "/health - Liveness check",
			"metrics": "/metrics - Prometheus metrics",
		},
	})
}

func (s *Server) handleHealth(writer http.ResponseWriter, request *http.Request) {
	respondJSON(writer, http.StatusOK, map[string]string{"status": "ok"})
}

type priceResponse struct {
	Identifier string          `json:"coin_id"`
	PriceUSD   decimal.Decimal `json:"price_usd"`
	Change24h  decimal.Decimal `json:"change_24h"`
	Volume24h  decimal.Decimal `json:"volume_24h"`
	MarketCap  decimal.Decimal `json:"market_cap"`
	Source     string          `json:"source"`
	Timestamp  time.Time       `json:"timestamp"`
}

func (s *Server) handlePrice(writer http.ResponseWriter, request *http.Request) {
	identifier := mux.Vars(request)["identifier"]

	ctx, cancel := s.requestContext(request)
	defer cancel()

	point, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		var unavailable *domain.PriceUnavailableError
		if errors.As(err, &unavailable) {
			respondError(writer, http.StatusBadGateway, unavailable.Error())
			return
		}

		respondInternalServerError(writer, err)
		return
	}

	respondJSON(writer, http.StatusOK, priceResponse{
		Identifier: identifier,
		PriceUSD:   point.Price.Round(6),
		Change24h:  point.Change24h.Round(2),
		Volume24h:  point.Volume24h,
		MarketCap:  point.MarketCap,
		Source:     string(point.Source),
		Timestamp:  point.Timestamp,
	})
}

// decodeHoldings parses and validates the request body: a JSON array of
// holdings.
func decodeHoldings(request *http.Request) ([]domain.AssetHolding, error) {
	var holdings []domain.AssetHolding

	if err := json.NewDecoder(request.Body).Decode(&holdings); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}

	for i := range holdings {
		if err := holdings[i].Validate(); err != nil {
			return nil, fmt.Errorf("holding %d: %w", i, err)
		}
	}

	return holdings, nil
}

func (s *Server) handleValuate(writer http.ResponseWriter, request *http.Request) {
	holdings, err := decodeHoldings(request)
	if err != nil {
		respondError(writer, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := s.requestContext(request)
	defer cancel()

	respondJSON(writer, http.StatusOK, s.valuation.Valuate(ctx, holdings))
}

type historyPoint struct {
	Timestamp int64           `json:"timestamp"`
	Date      string          `json:"date"`
	Value     decimal.Decimal `json:"value"`
}

type historyResponse struct {
	History    []historyPoint `json:"history"`
	Days       int            `json:"days"`
	DataPoints int            `json:"data_points"`
}

func (s *Server) handleHistory(writer http.ResponseWriter, request *http.Request) {
	days, err := historyDays(request)
	if err != nil {
		respondError(writer, http.StatusBadRequest, err.Error())
		return
	}

	holdings, err := decodeHoldings(request)
	if err != nil {
		respondError(writer, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := s.requestContext(request)
	defer cancel()

	points, err := s.history.History(ctx, holdings, days)
	if err != nil {
		if errors.Is(err, domain.ErrNoHistoricalData) {
			respondError(writer, http.StatusBadGateway, err.Error())
			return
		}

		respondInternalServerError(writer, err)
		return
	}

	response := historyResponse{
		History:    make([]historyPoint, 0, len(points)),
		Days:       days,
		DataPoints: len(points),
	}

	for _, point := range points {
		response.History = append(response.History, historyPoint{
			Timestamp: point.Timestamp.UnixMilli(),
			Date:      point.Timestamp.UTC().Format(time.RFC3339),
			Value:     point.Value,
		})
	}

	respondJSON(writer, http.StatusOK, response)
}

func historyDays(request *http.Request) (int, error) {
	raw := request.URL.Query().Get("days")
	if raw == "" {
		return defaultHistoryDays, nil
	}

	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > maxHistoryDays {
		return 0, fmt.Errorf("days must be an integer between 1 and %d", maxHistoryDays)
	}

	return days, nil
}

type searchResponse struct {
	Query   string               `json:"query"`
	Count   int                  `json:"count"`
	Results []domain.SymbolMatch `json:"results"`
}

func (s *Server) handleSearch(writer http.ResponseWriter, request *http.Request) {
	query := mux.Vars(request)["query"]
	if len(query) < minSearchLength {
		respondError(writer, http.StatusBadRequest,
			fmt.Sprintf("query must be at least %d characters", minSearchLength))
		return
	}

	limit := 0
	if raw := request.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(writer, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	ctx, cancel := s.requestContext(request)
	defer cancel()

	matches, err := s.directory.Search(ctx, query, limit)
	if err != nil {
		respondError(writer, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(writer, http.StatusOK, searchResponse{
		Query:   query,
		Count:   len(matches),
		Results: matches,
	})
}
