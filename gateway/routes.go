package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"liquidator/engine"
	"liquidator/graph"
	"liquidator/observability"
)

// Source supplies the active snapshot store. Nil means no refresh has
// succeeded yet.
type Source interface {
	Store() *graph.Store
}

// Server exposes the scan results over HTTP.
type Server struct {
	source  Source
	workers int
	log     *slog.Logger
	metrics *observability.ScanMetrics
}

// NewServer builds the HTTP surface over a snapshot source. workers bounds
// the per-request scan fan-out.
func NewServer(source Source, workers int, log *slog.Logger) *Server {
	return &Server{
		source:  source,
		workers: workers,
		log:     log,
		metrics: observability.Scans(),
	}
}

// Router assembles the gateway routes. The rate limiter may be nil.
func (s *Server) Router(limiter *RateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		if limiter != nil {
			api.Use(limiter.Middleware)
		}
		api.Method(http.MethodGet, "/liquidatable", Observe("liquidatable", http.HandlerFunc(s.liquidatable)))
		api.Method(http.MethodGet, "/settleable", Observe("settleable", http.HandlerFunc(s.settleable)))
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	if s.source.Store() == nil {
		http.Error(w, "no snapshot", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type scanResponse struct {
	BlockTime     int64 `json:"blockTime"`
	FetchedAt     int64 `json:"fetchedAt"`
	AccountErrors int   `json:"accountErrors"`
	Results       any   `json:"results"`
}

func (s *Server) liquidatable(w http.ResponseWriter, req *http.Request) {
	store := s.source.Store()
	if store == nil {
		http.Error(w, "no snapshot", http.StatusServiceUnavailable)
		return
	}

	start := time.Now()
	results, failures := engine.ScanLiquidatable(store.Snapshot, store.Accounts, s.workers)
	s.metrics.Observe("liquidatable", len(results), len(failures), time.Since(start))
	s.logFailures("liquidatable", failures)

	filtered := engine.FilterLiquidatable(results,
		req.URL.Query().Get("local"),
		req.URL.Query().Get("collateral"),
	)
	if filtered == nil {
		filtered = []*engine.Liquidatable{}
	}
	writeJSON(w, scanResponse{
		BlockTime:     store.Snapshot.BlockTime,
		FetchedAt:     store.FetchedAt.Unix(),
		AccountErrors: len(failures),
		Results:       filtered,
	})
}

func (s *Server) settleable(w http.ResponseWriter, req *http.Request) {
	store := s.source.Store()
	if store == nil {
		http.Error(w, "no snapshot", http.StatusServiceUnavailable)
		return
	}

	start := time.Now()
	results, failures := engine.ScanSettleable(store.Snapshot, store.Accounts, s.workers)
	s.metrics.Observe("settleable", len(results), len(failures), time.Since(start))
	s.logFailures("settleable", failures)

	filtered := engine.FilterSettleable(results,
		req.URL.Query().Get("local"),
		req.URL.Query().Get("collateral"),
	)
	if filtered == nil {
		filtered = []*engine.Settleable{}
	}
	writeJSON(w, scanResponse{
		BlockTime:     store.Snapshot.BlockTime,
		FetchedAt:     store.FetchedAt.Unix(),
		AccountErrors: len(failures),
		Results:       filtered,
	})
}

func (s *Server) logFailures(kind string, failures []*engine.AccountError) {
	for _, f := range failures {
		s.log.Warn("account evaluation failed",
			"scan", kind,
			"account", f.Address.Hex(),
			"error", f.Err,
		)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
