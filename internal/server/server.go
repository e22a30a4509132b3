// Package server exposes the merged market view over a read-only JSON
// API for the dashboard.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mercuryhq/marketbridge/internal/aggregate"
	"github.com/mercuryhq/marketbridge/internal/history"
	"github.com/mercuryhq/marketbridge/internal/orderbook"
	"github.com/mercuryhq/marketbridge/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// SnapshotSource provides the latest merged view; satisfied by
// aggregate.Refresher.
type SnapshotSource interface {
	Latest() aggregate.Snapshot
}

type Server struct {
	refresher SnapshotSource
	history   *history.Recorder
	books     *orderbook.Service
	telemetry *telemetry.Client
	logger    *slog.Logger

	httpServer *http.Server
}

// New wires the routes. telemetryClient may be nil when the bot feed is
// not configured.
func New(addr string, refresher SnapshotSource, rec *history.Recorder, books *orderbook.Service, telemetryClient *telemetry.Client, logger *slog.Logger) *Server {
	s := &Server{
		refresher: refresher,
		history:   rec,
		books:     books,
		telemetry: telemetryClient,
		logger:    logger.With("component", "server"),
	}

	router := http.NewServeMux()
	router.HandleFunc("GET /api/markets/active", s.getActiveMarkets)
	router.HandleFunc("GET /api/markets/{short}/history", s.getMarketHistory)
	router.HandleFunc("GET /api/markets/{short}/book", s.getMarketBook)
	router.HandleFunc("GET /api/bot/logs", s.getBotLogs)
	router.HandleFunc("GET /api/health", s.getHealth)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return s
}

// Run serves until the context is cancelled, then drains in-flight
// requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

type activeMarketsResponse struct {
	Markets   []aggregate.UnifiedMarket `json:"markets"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

func (s *Server) getActiveMarkets(w http.ResponseWriter, r *http.Request) {
	snap := s.refresher.Latest()
	markets := snap.Markets
	if markets == nil {
		markets = []aggregate.UnifiedMarket{}
	}
	s.writeJSON(w, http.StatusOK, activeMarketsResponse{
		Markets:   markets,
		UpdatedAt: snap.UpdatedAt,
	})
}

type historyResponse struct {
	Short   string           `json:"short"`
	Samples []history.Sample `json:"samples"`
}

func (s *Server) getMarketHistory(w http.ResponseWriter, r *http.Request) {
	short := r.PathValue("short")
	s.writeJSON(w, http.StatusOK, historyResponse{
		Short:   short,
		Samples: s.history.Read(short),
	})
}

func (s *Server) getMarketBook(w http.ResponseWriter, r *http.Request) {
	short := r.PathValue("short")
	m, ok := s.findMarket(short)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown market: "+short)
		return
	}

	depth := orderbook.DefaultDepth
	if v := r.URL.Query().Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid depth: "+v)
			return
		}
		depth = n
	}

	book, err := s.books.Snapshot(r.Context(), m.TokenID, m.KalshiTicker, depth)
	if err != nil {
		s.logger.Warn("couldn't build book", "short", short, "error", err)
		s.writeError(w, http.StatusBadGateway, "book unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, book)
}

// findMarket scans the latest snapshot for a short code, one level of
// sub-markets included so grouped records' outcomes stay addressable.
func (s *Server) findMarket(short string) (aggregate.UnifiedMarket, bool) {
	snap := s.refresher.Latest()
	for i := range snap.Markets {
		if snap.Markets[i].Short == short {
			return snap.Markets[i], true
		}
		for _, sub := range snap.Markets[i].SubMarkets {
			if sub.Short == short {
				return sub, true
			}
		}
	}
	return aggregate.UnifiedMarket{}, false
}

func (s *Server) getBotLogs(w http.ResponseWriter, r *http.Request) {
	status := s.telemetry.BotLogs(r.Context())
	if status.Lines == nil {
		status.Lines = []telemetry.LogLine{}
	}
	s.writeJSON(w, http.StatusOK, status)
}

type healthResponse struct {
	Status    string    `json:"status"`
	Markets   int       `json:"markets"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.refresher.Latest()
	status := "ok"
	if len(snap.Markets) == 0 {
		status = "starting"
	}
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    status,
		Markets:   len(snap.Markets),
		UpdatedAt: snap.UpdatedAt,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("couldn't write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}
