package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"valuescreen/internal/criteria"
	"valuescreen/internal/screener"
	"valuescreen/internal/symbols"
	"valuescreen/pkg/model"
)

// Server exposes the screener as a JSON API
type Server struct {
	screener *screener.Screener
	loader   *symbols.Loader
	criteria criteria.Criteria
	log      zerolog.Logger
	timeout  time.Duration
	srv      *http.Server

	mu          sync.RWMutex
	lastScores  *model.ScoreRanking
	lastSignals *model.SignalRanking
}

// NewServer creates a new API server. timeout bounds each ranking request.
func NewServer(s *screener.Screener, loader *symbols.Loader, c criteria.Criteria, log zerolog.Logger, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Server{
		screener: s,
		loader:   loader,
		criteria: c.Clone(),
		log:      log.With().Str("component", "web").Logger(),
		timeout:  timeout,
	}
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/score", s.handleScore)
	mux.HandleFunc("GET /api/score/latest", s.handleLatestScore)
	mux.HandleFunc("GET /api/signals", s.handleSignals)
	mux.HandleFunc("GET /api/signals/latest", s.handleLatestSignals)
	mux.HandleFunc("GET /api/indicators/{symbol}", s.handleIndicators)
	mux.HandleFunc("GET /api/universes", s.handleUniverses)
	mux.HandleFunc("GET /api/criteria", s.handleCriteria)
	return corsMiddleware(mux)
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Info().Str("addr", addr).Msg("serving API")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers for local development
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
