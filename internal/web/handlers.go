package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"valuescreen/internal/indicator"
	"valuescreen/internal/provider"
	"valuescreen/internal/screener"
	"valuescreen/internal/symbols"
	"valuescreen/pkg/model"
)

// IndicatorRow is one date of the indicators response
type IndicatorRow struct {
	indicator.Row
	Signal model.SignalType `json:"signal"`
}

// IndicatorsResponse represents a single symbol drilldown
type IndicatorsResponse struct {
	Symbol string         `json:"symbol"`
	Dates  int            `json:"dates"`
	Rows   []IndicatorRow `json:"rows"`
}

// UniverseInfo contains universe details
type UniverseInfo struct {
	ID    string `json:"id"`
	Count int    `json:"count,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestUniverse resolves ?symbols= or ?universe=
func (s *Server) requestUniverse(ctx context.Context, r *http.Request) ([]string, error) {
	q := r.URL.Query()
	return s.loader.Load(ctx, symbols.Source{
		List:     q.Get("symbols"),
		Universe: q.Get("universe"),
	})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}

func top[T any](ranked []T, n int) []T {
	if n > 0 && len(ranked) > n {
		return ranked[:n]
	}
	return ranked
}

// handleScore runs a composite ranking and remembers it as the latest
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "top", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	syms, err := s.requestUniverse(ctx, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ranking, err := s.screener.RankScores(ctx, syms)
	if err != nil {
		s.log.Error().Err(err).Msg("score ranking failed")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	s.mu.Lock()
	s.lastScores = ranking
	s.mu.Unlock()

	resp := *ranking
	resp.Ranked = top(ranking.Ranked, n)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLatestScore(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ranking := s.lastScores
	s.mu.RUnlock()
	if ranking == nil {
		writeError(w, http.StatusNotFound, "no score ranking yet")
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

// handleSignals runs a signal ranking and remembers it as the latest
func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "top", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	syms, err := s.requestUniverse(ctx, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ranking, err := s.screener.RankSignals(ctx, syms)
	if err != nil {
		s.log.Error().Err(err).Msg("signal ranking failed")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	s.mu.Lock()
	s.lastSignals = ranking
	s.mu.Unlock()

	resp := *ranking
	resp.Ranked = top(ranking.Ranked, n)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLatestSignals(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ranking := s.lastSignals
	s.mu.RUnlock()
	if ranking == nil {
		writeError(w, http.StatusNotFound, "no signal ranking yet")
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

// handleIndicators returns the latest indicator rows of one symbol
func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.PathValue("symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}
	rows, err := queryInt(r, "rows", 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	set, records, err := s.screener.Indicators(r.Context(), symbol)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, screener.ErrInsufficientHistory) || errors.Is(err, provider.ErrUnavailable) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}

	start := set.Len() - rows
	if rows == 0 || start < 0 {
		start = 0
	}
	resp := IndicatorsResponse{Symbol: symbol, Dates: set.Len(), Rows: make([]IndicatorRow, 0, set.Len()-start)}
	for i := start; i < set.Len(); i++ {
		resp.Rows = append(resp.Rows, IndicatorRow{Row: set.Row(i), Signal: records[i].Signal})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleUniverses returns available stock universes
func (s *Server) handleUniverses(w http.ResponseWriter, r *http.Request) {
	names := symbols.Universes()
	universes := make([]UniverseInfo, len(names))
	for i, name := range names {
		universes[i] = UniverseInfo{ID: name, Count: len(symbols.GetUniverse(symbols.Universe(name)))}
	}
	writeJSON(w, http.StatusOK, map[string]any{"universes": universes})
}

// handleCriteria returns the thresholds the server ranks with
func (s *Server) handleCriteria(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.criteria)
}
