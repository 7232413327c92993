package web

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuescreen/internal/criteria"
	"valuescreen/internal/provider"
	"valuescreen/internal/screener"
	"valuescreen/internal/symbols"
	"valuescreen/pkg/model"
)

func writePrices(t *testing.T, dir, symbol string, days int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,open,high,low,close,volume\n")
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days; i++ {
		c := 100 + 10*math.Sin(float64(i)/7)
		fmt.Fprintf(&b, "%s,%.2f,%.2f,%.2f,%.2f,%d\n",
			day.AddDate(0, 0, i).Format("2006-01-02"), c, c+1, c-1, c, 1000+i*10)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prices", symbol+".csv"), []byte(b.String()), 0o644))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "prices"), 0o755))
	writePrices(t, dir, "AAA", 130)
	writePrices(t, dir, "BBB", 130)
	writePrices(t, dir, "CCC", 5)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snapshots.json"), []byte(`{
		"AAA": {
			"fundamental": {"roe": 18, "debt_ratio": 80, "current_ratio": 180, "operating_margin": 12, "revenue_growth": 9},
			"market": {"per": 9, "pbr": 0.8, "week52_position": 25},
			"sentiment": {"analyst_upside": 30, "investment_opinion": "buy", "news_sentiment": 0.4}
		},
		"BBB": {
			"fundamental": {"roe": 6, "debt_ratio": 150, "current_ratio": 110, "operating_margin": 4, "revenue_growth": 1},
			"market": {"per": 22, "pbr": 2.1, "week52_position": 80},
			"sentiment": {"analyst_upside": 5, "investment_opinion": "hold", "news_sentiment": 0}
		},
		"CCC": {"market": {"per": 10}}
	}`), 0o644))

	p := provider.NewFileProvider(dir)
	c := criteria.Default()
	s, err := screener.New(p, c, screener.WithWorkers(2), screener.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return NewServer(s, symbols.NewLoader(p), c, zerolog.Nop(), time.Minute)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestScoreEndpoints(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := get(t, h, "/api/score/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, h, "/api/score?symbols=AAA,BBB,CCC&top=1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var ranking model.ScoreRanking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ranking))
	assert.Equal(t, 3, ranking.TotalScanned)
	require.Len(t, ranking.Ranked, 1)
	assert.Equal(t, "AAA", ranking.Ranked[0].Symbol)
	require.Len(t, ranking.Skipped, 1)
	assert.Equal(t, "CCC", ranking.Skipped[0].Symbol)

	// latest keeps the full ranking, not the truncated response
	rec = get(t, h, "/api/score/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var latest model.ScoreRanking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	assert.Equal(t, ranking.RunID, latest.RunID)
	assert.Len(t, latest.Ranked, 2)
}

func TestScore_BadRequest(t *testing.T) {
	h := newTestServer(t).Handler()

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/score?symbols=AAA&top=-1").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/score?symbols=AAA&top=x").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/score?universe=nasdaq").Code)
}

func TestSignalEndpoints(t *testing.T) {
	h := newTestServer(t).Handler()

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/signals/latest").Code)

	rec := get(t, h, "/api/signals?symbols=AAA,BBB,CCC")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var ranking model.SignalRanking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ranking))
	assert.Equal(t, 3, ranking.TotalScanned)
	assert.Len(t, ranking.Ranked, 2)
	require.Len(t, ranking.Skipped, 1)
	assert.Equal(t, "CCC", ranking.Skipped[0].Symbol)
	assert.Contains(t, ranking.Skipped[0].Reason, "insufficient history")

	assert.Equal(t, http.StatusOK, get(t, h, "/api/signals/latest").Code)
}

func TestIndicatorsEndpoint(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := get(t, h, "/api/indicators/aaa?rows=3")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Symbol string           `json:"symbol"`
		Dates  int              `json:"dates"`
		Rows   []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "AAA", resp.Symbol)
	assert.Equal(t, 130, resp.Dates)
	require.Len(t, resp.Rows, 3)
	assert.NotNil(t, resp.Rows[2]["rsi"])
	assert.Nil(t, resp.Rows[2]["ma_long"])
	assert.Contains(t, resp.Rows[2], "signal")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/indicators/ZZZ").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/indicators/AAA?rows=abc").Code)
}

func TestUniversesAndCriteria(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := get(t, h, "/api/universes")
	require.Equal(t, http.StatusOK, rec.Code)
	var u struct {
		Universes []UniverseInfo `json:"universes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	assert.Contains(t, u.Universes, UniverseInfo{ID: "kospi20", Count: 20})
	assert.Contains(t, u.Universes, UniverseInfo{ID: "all"})

	rec = get(t, h, "/api/criteria")
	require.Equal(t, http.StatusOK, rec.Code)
	var c criteria.Criteria
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, criteria.Default().Screening, c.Screening)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/score", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/score", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
