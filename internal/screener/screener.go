// Package screener runs the indicator, signal and scoring pipelines over a
// universe of symbols and ranks the results.
//
// Per-symbol work runs on a bounded worker pool. Results are merged and
// sorted after every worker has finished so rankings never depend on
// completion order.
package screener

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"valuescreen/internal/criteria"
	"valuescreen/internal/indicator"
	"valuescreen/internal/provider"
	"valuescreen/internal/scoring"
	"valuescreen/internal/signal"
	"valuescreen/pkg/model"
)

// ProgressCallback is called with progress updates
type ProgressCallback func(done, total int)

// ErrInsufficientHistory is the cause of a skip when a symbol has fewer
// candles than the configured minimum
var ErrInsufficientHistory = errors.New("insufficient history")

// Screener ranks a universe by composite score or by recent signals
type Screener struct {
	provider provider.Provider
	criteria criteria.Criteria
	calc     *indicator.Calculator
	eval     *signal.Evaluator

	workers      int
	timeout      time.Duration
	log          zerolog.Logger
	now          func() time.Time
	progressFunc ProgressCallback
}

// Option configures a Screener
type Option func(*Screener)

// WithWorkers sets the number of concurrent workers
func WithWorkers(n int) Option {
	return func(s *Screener) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithTimeout bounds a whole run; zero disables the bound
func WithTimeout(d time.Duration) Option {
	return func(s *Screener) { s.timeout = d }
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Screener) { s.log = l }
}

// WithClock sets the clock used for run timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Screener) { s.now = now }
}

// New creates a screener over p. The criteria are validated once here.
func New(p provider.Provider, c criteria.Criteria, opts ...Option) (*Screener, error) {
	calc, err := indicator.NewCalculator(c)
	if err != nil {
		return nil, err
	}
	eval, err := signal.NewEvaluator(c)
	if err != nil {
		return nil, err
	}

	s := &Screener{
		provider: p,
		criteria: c.Clone(),
		calc:     calc,
		eval:     eval,
		workers:  4,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "screener").Logger()
	return s, nil
}

// SetProgressCallback sets the progress callback function
func (s *Screener) SetProgressCallback(fn ProgressCallback) {
	s.progressFunc = fn
}

// RankScores scores every symbol and ranks by total score, highest first.
// Symbols whose snapshots cannot be fetched are skipped with a reason.
func (s *Screener) RankScores(ctx context.Context, symbols []string) (*model.ScoreRanking, error) {
	begin := time.Now()
	startedAt := s.now()
	scorer, err := scoring.NewScorer(s.criteria, scoring.WithClock(func() time.Time { return startedAt }))
	if err != nil {
		return nil, err
	}

	universe := dedupe(symbols)
	results, skipped, runErr := run(ctx, s, universe, func(ctx context.Context, symbol string) (model.CompositeScoreResult, error) {
		return s.score(ctx, scorer, symbol)
	})

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].TotalScore != results[j].TotalScore {
			return results[i].TotalScore > results[j].TotalScore
		}
		return results[i].Symbol < results[j].Symbol
	})

	ranked := make([]model.RankedScore, len(results))
	for i, r := range results {
		ranked[i] = model.RankedScore{Rank: i + 1, CompositeScoreResult: r}
	}

	ranking := &model.ScoreRanking{
		RunID:        uuid.NewString(),
		StartedAt:    startedAt,
		TotalScanned: len(universe),
		Ranked:       ranked,
		Skipped:      skipped,
		ScanTime:     time.Since(begin),
	}
	s.log.Info().Str("run_id", ranking.RunID).Int("ranked", len(ranked)).Int("skipped", len(skipped)).
		Dur("elapsed", ranking.ScanTime).Msg("score ranking complete")
	return ranking, runErr
}

func (s *Screener) score(ctx context.Context, scorer *scoring.Scorer, symbol string) (model.CompositeScoreResult, error) {
	f, err := s.provider.GetFundamentals(ctx, symbol)
	if err != nil && !errors.Is(err, provider.ErrUnavailable) {
		return model.CompositeScoreResult{}, fmt.Errorf("fetch fundamentals: %w", err)
	}
	m, err := s.provider.GetMarket(ctx, symbol)
	if err != nil && !errors.Is(err, provider.ErrUnavailable) {
		return model.CompositeScoreResult{}, fmt.Errorf("fetch market data: %w", err)
	}
	st, err := s.provider.GetSentiment(ctx, symbol)
	if err != nil && !errors.Is(err, provider.ErrUnavailable) {
		return model.CompositeScoreResult{}, fmt.Errorf("fetch sentiment: %w", err)
	}

	res := scorer.Score(symbol, f, m, st)
	if res.Unanalyzable {
		return res, fmt.Errorf("unanalyzable: missing %s", strings.Join(res.Missing, ", "))
	}
	return res, nil
}

// RankSignals evaluates every symbol's recent signals and ranks by signal
// score (2 per buy, 1 per interest), highest first
func (s *Screener) RankSignals(ctx context.Context, symbols []string) (*model.SignalRanking, error) {
	begin := time.Now()
	startedAt := s.now()
	universe := dedupe(symbols)

	results, skipped, runErr := run(ctx, s, universe, s.summarize)

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Symbol < results[j].Symbol
	})

	ranked := make([]model.RankedSignal, len(results))
	for i, r := range results {
		ranked[i] = model.RankedSignal{Rank: i + 1, SignalSummary: r}
	}

	ranking := &model.SignalRanking{
		RunID:        uuid.NewString(),
		StartedAt:    startedAt,
		TotalScanned: len(universe),
		Ranked:       ranked,
		Skipped:      skipped,
		ScanTime:     time.Since(begin),
	}
	s.log.Info().Str("run_id", ranking.RunID).Int("ranked", len(ranked)).Int("skipped", len(skipped)).
		Dur("elapsed", ranking.ScanTime).Msg("signal ranking complete")
	return ranking, runErr
}

func (s *Screener) summarize(ctx context.Context, symbol string) (model.SignalSummary, error) {
	candles, err := s.provider.GetDailyCandles(ctx, symbol, s.criteria.Screening.HistoryDays)
	if err != nil {
		return model.SignalSummary{}, fmt.Errorf("fetch candles: %w", err)
	}
	if need := s.criteria.Screening.MinHistory; len(candles) < need {
		return model.SignalSummary{}, fmt.Errorf("%w: got %d, need %d", ErrInsufficientHistory, len(candles), need)
	}

	set := s.calc.Calculate(candles)
	records := s.eval.EvaluateSet(set)
	return signal.Summarize(symbol, set, records, s.criteria.Screening.RecentWindow), nil
}

// Indicators computes the full indicator set and per-date signals of one
// symbol. Short series are returned as is with undefined values.
func (s *Screener) Indicators(ctx context.Context, symbol string) (*indicator.Set, []model.SignalRecord, error) {
	candles, err := s.provider.GetDailyCandles(ctx, symbol, s.criteria.Screening.HistoryDays)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch candles for %s: %w", symbol, err)
	}
	if len(candles) == 0 {
		return nil, nil, fmt.Errorf("%s: %w: no candles", symbol, ErrInsufficientHistory)
	}
	set := s.calc.Calculate(candles)
	return set, s.eval.EvaluateSet(set), nil
}

type outcome[T any] struct {
	symbol string
	value  T
	err    error
}

// run fans symbols out to the worker pool. A per-symbol error becomes a skip
// record; a cancelled context stops the run and is returned alongside
// whatever completed.
func run[T any](ctx context.Context, s *Screener, symbols []string, work func(context.Context, string) (T, error)) ([]T, []model.SkipRecord, error) {
	if len(symbols) == 0 {
		return []T{}, []model.SkipRecord{}, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	jobChan := make(chan string, len(symbols))
	resultChan := make(chan outcome[T], len(symbols))

	for _, sym := range symbols {
		jobChan <- sym
	}
	close(jobChan)

	var done int64

	workers := s.workers
	if workers > len(symbols) {
		workers = len(symbols)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobChan {
				if ctx.Err() != nil {
					return
				}
				v, err := work(ctx, sym)
				resultChan <- outcome[T]{symbol: sym, value: v, err: err}

				count := atomic.AddInt64(&done, 1)
				if s.progressFunc != nil {
					s.progressFunc(int(count), len(symbols))
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]T, 0, len(symbols))
	skipped := []model.SkipRecord{}
	for o := range resultChan {
		if o.err != nil {
			// a cancelled context is not the symbol's fault
			if ctx.Err() != nil && errors.Is(o.err, ctx.Err()) {
				continue
			}
			s.log.Warn().Str("symbol", o.symbol).Str("reason", o.err.Error()).Msg("skipped")
			skipped = append(skipped, model.SkipRecord{Symbol: o.symbol, Reason: o.err.Error()})
			continue
		}
		s.log.Debug().Str("symbol", o.symbol).Msg("processed")
		results = append(results, o.value)
	}

	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Symbol < skipped[j].Symbol })
	return results, skipped, ctx.Err()
}

// dedupe trims symbols and drops blanks and repeats, keeping first-seen order
func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}
