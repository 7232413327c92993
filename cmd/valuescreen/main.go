package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"valuescreen/internal/config"
	"valuescreen/internal/logging"
	"valuescreen/internal/provider"
	"valuescreen/internal/ratelimit"
	"valuescreen/internal/screener"
	"valuescreen/internal/symbols"
)

var (
	cfgFile    string
	dataDirs   string
	symbolList string
	symbolFile string
	universe   string
	workers    int
	format     string
	verbose    bool
	top        int
	rateLimit  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "valuescreen",
		Short: "Value-investing stock ranker",
		Long: `Valuescreen ranks stocks for a rule-based value-investing strategy.

Pipelines:
  score    - composite score (fundamental 45 + market 30 + sentiment 25) and grade
  signals  - buy / interest / sell-warning signals over the recent window

Examples:
  valuescreen score --universe kospi20 --top 10
  valuescreen signals --symbols 005930,000660 --format json
  valuescreen indicators 005930 --rows 5
  valuescreen serve --addr :8080`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "valuescreen.yaml", "config file path (.yaml or .toml)")
	pf.StringVar(&dataDirs, "data", "", "comma-separated data directories, tried in order")
	pf.StringVar(&symbolList, "symbols", "", "comma-separated list of symbols to screen")
	pf.StringVar(&symbolFile, "symbol-file", "", "file with one or more symbols per line")
	pf.StringVar(&universe, "universe", "", "named universe: "+strings.Join(symbols.Universes(), ", "))
	pf.IntVar(&workers, "workers", 0, "number of parallel workers (default from config)")
	pf.StringVar(&format, "format", "table", "output format: table, json")
	pf.BoolVar(&verbose, "verbose", false, "show debug logging")
	pf.IntVar(&top, "top", 0, "show only the top N ranked symbols")
	pf.IntVar(&rateLimit, "rate-limit", -1, "data requests per minute, 0 = unlimited (default from config)")

	rootCmd.AddCommand(scoreCmd(), signalsCmd(), indicatorsCmd(), criteriaCmd(), scheduleCmd(), serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the wired runtime shared by every subcommand
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	provider provider.Provider
	screener *screener.Screener
	loader   *symbols.Loader
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Override config with CLI flags
	flags := cmd.Flags()
	if dataDirs != "" {
		cfg.Data.Dirs = strings.Split(dataDirs, ",")
	}
	if workers > 0 {
		cfg.Screener.Workers = workers
	}
	if flags.Changed("rate-limit") {
		cfg.Data.RateLimit = rateLimit
	}
	if flags.Changed("top") {
		cfg.Screener.Top = top
	}
	if universe != "" {
		cfg.Screener.Universe = universe
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if format != "table" && format != "json" {
		return nil, fmt.Errorf("unknown format %q (want table or json)", format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logging.NewWithLevel(os.Stderr, cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return nil, err
	}

	p := buildProvider(cfg)
	log.Debug().Strs("dirs", cfg.Data.Dirs).Int("rate_limit", cfg.Data.RateLimit).Bool("cache", cfg.Data.Cache).
		Msg("data provider ready")

	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	s, err := screener.New(p, cfg.Criteria,
		screener.WithWorkers(cfg.Screener.Workers),
		screener.WithTimeout(timeout),
		screener.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		provider: p,
		screener: s,
		loader:   symbols.NewLoader(p),
	}, nil
}

// buildProvider layers cache over rate limiting over the directory fallback chain
func buildProvider(cfg *config.Config) provider.Provider {
	files := make([]provider.Provider, 0, len(cfg.Data.Dirs))
	for _, dir := range cfg.Data.Dirs {
		if dir = strings.TrimSpace(dir); dir != "" {
			files = append(files, provider.NewFileProvider(dir))
		}
	}

	var p provider.Provider
	if len(files) == 1 {
		p = files[0]
	} else {
		p = provider.NewFallbackProvider(files...)
	}

	if cfg.Data.RateLimit > 0 {
		p = provider.NewRateLimitedProvider(p, ratelimit.NewLimiter(p.Name(), cfg.Data.RateLimit), cfg.Data.Retries)
	}
	if cfg.Data.Cache {
		p = provider.NewCachingProvider(p, cfg.Criteria.Screening.HistoryDays)
	}
	return p
}

func (a *app) universe(ctx context.Context) ([]string, error) {
	syms, err := a.loader.Load(ctx, symbols.Source{
		List:     symbolList,
		File:     symbolFile,
		Universe: a.cfg.Screener.Universe,
	})
	if err != nil {
		return nil, fmt.Errorf("loading symbols: %w", err)
	}
	return syms, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted. Stopping...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
