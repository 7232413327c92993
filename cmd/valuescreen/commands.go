package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"valuescreen/internal/scheduler"
	"valuescreen/internal/web"
)

func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Rank symbols by composite value score",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return a.runScore(ctx, true)
		},
	}
}

func signalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signals",
		Short: "Rank symbols by recent buy and interest signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return a.runSignals(ctx, true)
		},
	}
}

func indicatorsCmd() *cobra.Command {
	var rows int
	cmd := &cobra.Command{
		Use:   "indicators SYMBOL",
		Short: "Show the latest indicator values and signals of one symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			symbol := strings.ToUpper(strings.TrimSpace(args[0]))
			set, records, err := a.screener.Indicators(ctx, symbol)
			if err != nil {
				return err
			}
			if format == "json" {
				return writeIndicatorsJSON(os.Stdout, symbol, set, records, rows)
			}
			return writeIndicatorsTable(os.Stdout, symbol, set, records, rows)
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 10, "number of most recent dates to show")
	return cmd
}

func criteriaCmd() *cobra.Command {
	var asTOML bool
	cmd := &cobra.Command{
		Use:   "criteria",
		Short: "Print the effective criteria after validation",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			switch {
			case format == "json":
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(a.cfg.Criteria)
			case asTOML:
				return toml.NewEncoder(os.Stdout).Encode(a.cfg.Criteria)
			default:
				enc := yaml.NewEncoder(os.Stdout)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(a.cfg.Criteria)
			}
		},
	}
	cmd.Flags().BoolVar(&asTOML, "toml", false, "print as TOML instead of YAML")
	return cmd
}

func scheduleCmd() *cobra.Command {
	var (
		spec   string
		runNow bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the screening pipelines on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			if spec != "" {
				a.cfg.Schedule.Cron = spec
			}
			ctx, cancel := signalContext()
			defer cancel()

			s := scheduler.New(ctx, a.log)
			if err := a.registerPipelines(s); err != nil {
				return err
			}
			if runNow {
				if err := s.RunNow(screenJob); err != nil {
					a.log.Error().Err(err).Msg("initial run failed")
				}
			}

			s.Start()
			<-ctx.Done()
			s.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&spec, "cron", "", "cron expression (default from config)")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "run every pipeline once before waiting")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rankings and indicators as a JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			timeout, err := a.cfg.TimeoutDuration()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			srv := web.NewServer(a.screener, a.loader, a.cfg.Criteria, a.log, timeout)
			errc := make(chan error, 1)
			go func() { errc <- srv.Start(addr) }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

// registerPipelines registers the configured pipelines as one job that runs
// them back to back on each tick
func (a *app) registerPipelines(s *scheduler.Scheduler) error {
	steps, err := a.pipelineSteps()
	if err != nil {
		return err
	}
	return s.Register(screenJob, a.cfg.Schedule.Cron, s.Sequence(steps...))
}

const screenJob = "screen"

func (a *app) pipelineSteps() ([]scheduler.Step, error) {
	if len(a.cfg.Schedule.Pipelines) == 0 {
		return nil, fmt.Errorf("no pipelines configured")
	}
	steps := make([]scheduler.Step, 0, len(a.cfg.Schedule.Pipelines))
	for _, name := range a.cfg.Schedule.Pipelines {
		var job scheduler.Job
		switch name {
		case "score":
			job = func(ctx context.Context) error { return a.runScore(ctx, false) }
		case "signals":
			job = func(ctx context.Context) error { return a.runSignals(ctx, false) }
		default:
			return nil, fmt.Errorf("unknown pipeline %q", name)
		}
		steps = append(steps, scheduler.Step{Name: name, Run: job})
	}
	return steps, nil
}

func (a *app) runScore(ctx context.Context, interactive bool) error {
	syms, err := a.universe(ctx)
	if err != nil {
		return err
	}

	if interactive && format == "table" {
		fmt.Fprintf(os.Stderr, "Scoring %d symbols...\n", len(syms))
		bar := newProgressBar(len(syms), "Scoring")
		a.screener.SetProgressCallback(func(done, total int) { bar.Set(done) })
		defer func() {
			bar.Finish()
			fmt.Fprintln(os.Stderr)
		}()
	}

	ranking, err := a.screener.RankScores(ctx, syms)
	if err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	ranking.Ranked = topN(ranking.Ranked, a.cfg.Screener.Top)

	if format == "json" {
		return writeJSON(os.Stdout, ranking)
	}
	return writeScoreTable(os.Stdout, ranking)
}

func (a *app) runSignals(ctx context.Context, interactive bool) error {
	syms, err := a.universe(ctx)
	if err != nil {
		return err
	}

	if interactive && format == "table" {
		fmt.Fprintf(os.Stderr, "Evaluating signals for %d symbols...\n", len(syms))
		bar := newProgressBar(len(syms), "Signals")
		a.screener.SetProgressCallback(func(done, total int) { bar.Set(done) })
		defer func() {
			bar.Finish()
			fmt.Fprintln(os.Stderr)
		}()
	}

	ranking, err := a.screener.RankSignals(ctx, syms)
	if err != nil {
		return fmt.Errorf("evaluating signals: %w", err)
	}
	ranking.Ranked = topN(ranking.Ranked, a.cfg.Screener.Top)

	if format == "json" {
		return writeJSON(os.Stdout, ranking)
	}
	return writeSignalTable(os.Stdout, ranking)
}

func topN[T any](ranked []T, n int) []T {
	if n > 0 && len(ranked) > n {
		return ranked[:n]
	}
	return ranked
}
