package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one periodic screening run
type Job func(ctx context.Context) error

// Scheduler runs registered jobs on cron expressions (five fields, or
// descriptors such as @daily). A job still running when its next tick fires
// is skipped for that tick.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	log  zerolog.Logger

	mu   sync.Mutex
	jobs map[string]Job
}

// New creates a scheduler whose jobs run with ctx
func New(ctx context.Context, log zerolog.Logger) *Scheduler {
	log = log.With().Str("component", "scheduler").Logger()
	adapter := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		ctx:  ctx,
		log:  log,
		jobs: make(map[string]Job),
	}
}

// Register adds a named job on spec
func (s *Scheduler) Register(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("register %s: already registered", name)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.execute(name, job) }); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	s.jobs[name] = job
	return nil
}

// RunNow executes a registered job immediately on the caller's goroutine
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.execute(name, job)
}

func (s *Scheduler) execute(name string, job Job) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	s.log.Info().Str("job", name).Msg("running")
	if err := job(s.ctx); err != nil {
		s.log.Error().Err(err).Str("job", name).Msg("job failed")
		return err
	}
	return nil
}

// Step is one named stage of a sequential job
type Step struct {
	Name string
	Run  Job
}

// Sequence combines steps into one job that runs them in order on the same
// tick, so their output never interleaves. A failed step does not stop the
// ones after it; a cancelled context does. The step errors are joined.
func (s *Scheduler) Sequence(steps ...Step) Job {
	return func(ctx context.Context) error {
		var errs []error
		for _, step := range steps {
			if err := ctx.Err(); err != nil {
				return errors.Join(append(errs, err)...)
			}
			if err := step.Run(ctx); err != nil {
				s.log.Error().Err(err).Str("step", step.Name).Msg("step failed")
				errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
			}
		}
		return errors.Join(errs...)
	}
}

// Len returns the number of registered jobs
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", s.Len()).Msg("scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
