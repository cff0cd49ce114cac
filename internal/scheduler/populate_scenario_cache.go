package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/analogs/internal/domain"
	"github.com/aristath/analogs/internal/metrics"
	"github.com/aristath/analogs/internal/modules/scorecache"
)

// ErrAlreadyRunning is returned when a population run is requested while
// another one is in progress
var ErrAlreadyRunning = errors.New("population already running")

// Population run outcomes
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// PopulateConfig tunes the population job
type PopulateConfig struct {
	// Attempts is the number of tries per (analog, portfolio) item
	Attempts   int
	RetryDelay time.Duration
	// ItemTimeout bounds a single scoring call
	ItemTimeout time.Duration
}

// DefaultPopulateConfig returns the default retry policy
func DefaultPopulateConfig() PopulateConfig {
	return PopulateConfig{
		Attempts:    3,
		RetryDelay:  2 * time.Second,
		ItemTimeout: 20 * time.Second,
	}
}

// PopulateScenarioCacheJob scores every analog against every portfolio and
// writes the results at the current cache version
type PopulateScenarioCacheJob struct {
	analogs    AnalogLister
	portfolios PortfolioLister
	benchmark  BenchmarkSource
	scorer     PortfolioScorer
	writer     scorecache.Writer
	metrics    *metrics.Registry
	cfg        PopulateConfig
	log        zerolog.Logger

	running atomic.Bool

	// ctx scopes scheduled runs; Stop cancels it
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPopulateScenarioCacheJob creates the population job. metrics may be nil.
func NewPopulateScenarioCacheJob(
	analogs AnalogLister,
	portfolios PortfolioLister,
	benchmark BenchmarkSource,
	scorer PortfolioScorer,
	writer scorecache.Writer,
	m *metrics.Registry,
	cfg PopulateConfig,
	log zerolog.Logger,
) *PopulateScenarioCacheJob {
	defaults := DefaultPopulateConfig()
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaults.Attempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = defaults.ItemTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &PopulateScenarioCacheJob{
		ctx:        ctx,
		cancel:     cancel,
		analogs:    analogs,
		portfolios: portfolios,
		benchmark:  benchmark,
		scorer:     scorer,
		writer:     writer,
		metrics:    m,
		cfg:        cfg,
		log:        log.With().Str("job", "populate_scenario_cache").Logger(),
	}
}

// Name returns the job name
func (j *PopulateScenarioCacheJob) Name() string {
	return "populate_scenario_cache"
}

// Run executes a full population run. It returns early once Stop is called.
func (j *PopulateScenarioCacheJob) Run() error {
	_, err := j.Populate(j.ctx)
	return err
}

// Stop cancels any in-flight scheduled run and makes later runs fail fast
func (j *PopulateScenarioCacheJob) Stop() {
	j.cancel()
}

// Populate computes and writes every (analog, portfolio) score. Items that
// keep failing after all attempts are skipped and counted. The run fails
// only when nothing could be written.
func (j *PopulateScenarioCacheJob) Populate(ctx context.Context) (*scorecache.PopulationRun, error) {
	if !j.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer j.running.Store(false)

	run := &scorecache.PopulationRun{
		RunID:     uuid.New().String(),
		Version:   j.writer.CurrentVersion(),
		StartedAt: time.Now(),
	}
	log := j.log.With().Str("run_id", run.RunID).Int("version", run.Version).Logger()

	analogs := j.analogs.ListAll()
	portfolios := j.portfolios.Portfolios()
	total := len(analogs) * len(portfolios)
	log.Info().Int("analogs", len(analogs)).Int("portfolios", len(portfolios)).Msg("Starting scenario cache population")

	var runErr error
	bench, err := j.benchmark.Benchmark(ctx)
	if err != nil {
		runErr = fmt.Errorf("failed to resolve benchmark: %w", err)
		run.Failed = total
	} else {
		for _, analog := range analogs {
			for _, p := range portfolios {
				if ctx.Err() != nil {
					break
				}
				if err := j.populateOne(ctx, analog.ID, p, bench, run.Version); err != nil {
					run.Failed++
					log.Warn().
						Err(err).
						Str("analog", analog.ID).
						Str("portfolio", p.ID).
						Msg("Giving up on scenario score")
					continue
				}
				run.Written++
			}
		}
		if ctx.Err() != nil {
			runErr = fmt.Errorf("population cancelled: %w", ctx.Err())
			run.Failed = total - run.Written
		} else if total > 0 && run.Written == 0 {
			runErr = fmt.Errorf("population wrote no scores (%d failed)", run.Failed)
		}
	}

	run.FinishedAt = time.Now()
	if runErr != nil {
		run.Error = runErr.Error()
	}

	// Record with a fresh context so a cancelled run still leaves a summary
	recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := j.writer.RecordRun(recordCtx, *run); err != nil {
		log.Error().Err(err).Msg("Failed to record population run")
	}

	j.observe(run, runErr)

	event := log.Info()
	if runErr != nil {
		event = log.Error().Err(runErr)
	}
	event.
		Int("written", run.Written).
		Int("failed", run.Failed).
		Dur("duration", run.FinishedAt.Sub(run.StartedAt)).
		Msg("Scenario cache population finished")

	return run, runErr
}

// populateOne scores and writes a single item, retrying with a fixed delay.
// An unknown analog is never retried.
func (j *PopulateScenarioCacheJob) populateOne(ctx context.Context, analogID string, p, bench domain.PortfolioDefinition, version int) error {
	var lastErr error
	for attempt := 1; attempt <= j.cfg.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(j.cfg.RetryDelay):
			}
		}

		lastErr = j.scoreAndWrite(ctx, analogID, p, bench, version)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, domain.ErrUnknownAnalog) {
			return lastErr
		}

		j.log.Debug().
			Err(lastErr).
			Str("analog", analogID).
			Str("portfolio", p.ID).
			Int("attempt", attempt).
			Msg("Scenario score attempt failed")
	}
	return fmt.Errorf("after %d attempts: %w", j.cfg.Attempts, lastErr)
}

func (j *PopulateScenarioCacheJob) scoreAndWrite(ctx context.Context, analogID string, p, bench domain.PortfolioDefinition, version int) error {
	itemCtx, cancel := context.WithTimeout(ctx, j.cfg.ItemTimeout)
	defer cancel()

	result, err := j.scorer.Score(itemCtx, analogID, p, bench)
	if err != nil {
		return err
	}
	if err := j.writer.Write(ctx, analogID, p.ID, version, result); err != nil {
		return err
	}

	if j.metrics != nil {
		j.metrics.RowsWritten.Inc()
	}
	return nil
}

func (j *PopulateScenarioCacheJob) observe(run *scorecache.PopulationRun, runErr error) {
	if j.metrics == nil {
		return
	}

	outcome := OutcomeSuccess
	switch {
	case runErr != nil:
		outcome = OutcomeFailed
	case run.Failed > 0:
		outcome = OutcomePartial
	}
	j.metrics.PopulationRuns.WithLabelValues(outcome).Inc()
	j.metrics.PopulationDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
}
