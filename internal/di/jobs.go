package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/analogs/internal/config"
	"github.com/aristath/analogs/internal/scheduler"
)

// RegisterJobs creates the background jobs. Scheduling them is left to the caller.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.PopulateJob = scheduler.NewPopulateScenarioCacheJob(
		container.Analogs,
		container.Catalog,
		container.Benchmark,
		container.Scorer,
		container.ScoreCache,
		container.Metrics,
		scheduler.PopulateConfig{
			Attempts:    cfg.Scenario.PopulateAttempts,
			RetryDelay:  cfg.Scenario.PopulateRetryDelay,
			ItemTimeout: cfg.Scenario.ComputeTimeout,
		},
		log,
	)

	container.CheckDatabasesJob = scheduler.NewCheckDatabasesJob(log, container.Databases()...)

	log.Info().Msg("Jobs registered")
	return nil
}
