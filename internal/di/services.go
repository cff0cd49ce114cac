package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/analogs/internal/config"
	"github.com/aristath/analogs/internal/metrics"
	"github.com/aristath/analogs/internal/modules/catalog"
	"github.com/aristath/analogs/internal/modules/history"
	"github.com/aristath/analogs/internal/modules/scenarios"
	"github.com/aristath/analogs/internal/modules/scoring"
)

// InitializeServices creates the scoring pipeline and the scenario service
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.Metrics = metrics.New()

	container.PriceProvider = history.NewResilientProvider(
		history.NewProvider(container.PriceStore),
		history.ResilienceConfig{
			RequestsPerSecond:   cfg.Provider.RequestsPerSecond,
			Burst:               cfg.Provider.Burst,
			ConsecutiveFailures: uint32(cfg.Provider.BreakerFailures),
			OpenTimeout:         cfg.Provider.BreakerTimeout,
		},
		log,
	)

	container.Benchmark = catalog.NewBenchmarkResolver(container.HoldingsRepo, container.Catalog)
	container.Scorer = scoring.NewScorer(container.Analogs, container.PriceProvider, container.Catalog, log)

	container.ScenarioService = scenarios.NewService(
		container.Analogs,
		container.Catalog,
		container.Benchmark,
		container.Scorer,
		container.ScoreCache,
		container.Metrics,
		scenarios.Config{ComputeTimeout: cfg.Scenario.ComputeTimeout},
		log,
	)

	log.Info().Msg("Services initialized")
	return nil
}
