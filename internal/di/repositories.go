package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/analogs/internal/config"
	"github.com/aristath/analogs/internal/modules/analogs"
	"github.com/aristath/analogs/internal/modules/catalog"
	"github.com/aristath/analogs/internal/modules/history"
	"github.com/aristath/analogs/internal/modules/scorecache"
)

// InitializeRepositories loads the catalogs and creates repositories
func InitializeRepositories(container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.Analogs = analogs.Default()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load portfolio catalog: %w", err)
	}
	container.Catalog = cat

	container.ScoreCache = scorecache.NewRepository(container.CacheDB.Conn(), scorecache.Config{
		Version:        cfg.Scenario.CacheVersion,
		AnalogCount:    container.Analogs.Count(),
		PortfolioCount: cat.Count(),
	}, log)
	container.PriceStore = history.NewPriceStore(container.HistoryDB.Conn(), log)
	container.HoldingsRepo = catalog.NewHoldingsRepository(container.PortfolioDB.Conn(), log)

	log.Info().
		Int("analogs", container.Analogs.Count()).
		Int("portfolios", cat.Count()).
		Int("cache_version", cfg.Scenario.CacheVersion).
		Msg("Repositories initialized")

	return nil
}
