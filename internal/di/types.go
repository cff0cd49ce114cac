/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every long-lived instance of the application and is
 * passed to the HTTP server and the CLI.
 */
package di

import (
	"github.com/aristath/analogs/internal/database"
	"github.com/aristath/analogs/internal/metrics"
	"github.com/aristath/analogs/internal/modules/analogs"
	"github.com/aristath/analogs/internal/modules/catalog"
	"github.com/aristath/analogs/internal/modules/history"
	"github.com/aristath/analogs/internal/modules/scenarios"
	"github.com/aristath/analogs/internal/modules/scorecache"
	"github.com/aristath/analogs/internal/modules/scoring"
	"github.com/aristath/analogs/internal/scheduler"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: cache (scores, population runs), history (daily prices),
 *   portfolio (fund holdings)
 * - Catalogs: historical analogs and portfolio definitions
 * - Repositories: score cache, price store, holdings
 * - Services: scorer, scenario service
 * - Jobs: cache population, database checks
 */
type Container struct {
	// Databases
	CacheDB     *database.DB
	HistoryDB   *database.DB
	PortfolioDB *database.DB

	// Catalogs
	Analogs *analogs.Registry
	Catalog *catalog.Catalog

	// Repositories
	ScoreCache   *scorecache.Repository
	PriceStore   *history.PriceStore
	HoldingsRepo *catalog.HoldingsRepository

	// Services
	Metrics         *metrics.Registry
	PriceProvider   *history.ResilientProvider
	Benchmark       *catalog.BenchmarkResolver
	Scorer          *scoring.Scorer
	ScenarioService *scenarios.Service

	// Jobs
	PopulateJob       *scheduler.PopulateScenarioCacheJob
	CheckDatabasesJob *scheduler.CheckDatabasesJob
}

// Databases returns the open databases in a fixed order
func (c *Container) Databases() []*database.DB {
	return []*database.DB{c.CacheDB, c.HistoryDB, c.PortfolioDB}
}

// Close closes every open database and returns the first error
func (c *Container) Close() error {
	var firstErr error
	for _, db := range c.Databases() {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
