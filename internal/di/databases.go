// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/analogs/internal/config"
	"github.com/aristath/analogs/internal/database"
)

// databaseSpec describes one database file
type databaseSpec struct {
	name    string
	profile database.DatabaseProfile
	target  func(c *Container) **database.DB
}

var databaseSpecs = []databaseSpec{
	// cache.db - scenario scores and population history; rebuildable
	{"cache", database.ProfileCache, func(c *Container) **database.DB { return &c.CacheDB }},
	// history.db - daily closing prices
	{"history", database.ProfileStandard, func(c *Container) **database.DB { return &c.HistoryDB }},
	// portfolio.db - flagship fund holdings
	{"portfolio", database.ProfileStandard, func(c *Container) **database.DB { return &c.PortfolioDB }},
}

// InitializeDatabases opens all databases and applies schemas. On failure
// every database opened so far is closed.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	for _, spec := range databaseSpecs {
		db, err := database.New(database.Config{
			Path:    cfg.DatabasePath(spec.name),
			Profile: spec.profile,
			Name:    spec.name,
		})
		if err != nil {
			_ = container.Close()
			return nil, fmt.Errorf("failed to initialize %s database: %w", spec.name, err)
		}
		*spec.target(container) = db

		if err := db.Migrate(); err != nil {
			_ = container.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", spec.name, err)
		}

		log.Debug().Str("database", spec.name).Str("path", db.Path()).Msg("Database ready")
	}

	log.Info().Int("count", len(databaseSpecs)).Msg("Databases initialized")
	return container, nil
}
