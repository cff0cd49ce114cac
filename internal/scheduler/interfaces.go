package scheduler

import (
	"context"

	"github.com/aristath/analogs/internal/domain"
)

// AnalogLister lists the registered historical analogs
type AnalogLister interface {
	ListAll() []domain.HistoricalAnalog
}

// PortfolioLister lists the scored portfolios
type PortfolioLister interface {
	Portfolios() []domain.PortfolioDefinition
}

// BenchmarkSource returns the current benchmark portfolio
type BenchmarkSource interface {
	Benchmark(ctx context.Context) (domain.PortfolioDefinition, error)
}

// PortfolioScorer scores one portfolio against the benchmark over an analog
type PortfolioScorer interface {
	Score(ctx context.Context, analogID string, portfolio, benchmark domain.PortfolioDefinition) (*domain.ScoreResult, error)
}
