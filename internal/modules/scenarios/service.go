// Package scenarios serves portfolio scores per historical analog, reading
// precomputed results from the score cache and computing live on a miss.
package scenarios

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/analogs/internal/domain"
	"github.com/aristath/analogs/internal/metrics"
	"github.com/aristath/analogs/internal/modules/assetclass"
	"github.com/aristath/analogs/internal/modules/scorecache"
)

// Result sources
const (
	SourceCache    = "cache"
	SourceComputed = "computed"
)

// Cache status values
const (
	StatusReady   = "ready"
	StatusPartial = "partial"
	StatusEmpty   = "empty"
)

// DefaultComputeTimeout bounds a single live portfolio computation
const DefaultComputeTimeout = 20 * time.Second

// AnalogCatalog resolves and lists historical analogs
type AnalogCatalog interface {
	Resolve(id string) (domain.HistoricalAnalog, error)
	ListAll() []domain.HistoricalAnalog
}

// PortfolioCatalog lists the scored portfolios in display order
type PortfolioCatalog interface {
	Portfolios() []domain.PortfolioDefinition
	ResolveHoldings(p domain.PortfolioDefinition) ([]domain.Holding, error)
}

// BenchmarkSource returns the current benchmark portfolio
type BenchmarkSource interface {
	Benchmark(ctx context.Context) (domain.PortfolioDefinition, error)
}

// Scorer scores one portfolio against the benchmark over an analog
type Scorer interface {
	Score(ctx context.Context, analogID string, portfolio, benchmark domain.PortfolioDefinition) (*domain.ScoreResult, error)
}

// CacheStore is the read and maintenance side of the score cache. Writes
// belong to the population job only.
type CacheStore interface {
	scorecache.Reader
	ExpectedEntries() int
	Count(ctx context.Context, version int) (int, error)
	CountByAnalog(ctx context.Context, version int) (map[string]int, error)
	Stats(ctx context.Context) ([]scorecache.VersionStats, error)
	LastRun(ctx context.Context) (*scorecache.PopulationRun, error)
	ClearAll(ctx context.Context) (int64, error)
}

// Config tunes the live computation path
type Config struct {
	ComputeTimeout time.Duration
}

// AnalogScores is the scored portfolio set of one analog
type AnalogScores struct {
	Analog      domain.HistoricalAnalog
	Portfolios  []domain.ScoreResult
	Source      string
	ComputeTime time.Duration
}

// Service orchestrates cache lookups and live scoring
type Service struct {
	analogs    AnalogCatalog
	portfolios PortfolioCatalog
	benchmark  BenchmarkSource
	scorer     Scorer
	cache      CacheStore
	metrics    *metrics.Registry
	cfg        Config
	log        zerolog.Logger
}

// NewService creates the scenario service. metrics may be nil.
func NewService(
	analogs AnalogCatalog,
	portfolios PortfolioCatalog,
	benchmark BenchmarkSource,
	scorer Scorer,
	cache CacheStore,
	m *metrics.Registry,
	cfg Config,
	log zerolog.Logger,
) *Service {
	if cfg.ComputeTimeout <= 0 {
		cfg.ComputeTimeout = DefaultComputeTimeout
	}
	return &Service{
		analogs:    analogs,
		portfolios: portfolios,
		benchmark:  benchmark,
		scorer:     scorer,
		cache:      cache,
		metrics:    m,
		cfg:        cfg,
		log:        log.With().Str("service", "scenarios").Logger(),
	}
}

// GetScoresForAnalog returns every portfolio score for an analog. A
// version <= 0 selects the current cache version. Cache hits are returned
// in catalog order; on a miss every portfolio is scored concurrently and the
// successful results are returned. Live results are not written back.
func (s *Service) GetScoresForAnalog(ctx context.Context, analogID string, version int) (*AnalogScores, error) {
	start := time.Now()

	analog, err := s.analogs.Resolve(analogID)
	if err != nil {
		return nil, err
	}

	if version <= 0 {
		version = s.cache.CurrentVersion()
	}

	lookup, err := s.cache.Lookup(ctx, analog.ID, version)
	if err != nil {
		s.countLookup(metrics.LookupError)
		return nil, err
	}

	portfolios := s.portfolios.Portfolios()

	if lookup.Found {
		if results, ok := fromCache(lookup.Entries, portfolios); ok {
			s.countLookup(metrics.LookupHit)
			s.observe(SourceCache, start)
			return &AnalogScores{
				Analog:      analog,
				Portfolios:  withAssetClasses(results),
				Source:      SourceCache,
				ComputeTime: time.Since(start),
			}, nil
		}
		s.log.Warn().Str("analog", analog.ID).Int("version", version).
			Msg("Cached portfolios do not match catalog, computing live")
	}
	s.countLookup(metrics.LookupMiss)

	results, err := s.compute(ctx, analog, portfolios)
	if err != nil {
		return nil, err
	}
	s.observe(SourceComputed, start)

	return &AnalogScores{
		Analog:      analog,
		Portfolios:  withAssetClasses(results),
		Source:      SourceComputed,
		ComputeTime: time.Since(start),
	}, nil
}

// fromCache orders cached rows by catalog position. It reports false when
// any catalog portfolio has no row.
func fromCache(entries []domain.CachedPortfolioScore, portfolios []domain.PortfolioDefinition) ([]domain.ScoreResult, bool) {
	byID := make(map[string]domain.ScoreResult, len(entries))
	for _, e := range entries {
		byID[e.PortfolioID] = e.ScoreResult
	}

	results := make([]domain.ScoreResult, 0, len(portfolios))
	for _, p := range portfolios {
		r, ok := byID[p.ID]
		if !ok {
			return nil, false
		}
		results = append(results, r)
	}
	return results, true
}

type outcome struct {
	result *domain.ScoreResult
	err    error
}

// compute scores every portfolio concurrently, each under its own timeout.
// Successes are returned in catalog order; if all fail the causes are
// joined under ErrComputationFailed.
func (s *Service) compute(ctx context.Context, analog domain.HistoricalAnalog, portfolios []domain.PortfolioDefinition) ([]domain.ScoreResult, error) {
	if len(portfolios) == 0 {
		return nil, fmt.Errorf("%w: no portfolios configured", domain.ErrComputationFailed)
	}

	bench, err := s.benchmark.Benchmark(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: benchmark: %w", domain.ErrComputationFailed, err)
	}

	outcomes := make([]outcome, len(portfolios))
	var wg sync.WaitGroup
	for i, p := range portfolios {
		wg.Add(1)
		go func(i int, p domain.PortfolioDefinition) {
			defer wg.Done()
			outcomes[i] = s.scoreWithTimeout(ctx, analog.ID, p, bench)
		}(i, p)
	}
	wg.Wait()

	results := make([]domain.ScoreResult, 0, len(portfolios))
	var errs []error
	for i, o := range outcomes {
		if o.err != nil {
			errs = append(errs, fmt.Errorf("portfolio %s: %w", portfolios[i].ID, o.err))
			s.countComputation(o.err)
			continue
		}
		results = append(results, *o.result)
		s.countComputation(nil)
	}

	if len(results) == 0 {
		s.log.Error().Str("analog", analog.ID).Int("failed", len(errs)).Msg("All portfolio computations failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrComputationFailed, errors.Join(errs...))
	}
	if len(errs) > 0 {
		s.log.Warn().
			Str("analog", analog.ID).
			Int("succeeded", len(results)).
			Err(errors.Join(errs...)).
			Msg("Some portfolio computations failed")
	}

	return results, nil
}

// scoreWithTimeout stops waiting once the computation's deadline passes even
// if the scorer does not observe its context
func (s *Service) scoreWithTimeout(ctx context.Context, analogID string, p, bench domain.PortfolioDefinition) outcome {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.ComputeTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		result, err := s.scorer.Score(cctx, analogID, p, bench)
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		if o.err == nil && o.result == nil {
			o.err = errors.New("scorer returned no result")
		}
		return o
	case <-cctx.Done():
		return outcome{err: cctx.Err()}
	}
}

// withAssetClasses attaches the aggregated asset-class view to results of
// aggregate-eligible portfolios
func withAssetClasses(results []domain.ScoreResult) []domain.ScoreResult {
	for i := range results {
		if assetclass.IsAggregateEligible(results[i].PortfolioName) {
			results[i].AssetClasses = assetclass.AggregateByAssetClass(results[i].Holdings)
		}
	}
	return results
}

func (s *Service) countLookup(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (s *Service) countComputation(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.Computations.WithLabelValues(metrics.ResultSuccess).Inc()
	case errors.Is(err, context.DeadlineExceeded):
		s.metrics.Computations.WithLabelValues(metrics.ResultTimeout).Inc()
	default:
		s.metrics.Computations.WithLabelValues(metrics.ResultFailure).Inc()
	}
}

func (s *Service) observe(source string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ComputeDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}
}
