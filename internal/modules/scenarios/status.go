package scenarios

import (
	"context"

	"github.com/aristath/analogs/internal/domain"
	"github.com/aristath/analogs/internal/modules/assetclass"
	"github.com/aristath/analogs/internal/modules/scorecache"
)

// AnalogCacheStatus is the cache coverage of one analog
type AnalogCacheStatus struct {
	AnalogID string `json:"analogId"`
	Name     string `json:"name"`
	Entries  int    `json:"entries"`
	Expected int    `json:"expected"`
	Complete bool   `json:"complete"`
}

// CacheStatus summarizes the cache at the current version
type CacheStatus struct {
	Status          string                    `json:"status"`
	CurrentVersion  int                       `json:"currentVersion"`
	TotalEntries    int                       `json:"totalEntries"`
	ExpectedEntries int                       `json:"expectedEntries"`
	Analogs         []AnalogCacheStatus       `json:"analogs"`
	Statistics      []scorecache.VersionStats `json:"statistics"`
	LastRun         *scorecache.PopulationRun `json:"lastRun,omitempty"`
}

// CacheStatus reports how complete the cache is for the current version
func (s *Service) CacheStatus(ctx context.Context) (*CacheStatus, error) {
	version := s.cache.CurrentVersion()

	total, err := s.cache.Count(ctx, version)
	if err != nil {
		return nil, err
	}
	byAnalog, err := s.cache.CountByAnalog(ctx, version)
	if err != nil {
		return nil, err
	}
	stats, err := s.cache.Stats(ctx)
	if err != nil {
		return nil, err
	}
	lastRun, err := s.cache.LastRun(ctx)
	if err != nil {
		return nil, err
	}

	perAnalog := len(s.portfolios.Portfolios())
	analogs := s.analogs.ListAll()
	status := &CacheStatus{
		CurrentVersion:  version,
		TotalEntries:    total,
		ExpectedEntries: s.cache.ExpectedEntries(),
		Analogs:         make([]AnalogCacheStatus, 0, len(analogs)),
		Statistics:      stats,
		LastRun:         lastRun,
	}

	for _, a := range analogs {
		entries := byAnalog[a.ID]
		status.Analogs = append(status.Analogs, AnalogCacheStatus{
			AnalogID: a.ID,
			Name:     a.Name,
			Entries:  entries,
			Expected: perAnalog,
			Complete: perAnalog > 0 && entries >= perAnalog,
		})
	}

	switch {
	case status.ExpectedEntries > 0 && total >= status.ExpectedEntries:
		status.Status = StatusReady
	case total > 0:
		status.Status = StatusPartial
	default:
		status.Status = StatusEmpty
	}

	return status, nil
}

// ClearCache deletes every cached score
func (s *Service) ClearCache(ctx context.Context) (int64, error) {
	deleted, err := s.cache.ClearAll(ctx)
	if err != nil {
		return 0, err
	}
	s.log.Info().Int64("deleted", deleted).Msg("Scenario cache cleared")
	return deleted, nil
}

// ListAnalogs returns every registered analog in catalog order
func (s *Service) ListAnalogs() []domain.HistoricalAnalog {
	return s.analogs.ListAll()
}

// PortfolioView is a portfolio with its resolved holdings
type PortfolioView struct {
	ID           string                    `json:"id"`
	Name         string                    `json:"name"`
	Kind         domain.PortfolioKind      `json:"kind"`
	Holdings     []domain.Holding          `json:"holdings"`
	AssetClasses []domain.AssetClassWeight `json:"assetClasses,omitempty"`
}

// PortfolioListing is the scored portfolio set plus the benchmark
type PortfolioListing struct {
	Portfolios []PortfolioView `json:"portfolios"`
	Benchmark  PortfolioView   `json:"benchmark"`
}

// ListPortfolios returns the scored portfolios and the current benchmark
// with resolved holdings
func (s *Service) ListPortfolios(ctx context.Context) (*PortfolioListing, error) {
	defs := s.portfolios.Portfolios()
	listing := &PortfolioListing{Portfolios: make([]PortfolioView, 0, len(defs))}

	for _, p := range defs {
		view, err := s.view(p)
		if err != nil {
			return nil, err
		}
		listing.Portfolios = append(listing.Portfolios, view)
	}

	bench, err := s.benchmark.Benchmark(ctx)
	if err != nil {
		return nil, err
	}
	listing.Benchmark, err = s.view(bench)
	if err != nil {
		return nil, err
	}

	return listing, nil
}

func (s *Service) view(p domain.PortfolioDefinition) (PortfolioView, error) {
	holdings, err := s.portfolios.ResolveHoldings(p)
	if err != nil {
		return PortfolioView{}, err
	}

	view := PortfolioView{
		ID:       p.ID,
		Name:     p.Name,
		Kind:     p.Kind,
		Holdings: holdings,
	}
	if assetclass.IsAggregateEligible(p.Name) {
		view.AssetClasses = assetclass.AggregateByAssetClass(holdings)
	}
	return view, nil
}
