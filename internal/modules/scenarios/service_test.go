package scenarios

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/analogs/internal/domain"
	"github.com/aristath/analogs/internal/metrics"
	"github.com/aristath/analogs/internal/modules/analogs"
	"github.com/aristath/analogs/internal/modules/catalog"
	"github.com/aristath/analogs/internal/modules/scorecache"
	testingutil "github.com/aristath/analogs/internal/testing"
)

// fakeScorer returns a deterministic score per portfolio, failing or
// blocking for the configured ids
type fakeScorer struct {
	mu     sync.Mutex
	calls  int
	fail   map[string]error
	block  map[string]bool
	scores map[string]int
}

func (f *fakeScorer) Score(ctx context.Context, analogID string, portfolio, benchmark domain.PortfolioDefinition) (*domain.ScoreResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.block[portfolio.ID] {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond) // ignores its deadline for a while
		return nil, ctx.Err()
	}
	if err := f.fail[portfolio.ID]; err != nil {
		return nil, err
	}

	score := 55
	if s, ok := f.scores[portfolio.ID]; ok {
		score = s
	}
	return &domain.ScoreResult{
		PortfolioID:   portfolio.ID,
		PortfolioName: portfolio.Name,
		Score:         score,
		Label:         "Fair",
		Color:         "yellow",
		Holdings:      []domain.Holding{{Ticker: "VTI", AssetClass: domain.AssetClassStocks, Weight: 1}},
	}, nil
}

func (f *fakeScorer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	service *Service
	repo    *scorecache.Repository
	scorer  *fakeScorer
	metrics *metrics.Registry
}

func newFixture(t *testing.T) (*fixture, func()) {
	t.Helper()

	db, cleanup := testingutil.NewTestDB(t, "cache")
	registry := analogs.Default()
	cat := catalog.Default()

	repo := scorecache.NewRepository(db.Conn(), scorecache.Config{
		Version:        1,
		AnalogCount:    registry.Count(),
		PortfolioCount: cat.Count(),
	}, zerolog.Nop())

	scorer := &fakeScorer{fail: map[string]error{}, block: map[string]bool{}, scores: map[string]int{}}
	m := metrics.New()
	service := NewService(registry, cat, catalog.NewBenchmarkResolver(nil, cat), scorer, repo, m,
		Config{ComputeTimeout: 100 * time.Millisecond}, zerolog.Nop())

	return &fixture{service: service, repo: repo, scorer: scorer, metrics: m}, cleanup
}

func (f *fixture) populate(t *testing.T, analogID string, version int, ids ...string) {
	t.Helper()
	for i, id := range ids {
		p, ok := catalog.Default().GetByID(id)
		require.True(t, ok, id)
		require.NoError(t, f.repo.Write(context.Background(), analogID, id, version, &domain.ScoreResult{
			PortfolioID:   id,
			PortfolioName: p.Name,
			Score:         90 - i,
			Label:         "Excellent",
			Color:         "green",
			Holdings:      []domain.Holding{{Ticker: "IEF", AssetClass: domain.AssetClassBonds, Weight: 1}},
		}))
	}
}

var catalogOrder = []string{"classic-60-40", "all-weather", "permanent-portfolio", "balanced-growth"}

func portfolioIDs(results []domain.ScoreResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.PortfolioID
	}
	return ids
}

func TestGetScoresForAnalog_ComputesOnEmptyCache(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	scores, err := f.service.GetScoresForAnalog(context.Background(), "2008-financial-crisis", 0)
	require.NoError(t, err)

	assert.Equal(t, SourceComputed, scores.Source)
	assert.Equal(t, "2008 Global Financial Crisis", scores.Analog.Name)
	assert.Equal(t, catalogOrder, portfolioIDs(scores.Portfolios))
	assert.Equal(t, 4, f.scorer.callCount())

	// No write-back on the live path
	count, err := f.repo.Count(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheLookups.WithLabelValues(metrics.LookupMiss)))
	assert.Equal(t, 4.0, testutil.ToFloat64(f.metrics.Computations.WithLabelValues(metrics.ResultSuccess)))
}

func TestGetScoresForAnalog_CacheHitSkipsComputation(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	// Written in a different order than the catalog
	f.populate(t, "2020-covid-crash", 1, "balanced-growth", "permanent-portfolio", "all-weather", "classic-60-40")

	scores, err := f.service.GetScoresForAnalog(context.Background(), "2020-covid-crash", 1)
	require.NoError(t, err)

	assert.Equal(t, SourceCache, scores.Source)
	assert.Equal(t, catalogOrder, portfolioIDs(scores.Portfolios))
	assert.Equal(t, 87, scores.Portfolios[0].Score) // classic-60-40 was written last
	assert.Equal(t, 0, f.scorer.callCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheLookups.WithLabelValues(metrics.LookupHit)))
}

func TestGetScoresForAnalog_PartialCacheComputesEverything(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	f.populate(t, "2022-rate-shock", 1, "classic-60-40", "all-weather", "permanent-portfolio")

	scores, err := f.service.GetScoresForAnalog(context.Background(), "2022-rate-shock", 0)
	require.NoError(t, err)
	assert.Equal(t, SourceComputed, scores.Source)
	assert.Len(t, scores.Portfolios, 4)
	assert.Equal(t, 4, f.scorer.callCount())
}

func TestGetScoresForAnalog_VersionIsolation(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	f.populate(t, "2022-rate-shock", 2, catalogOrder...)

	scores, err := f.service.GetScoresForAnalog(context.Background(), "2022-rate-shock", 0)
	require.NoError(t, err)
	assert.Equal(t, SourceComputed, scores.Source, "current version 1 ignores version 2 rows")

	scores, err = f.service.GetScoresForAnalog(context.Background(), "2022-rate-shock", 2)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, scores.Source)
}

func TestGetScoresForAnalog_PartialFailure(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	f.scorer.fail["all-weather"] = fmt.Errorf("%w: GLD", domain.ErrInsufficientData)

	scores, err := f.service.GetScoresForAnalog(context.Background(), "1973-oil-shock", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"classic-60-40", "permanent-portfolio", "balanced-growth"}, portfolioIDs(scores.Portfolios))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Computations.WithLabelValues(metrics.ResultFailure)))
}

func TestGetScoresForAnalog_AllFail(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	for _, id := range catalogOrder {
		f.scorer.fail[id] = fmt.Errorf("%w: %s", domain.ErrInsufficientData, id)
	}

	_, err := f.service.GetScoresForAnalog(context.Background(), "1973-oil-shock", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrComputationFailed))
	assert.True(t, errors.Is(err, domain.ErrInsufficientData), "causes are preserved")
}

func TestGetScoresForAnalog_TimeoutIsPerComputation(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	f.scorer.block["permanent-portfolio"] = true

	start := time.Now()
	scores, err := f.service.GetScoresForAnalog(context.Background(), "2000-dotcom-crash", 0)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, []string{"classic-60-40", "all-weather", "balanced-growth"}, portfolioIDs(scores.Portfolios))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Computations.WithLabelValues(metrics.ResultTimeout)))
}

func TestGetScoresForAnalog_UnknownAnalog(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	_, err := f.service.GetScoresForAnalog(context.Background(), "1929-crash", 0)
	assert.True(t, errors.Is(err, domain.ErrUnknownAnalog))
	assert.Equal(t, 0, f.scorer.callCount())
}

func TestGetScoresForAnalog_StoreErrorIsNotAMiss(t *testing.T) {
	f, cleanup := newFixture(t)
	cleanup()

	_, err := f.service.GetScoresForAnalog(context.Background(), "2008-financial-crisis", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStore))
	assert.Equal(t, 0, f.scorer.callCount(), "store failure must not fall through to live computation")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheLookups.WithLabelValues(metrics.LookupError)))
}

func TestGetScoresForAnalog_AggregateView(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	scores, err := f.service.GetScoresForAnalog(context.Background(), "2008-financial-crisis", 0)
	require.NoError(t, err)

	for _, r := range scores.Portfolios {
		switch r.PortfolioID {
		case "all-weather", "balanced-growth":
			assert.NotEmpty(t, r.AssetClasses, r.PortfolioID)
		default:
			assert.Empty(t, r.AssetClasses, r.PortfolioID)
		}
	}
}

func TestCacheStatus(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()

	status, err := f.service.CacheStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, status.Status)
	assert.Equal(t, 24, status.ExpectedEntries)
	assert.Len(t, status.Analogs, 6)
	assert.Empty(t, status.Statistics)
	assert.Nil(t, status.LastRun)

	f.populate(t, "2008-financial-crisis", 1, catalogOrder...)
	status, err = f.service.CacheStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, status.Status)
	assert.Equal(t, 4, status.TotalEntries)

	for _, a := range analogs.Default().ListAll() {
		f.populate(t, a.ID, 1, catalogOrder...)
	}
	status, err = f.service.CacheStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status.Status)
	for _, a := range status.Analogs {
		assert.True(t, a.Complete, a.AnalogID)
	}

	deleted, err := f.service.ClearCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(24), deleted)

	status, err = f.service.CacheStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, status.Status)
}

func TestListPortfolios(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	listing, err := f.service.ListPortfolios(context.Background())
	require.NoError(t, err)

	require.Len(t, listing.Portfolios, 4)
	assert.Equal(t, "classic-60-40", listing.Portfolios[0].ID)
	assert.Len(t, listing.Portfolios[0].Holdings, 2)
	assert.Equal(t, "flagship-fund", listing.Benchmark.ID)
	assert.NotEmpty(t, listing.Benchmark.AssetClasses, "flagship is aggregate eligible")

	assert.Len(t, f.service.ListAnalogs(), 6)
}
