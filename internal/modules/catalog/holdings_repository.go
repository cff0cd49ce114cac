package catalog

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/analogs/internal/database"
	"github.com/aristath/analogs/internal/domain"
	"github.com/aristath/analogs/internal/modules/assetclass"
)

// HoldingsRepository provides access to the live flagship fund holdings
// stored in fund_holdings.
type HoldingsRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHoldingsRepository creates a new holdings repository
func NewHoldingsRepository(db *sql.DB, log zerolog.Logger) *HoldingsRepository {
	return &HoldingsRepository{
		db:  db,
		log: log.With().Str("repo", "fund_holdings").Logger(),
	}
}

// GetAll returns the stored holdings ordered by weight descending. Holdings
// without a stored asset class are classified from their ticker.
func (r *HoldingsRepository) GetAll(ctx context.Context) ([]domain.Holding, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ticker, weight, COALESCE(asset_class, '')
		FROM fund_holdings
		ORDER BY weight DESC, ticker ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		var h domain.Holding
		var class string
		if err := rows.Scan(&h.Ticker, &h.Weight, &class); err != nil {
			return nil, fmt.Errorf("failed to scan fund holding: %w", err)
		}
		h.AssetClass = domain.AssetClass(class)
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund holdings: %w", err)
	}

	return assetclass.ClassifyHoldings(holdings), nil
}

// ReplaceAll swaps the stored holdings for the given set in one transaction
func (r *HoldingsRepository) ReplaceAll(ctx context.Context, holdings []domain.Holding) error {
	seen := make(map[string]bool, len(holdings))
	for _, h := range holdings {
		ticker := strings.ToUpper(strings.TrimSpace(h.Ticker))
		if ticker == "" {
			return fmt.Errorf("holding ticker is required")
		}
		if !assetclass.IsValidWeight(h.Weight) {
			return fmt.Errorf("invalid weight %v for %s", h.Weight, ticker)
		}
		if seen[ticker] {
			return fmt.Errorf("duplicate holding %s", ticker)
		}
		seen[ticker] = true
	}

	now := time.Now().Unix()
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM fund_holdings"); err != nil {
			return fmt.Errorf("failed to clear fund holdings: %w", err)
		}
		for _, h := range assetclass.ClassifyHoldings(holdings) {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO fund_holdings (ticker, weight, asset_class, updated_at)
				VALUES (?, ?, ?, ?)
			`, strings.ToUpper(strings.TrimSpace(h.Ticker)), h.Weight, string(h.AssetClass), now)
			if err != nil {
				return fmt.Errorf("failed to insert holding %s: %w", h.Ticker, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().Int("count", len(holdings)).Msg("Replaced fund holdings")
	return nil
}

// Benchmark returns the flagship fund definition backed by the stored
// holdings, falling back to the catalog holdings while the table is empty
func (r *HoldingsRepository) Benchmark(ctx context.Context, c *Catalog) (domain.PortfolioDefinition, error) {
	bench := c.DefaultBenchmark()

	holdings, err := r.GetAll(ctx)
	if err != nil {
		return domain.PortfolioDefinition{}, err
	}
	if len(holdings) == 0 {
		r.log.Debug().Msg("No stored fund holdings, using catalog benchmark")
		return bench, nil
	}

	bench.Holdings = holdings
	return bench, nil
}

// ParseHoldingsCSV reads rows of "ticker,weight[,asset_class]". A first row
// whose weight column reads "weight" is a header and is skipped. Each ticker
// may appear once.
func ParseHoldingsCSV(r io.Reader) ([]domain.Holding, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var holdings []domain.Holding
	firstLine := make(map[string]int)
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) < 2 || len(record) > 3 {
			return nil, fmt.Errorf("line %d: expected 2 or 3 fields, got %d", line, len(record))
		}

		if line == 1 && strings.EqualFold(strings.TrimSpace(record[1]), "weight") {
			continue
		}

		weight, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid weight %q: %w", line, record[1], err)
		}
		if !assetclass.IsValidWeight(weight) {
			return nil, fmt.Errorf("line %d: weight must be finite and positive, got %q", line, record[1])
		}

		h := domain.Holding{
			Ticker: strings.ToUpper(strings.TrimSpace(record[0])),
			Weight: weight,
		}
		if h.Ticker == "" {
			return nil, fmt.Errorf("line %d: ticker is required", line)
		}
		if prev, dup := firstLine[h.Ticker]; dup {
			return nil, fmt.Errorf("line %d: duplicate ticker %s (first seen on line %d)", line, h.Ticker, prev)
		}
		firstLine[h.Ticker] = line
		if len(record) == 3 {
			h.AssetClass = domain.AssetClass(strings.ToLower(strings.TrimSpace(record[2])))
			if h.AssetClass != "" && !h.AssetClass.Valid() {
				return nil, fmt.Errorf("line %d: unknown asset class %q", line, record[2])
			}
		}
		holdings = append(holdings, h)
	}

	return holdings, nil
}

// BenchmarkResolver binds the holdings repository to a catalog
type BenchmarkResolver struct {
	repo    *HoldingsRepository
	catalog *Catalog
}

// NewBenchmarkResolver creates a resolver. A nil repo always yields the
// catalog benchmark.
func NewBenchmarkResolver(repo *HoldingsRepository, c *Catalog) *BenchmarkResolver {
	return &BenchmarkResolver{repo: repo, catalog: c}
}

// Benchmark returns the current benchmark definition
func (b *BenchmarkResolver) Benchmark(ctx context.Context) (domain.PortfolioDefinition, error) {
	if b.repo == nil {
		return b.catalog.DefaultBenchmark(), nil
	}
	return b.repo.Benchmark(ctx, b.catalog)
}
