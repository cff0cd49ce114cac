// Package scorecache persists precomputed scenario scores keyed by
// (analog, portfolio, version).
package scorecache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/analogs/internal/domain"
)

// Config sizes the cache for one catalog
type Config struct {
	// Version is the current cache format version; rows of other versions are ignored
	Version        int
	AnalogCount    int
	PortfolioCount int
}

// LookupResult is the outcome of a cache lookup. Entries is only set when
// Found is true.
type LookupResult struct {
	Found   bool
	Entries []domain.CachedPortfolioScore
}

// VersionStats summarizes the rows stored under one version
type VersionStats struct {
	Version      int       `json:"version"`
	TotalEntries int       `json:"totalEntries"`
	AvgScore     float64   `json:"avgScore"`
	LastUpdate   time.Time `json:"lastUpdate"`
}

// PopulationRun is the summary of one population job execution
type PopulationRun struct {
	RunID      string    `json:"runId"`
	Version    int       `json:"version"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Written    int       `json:"written"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
}

// Repository provides access to the scenario_scores table
type Repository struct {
	db  *sql.DB
	cfg Config
	log zerolog.Logger
}

// NewRepository creates a new score cache repository
func NewRepository(db *sql.DB, cfg Config, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		cfg: cfg,
		log: log.With().Str("repo", "scenario_scores").Logger(),
	}
}

// CurrentVersion returns the configured cache version
func (r *Repository) CurrentVersion() int {
	return r.cfg.Version
}

// ExpectedEntries is the row count of a fully populated version
func (r *Repository) ExpectedEntries() int {
	return r.cfg.AnalogCount * r.cfg.PortfolioCount
}

const selectColumns = `
	analog_id, portfolio_id, version, portfolio_name, score,
	portfolio_return, benchmark_return, outperformance,
	portfolio_drawdown, benchmark_drawdown, return_score, drawdown_score,
	label, color, holdings, updated_at
`

// Lookup returns every cached row of an analog at a version. The result is
// a hit only when the full portfolio set is present; a partial set is a
// miss. A query failure is returned as an error, never as a miss.
func (r *Repository) Lookup(ctx context.Context, analogID string, version int) (*LookupResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM scenario_scores
		WHERE analog_id = ? AND version = ?
		ORDER BY portfolio_id
	`, analogID, version)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup %s v%d: %v", domain.ErrStore, analogID, version, err)
	}
	defer rows.Close()

	var entries []domain.CachedPortfolioScore
	for rows.Next() {
		entry, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: lookup %s v%d: %v", domain.ErrStore, analogID, version, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: lookup %s v%d: %v", domain.ErrStore, analogID, version, err)
	}

	if r.cfg.PortfolioCount <= 0 || len(entries) != r.cfg.PortfolioCount {
		return &LookupResult{Found: false}, nil
	}

	return &LookupResult{Found: true, Entries: entries}, nil
}

func scanScore(rows *sql.Rows) (domain.CachedPortfolioScore, error) {
	var entry domain.CachedPortfolioScore
	var holdings []byte
	var updatedAt int64

	err := rows.Scan(
		&entry.AnalogID, &entry.PortfolioID, &entry.Version, &entry.PortfolioName, &entry.Score,
		&entry.PortfolioReturn, &entry.BenchmarkReturn, &entry.Outperformance,
		&entry.PortfolioDrawdown, &entry.BenchmarkDrawdown, &entry.ReturnScore, &entry.DrawdownScore,
		&entry.Label, &entry.Color, &holdings, &updatedAt,
	)
	if err != nil {
		return entry, fmt.Errorf("failed to scan score row: %w", err)
	}

	if len(holdings) > 0 {
		if err := msgpack.Unmarshal(holdings, &entry.Holdings); err != nil {
			return entry, fmt.Errorf("failed to decode holdings of %s/%s: %w", entry.AnalogID, entry.PortfolioID, err)
		}
	}
	entry.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return entry, nil
}

// Write upserts one score. Rewriting the same key replaces the row.
func (r *Repository) Write(ctx context.Context, analogID, portfolioID string, version int, result *domain.ScoreResult) error {
	if result == nil {
		return fmt.Errorf("%w: nil score for %s/%s", domain.ErrStore, analogID, portfolioID)
	}

	holdings, err := msgpack.Marshal(result.Holdings)
	if err != nil {
		return fmt.Errorf("%w: encode holdings of %s/%s: %v", domain.ErrStore, analogID, portfolioID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO scenario_scores (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		analogID, portfolioID, version, result.PortfolioName, result.Score,
		result.PortfolioReturn, result.BenchmarkReturn, result.Outperformance,
		result.PortfolioDrawdown, result.BenchmarkDrawdown, result.ReturnScore, result.DrawdownScore,
		result.Label, result.Color, holdings, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("%w: write %s/%s v%d: %v", domain.ErrStore, analogID, portfolioID, version, err)
	}

	return nil
}

// ClearAll deletes every cached score of every version
func (r *Repository) ClearAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM scenario_scores")
	if err != nil {
		return 0, fmt.Errorf("%w: clear: %v", domain.ErrStore, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: clear: %v", domain.ErrStore, err)
	}

	r.log.Info().Int64("deleted", deleted).Msg("Cleared scenario score cache")
	return deleted, nil
}

// Stats returns per-version statistics, newest version first
func (r *Repository) Stats(ctx context.Context) ([]VersionStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT version, COUNT(*), AVG(score), MAX(updated_at)
		FROM scenario_scores
		GROUP BY version
		ORDER BY version DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: stats: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	stats := []VersionStats{}
	for rows.Next() {
		var s VersionStats
		var lastUpdate int64
		if err := rows.Scan(&s.Version, &s.TotalEntries, &s.AvgScore, &lastUpdate); err != nil {
			return nil, fmt.Errorf("%w: stats: %v", domain.ErrStore, err)
		}
		s.LastUpdate = time.Unix(lastUpdate, 0).UTC()
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: stats: %v", domain.ErrStore, err)
	}

	return stats, nil
}

// Count returns the number of rows stored under a version
func (r *Repository) Count(ctx context.Context, version int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scenario_scores WHERE version = ?", version).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count v%d: %v", domain.ErrStore, version, err)
	}
	return count, nil
}

// CountByAnalog returns the row count per analog under a version
func (r *Repository) CountByAnalog(ctx context.Context, version int) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT analog_id, COUNT(*)
		FROM scenario_scores
		WHERE version = ?
		GROUP BY analog_id
	`, version)
	if err != nil {
		return nil, fmt.Errorf("%w: count by analog v%d: %v", domain.ErrStore, version, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var analogID string
		var count int
		if err := rows.Scan(&analogID, &count); err != nil {
			return nil, fmt.Errorf("%w: count by analog v%d: %v", domain.ErrStore, version, err)
		}
		counts[analogID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: count by analog v%d: %v", domain.ErrStore, version, err)
	}

	return counts, nil
}

// IsPopulated reports whether a version holds at least every expected row
func (r *Repository) IsPopulated(ctx context.Context, version int) (bool, error) {
	count, err := r.Count(ctx, version)
	if err != nil {
		return false, err
	}
	expected := r.ExpectedEntries()
	return expected > 0 && count >= expected, nil
}

// RecordRun stores a population run summary
func (r *Repository) RecordRun(ctx context.Context, run PopulationRun) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO population_runs (run_id, version, started_at, finished_at, written, failed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.Version, run.StartedAt.Unix(), run.FinishedAt.Unix(), run.Written, run.Failed, nullString(run.Error))
	if err != nil {
		return fmt.Errorf("%w: record run %s: %v", domain.ErrStore, run.RunID, err)
	}
	return nil
}

// LastRun returns the most recent population run, or nil if none ran yet
func (r *Repository) LastRun(ctx context.Context) (*PopulationRun, error) {
	var run PopulationRun
	var startedAt, finishedAt int64
	var runErr sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT run_id, version, started_at, finished_at, written, failed, error
		FROM population_runs
		ORDER BY finished_at DESC, started_at DESC
		LIMIT 1
	`).Scan(&run.RunID, &run.Version, &startedAt, &finishedAt, &run.Written, &run.Failed, &runErr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: last run: %v", domain.ErrStore, err)
	}

	run.StartedAt = time.Unix(startedAt, 0).UTC()
	run.FinishedAt = time.Unix(finishedAt, 0).UTC()
	run.Error = runErr.String
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Reader is the read side of the cache used on the request path
type Reader interface {
	Lookup(ctx context.Context, analogID string, version int) (*LookupResult, error)
	CurrentVersion() int
}

// Writer is the write side of the cache, held only by the population job
type Writer interface {
	Write(ctx context.Context, analogID, portfolioID string, version int, result *domain.ScoreResult) error
	RecordRun(ctx context.Context, run PopulationRun) error
	CurrentVersion() int
}
