// Package history provides historical price storage and the return/drawdown
// provider used by scenario scoring.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/analogs/internal/database"
	"github.com/aristath/analogs/internal/domain"
)

// DailyClose is one closing price
type DailyClose struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceStore provides access to the daily_prices table
type PriceStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPriceStore creates a new price store
func NewPriceStore(db *sql.DB, log zerolog.Logger) *PriceStore {
	return &PriceStore{
		db:  db,
		log: log.With().Str("component", "price_store").Logger(),
	}
}

// dayUnix truncates t to its UTC calendar day and returns the Unix timestamp
func dayUnix(t time.Time) int64 {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}

// StorePrices upserts closing prices for a ticker in a single transaction
func (s *PriceStore) StorePrices(ctx context.Context, ticker string, closes []DailyClose) error {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return fmt.Errorf("ticker is required")
	}
	if len(closes) == 0 {
		return nil
	}

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO daily_prices (ticker, date, close)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range closes {
			if c.Close <= 0 || math.IsNaN(c.Close) || math.IsInf(c.Close, 0) {
				return fmt.Errorf("invalid close %.4f for %s on %s", c.Close, ticker, c.Date.Format("2006-01-02"))
			}
			if _, err := stmt.ExecContext(ctx, ticker, dayUnix(c.Date), c.Close); err != nil {
				return fmt.Errorf("failed to insert close for %s: %w", ticker, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Debug().Str("ticker", ticker).Int("count", len(closes)).Msg("Stored daily prices")
	return nil
}

// GetCloses returns the closes for a ticker inside the inclusive window,
// ordered by date ascending
func (s *PriceStore) GetCloses(ctx context.Context, ticker string, dateRange domain.DateRange) ([]DailyClose, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, close
		FROM daily_prices
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, strings.ToUpper(strings.TrimSpace(ticker)), dayUnix(dateRange.Start), dayUnix(dateRange.End))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var closes []DailyClose
	for rows.Next() {
		var dateUnix int64
		var c DailyClose
		if err := rows.Scan(&dateUnix, &c.Close); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}
		c.Date = time.Unix(dateUnix, 0).UTC()
		closes = append(closes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return closes, nil
}

// Tickers returns every ticker with at least one stored price
func (s *PriceStore) Tickers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT ticker FROM daily_prices ORDER BY ticker")
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}
