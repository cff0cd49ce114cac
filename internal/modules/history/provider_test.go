package history

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/analogs/internal/domain"
)

const testSchema = `
CREATE TABLE daily_prices (
    ticker TEXT    NOT NULL,
    date   INTEGER NOT NULL,
    close  REAL    NOT NULL,
    PRIMARY KEY (ticker, date)
);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// A single connection keeps every query on the same in-memory database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTotalReturn(t *testing.T) {
	assert.InDelta(t, 0.10, TotalReturn([]float64{100, 95, 110}), 1e-12)
	assert.InDelta(t, -0.5, TotalReturn([]float64{100, 50}), 1e-12)
	assert.Equal(t, 0.0, TotalReturn([]float64{100}))
	assert.Equal(t, 0.0, TotalReturn(nil))
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"monotonic rise has no drawdown", []float64{100, 110, 120}, 0},
		{"single dip", []float64{100, 80, 120}, -0.20},
		{"deepest of two dips after new peak", []float64{100, 90, 150, 75, 160}, -0.50},
		{"ends in drawdown", []float64{100, 120, 60}, -0.50},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dd := MaxDrawdown(tt.values)
			assert.InDelta(t, tt.expected, dd, 1e-12)
			assert.LessOrEqual(t, dd, 0.0)
		})
	}
}

func TestProvider_GetReturnAndDrawdown(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	logger := zerolog.New(nil).Level(zerolog.Disabled)
	store := NewPriceStore(db, logger)
	ctx := context.Background()

	require.NoError(t, store.StorePrices(ctx, "spy", []DailyClose{
		{Date: day(2007, 10, 1), Close: 200}, // outside window
		{Date: day(2007, 10, 9), Close: 100},
		{Date: day(2008, 6, 1), Close: 120},
		{Date: day(2008, 11, 1), Close: 60},
		{Date: day(2009, 3, 9), Close: 90},
		{Date: day(2009, 6, 1), Close: 300}, // outside window
	}))

	provider := NewProvider(store)
	window := domain.DateRange{Start: day(2007, 10, 9), End: day(2009, 3, 9)}

	result, err := provider.GetReturnAndDrawdown(ctx, "SPY", window)
	require.NoError(t, err)
	assert.InDelta(t, -0.10, result.Return, 1e-12)
	assert.InDelta(t, -0.50, result.Drawdown, 1e-12)
}

func TestProvider_DataUnavailable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	logger := zerolog.New(nil).Level(zerolog.Disabled)
	store := NewPriceStore(db, logger)
	ctx := context.Background()

	require.NoError(t, store.StorePrices(ctx, "TLT", []DailyClose{{Date: day(2008, 1, 2), Close: 90}}))

	provider := NewProvider(store)
	window := domain.DateRange{Start: day(2007, 10, 9), End: day(2009, 3, 9)}

	_, err := provider.GetReturnAndDrawdown(ctx, "TLT", window)
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable), "single close")

	_, err = provider.GetReturnAndDrawdown(ctx, "MISSING", window)
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable), "no closes")
}

func TestPriceStore_StorePricesUpserts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	logger := zerolog.New(nil).Level(zerolog.Disabled)
	store := NewPriceStore(db, logger)
	ctx := context.Background()

	require.NoError(t, store.StorePrices(ctx, "VTI", []DailyClose{{Date: day(2020, 2, 19), Close: 100}}))
	require.NoError(t, store.StorePrices(ctx, "VTI", []DailyClose{{Date: day(2020, 2, 19).Add(13 * time.Hour), Close: 101}}))

	closes, err := store.GetCloses(ctx, "VTI", domain.DateRange{Start: day(2020, 1, 1), End: day(2020, 12, 31)})
	require.NoError(t, err)
	require.Len(t, closes, 1, "same calendar day must overwrite")
	assert.Equal(t, 101.0, closes[0].Close)
}

func TestPriceStore_RejectsInvalidInput(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	logger := zerolog.New(nil).Level(zerolog.Disabled)
	store := NewPriceStore(db, logger)
	ctx := context.Background()

	assert.Error(t, store.StorePrices(ctx, "", []DailyClose{{Date: day(2020, 1, 1), Close: 1}}))
	assert.Error(t, store.StorePrices(ctx, "VTI", []DailyClose{{Date: day(2020, 1, 1), Close: 0}}))
	assert.NoError(t, store.StorePrices(ctx, "VTI", nil))

	tickers, err := store.Tickers(ctx)
	require.NoError(t, err)
	assert.Empty(t, tickers, "failed transaction must not leave rows behind")
}

func TestPriceStore_ImportCSV(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	logger := zerolog.New(nil).Level(zerolog.Disabled)
	store := NewPriceStore(db, logger)
	ctx := context.Background()

	input := strings.NewReader(`ticker,date,close
VTI,2020-02-19,100
VTI,2020-03-23,66
tlt,2020-02-19,150
TLT,2020-03-23,160
`)

	n, err := store.ImportCSV(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	tickers, err := store.Tickers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"TLT", "VTI"}, tickers)

	_, err = store.ImportCSV(ctx, strings.NewReader("VTI,not-a-date,1\n"))
	assert.Error(t, err)

	_, err = store.ImportCSV(ctx, strings.NewReader("VTI,2020-01-01,1\nVTI,2020-01-02,abc\n"))
	assert.Error(t, err)
}

func TestPriceStore_ImportCSVRejectsMalformedFirstRow(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewPriceStore(db, zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
	}{
		{"unparseable close", "VTI,2020-01-01,1o0\nVTI,2020-01-02,101\n"},
		{"nan close", "VTI,2020-01-01,NaN\n"},
		{"infinite close", "VTI,2020-01-01,+Inf\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := store.ImportCSV(ctx, strings.NewReader(tt.input))
			assert.Error(t, err)
			assert.Equal(t, 0, n)
		})
	}

	tickers, err := store.Tickers(ctx)
	require.NoError(t, err)
	assert.Empty(t, tickers)
}
