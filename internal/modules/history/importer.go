package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ImportCSV reads rows of "ticker,date,close" (date as YYYY-MM-DD) and stores
// them grouped by ticker. A first row whose close column reads "close" is a
// header and is skipped. Returns the number of rows stored.
func (s *PriceStore) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true

	byTicker := make(map[string][]DailyClose)
	var order []string
	line := 0

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}

		if line == 1 && strings.EqualFold(strings.TrimSpace(record[2]), "close") {
			continue
		}

		closeValue, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil {
			return 0, fmt.Errorf("line %d: invalid close %q: %w", line, record[2], err)
		}

		date, err := time.Parse("2006-01-02", strings.TrimSpace(record[1]))
		if err != nil {
			return 0, fmt.Errorf("line %d: invalid date %q: %w", line, record[1], err)
		}

		ticker := strings.ToUpper(strings.TrimSpace(record[0]))
		if _, seen := byTicker[ticker]; !seen {
			order = append(order, ticker)
		}
		byTicker[ticker] = append(byTicker[ticker], DailyClose{Date: date, Close: closeValue})
	}

	stored := 0
	for _, ticker := range order {
		if err := s.StorePrices(ctx, ticker, byTicker[ticker]); err != nil {
			return stored, err
		}
		stored += len(byTicker[ticker])
	}

	s.log.Info().Int("rows", stored).Int("tickers", len(order)).Msg("Imported daily prices")
	return stored, nil
}
