package history

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/aristath/analogs/internal/domain"
)

// minCloses is the smallest series that yields a return
const minCloses = 2

// Provider computes window return and drawdown from stored daily closes
type Provider struct {
	store *PriceStore
}

// NewProvider creates a provider backed by the price store
func NewProvider(store *PriceStore) *Provider {
	return &Provider{store: store}
}

// GetReturnAndDrawdown implements domain.ReturnProvider
func (p *Provider) GetReturnAndDrawdown(ctx context.Context, ticker string, dateRange domain.DateRange) (domain.ReturnAndDrawdown, error) {
	closes, err := p.store.GetCloses(ctx, ticker, dateRange)
	if err != nil {
		return domain.ReturnAndDrawdown{}, err
	}

	if len(closes) < minCloses {
		return domain.ReturnAndDrawdown{}, fmt.Errorf("%w: %d closes for %s over %s",
			domain.ErrDataUnavailable, len(closes), ticker, dateRange)
	}

	values := make([]float64, len(closes))
	for i, c := range closes {
		values[i] = c.Close
	}

	return domain.ReturnAndDrawdown{
		Return:   TotalReturn(values),
		Drawdown: MaxDrawdown(values),
	}, nil
}

// TotalReturn is the fractional change from the first to the last value
func TotalReturn(values []float64) float64 {
	if len(values) < minCloses || values[0] == 0 {
		return 0
	}
	return values[len(values)-1]/values[0] - 1
}

// MaxDrawdown is the deepest peak-to-trough decline of the series as a
// fraction <= 0. A series that never falls below its running peak has a
// drawdown of 0.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	drawdowns := make([]float64, len(values))
	peak := values[0]
	for i, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			drawdowns[i] = v/peak - 1
		}
	}

	return floats.Min(drawdowns)
}
