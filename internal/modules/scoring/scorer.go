// Package scoring scores a portfolio against a benchmark over a historical
// analog window.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/aristath/analogs/internal/domain"
	"github.com/aristath/analogs/internal/modules/assetclass"
)

const (
	// returnScale is the outperformance at which ReturnScore reaches ~88
	returnScale = 0.25
	// drawdownScale is the drawdown advantage at which DrawdownScore reaches ~88
	drawdownScale = 0.20

	returnWeight   = 0.5
	drawdownWeight = 0.5
)

// HoldingsResolver turns a portfolio definition into weighted holdings
type HoldingsResolver interface {
	ResolveHoldings(p domain.PortfolioDefinition) ([]domain.Holding, error)
}

// Scorer computes ScoreResults from realized historical returns
type Scorer struct {
	analogs  domain.AnalogResolver
	provider domain.ReturnProvider
	holdings HoldingsResolver
	log      zerolog.Logger
}

// NewScorer creates a scorer
func NewScorer(analogs domain.AnalogResolver, provider domain.ReturnProvider, holdings HoldingsResolver, log zerolog.Logger) *Scorer {
	return &Scorer{
		analogs:  analogs,
		provider: provider,
		holdings: holdings,
		log:      log.With().Str("component", "scorer").Logger(),
	}
}

// Score evaluates portfolio against benchmark over the analog's window.
// A holding without a usable series fails the whole computation with
// ErrInsufficientData; missing data is never treated as a zero return.
func (s *Scorer) Score(ctx context.Context, analogID string, portfolio, benchmark domain.PortfolioDefinition) (*domain.ScoreResult, error) {
	analog, err := s.analogs.Resolve(analogID)
	if err != nil {
		return nil, err
	}

	holdings, err := s.resolve(portfolio)
	if err != nil {
		return nil, fmt.Errorf("portfolio %s: %w", portfolio.ID, err)
	}
	benchHoldings, err := s.resolve(benchmark)
	if err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", benchmark.ID, err)
	}

	port, err := s.weighted(ctx, holdings, analog.DateRange)
	if err != nil {
		return nil, fmt.Errorf("portfolio %s over %s: %w", portfolio.ID, analog.ID, err)
	}
	bench, err := s.weighted(ctx, benchHoldings, analog.DateRange)
	if err != nil {
		return nil, fmt.Errorf("benchmark %s over %s: %w", benchmark.ID, analog.ID, err)
	}

	outperformance := port.Return - bench.Return
	returnScore := ReturnScore(outperformance)
	drawdownScore := DrawdownScore(port.Drawdown, bench.Drawdown)
	score := Composite(returnScore, drawdownScore)
	label, color := Band(score)

	result := &domain.ScoreResult{
		PortfolioID:       portfolio.ID,
		PortfolioName:     portfolio.Name,
		Label:             label,
		Color:             color,
		Holdings:          holdings,
		Score:             score,
		PortfolioReturn:   port.Return,
		BenchmarkReturn:   bench.Return,
		Outperformance:    outperformance,
		PortfolioDrawdown: port.Drawdown,
		BenchmarkDrawdown: bench.Drawdown,
		ReturnScore:       returnScore,
		DrawdownScore:     drawdownScore,
	}

	s.log.Debug().
		Str("analog", analog.ID).
		Str("portfolio", portfolio.ID).
		Int("score", score).
		Float64("outperformance", outperformance).
		Msg("Scored portfolio")

	return result, nil
}

func (s *Scorer) resolve(p domain.PortfolioDefinition) ([]domain.Holding, error) {
	holdings, err := s.holdings.ResolveHoldings(p)
	if err != nil {
		return nil, err
	}
	normalized, err := assetclass.NormalizeWeights(holdings)
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

// weighted returns the weight-averaged return and drawdown of holdings
func (s *Scorer) weighted(ctx context.Context, holdings []domain.Holding, window domain.DateRange) (domain.ReturnAndDrawdown, error) {
	weights := make([]float64, len(holdings))
	returns := make([]float64, len(holdings))
	drawdowns := make([]float64, len(holdings))

	for i, h := range holdings {
		rd, err := s.provider.GetReturnAndDrawdown(ctx, h.Ticker, window)
		if err != nil {
			return domain.ReturnAndDrawdown{}, fmt.Errorf("%w: %s: %w", domain.ErrInsufficientData, h.Ticker, err)
		}
		weights[i] = h.Weight
		returns[i] = rd.Return
		drawdowns[i] = rd.Drawdown
	}

	return domain.ReturnAndDrawdown{
		Return:   floats.Dot(weights, returns),
		Drawdown: floats.Dot(weights, drawdowns),
	}, nil
}

// ReturnScore maps outperformance (portfolio minus benchmark return) to
// (0, 100). It is 50 at zero and saturates for large differences.
func ReturnScore(outperformance float64) float64 {
	return 50 + 50*math.Tanh(outperformance/returnScale)
}

// DrawdownScore maps the drawdown difference to (0, 100). Drawdowns are
// <= 0, so a shallower portfolio drawdown (p > b) scores above 50.
func DrawdownScore(portfolioDrawdown, benchmarkDrawdown float64) float64 {
	return 50 + 50*math.Tanh((portfolioDrawdown-benchmarkDrawdown)/drawdownScale)
}

// Composite blends the sub-scores into an integer score in [0, 100]
func Composite(returnScore, drawdownScore float64) int {
	score := int(math.Round(returnWeight*returnScore + drawdownWeight*drawdownScore))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Band returns the label and color for a score
func Band(score int) (label, color string) {
	switch {
	case score >= 80:
		return "Excellent", "green"
	case score >= 60:
		return "Good", "teal"
	case score >= 40:
		return "Fair", "yellow"
	default:
		return "Poor", "red"
	}
}
