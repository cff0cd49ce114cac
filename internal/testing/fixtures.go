package testing

import (
	"github.com/aristath/analogs/internal/domain"
)

// NewScoreResultFixture returns a scored result for a portfolio. The band
// follows the production thresholds.
func NewScoreResultFixture(portfolioID, portfolioName string, score int) *domain.ScoreResult {
	label, color := "Poor", "red"
	switch {
	case score >= 80:
		label, color = "Excellent", "green"
	case score >= 60:
		label, color = "Good", "teal"
	case score >= 40:
		label, color = "Fair", "yellow"
	}

	return &domain.ScoreResult{
		PortfolioID:       portfolioID,
		PortfolioName:     portfolioName,
		Score:             score,
		Label:             label,
		Color:             color,
		PortfolioReturn:   -0.12,
		BenchmarkReturn:   -0.20,
		Outperformance:    0.08,
		PortfolioDrawdown: -0.18,
		BenchmarkDrawdown: -0.27,
		ReturnScore:       65.7,
		DrawdownScore:     71.8,
		Holdings:          NewHoldingsFixtures(),
	}
}

// NewHoldingsFixtures returns a classified 60/40 holding set
func NewHoldingsFixtures() []domain.Holding {
	return []domain.Holding{
		{Ticker: "VTI", AssetClass: domain.AssetClassStocks, Weight: 0.6},
		{Ticker: "IEF", AssetClass: domain.AssetClassBonds, Weight: 0.4},
	}
}

// NewFigureFixtures returns return and drawdown figures for every ticker
// referenced by the built-in catalog and benchmark, shaped like a crisis:
// equities fall hardest, treasuries and gold hold up.
func NewFigureFixtures() map[string]domain.ReturnAndDrawdown {
	return map[string]domain.ReturnAndDrawdown{
		"VTI":  {Return: -0.34, Drawdown: -0.35},
		"VXUS": {Return: -0.32, Drawdown: -0.34},
		"IEF":  {Return: 0.05, Drawdown: -0.03},
		"TIP":  {Return: -0.02, Drawdown: -0.06},
		"GLD":  {Return: -0.03, Drawdown: -0.12},
		"VNQ":  {Return: -0.42, Drawdown: -0.45},
		"BIL":  {Return: 0.002, Drawdown: 0},
		"TAIL": {Return: 0.30, Drawdown: -0.02},
	}
}
