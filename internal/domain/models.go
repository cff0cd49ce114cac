// Package domain provides core domain models and types.
package domain

import "time"

// AssetClass represents the coarse asset class of a holding
type AssetClass string

const (
	AssetClassStocks      AssetClass = "stocks"
	AssetClassBonds       AssetClass = "bonds"
	AssetClassCommodities AssetClass = "commodities"
	AssetClassCash        AssetClass = "cash"
	AssetClassRealEstate  AssetClass = "real-estate"
	AssetClassHedges      AssetClass = "hedges"
)

// AllAssetClasses lists every asset class in display order
var AllAssetClasses = []AssetClass{
	AssetClassStocks,
	AssetClassBonds,
	AssetClassCommodities,
	AssetClassCash,
	AssetClassRealEstate,
	AssetClassHedges,
}

// Valid reports whether the asset class is one of the known classes
func (a AssetClass) Valid() bool {
	for _, c := range AllAssetClasses {
		if c == a {
			return true
		}
	}
	return false
}

// DateRange is an inclusive calendar window
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// String formats the range as "2006-01-02 to 2006-01-02"
func (r DateRange) String() string {
	return r.Start.Format("2006-01-02") + " to " + r.End.Format("2006-01-02")
}

// HistoricalAnalog is a named historical period used as a backtest window
type HistoricalAnalog struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	DateRange   DateRange `json:"dateRange"`
}

// Holding is a single weighted position in a portfolio
type Holding struct {
	Ticker     string     `json:"ticker" msgpack:"t"`
	AssetClass AssetClass `json:"assetClass" msgpack:"c"`
	Weight     float64    `json:"weight" msgpack:"w"`
}

// AssetClassWeight is the aggregated weight of one asset class
type AssetClassWeight struct {
	AssetClass AssetClass `json:"assetClass"`
	Weight     float64    `json:"weight"`
}

// PortfolioKind distinguishes holdings-backed from allocation-style portfolios
type PortfolioKind string

const (
	PortfolioKindHoldings   PortfolioKind = "holdings"
	PortfolioKindAllocation PortfolioKind = "allocation"
)

// PortfolioDefinition is either a concrete holdings list or a target
// asset-class allocation (percent per class). Allocation portfolios are
// resolved to Holdings through proxy tickers before scoring.
type PortfolioDefinition struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Kind       PortfolioKind          `json:"kind"`
	Holdings   []Holding              `json:"holdings,omitempty"`
	Allocation map[AssetClass]float64 `json:"allocation,omitempty"`
}

// ScoreResult is the output of scoring one portfolio against one analog
type ScoreResult struct {
	PortfolioID       string             `json:"portfolioId"`
	PortfolioName     string             `json:"portfolioName"`
	Label             string             `json:"label"`
	Color             string             `json:"color"`
	Holdings          []Holding          `json:"holdings"`
	AssetClasses      []AssetClassWeight `json:"assetClasses,omitempty"`
	Score             int                `json:"score"`
	PortfolioReturn   float64            `json:"portfolioReturn"`
	BenchmarkReturn   float64            `json:"benchmarkReturn"`
	Outperformance    float64            `json:"outperformance"`
	PortfolioDrawdown float64            `json:"portfolioDrawdown"`
	BenchmarkDrawdown float64            `json:"benchmarkDrawdown"`
	ReturnScore       float64            `json:"returnScore"`
	DrawdownScore     float64            `json:"drawdownScore"`
}

// CachedPortfolioScore is a persisted ScoreResult
type CachedPortfolioScore struct {
	UpdatedAt time.Time `json:"updatedAt"`
	AnalogID  string    `json:"analogId"`
	ScoreResult
	Version int `json:"version"`
}

// ReturnAndDrawdown holds the realized figures of one series over a window.
// Both values are fractional; Drawdown is <= 0.
type ReturnAndDrawdown struct {
	Return   float64 `json:"return"`
	Drawdown float64 `json:"drawdown"`
}
