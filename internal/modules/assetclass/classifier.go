// Package assetclass maps ticker symbols to coarse asset classes and
// collapses ticker-level holdings into an asset-class view.
package assetclass

import (
	"regexp"
	"strings"

	"github.com/aristath/analogs/internal/domain"
)

// rule is a single classification rule set. A ticker matches the rule when
// it is in the exact set or matches one of the patterns.
type rule struct {
	class    domain.AssetClass
	exact    map[string]bool
	patterns []*regexp.Regexp
}

func (r rule) matches(ticker string) bool {
	if r.exact[ticker] {
		return true
	}
	for _, p := range r.patterns {
		if p.MatchString(ticker) {
			return true
		}
	}
	return false
}

func set(tickers ...string) map[string]bool {
	m := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		m[t] = true
	}
	return m
}

// rules are evaluated in order; the first match wins.
// Hedges come first so that inverse bond/equity funds are never read as
// their underlying class.
var rules = []rule{
	{
		class: domain.AssetClassHedges,
		exact: set("SH", "PSQ", "DOG", "RWM", "SDS", "QID", "DXD", "SPXU", "SQQQ", "SPXS",
			"TBF", "TBT", "TAIL", "BTAL", "VIXY", "VXX", "UVXY", "SVOL", "CTA", "DBMF", "KMLM"),
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^SHORT[-_]`),
			regexp.MustCompile(`[-_](INV|INVERSE|SHORT|BEAR)$`),
		},
	},
	{
		class: domain.AssetClassCash,
		exact: set("CASH", "USD", "EUR", "BIL", "SHV", "SGOV", "MINT", "USFR", "TFLO", "JPST", "BILS", "XBIL"),
		patterns: []*regexp.Regexp{
			// Money market funds: five letters ending in XX (SPAXX, VMFXX, SWVXX)
			regexp.MustCompile(`^[A-Z]{3}XX$`),
			regexp.MustCompile(`^CASH[-_]`),
		},
	},
	{
		class: domain.AssetClassBonds,
		exact: set("AGG", "BND", "BNDX", "TLT", "IEF", "IEI", "SHY", "GOVT", "VGIT", "VGLT", "VGSH",
			"EDV", "ZROZ", "LQD", "HYG", "JNK", "TIP", "SCHP", "VTIP", "STIP", "EMB", "MUB", "SCHZ",
			"SPAB", "IUSB", "VCIT", "VCSH", "BSV", "BIV", "BLV", "FBND", "IGIB"),
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^TREAS`),
			regexp.MustCompile(`[-_]BOND$`),
		},
	},
	{
		class: domain.AssetClassRealEstate,
		exact: set("VNQ", "VNQI", "IYR", "SCHH", "XLRE", "RWR", "REET", "USRT", "FREL", "ICF", "RWO", "REM"),
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`[-_]REIT$`),
		},
	},
	{
		class: domain.AssetClassCommodities,
		exact: set("GLD", "IAU", "GLDM", "SGOL", "SLV", "SIVR", "PPLT", "DBC", "GSG", "PDBC", "COMT",
			"BCI", "DBA", "USO", "UNG", "CPER", "DJP", "FTGC", "GCC"),
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^(GOLD|SILVER|OIL)[-_]`),
		},
	},
}

// Classify maps a ticker to its asset class. The function is total:
// unmatched tickers are stocks.
func Classify(ticker string) domain.AssetClass {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	for _, r := range rules {
		if r.matches(t) {
			return r.class
		}
	}
	return domain.AssetClassStocks
}

// ClassifyHoldings returns a copy of holdings with AssetClass set from the
// ticker. Holdings that already carry a valid class keep it.
func ClassifyHoldings(holdings []domain.Holding) []domain.Holding {
	out := make([]domain.Holding, len(holdings))
	for i, h := range holdings {
		if !h.AssetClass.Valid() {
			h.AssetClass = Classify(h.Ticker)
		}
		out[i] = h
	}
	return out
}
