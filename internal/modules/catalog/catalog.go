// Package catalog loads the scored portfolio catalog and resolves portfolio
// definitions to concrete holdings.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aristath/analogs/internal/domain"
	"github.com/aristath/analogs/internal/modules/assetclass"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

type holdingFile struct {
	Ticker     string  `yaml:"ticker"`
	AssetClass string  `yaml:"asset_class"`
	Weight     float64 `yaml:"weight"`
}

type portfolioFile struct {
	ID         string                        `yaml:"id"`
	Name       string                        `yaml:"name"`
	Allocation map[domain.AssetClass]float64 `yaml:"allocation"`
}

type catalogFile struct {
	Proxies   map[domain.AssetClass]string `yaml:"proxies"`
	Benchmark struct {
		ID       string        `yaml:"id"`
		Name     string        `yaml:"name"`
		Holdings []holdingFile `yaml:"holdings"`
	} `yaml:"benchmark"`
	Portfolios []portfolioFile `yaml:"portfolios"`
}

// Catalog is the validated set of scored portfolios, the benchmark
// definition and the proxy ticker of each asset class.
type Catalog struct {
	portfolios []domain.PortfolioDefinition
	benchmark  domain.PortfolioDefinition
	proxies    map[domain.AssetClass]string
}

// Load reads the catalog at path, or the embedded catalog when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(embeddedCatalog)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the embedded catalog. It panics if the embedded file is
// invalid, which can only happen at build time.
func Default() *Catalog {
	c, err := Parse(embeddedCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded portfolio catalog is invalid: %v", err))
	}
	return c
}

// Parse decodes and validates a YAML catalog
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}

	c := &Catalog{proxies: make(map[domain.AssetClass]string, len(file.Proxies))}

	for class, ticker := range file.Proxies {
		if !class.Valid() {
			return nil, fmt.Errorf("%w: unknown asset class %q in proxies", domain.ErrInvalidCatalog, class)
		}
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker == "" {
			return nil, fmt.Errorf("%w: empty proxy ticker for %s", domain.ErrInvalidCatalog, class)
		}
		c.proxies[class] = ticker
	}

	if len(file.Portfolios) == 0 {
		return nil, fmt.Errorf("%w: no portfolios", domain.ErrInvalidCatalog)
	}

	seen := make(map[string]bool)
	for _, p := range file.Portfolios {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("%w: portfolio requires id and name", domain.ErrInvalidCatalog)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: duplicate portfolio id %q", domain.ErrInvalidCatalog, p.ID)
		}
		seen[p.ID] = true

		if len(p.Allocation) == 0 {
			return nil, fmt.Errorf("%w: portfolio %q has no allocation", domain.ErrInvalidCatalog, p.ID)
		}
		for class, pct := range p.Allocation {
			if !class.Valid() {
				return nil, fmt.Errorf("%w: portfolio %q: unknown asset class %q", domain.ErrInvalidCatalog, p.ID, class)
			}
			if pct <= 0 {
				return nil, fmt.Errorf("%w: portfolio %q: non-positive allocation for %s", domain.ErrInvalidCatalog, p.ID, class)
			}
			if _, ok := c.proxies[class]; !ok {
				return nil, fmt.Errorf("%w: portfolio %q: no proxy ticker for %s", domain.ErrInvalidCatalog, p.ID, class)
			}
		}

		c.portfolios = append(c.portfolios, domain.PortfolioDefinition{
			ID:         p.ID,
			Name:       p.Name,
			Kind:       domain.PortfolioKindAllocation,
			Allocation: p.Allocation,
		})
	}

	bench := file.Benchmark
	if bench.ID == "" || bench.Name == "" {
		return nil, fmt.Errorf("%w: benchmark requires id and name", domain.ErrInvalidCatalog)
	}
	if seen[bench.ID] {
		return nil, fmt.Errorf("%w: benchmark id %q collides with a portfolio", domain.ErrInvalidCatalog, bench.ID)
	}
	if len(bench.Holdings) == 0 {
		return nil, fmt.Errorf("%w: benchmark has no default holdings", domain.ErrInvalidCatalog)
	}

	holdings := make([]domain.Holding, 0, len(bench.Holdings))
	for _, h := range bench.Holdings {
		if strings.TrimSpace(h.Ticker) == "" || !assetclass.IsValidWeight(h.Weight) {
			return nil, fmt.Errorf("%w: benchmark holding requires ticker and positive weight", domain.ErrInvalidCatalog)
		}
		holdings = append(holdings, domain.Holding{
			Ticker:     strings.ToUpper(strings.TrimSpace(h.Ticker)),
			AssetClass: domain.AssetClass(h.AssetClass),
			Weight:     h.Weight,
		})
	}

	c.benchmark = domain.PortfolioDefinition{
		ID:       bench.ID,
		Name:     bench.Name,
		Kind:     domain.PortfolioKindHoldings,
		Holdings: assetclass.ClassifyHoldings(holdings),
	}

	return c, nil
}

// Portfolios returns the scored portfolios in catalog order
func (c *Catalog) Portfolios() []domain.PortfolioDefinition {
	out := make([]domain.PortfolioDefinition, len(c.portfolios))
	copy(out, c.portfolios)
	return out
}

// Count returns the number of scored portfolios
func (c *Catalog) Count() int {
	return len(c.portfolios)
}

// GetByID returns a scored portfolio by id
func (c *Catalog) GetByID(id string) (domain.PortfolioDefinition, bool) {
	for _, p := range c.portfolios {
		if p.ID == id {
			return p, true
		}
	}
	return domain.PortfolioDefinition{}, false
}

// DefaultBenchmark returns the benchmark with its catalog holdings
func (c *Catalog) DefaultBenchmark() domain.PortfolioDefinition {
	b := c.benchmark
	b.Holdings = append([]domain.Holding(nil), c.benchmark.Holdings...)
	return b
}

// Proxy returns the proxy ticker of an asset class
func (c *Catalog) Proxy(class domain.AssetClass) (string, bool) {
	t, ok := c.proxies[class]
	return t, ok
}

// ResolveHoldings turns a portfolio definition into weighted holdings.
// Allocation percentages become fractional weights on the proxy tickers,
// listed in asset-class display order. Holdings portfolios are returned
// classified.
func (c *Catalog) ResolveHoldings(p domain.PortfolioDefinition) ([]domain.Holding, error) {
	switch p.Kind {
	case domain.PortfolioKindHoldings:
		if len(p.Holdings) == 0 {
			return nil, fmt.Errorf("%w: portfolio %q has no holdings", domain.ErrInsufficientData, p.ID)
		}
		return assetclass.ClassifyHoldings(p.Holdings), nil

	case domain.PortfolioKindAllocation:
		var holdings []domain.Holding
		for _, class := range domain.AllAssetClasses {
			pct, ok := p.Allocation[class]
			if !ok || pct <= 0 {
				continue
			}
			if !assetclass.IsValidWeight(pct) {
				return nil, fmt.Errorf("%w: non-finite %s allocation in %q", domain.ErrInsufficientData, class, p.ID)
			}
			ticker, ok := c.proxies[class]
			if !ok {
				return nil, fmt.Errorf("%w: no proxy ticker for %s", domain.ErrInsufficientData, class)
			}
			holdings = append(holdings, domain.Holding{
				Ticker:     ticker,
				AssetClass: class,
				Weight:     pct / 100,
			})
		}
		if len(holdings) == 0 {
			return nil, fmt.Errorf("%w: portfolio %q has no allocation", domain.ErrInsufficientData, p.ID)
		}
		return holdings, nil

	default:
		return nil, fmt.Errorf("unknown portfolio kind %q", p.Kind)
	}
}
