// Package analogs provides the static catalog of historical market analogs.
package analogs

import (
	"fmt"
	"time"

	"github.com/aristath/analogs/internal/domain"
)

// Registry is a read-only, insertion-ordered catalog of historical analogs
type Registry struct {
	byID    map[string]int
	analogs []domain.HistoricalAnalog
}

// NewRegistry builds a registry, rejecting empty ids, duplicate ids and
// windows where start is not before end.
func NewRegistry(analogs []domain.HistoricalAnalog) (*Registry, error) {
	r := &Registry{
		byID:    make(map[string]int, len(analogs)),
		analogs: make([]domain.HistoricalAnalog, 0, len(analogs)),
	}

	for _, a := range analogs {
		if a.ID == "" {
			return nil, fmt.Errorf("%w: analog with empty id", domain.ErrInvalidCatalog)
		}
		if _, exists := r.byID[a.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate analog id %q", domain.ErrInvalidCatalog, a.ID)
		}
		if !a.DateRange.Start.Before(a.DateRange.End) {
			return nil, fmt.Errorf("%w: analog %q start %s is not before end %s",
				domain.ErrInvalidCatalog, a.ID,
				a.DateRange.Start.Format("2006-01-02"), a.DateRange.End.Format("2006-01-02"))
		}
		r.byID[a.ID] = len(r.analogs)
		r.analogs = append(r.analogs, a)
	}

	return r, nil
}

// Default returns the registry built from the built-in catalog
func Default() *Registry {
	r, err := NewRegistry(builtinAnalogs)
	if err != nil {
		// The built-in catalog is validated by tests
		panic(err)
	}
	return r
}

// GetByID returns the analog with the given id
func (r *Registry) GetByID(id string) (domain.HistoricalAnalog, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return domain.HistoricalAnalog{}, false
	}
	return r.analogs[idx], true
}

// Resolve returns the analog with the given id or an error wrapping
// domain.ErrUnknownAnalog
func (r *Registry) Resolve(id string) (domain.HistoricalAnalog, error) {
	analog, ok := r.GetByID(id)
	if !ok {
		return domain.HistoricalAnalog{}, fmt.Errorf("%w: %q", domain.ErrUnknownAnalog, id)
	}
	return analog, nil
}

// ListAll returns every analog in insertion order. The returned slice is a
// copy and may be modified by the caller.
func (r *Registry) ListAll() []domain.HistoricalAnalog {
	out := make([]domain.HistoricalAnalog, len(r.analogs))
	copy(out, r.analogs)
	return out
}

// Count returns the number of registered analogs
func (r *Registry) Count() int {
	return len(r.analogs)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// builtinAnalogs are peak-to-trough windows of the reference equity market
var builtinAnalogs = []domain.HistoricalAnalog{
	{
		ID:          "1973-oil-shock",
		Name:        "1973-74 Oil Shock & Stagflation",
		Description: "OPEC embargo, double-digit inflation and a prolonged equity bear market.",
		DateRange:   domain.DateRange{Start: date(1973, time.January, 11), End: date(1974, time.October, 3)},
	},
	{
		ID:          "1994-bond-massacre",
		Name:        "1994 Bond Massacre",
		Description: "Surprise Federal Reserve tightening cycle that repriced the whole yield curve.",
		DateRange:   domain.DateRange{Start: date(1994, time.February, 4), End: date(1994, time.November, 22)},
	},
	{
		ID:          "2000-dotcom-crash",
		Name:        "2000-02 Dot-Com Crash",
		Description: "Collapse of technology valuations followed by recession and accounting scandals.",
		DateRange:   domain.DateRange{Start: date(2000, time.March, 24), End: date(2002, time.October, 9)},
	},
	{
		ID:          "2008-financial-crisis",
		Name:        "2008 Global Financial Crisis",
		Description: "Housing and credit market collapse, bank failures and a deep recession.",
		DateRange:   domain.DateRange{Start: date(2007, time.October, 9), End: date(2009, time.March, 9)},
	},
	{
		ID:          "2020-covid-crash",
		Name:        "2020 COVID-19 Crash",
		Description: "Pandemic lockdowns triggering the fastest bear market on record.",
		DateRange:   domain.DateRange{Start: date(2020, time.February, 19), End: date(2020, time.March, 23)},
	},
	{
		ID:          "2022-rate-shock",
		Name:        "2022 Inflation & Rate Shock",
		Description: "Fastest tightening cycle in decades; stocks and bonds fell together.",
		DateRange:   domain.DateRange{Start: date(2022, time.January, 3), End: date(2022, time.October, 12)},
	},
}
