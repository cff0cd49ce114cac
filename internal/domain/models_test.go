package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetClassValid(t *testing.T) {
	tests := []struct {
		name     string
		class    AssetClass
		expected bool
	}{
		{"stocks", AssetClassStocks, true},
		{"bonds", AssetClassBonds, true},
		{"commodities", AssetClassCommodities, true},
		{"cash", AssetClassCash, true},
		{"real estate", AssetClassRealEstate, true},
		{"hedges", AssetClassHedges, true},
		{"empty", AssetClass(""), false},
		{"unknown", AssetClass("crypto"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.class.Valid())
		})
	}
}

func TestDateRangeString(t *testing.T) {
	r := DateRange{
		Start: time.Date(2007, 10, 9, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2009, 3, 9, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "2007-10-09 to 2009-03-09", r.String())
}

func TestCachedPortfolioScoreJSONIsFlat(t *testing.T) {
	cached := CachedPortfolioScore{
		AnalogID: "2008-financial-crisis",
		Version:  2,
		ScoreResult: ScoreResult{
			PortfolioID: "balanced",
			Score:       64,
		},
	}

	data, err := json.Marshal(cached)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "balanced", fields["portfolioId"])
	assert.Equal(t, "2008-financial-crisis", fields["analogId"])
	assert.EqualValues(t, 64, fields["score"])
	assert.EqualValues(t, 2, fields["version"])
}

func TestErrorsAreDistinguishable(t *testing.T) {
	wrapped := fmt.Errorf("scoring balanced: %w", ErrInsufficientData)
	assert.True(t, errors.Is(wrapped, ErrInsufficientData))
	assert.False(t, errors.Is(wrapped, ErrUnknownAnalog))
	assert.False(t, errors.Is(wrapped, ErrStore))
}
