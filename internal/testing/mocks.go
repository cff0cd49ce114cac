package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/aristath/analogs/internal/domain"
)

// MockReturnProvider is a mock implementation of domain.ReturnProvider for testing.
// Tickers without figures report ErrDataUnavailable.
type MockReturnProvider struct {
	mu      sync.RWMutex
	figures map[string]domain.ReturnAndDrawdown
	err     error
	calls   int
}

// NewMockReturnProvider creates a new mock return provider
func NewMockReturnProvider() *MockReturnProvider {
	return &MockReturnProvider{
		figures: make(map[string]domain.ReturnAndDrawdown),
	}
}

// SetFigures sets the figures returned for a ticker
func (m *MockReturnProvider) SetFigures(ticker string, rd domain.ReturnAndDrawdown) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.figures[ticker] = rd
}

// SetAllFigures replaces every ticker's figures
func (m *MockReturnProvider) SetAllFigures(figures map[string]domain.ReturnAndDrawdown) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.figures = make(map[string]domain.ReturnAndDrawdown, len(figures))
	for ticker, rd := range figures {
		m.figures[ticker] = rd
	}
}

// SetError sets the error to return for every ticker
func (m *MockReturnProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// GetReturnAndDrawdown returns the configured figures
func (m *MockReturnProvider) GetReturnAndDrawdown(ctx context.Context, ticker string, dateRange domain.DateRange) (domain.ReturnAndDrawdown, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.err != nil {
		return domain.ReturnAndDrawdown{}, m.err
	}
	rd, ok := m.figures[ticker]
	if !ok {
		return domain.ReturnAndDrawdown{}, fmt.Errorf("%w: %s", domain.ErrDataUnavailable, ticker)
	}
	return rd, nil
}

// CallCount returns the number of GetReturnAndDrawdown calls
func (m *MockReturnProvider) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// MockScorer is a mock portfolio scorer. By default every portfolio scores
// 72 (Good); failures are configured per portfolio id.
type MockScorer struct {
	mu       sync.RWMutex
	score    int
	failures map[string]error
	calls    map[string]int
}

// NewMockScorer creates a new mock scorer
func NewMockScorer() *MockScorer {
	return &MockScorer{
		score:    72,
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// SetScore sets the score returned for every portfolio
func (m *MockScorer) SetScore(score int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.score = score
}

// SetError makes scoring of one portfolio fail
func (m *MockScorer) SetError(portfolioID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[portfolioID] = err
}

// FailAll makes every portfolio in ids fail with ErrInsufficientData
func (m *MockScorer) FailAll(ids ...string) {
	for _, id := range ids {
		m.SetError(id, fmt.Errorf("%w: %s", domain.ErrInsufficientData, id))
	}
}

// Score returns a fixture result or the configured error
func (m *MockScorer) Score(ctx context.Context, analogID string, portfolio, benchmark domain.PortfolioDefinition) (*domain.ScoreResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[analogID+"/"+portfolio.ID]++

	if err := m.failures[portfolio.ID]; err != nil {
		return nil, err
	}
	return NewScoreResultFixture(portfolio.ID, portfolio.Name, m.score), nil
}

// CallCount returns the number of Score calls for an analog/portfolio pair
func (m *MockScorer) CallCount(analogID, portfolioID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[analogID+"/"+portfolioID]
}
