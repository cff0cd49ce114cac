package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/analogs/internal/domain"
	"github.com/aristath/analogs/internal/modules/analogs"
	"github.com/aristath/analogs/internal/modules/catalog"
	"github.com/aristath/analogs/internal/modules/scenarios"
	"github.com/aristath/analogs/internal/modules/scorecache"
	testingutil "github.com/aristath/analogs/internal/testing"
)

func failingScorer() *testingutil.MockScorer {
	scorer := testingutil.NewMockScorer()
	for _, p := range catalog.Default().Portfolios() {
		scorer.FailAll(p.ID)
	}
	return scorer
}

func setupRouter(t *testing.T, scorer *testingutil.MockScorer) (*chi.Mux, *scorecache.Repository, func()) {
	t.Helper()

	db, cleanup := testingutil.NewTestDB(t, "cache")
	registry := analogs.Default()
	cat := catalog.Default()
	repo := scorecache.NewRepository(db.Conn(), scorecache.Config{
		Version:        1,
		AnalogCount:    registry.Count(),
		PortfolioCount: cat.Count(),
	}, zerolog.Nop())

	service := scenarios.NewService(registry, cat, catalog.NewBenchmarkResolver(nil, cat), scorer, repo, nil,
		scenarios.Config{ComputeTimeout: time.Second}, zerolog.Nop())

	router := chi.NewRouter()
	NewHandler(service, zerolog.Nop()).RegisterRoutes(router)
	return router, repo, cleanup
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

func TestHandleScoresByAnalog_Computed(t *testing.T) {
	router, _, cleanup := setupRouter(t, testingutil.NewMockScorer())
	defer cleanup()

	rec, body := do(t, router, http.MethodPost, "/scenarios/scores-by-analog", ScoresRequest{AnalogID: "2008-financial-crisis"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "computed", body["source"])
	assert.Equal(t, "2008 Global Financial Crisis", body["analogName"])
	assert.Equal(t, "2007-10-09 to 2009-03-09", body["analogPeriod"])
	assert.Contains(t, body, "computeTimeMs")

	portfolios, ok := body["portfolios"].([]interface{})
	require.True(t, ok)
	require.Len(t, portfolios, 4)
	first := portfolios[0].(map[string]interface{})
	assert.Equal(t, "classic-60-40", first["portfolioId"])
	assert.Equal(t, float64(72), first["score"])
}

func TestHandleScoresByAnalog_Cached(t *testing.T) {
	router, repo, cleanup := setupRouter(t, failingScorer())
	defer cleanup()

	for _, p := range catalog.Default().Portfolios() {
		require.NoError(t, repo.Write(context.Background(), "2020-covid-crash", p.ID, 1, &domain.ScoreResult{
			PortfolioID: p.ID, PortfolioName: p.Name, Score: 64, Label: "Good", Color: "teal",
		}))
	}

	rec, body := do(t, router, http.MethodPost, "/scenarios/scores-by-analog", ScoresRequest{AnalogID: "2020-covid-crash"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cache", body["source"])
	assert.Len(t, body["portfolios"], 4)
}

func TestHandleScoresByAnalog_BadRequests(t *testing.T) {
	router, _, cleanup := setupRouter(t, testingutil.NewMockScorer())
	defer cleanup()

	tests := []struct {
		name string
		body interface{}
	}{
		{"invalid json", "{not json"},
		{"missing analog", ScoresRequest{}},
		{"blank analog", ScoresRequest{AnalogID: "   "}},
		{"unknown analog", ScoresRequest{AnalogID: "1929-crash"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, router, http.MethodPost, "/scenarios/scores-by-analog", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["message"])
			assert.Equal(t, body["message"], body["error"])
		})
	}
}

func TestHandleScoresByAnalog_AllFailIsServerError(t *testing.T) {
	router, _, cleanup := setupRouter(t, failingScorer())
	defer cleanup()

	rec, body := do(t, router, http.MethodPost, "/scenarios/scores-by-analog", ScoresRequest{AnalogID: "1994-bond-massacre"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["message"])
}

func TestHandleScoresByAnalog_StoreErrorIsServerError(t *testing.T) {
	router, _, cleanup := setupRouter(t, testingutil.NewMockScorer())
	cleanup()

	rec, body := do(t, router, http.MethodPost, "/scenarios/scores-by-analog", ScoresRequest{AnalogID: "1994-bond-massacre"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["message"])
}

func TestHandleCacheStatusAndClear(t *testing.T) {
	router, repo, cleanup := setupRouter(t, testingutil.NewMockScorer())
	defer cleanup()

	rec, body := do(t, router, http.MethodGet, "/scenarios/cache-status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "empty", body["status"])
	assert.Equal(t, float64(1), body["currentVersion"])
	assert.Equal(t, float64(24), body["expectedEntries"])
	assert.Len(t, body["analogs"], 6)

	require.NoError(t, repo.Write(context.Background(), "2022-rate-shock", "all-weather", 1, &domain.ScoreResult{
		PortfolioID: "all-weather", PortfolioName: "All Weather", Score: 50, Label: "Fair", Color: "yellow",
	}))

	_, body = do(t, router, http.MethodGet, "/scenarios/cache-status", nil)
	assert.Equal(t, "partial", body["status"])
	assert.Equal(t, float64(1), body["totalEntries"])

	for _, method := range []string{http.MethodPost, http.MethodGet} {
		rec, body = do(t, router, method, "/scenarios/clear-cache", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["success"])
		assert.NotEmpty(t, body["message"])
	}

	_, body = do(t, router, http.MethodGet, "/scenarios/cache-status", nil)
	assert.Equal(t, "empty", body["status"])
}

func TestHandleGetAnalogsAndPortfolios(t *testing.T) {
	router, _, cleanup := setupRouter(t, testingutil.NewMockScorer())
	defer cleanup()

	rec, body := do(t, router, http.MethodGet, "/scenarios/analogs", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	list := body["analogs"].([]interface{})
	require.Len(t, list, 6)
	first := list[0].(map[string]interface{})
	assert.Equal(t, "1973-oil-shock", first["id"])
	assert.Equal(t, "1973-01-11", first["start"])

	rec, body = do(t, router, http.MethodGet, "/scenarios/portfolios", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["portfolios"], 4)
	bench := body["benchmark"].(map[string]interface{})
	assert.Equal(t, "flagship-fund", bench["id"])
}

func TestRegisterRoutes(t *testing.T) {
	router, _, cleanup := setupRouter(t, testingutil.NewMockScorer())
	defer cleanup()

	routes := map[string]bool{}
	err := chi.Walk(router, func(method, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		routes[method+" "+route] = true
		return nil
	})
	require.NoError(t, err)

	for _, expected := range []string{
		"POST /scenarios/scores-by-analog",
		"GET /scenarios/cache-status",
		"POST /scenarios/clear-cache",
		"GET /scenarios/clear-cache",
		"GET /scenarios/analogs",
		"GET /scenarios/portfolios",
	} {
		assert.True(t, routes[expected], expected)
	}
}
