package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI against a fresh data directory
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	outputFormat = "table"
	logLevel = "error"
	scoreVersion = 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func setupDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ANALOGS_DATA_DIR", dir)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SCENARIO_POPULATE_RETRY_DELAY", "1ms")
	t.Setenv("SCENARIO_POPULATE_ATTEMPTS", "1")
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestStatus_EmptyCache(t *testing.T) {
	setupDataDir(t)

	out, err := run(t, "status", "--format", "json")
	require.NoError(t, err)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &status), out)
	assert.Equal(t, "empty", status["status"])
	assert.Equal(t, float64(24), status["expectedEntries"])
}

func TestImportAndScore(t *testing.T) {
	dir := setupDataDir(t)

	prices := "ticker,date,close\n"
	for _, ticker := range []string{"VTI", "VXUS", "IEF", "TIP", "GLD", "VNQ", "BIL"} {
		prices += ticker + ",2022-01-03,100\n" + ticker + ",2022-10-12,80\n"
	}
	out, err := run(t, "import-prices", writeFile(t, dir, "prices.csv", prices))
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 14 closes")

	out, err = run(t, "score", "2022-rate-shock", "--format", "json")
	require.NoError(t, err)

	var scores map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &scores), out)
	assert.Equal(t, "computed", scores["source"])
	assert.Len(t, scores["portfolios"], 4)

	out, err = run(t, "score", "2022-rate-shock")
	require.NoError(t, err)
	assert.Contains(t, out, "Classic 60/40")
}

func TestImportHoldings(t *testing.T) {
	dir := setupDataDir(t)

	out, err := run(t, "import-holdings", writeFile(t, dir, "holdings.csv", "ticker,weight\nVTI,0.6\nIEF,0.4\n"))
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 holdings")

	_, err = run(t, "import-holdings", writeFile(t, dir, "bad.csv", "VTI,abc\n"))
	assert.Error(t, err)
}

func TestPopulateWithoutPricesFails(t *testing.T) {
	setupDataDir(t)

	out, err := run(t, "populate")
	assert.Error(t, err)
	assert.Contains(t, out, "Failed")
}

func TestClear(t *testing.T) {
	setupDataDir(t)

	out, err := run(t, "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared 0 cached scores")
}

func TestScore_Errors(t *testing.T) {
	setupDataDir(t)

	_, err := run(t, "score")
	assert.Error(t, err, "analog id is required")

	_, err = run(t, "score", "1929-crash")
	assert.Error(t, err)

	_, err = run(t, "status", "--format", "yaml")
	assert.Error(t, err)
}
