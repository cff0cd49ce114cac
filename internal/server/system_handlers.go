package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/analogs/internal/database"
)

// SystemHandlers serves process and database diagnostics
type SystemHandlers struct {
	log       zerolog.Logger
	databases []*database.DB
	startedAt time.Time

	// Overridable in tests
	cpuPercent func() (float64, error)
	memPercent func() (float64, error)
}

// NewSystemHandlers creates system handlers for the given databases
func NewSystemHandlers(log zerolog.Logger, databases ...*database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:        log.With().Str("handler", "system").Logger(),
		databases:  databases,
		startedAt:  time.Now(),
		cpuPercent: sampleCPU,
		memPercent: sampleMemory,
	}
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status        string           `json:"status"` // "healthy" or "degraded"
	UptimeSeconds int64            `json:"uptime_seconds"`
	CPUPercent    float64          `json:"cpu_percent"`
	MemoryPercent float64          `json:"memory_percent"`
	Goroutines    int              `json:"goroutines"`
	Databases     []DatabaseStatus `json:"databases"`
	LastChecked   string           `json:"last_checked"`
}

// DatabaseStatus reports the health and size of one database
type DatabaseStatus struct {
	Name    string          `json:"name"`
	Healthy bool            `json:"healthy"`
	Error   string          `json:"error,omitempty"`
	Stats   *database.Stats `json:"stats,omitempty"`
}

// HandleSystemStatus returns process load and database health
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cpuPct, memPct := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPct,
		MemoryPercent: memPct,
		Goroutines:    runtime.NumGoroutine(),
		Databases:     make([]DatabaseStatus, 0, len(h.databases)),
		LastChecked:   time.Now().Format(time.RFC3339),
	}

	for _, db := range h.databases {
		if db == nil {
			continue
		}

		status := DatabaseStatus{Name: db.Name(), Healthy: true}
		if err := db.HealthCheck(ctx); err != nil {
			status.Healthy = false
			status.Error = err.Error()
			response.Status = "degraded"
		} else if stats, err := db.GetStats(ctx); err == nil {
			status.Stats = stats
		} else {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
		}
		response.Databases = append(response.Databases, status)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode system status")
	}
}

// getSystemStats returns CPU and RAM usage percentages, zero on failure
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPct, err := h.cpuPercent()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPct = 0
	}

	memPct, err := h.memPercent()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		memPct = 0
	}

	return cpuPct, memPct
}

// sampleCPU averages CPU usage across all cores over 100ms
func sampleCPU() (float64, error) {
	percents, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return percents[0], nil
}

func sampleMemory() (float64, error) {
	stat, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return stat.UsedPercent, nil
}
