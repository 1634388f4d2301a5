package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers serves host resource statistics.
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir string) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
	}
}

// HandleSystemStats serves GET /api/system.
func (h *SystemHandlers) HandleSystemStats(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.getSystemStats()

	stats := map[string]interface{}{
		"success":     true,
		"cpuPercent":  cpuPct,
		"memPercent":  memPct,
		"goroutines":  runtime.NumGoroutine(),
		"uptime":      time.Since(h.startupTime).Round(time.Second).String(),
		"collectedAt": time.Now().UTC(),
	}

	if usage, err := disk.Usage(h.dataDir); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	} else {
		stats["diskPercent"] = usage.UsedPercent
		stats["diskFreeMB"] = float64(usage.Free) / 1024 / 1024
	}

	writeJSON(w, http.StatusOK, stats)
}

// getSystemStats samples CPU over 100ms so the endpoint stays fast enough
// for dashboards polling every couple of seconds.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}
