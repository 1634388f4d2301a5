package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"divtrack/internal/database"
)

// Vacuum when free pages exceed this share of the file. VACUUM rewrites
// the whole database, so it only pays off once fragmentation is real.
const vacuumFreelistRatio = 0.25

// MaintenanceJob keeps the SQLite database healthy: integrity check, WAL
// checkpoint to stop the log from growing unbounded, and a VACUUM when the
// freelist says the file is fragmented. Meant to run every few hours.
type MaintenanceJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewMaintenanceJob creates the periodic database maintenance job.
func NewMaintenanceJob(db *database.DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:  db,
		log: log.With().Str("component", "maintenance_job").Logger(),
	}
}

// Name implements Job.
func (j *MaintenanceJob) Name() string { return "db_maintenance" }

// Run implements Job. Corruption is fatal so the operator sees it; the
// checkpoint and vacuum steps only log on failure.
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()

	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Msg("Database integrity check failed")
		return fmt.Errorf("database integrity check failed: %w", err)
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	stats, err := j.db.GetStats()
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to read database stats")
	} else {
		j.log.Info().
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_bytes", stats.WALSizeBytes).
			Int64("pages", stats.PageCount).
			Int64("free_pages", stats.FreelistCount).
			Msg("Database stats")

		if shouldVacuum(stats) {
			j.log.Info().Msg("Freelist above threshold, running VACUUM")
			if err := j.db.Vacuum(); err != nil {
				j.log.Warn().Err(err).Msg("VACUUM failed")
			}
		}
	}

	j.log.Info().Dur("duration", time.Since(start)).Msg("Database maintenance completed")
	return nil
}

func shouldVacuum(stats *database.Stats) bool {
	if stats.PageCount == 0 {
		return false
	}
	return float64(stats.FreelistCount)/float64(stats.PageCount) > vacuumFreelistRatio
}
