package scheduler

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divtrack/internal/database"
	"divtrack/internal/testutil"
)

func TestMaintenanceJob_HealthyDatabasePasses(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()

	job := NewMaintenanceJob(db, zerolog.Nop())
	assert.Equal(t, "db_maintenance", job.Name())
	require.NoError(t, job.Run())

	// Still usable afterwards, the checkpoint must not wedge the connection
	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM DividendModels`).Scan(&count))
}

func TestShouldVacuum(t *testing.T) {
	assert.False(t, shouldVacuum(&database.Stats{PageCount: 0, FreelistCount: 0}))
	assert.False(t, shouldVacuum(&database.Stats{PageCount: 100, FreelistCount: 10}))
	assert.True(t, shouldVacuum(&database.Stats{PageCount: 100, FreelistCount: 40}))
}
