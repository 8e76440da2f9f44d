package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2bcrm/crm-api/internal/database"
	"github.com/b2bcrm/crm-api/tests/testutil"
)

func TestHealthCheck(t *testing.T) {
	db := testutil.SetupTestDB(t)

	assert.NoError(t, database.HealthCheck(db))
}

func TestHealthCheckWithStats(t *testing.T) {
	db := testutil.SetupTestDB(t)

	stats, err := database.HealthCheckWithStats(db)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.OpenConnections, 1)
}
