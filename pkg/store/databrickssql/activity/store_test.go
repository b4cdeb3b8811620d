package activity

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/workspace-steward/pkg/store/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityStore_Stats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	since := time.Date(2025, 10, 30, 0, 0, 0, 0, time.UTC)
	lastJobs := time.Date(2025, 11, 20, 8, 0, 0, 0, time.UTC)
	lastSQL := time.Date(2025, 11, 28, 17, 30, 0, 0, time.UTC)

	cols := []string{"sku_name", "quantity", "last_usage", "records"}
	rows := sqlmock.NewRows(cols).
		AddRow("STANDARD_JOBS_COMPUTE_US_EAST", 100.0, lastJobs, int64(40)).
		AddRow("SERVERLESS_SQL_US_EAST", 50.0, lastSQL, int64(12))

	mock.ExpectQuery(regexp.QuoteMeta("system.billing.usage")).
		WithArgs(since.Format("2006-01-02 15:04:05")).
		WillReturnRows(rows)

	s := NewStore(db, pricing.NewStore())

	stats, err := s.Stats(context.Background(), since)
	require.NoError(t, err)

	// 100 DBU at the standard jobs rate plus 50 DBU at the serverless rate.
	assert.InDelta(t, 100.0*0.22+50.0*0.70, stats.MonthlyCost, 0.001)
	assert.Equal(t, int64(52), stats.RecordCount)
	assert.Equal(t, lastSQL, stats.LastActivityAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityStore_Stats_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	since := time.Date(2025, 10, 30, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("system.billing.usage")).
		WithArgs(since.Format("2006-01-02 15:04:05")).
		WillReturnRows(sqlmock.NewRows([]string{"sku_name", "quantity", "last_usage", "records"}))

	s := NewStore(db, pricing.NewStore())

	stats, err := s.Stats(context.Background(), since)
	require.NoError(t, err)
	assert.Zero(t, stats.MonthlyCost)
	assert.Zero(t, stats.RecordCount)
	assert.True(t, stats.LastActivityAt.IsZero())
}
