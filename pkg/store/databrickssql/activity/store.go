package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/de-tools/workspace-steward/pkg/models/store"
	"github.com/de-tools/workspace-steward/pkg/store/pricing"
	"github.com/rs/zerolog"
)

// Store reads a workspace's billing activity from the platform's system
// tables over the warehouse SQL endpoint.
type Store interface {
	Stats(ctx context.Context, since time.Time) (store.ActivityStats, error)
}

type activityStore struct {
	db           *sql.DB
	pricingStore pricing.Store
}

func NewStore(db *sql.DB, pricingStore pricing.Store) Store {
	return &activityStore{db: db, pricingStore: pricingStore}
}

func (a *activityStore) Stats(ctx context.Context, since time.Time) (store.ActivityStats, error) {
	logger := zerolog.Ctx(ctx)

	query := `
		SELECT
			sku_name,
			SUM(usage_quantity) AS quantity,
			MAX(usage_end_time) AS last_usage,
			COUNT(*) AS records
		FROM
			system.billing.usage
		WHERE
			usage_start_time >= ?
		GROUP BY
			sku_name
	`

	rows, err := a.db.QueryContext(ctx, query, since.Format("2006-01-02 15:04:05"))
	if err != nil {
		return store.ActivityStats{}, fmt.Errorf("activity query failed: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close activity query rows")
		}
	}(rows)

	var stats store.ActivityStats
	for rows.Next() {
		var (
			sku       string
			quantity  float64
			lastUsage time.Time
			records   int64
		)
		if err := rows.Scan(&sku, &quantity, &lastUsage, &records); err != nil {
			return store.ActivityStats{}, err
		}

		price := a.pricingStore.GetSkuPrice(ctx, sku)
		stats.MonthlyCost += quantity * price.PricePerUnit
		stats.RecordCount += records
		if lastUsage.After(stats.LastActivityAt) {
			stats.LastActivityAt = lastUsage
		}
	}
	if err := rows.Err(); err != nil {
		return store.ActivityStats{}, err
	}

	logger.Debug().
		Int64("records", stats.RecordCount).
		Float64("monthly_cost", stats.MonthlyCost).
		Time("last_activity", stats.LastActivityAt).
		Msg("retrieved workspace activity stats")

	return stats, nil
}
