package databricks

import (
	"context"
	dbsql "database/sql"
	"fmt"
	"time"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/service/jobs"
	"github.com/databricks/databricks-sdk-go/service/pipelines"
	"github.com/databricks/databricks-sdk-go/service/sql"
	_ "github.com/databricks/databricks-sql-go"
	"github.com/de-tools/workspace-steward/pkg/models/domain"
	"github.com/de-tools/workspace-steward/pkg/services/telemetry"
	"github.com/de-tools/workspace-steward/pkg/store/databrickssql/activity"
	"github.com/de-tools/workspace-steward/pkg/store/pricing"
	"github.com/rs/zerolog"
)

const defaultHttpPath = "/sql/1.0/warehouses/warehouse"

// activityWindow bounds the billing lookback used to derive last activity
// and the monthly cost figure.
const activityWindow = 30 * 24 * time.Hour

// Provider pulls telemetry from live Databricks workspaces, one per
// registry profile. Resource counts come from the workspace API, activity
// and cost from the billing system tables.
type Provider struct {
	registry telemetry.Registry
	now      func() time.Time

	openDB func(profile telemetry.Profile) (activity.Store, error)
}

func NewProvider(registry telemetry.Registry, now func() time.Time) *Provider {
	if now == nil {
		now = time.Now
	}
	return &Provider{
		registry: registry,
		now:      now,
		openDB:   openActivityStore,
	}
}

func openActivityStore(profile telemetry.Profile) (activity.Store, error) {
	dsn := fmt.Sprintf("token:%s@%s%s", profile.Token, profile.Host, defaultHttpPath)
	db, err := dbsql.Open("databricks", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to workspace %s: %w", profile.Name, err)
	}
	return activity.NewStore(db, pricing.NewStore()), nil
}

func (p *Provider) Snapshots(ctx context.Context) ([]domain.WorkspaceSnapshot, error) {
	logger := zerolog.Ctx(ctx)

	profiles, err := p.registry.GetProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workspace profiles: %w", err)
	}

	now := p.now()
	var snapshots []domain.WorkspaceSnapshot
	for _, name := range profiles {
		snap, err := p.snapshot(ctx, name, now)
		if err != nil {
			// A single unreachable workspace must not sink the whole pull.
			logger.Warn().Err(err).Str("workspace", name).Msg("snapshot pull failed, skipping workspace")
			continue
		}
		snapshots = append(snapshots, telemetry.Normalize(snap, now))
	}
	return snapshots, nil
}

func (p *Provider) snapshot(ctx context.Context, name string, now time.Time) (domain.WorkspaceSnapshot, error) {
	profile, err := p.registry.GetProfile(ctx, name)
	if err != nil {
		return domain.WorkspaceSnapshot{}, err
	}

	client, err := databricks.NewWorkspaceClient(&databricks.Config{
		Host:  profile.Host,
		Token: profile.Token,
	})
	if err != nil {
		return domain.WorkspaceSnapshot{}, fmt.Errorf("workspace client for %s: %w", name, err)
	}

	counts, err := resourceCounts(ctx, client)
	if err != nil {
		return domain.WorkspaceSnapshot{}, err
	}

	billing, err := p.openDB(profile)
	if err != nil {
		return domain.WorkspaceSnapshot{}, err
	}
	stats, err := billing.Stats(ctx, now.Add(-activityWindow))
	if err != nil {
		return domain.WorkspaceSnapshot{}, fmt.Errorf("activity stats for %s: %w", name, err)
	}

	return domain.WorkspaceSnapshot{
		WorkspaceID:    name,
		Name:           name,
		Type:           profile.Resource,
		Counts:         counts,
		LastActivityAt: stats.LastActivityAt,
		MonthlyCost:    stats.MonthlyCost,
		CapturedAt:     now,
	}, nil
}

func resourceCounts(ctx context.Context, client *databricks.WorkspaceClient) (domain.ResourceCounts, error) {
	warehouses, err := client.Warehouses.ListAll(ctx, sql.ListWarehousesRequest{})
	if err != nil {
		return domain.ResourceCounts{}, fmt.Errorf("list warehouses: %w", err)
	}

	dlt, err := client.Pipelines.ListPipelinesAll(ctx, pipelines.ListPipelinesRequest{})
	if err != nil {
		return domain.ResourceCounts{}, fmt.Errorf("list pipelines: %w", err)
	}

	sparkJobs, err := client.Jobs.ListAll(ctx, jobs.ListJobsRequest{})
	if err != nil {
		return domain.ResourceCounts{}, fmt.Errorf("list jobs: %w", err)
	}

	return domain.ResourceCounts{
		Lakehouses: len(warehouses),
		Pipelines:  len(dlt),
		SparkJobs:  len(sparkJobs),
	}, nil
}
