package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const SnapshotsSchema = `
	CREATE TABLE IF NOT EXISTS snapshots (
		id VARCHAR NOT NULL,
		workspace_id VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		resource_type VARCHAR NOT NULL,
		lakehouses INTEGER NOT NULL,
		pipelines INTEGER NOT NULL,
		spark_jobs INTEGER NOT NULL,
		last_activity_at TIMESTAMP NOT NULL,
		status VARCHAR NOT NULL,
		monthly_cost DOUBLE NOT NULL,
		captured_at TIMESTAMP NOT NULL,
		PRIMARY KEY (id)
	);
`

const ClassificationsSchema = `
	CREATE TABLE IF NOT EXISTS classifications (
		id VARCHAR NOT NULL,
		workspace_id VARCHAR NOT NULL,
		snapshot_id VARCHAR NOT NULL,
		label VARCHAR NOT NULL,
		rule VARCHAR NOT NULL,
		rationale VARCHAR,
		idle_days INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (id)
	);
`

const ActionsSchema = `
	CREATE TABLE IF NOT EXISTS actions (
		id VARCHAR NOT NULL,
		workspace_id VARCHAR NOT NULL,
		workspace_name VARCHAR NOT NULL,
		action_type VARCHAR NOT NULL,
		category INTEGER NOT NULL,
		reason VARCHAR,
		impact VARCHAR,
		status VARCHAR NOT NULL,
		retry_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (id)
	);
`

const TransitionsSchema = `
	CREATE TABLE IF NOT EXISTS action_transitions (
		action_id VARCHAR NOT NULL,
		event VARCHAR NOT NULL,
		from_status VARCHAR NOT NULL,
		to_status VARCHAR NOT NULL,
		actor VARCHAR NOT NULL,
		"at" TIMESTAMP NOT NULL
	);
`

const AuditSchema = `
	CREATE SEQUENCE IF NOT EXISTS audit_seq;
	CREATE TABLE IF NOT EXISTS audit_entries (
		seq BIGINT NOT NULL DEFAULT nextval('audit_seq'),
		id VARCHAR NOT NULL,
		action_id VARCHAR NOT NULL,
		workspace_id VARCHAR NOT NULL,
		workspace_name VARCHAR NOT NULL,
		action_type VARCHAR NOT NULL,
		outcome VARCHAR NOT NULL,
		before_state JSON,
		after_state JSON,
		verification_results JSON,
		ts TIMESTAMP NOT NULL,
		PRIMARY KEY (seq)
	);
`

const EventsSchema = `
	CREATE TABLE IF NOT EXISTS events (
		event_type VARCHAR NOT NULL,
		action_id VARCHAR,
		workspace_id VARCHAR,
		workspace_name VARCHAR,
		action_type VARCHAR,
		message VARCHAR,
		"at" TIMESTAMP NOT NULL
	);
`

var bootQueries = []string{
	SnapshotsSchema,
	ClassificationsSchema,
	ActionsSchema,
	TransitionsSchema,
	AuditSchema,
	EventsSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		bootQueries := append([]string{}, bootQueries...)

		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}
