package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/de-tools/workspace-steward/pkg/handlers/steward"
	"github.com/de-tools/workspace-steward/pkg/server"
	"github.com/de-tools/workspace-steward/pkg/services/approval"
	"github.com/de-tools/workspace-steward/pkg/services/classify"
	"github.com/de-tools/workspace-steward/pkg/services/config"
	"github.com/de-tools/workspace-steward/pkg/services/discovery"
	"github.com/de-tools/workspace-steward/pkg/services/execute"
	"github.com/de-tools/workspace-steward/pkg/services/guardrail"
	"github.com/de-tools/workspace-steward/pkg/services/notify"
	"github.com/de-tools/workspace-steward/pkg/services/plan"
	"github.com/de-tools/workspace-steward/pkg/services/telemetry"
	telemetrydatabricks "github.com/de-tools/workspace-steward/pkg/services/telemetry/databricks"
	"github.com/de-tools/workspace-steward/pkg/store/duckdb"
	duckdbaction "github.com/de-tools/workspace-steward/pkg/store/duckdb/action"
	duckdbevent "github.com/de-tools/workspace-steward/pkg/store/duckdb/event"
	duckdbledger "github.com/de-tools/workspace-steward/pkg/store/duckdb/ledger"
	duckdbsnapshot "github.com/de-tools/workspace-steward/pkg/store/duckdb/snapshot"
	"github.com/de-tools/workspace-steward/pkg/store/memory"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the workspace steward service",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the configuration file (defaults apply when omitted)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// snapshotStore is the snapshot side of the store a running service needs.
type snapshotStore interface {
	discovery.Store
	steward.WorkspaceReader
}

type actionStore interface {
	approval.Store
	plan.ActionStore
	execute.ActionStore
}

type ledgerStore interface {
	execute.Ledger
	steward.LedgerReader
}

type eventStore interface {
	notify.EventRecorder
	steward.EventReader
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	provider, err := config.NewProvider(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := provider.Current()

	var (
		snapshots snapshotStore
		actions   actionStore
		ledger    ledgerStore
		events    eventStore
	)
	switch cfg.Store.Driver {
	case "duckdb":
		db, err := duckdb.NewDB(duckdb.Settings{DbPath: cfg.Store.Path})
		if err != nil {
			return fmt.Errorf("failed to create DuckDB instance: %w", err)
		}
		if snapshots, err = duckdbsnapshot.NewStore(db); err != nil {
			return fmt.Errorf("failed to create snapshot store: %w", err)
		}
		if actions, err = duckdbaction.NewStore(db); err != nil {
			return fmt.Errorf("failed to create action store: %w", err)
		}
		if ledger, err = duckdbledger.NewStore(db); err != nil {
			return fmt.Errorf("failed to create ledger store: %w", err)
		}
		if events, err = duckdbevent.NewStore(db); err != nil {
			return fmt.Errorf("failed to create event store: %w", err)
		}
	default:
		mem := memory.NewStore()
		snapshots, actions, ledger, events = mem, mem, mem, mem
	}

	sinks := []notify.Sink{notify.NewRecorderSink(events), notify.NewLogSink()}
	if len(cfg.Kafka.Brokers) > 0 {
		sinks = append(sinks, notify.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic))
	}
	sink := notify.NewMultiSink(sinks...)

	machine := approval.NewMachine(actions, approval.Config{
		Protected: func(name string) bool {
			return guardrail.NewEvaluator(provider.Current().ProtectedPatterns).Protected(name)
		},
		RetryLimit: func() int { return provider.Current().Execution.RetryLimit },
		Ledger:     ledger,
		Sink:       sink,
	})

	var source telemetry.Source
	switch cfg.Discovery.Source {
	case "databricks":
		registry, err := telemetry.NewRegistry(cfg.Discovery.ProfilesPath)
		if err != nil {
			return fmt.Errorf("failed to load workspace profiles: %w", err)
		}
		source = telemetrydatabricks.NewProvider(registry, nil)
	default:
		source = telemetry.NewStaticSource(nil)
	}

	remediator := execute.NewSimulatedRemediator()
	if snaps, err := source.Snapshots(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial snapshot pull failed, remediation catalog starts empty")
	} else {
		for _, snap := range snaps {
			remediator.Seed(snap)
		}
	}

	engine := execute.NewEngine(actions, ledger, machine, remediator, execute.Config{
		Concurrency:   func() int { return provider.Current().Execution.Concurrency },
		RatePerSecond: cfg.Execution.RatePerSecond,
	})

	planner := plan.NewPlanner(actions, sink, nil)
	classifier := classify.NewEngine(nil, nil)

	controller := discovery.NewController(source, snapshots, classifier, planner, machine,
		func() discovery.Settings {
			current := provider.Current()
			return discovery.Settings{
				Classification: classify.Settings{
					DecommissionThresholdDays: current.Classification.DecommissionThresholdDays,
					ReviewThresholdDays:       current.Classification.ReviewThresholdDays,
				},
				Guard:              guardrail.NewEvaluator(current.ProtectedPatterns),
				AutoApproveMonitor: current.Execution.AutoApproveMonitor,
				Concurrency:        current.Discovery.Concurrency,
			}
		}, nil)

	if err := controller.Start(ctx, cfg.Discovery.Interval); err != nil {
		return fmt.Errorf("failed to start discovery loop: %w", err)
	}
	defer func() {
		if err := controller.Stop(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("discovery loop shutdown failed")
		}
	}()

	addr := net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.Port))
	webAPI := server.NewWebAPI(server.Config{
		Addr: addr,
		Dependencies: server.Dependencies{
			Workspaces: snapshots,
			Actions:    actions,
			Ledger:     ledger,
			Events:     events,
			Approver:   machine,
			Executor:   engine,
			Discovery:  controller,
			Logger:     logger,
		},
	})

	return webAPI.Start()
}
