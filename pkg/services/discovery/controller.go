package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
	"github.com/de-tools/workspace-steward/pkg/observability"
	"github.com/de-tools/workspace-steward/pkg/services/approval"
	"github.com/de-tools/workspace-steward/pkg/services/classify"
	"github.com/de-tools/workspace-steward/pkg/services/guardrail"
	"github.com/de-tools/workspace-steward/pkg/services/plan"
	"github.com/de-tools/workspace-steward/pkg/services/telemetry"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Store receives the artifacts of a discovery pass.
type Store interface {
	AppendSnapshot(ctx context.Context, snap domain.WorkspaceSnapshot) error
	AppendClassification(ctx context.Context, c domain.Classification) error
}

// Settings is read per run so configuration reloads apply to the next
// pass without a restart.
type Settings struct {
	Classification     classify.Settings
	Guard              *guardrail.Evaluator
	AutoApproveMonitor bool
	Concurrency        int
}

func DefaultSettings() Settings {
	return Settings{
		Classification:     classify.DefaultSettings(),
		Guard:              guardrail.NewEvaluator([]string{"prod-*", "production-*"}),
		AutoApproveMonitor: true,
		Concurrency:        4,
	}
}

// RunSummary reports one discovery pass.
type RunSummary struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	Workspaces   int
	Classified   map[domain.ClassificationLabel]int
	Planned      int
	AutoApproved int
	Skipped      int
}

// Controller drives the snapshot -> classify -> plan pipeline across the
// fleet. A run fans out across workspaces up to the configured concurrency;
// passes overlapping in time contend per workspace, never on a global lock.
type Controller struct {
	source   telemetry.Source
	store    Store
	engine   *classify.Engine
	planner  *plan.Planner
	machine  *approval.Machine
	settings func() Settings
	now      func() time.Time

	wsMu    sync.Mutex
	wsLocks map[string]*sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewController(
	source telemetry.Source,
	store Store,
	engine *classify.Engine,
	planner *plan.Planner,
	machine *approval.Machine,
	settings func() Settings,
	now func() time.Time,
) *Controller {
	if settings == nil {
		settings = func() Settings { return DefaultSettings() }
	}
	if now == nil {
		now = time.Now
	}
	return &Controller{
		source:   source,
		store:    store,
		engine:   engine,
		planner:  planner,
		machine:  machine,
		settings: settings,
		now:      now,
		wsLocks:  make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex guarding a single workspace's pipeline stages.
func (ctrl *Controller) lockFor(workspaceID string) *sync.Mutex {
	ctrl.wsMu.Lock()
	defer ctrl.wsMu.Unlock()
	l, ok := ctrl.wsLocks[workspaceID]
	if !ok {
		l = &sync.Mutex{}
		ctrl.wsLocks[workspaceID] = l
	}
	return l
}

// Run executes one full discovery pass and returns its summary. Invalid
// snapshots are skipped and counted, they never abort the pass.
func (ctrl *Controller) Run(ctx context.Context) (RunSummary, error) {
	logger := zerolog.Ctx(ctx)
	settings := ctrl.settings()

	summary := RunSummary{
		StartedAt:  ctrl.now(),
		Classified: make(map[domain.ClassificationLabel]int),
	}

	started := time.Now()
	snapshots, err := ctrl.source.Snapshots(ctx)
	if err != nil {
		observability.DiscoveryRuns.WithLabelValues("error").Inc()
		return summary, fmt.Errorf("pull workspace snapshots: %w", err)
	}
	summary.Workspaces = len(snapshots)

	outcomes := make([]workspaceOutcome, len(snapshots))

	g, gctx := errgroup.WithContext(ctx)
	concurrency := settings.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	g.SetLimit(concurrency)

	for i, snap := range snapshots {
		g.Go(func() error {
			res, err := ctrl.processWorkspace(gctx, snap, settings)
			if err != nil {
				if errors.Is(err, domain.ErrInvalidSnapshot) {
					logger.Warn().Err(err).Str("workspace", snap.WorkspaceID).Msg("skipping invalid snapshot")
					outcomes[i] = workspaceOutcome{skipped: true}
					return nil
				}
				return err
			}
			outcomes[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		observability.DiscoveryRuns.WithLabelValues("error").Inc()
		return summary, err
	}

	for _, res := range outcomes {
		if res.skipped {
			summary.Skipped++
			continue
		}
		summary.Classified[res.label]++
		if res.planned {
			summary.Planned++
		}
		if res.autoApproved {
			summary.AutoApproved++
		}
	}

	summary.FinishedAt = ctrl.now()
	observability.DiscoveryRuns.WithLabelValues("ok").Inc()
	observability.DiscoveryDuration.Observe(time.Since(started).Seconds())

	logger.Info().
		Int("workspaces", summary.Workspaces).
		Int("planned", summary.Planned).
		Int("auto_approved", summary.AutoApproved).
		Int("skipped", summary.Skipped).
		Msg("discovery pass complete")

	return summary, nil
}

type workspaceOutcome struct {
	label        domain.ClassificationLabel
	planned      bool
	autoApproved bool
	skipped      bool
}

func (ctrl *Controller) processWorkspace(
	ctx context.Context,
	snap domain.WorkspaceSnapshot,
	settings Settings,
) (res workspaceOutcome, err error) {
	lock := ctrl.lockFor(snap.WorkspaceID)
	lock.Lock()
	defer lock.Unlock()

	if err = ctrl.store.AppendSnapshot(ctx, snap); err != nil {
		return res, fmt.Errorf("store snapshot for %s: %w", snap.WorkspaceID, err)
	}

	c, err := ctrl.engine.Classify(ctx, snap, settings.Guard, settings.Classification)
	if err != nil {
		return res, err
	}
	if err = ctrl.store.AppendClassification(ctx, c); err != nil {
		return res, fmt.Errorf("store classification for %s: %w", snap.WorkspaceID, err)
	}
	res.label = c.Label

	action, err := ctrl.planner.Plan(ctx, c, snap)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateAction) {
			// Lost a race with a concurrent planner, the slot is taken.
			return res, nil
		}
		return res, err
	}
	if action == nil {
		return res, nil
	}
	res.planned = true

	if settings.AutoApproveMonitor && action.Type == domain.ActionTypeMonitor {
		if _, err := ctrl.machine.AutoApprove(ctx, action.ID); err != nil {
			if errors.Is(err, domain.ErrGuardrailViolation) {
				return res, nil
			}
			return res, err
		}
		res.autoApproved = true
	}

	return res, nil
}

// Start launches the periodic discovery loop. A pass runs immediately and
// then once per interval until Stop or context cancellation.
func (ctrl *Controller) Start(ctx context.Context, interval time.Duration) error {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if ctrl.cancel != nil {
		return fmt.Errorf("discovery loop already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	ctrl.cancel = cancel
	ctrl.done = make(chan struct{})

	go ctrl.loop(ctx, interval)
	return nil
}

func (ctrl *Controller) Stop(_ context.Context) error {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if ctrl.cancel == nil {
		return fmt.Errorf("discovery loop not running")
	}
	ctrl.cancel()
	<-ctrl.done

	ctrl.cancel = nil
	ctrl.done = nil
	return nil
}

func (ctrl *Controller) loop(ctx context.Context, interval time.Duration) {
	defer close(ctrl.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zerolog.Ctx(ctx).Error().Err(err).Msg("discovery pass failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
