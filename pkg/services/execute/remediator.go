package execute

import (
	"context"
	"fmt"
	"sync"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
)

// Remediator performs remediation against the platform and exposes the
// measurable state the verification checks compare.
type Remediator interface {
	// CaptureState reads the fields relevant to the action's type.
	CaptureState(ctx context.Context, action domain.Action) (domain.StateCapture, error)
	// Remediate applies the action. It may block on platform calls and
	// must respect ctx cancellation.
	Remediate(ctx context.Context, action domain.Action) error
}

// WorkspaceState is the mutable platform-side state of one workspace as the
// simulated remediator tracks it.
type WorkspaceState struct {
	Present      bool
	Status       string
	Lakehouses   int
	Pipelines    int
	SparkJobs    int
	StorageGB    float64
	ComputeUnits float64
	MonthlyCost  float64
	Monitoring   bool
}

// SimulatedRemediator applies remediations to an in-memory catalog. It
// stands in for the platform client in the CLI demo and in tests; the
// production deployment plugs in an API-backed implementation.
type SimulatedRemediator struct {
	mu         sync.Mutex
	workspaces map[string]*WorkspaceState
}

func NewSimulatedRemediator() *SimulatedRemediator {
	return &SimulatedRemediator{workspaces: make(map[string]*WorkspaceState)}
}

// Seed registers platform state for a workspace, derived from a snapshot.
func (r *SimulatedRemediator) Seed(snap domain.WorkspaceSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workspaces[snap.WorkspaceID] = &WorkspaceState{
		Present:      true,
		Status:       string(snap.Status),
		Lakehouses:   snap.Counts.Lakehouses,
		Pipelines:    snap.Counts.Pipelines,
		SparkJobs:    snap.Counts.SparkJobs,
		StorageGB:    float64(snap.Counts.Lakehouses) * 250,
		ComputeUnits: 10,
		MonthlyCost:  snap.MonthlyCost,
	}
}

func (r *SimulatedRemediator) CaptureState(_ context.Context, action domain.Action) (domain.StateCapture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[action.WorkspaceID]
	if !ok || !ws.Present {
		capture := domain.StateCapture{StatePresent: false}
		if action.Type == domain.ActionTypeDelete {
			capture[StateLakehouses] = 0
			capture[StatePipelines] = 0
			capture[StateSparkJobs] = 0
		}
		return capture, nil
	}

	switch action.Type {
	case domain.ActionTypeDelete:
		return domain.StateCapture{
			StatePresent:    true,
			StateLakehouses: ws.Lakehouses,
			StatePipelines:  ws.Pipelines,
			StateSparkJobs:  ws.SparkJobs,
		}, nil
	case domain.ActionTypeArchive:
		return domain.StateCapture{
			StateStatus:    ws.Status,
			StateStorageGB: ws.StorageGB,
		}, nil
	case domain.ActionTypeOptimize:
		return domain.StateCapture{
			StateComputeUnits: ws.ComputeUnits,
			StateMonthlyCost:  ws.MonthlyCost,
		}, nil
	case domain.ActionTypeMonitor:
		return domain.StateCapture{
			StateMonitoring: ws.Monitoring,
		}, nil
	}
	return domain.StateCapture{}, nil
}

func (r *SimulatedRemediator) Remediate(ctx context.Context, action domain.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[action.WorkspaceID]
	if !ok {
		return fmt.Errorf("workspace %s not found in catalog", action.WorkspaceID)
	}

	switch action.Type {
	case domain.ActionTypeDelete:
		ws.Present = false
		ws.Lakehouses = 0
		ws.Pipelines = 0
		ws.SparkJobs = 0
	case domain.ActionTypeArchive:
		ws.Status = "Archived"
	case domain.ActionTypeOptimize:
		// Downsizing cuts compute by 40%, mirrored in cost.
		ws.ComputeUnits *= 0.6
		ws.MonthlyCost *= 0.6
	case domain.ActionTypeMonitor:
		ws.Monitoring = true
	default:
		return fmt.Errorf("unsupported action type %q", action.Type)
	}
	return nil
}
