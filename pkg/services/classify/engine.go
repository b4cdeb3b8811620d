package classify

import (
	"context"
	"time"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
	"github.com/de-tools/workspace-steward/pkg/observability"
	"github.com/de-tools/workspace-steward/pkg/services/guardrail"
	"github.com/de-tools/workspace-steward/pkg/services/narrative"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Settings contains the configurable thresholds for classification.
type Settings struct {
	// DecommissionThresholdDays is the idle age at which a trial workspace
	// becomes a decommission candidate (default: 45).
	DecommissionThresholdDays int
	// ReviewThresholdDays is the idle age at which any workspace is flagged
	// for review (default: 14).
	ReviewThresholdDays int
}

// DefaultSettings returns the default classification thresholds.
func DefaultSettings() Settings {
	return Settings{
		DecommissionThresholdDays: 45,
		ReviewThresholdDays:       14,
	}
}

type ruleInput struct {
	snap      domain.WorkspaceSnapshot
	idleDays  int
	protected bool
	settings  Settings
}

type rule struct {
	name    string
	label   domain.ClassificationLabel
	matches func(in ruleInput) bool
}

// rules is evaluated in order; the first match wins and rules are never
// combined. Keeping the table explicit makes precedence testable.
var rules = []rule{
	{
		name:    "protected_resource",
		label:   domain.ClassificationKeep,
		matches: func(in ruleInput) bool { return in.protected },
	},
	{
		name:  "trial_expired",
		label: domain.ClassificationDecommission,
		matches: func(in ruleInput) bool {
			return in.idleDays >= in.settings.DecommissionThresholdDays &&
				in.snap.Type == domain.ResourceTypeTrial
		},
	},
	{
		name:  "idle_review",
		label: domain.ClassificationReview,
		matches: func(in ruleInput) bool {
			return in.idleDays >= in.settings.ReviewThresholdDays ||
				in.snap.Status == domain.WorkspaceStatusWarning
		},
	},
	{
		name:    "healthy",
		label:   domain.ClassificationKeep,
		matches: func(in ruleInput) bool { return true },
	},
}

// Engine maps a workspace snapshot to a classification. The clock is
// injected so idle age computations are deterministic under test.
type Engine struct {
	generator narrative.Generator
	now       func() time.Time
}

func NewEngine(generator narrative.Generator, now func() time.Time) *Engine {
	if generator == nil {
		generator = narrative.NewTemplateGenerator()
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{generator: generator, now: now}
}

// Classify derives the disposition for snap against the current guardrail
// pattern set and thresholds. It fails with domain.ErrInvalidSnapshot when
// the snapshot carries a future activity timestamp or negative counts.
func (e *Engine) Classify(
	ctx context.Context,
	snap domain.WorkspaceSnapshot,
	guard *guardrail.Evaluator,
	settings Settings,
) (domain.Classification, error) {
	now := e.now()

	if err := validate(snap, now); err != nil {
		return domain.Classification{}, err
	}

	in := ruleInput{
		snap:      snap,
		idleDays:  idleDays(snap.LastActivityAt, now),
		protected: guard.Protected(snap.Name),
		settings:  settings,
	}

	var fired rule
	for _, r := range rules {
		if r.matches(in) {
			fired = r
			break
		}
	}

	c := domain.Classification{
		ID:          uuid.NewString(),
		WorkspaceID: snap.WorkspaceID,
		SnapshotID:  snap.ID,
		Label:       fired.label,
		Rule:        fired.name,
		IdleDays:    in.idleDays,
		CreatedAt:   now,
	}

	rationale, err := e.generator.Rationale(ctx, snap, c)
	if err != nil {
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("workspace", snap.WorkspaceID).
			Msg("narrative generator failed, using templated rationale")
		rationale, _ = narrative.NewTemplateGenerator().Rationale(ctx, snap, c)
	}
	c.Rationale = rationale

	observability.Classifications.WithLabelValues(string(c.Label)).Inc()
	return c, nil
}

func validate(snap domain.WorkspaceSnapshot, now time.Time) error {
	if snap.LastActivityAt.After(now) {
		return &domain.InvalidSnapshotError{
			WorkspaceID: snap.WorkspaceID,
			Reason:      "lastActivityAt is in the future",
		}
	}
	if snap.Counts.Lakehouses < 0 || snap.Counts.Pipelines < 0 || snap.Counts.SparkJobs < 0 {
		return &domain.InvalidSnapshotError{
			WorkspaceID: snap.WorkspaceID,
			Reason:      "negative resource counts",
		}
	}
	return nil
}

func idleDays(lastActivity, now time.Time) int {
	if lastActivity.IsZero() {
		return 0
	}
	return int(now.Sub(lastActivity).Hours() / 24)
}
