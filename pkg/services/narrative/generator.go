package narrative

import (
	"context"
	"fmt"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
)

// Generator produces a human-readable rationale for a classification. The
// production deployment may plug in an external (LLM-backed) collaborator;
// the engine only depends on this interface and falls back to the templated
// rationale when the generator is absent or fails.
type Generator interface {
	Rationale(ctx context.Context, snap domain.WorkspaceSnapshot, c domain.Classification) (string, error)
}

// TemplateGenerator renders the rationale from the rule that fired. It is
// the default collaborator and never fails.
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

func (g *TemplateGenerator) Rationale(
	_ context.Context,
	snap domain.WorkspaceSnapshot,
	c domain.Classification,
) (string, error) {
	switch c.Rule {
	case "protected_resource":
		return "protected resource", nil
	case "trial_expired":
		return fmt.Sprintf("No activity for %d+ days, trial period expired", c.IdleDays), nil
	case "idle_review":
		if snap.Status == domain.WorkspaceStatusWarning {
			return "Irregular usage pattern, monitoring for optimization opportunities", nil
		}
		return fmt.Sprintf("Low utilization detected, idle for %d days", c.IdleDays), nil
	default:
		return "Workspace active and healthy, no action required", nil
	}
}
