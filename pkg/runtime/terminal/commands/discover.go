package commands

import (
	"fmt"

	"github.com/de-tools/workspace-steward/pkg/store/client"
	"github.com/spf13/cobra"
)

func NewDiscoverCmd(c *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Trigger a discovery run and report its summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			run, err := c.RunDiscovery(cmd.Context())
			if err != nil {
				return fmt.Errorf("discovery run failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Discovery finished in %s\n", run.FinishedAt.Sub(run.StartedAt))
			fmt.Fprintf(out, "Workspaces: %d (skipped %d)\n", run.Workspaces, run.Skipped)
			for label, count := range run.Classified {
				fmt.Fprintf(out, "  %s: %d\n", label, count)
			}
			fmt.Fprintf(out, "Planned actions: %d (auto-approved %d)\n", run.Planned, run.AutoApproved)
			return nil
		},
	}
}
