package commands

import (
	"fmt"

	"github.com/de-tools/workspace-steward/pkg/runtime/terminal/export"
	"github.com/de-tools/workspace-steward/pkg/store/client"
	"github.com/spf13/cobra"
)

func NewCostsCmd(c *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "costs",
		Short: "Show the fleet cost summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := c.CostSummary(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch cost summary: %w", err)
			}
			return export.NewSummaryReporter(cmd.OutOrStdout()).Handle(&summary)
		},
	}
}
