package commands

import (
	"fmt"

	"github.com/de-tools/workspace-steward/pkg/runtime/terminal/export"
	"github.com/de-tools/workspace-steward/pkg/store/client"
	"github.com/spf13/cobra"
)

type WorkspacesCmd struct {
	client   *client.Client
	reporter *export.Reporter
}

func NewWorkspacesCmd(c *client.Client, reporter *export.Reporter) *cobra.Command {
	wc := &WorkspacesCmd{client: c, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "workspaces",
		Short: "List the fleet with current classifications",
		RunE:  wc.run,
	}
	cmd.AddCommand(wc.newHistoryCmd())
	return cmd
}

func (wc *WorkspacesCmd) run(cmd *cobra.Command, _ []string) error {
	workspaces, err := wc.client.ListWorkspaces(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}

	table := &export.Table{
		Title: "Workspace Fleet",
		Columns: []export.Column{
			{Name: "Workspace", Width: 28},
			{Name: "Type", Width: 10},
			{Name: "Status", Width: 8},
			{Name: "Label", Width: 14},
			{Name: "Idle Days", Width: 9},
			{Name: "Monthly Cost", Width: 12},
		},
	}
	for _, ws := range workspaces {
		label, idleDays := "", ""
		if ws.Classification != nil {
			label = ws.Classification.Label
			idleDays = fmt.Sprint(ws.Classification.IdleDays)
		}
		table.Rows = append(table.Rows, []any{
			ws.Name,
			ws.ResourceType,
			ws.Status,
			label,
			idleDays,
			fmt.Sprintf("%.2f", ws.MonthlyCost),
		})
	}
	return wc.reporter.Handle(table)
}

func (wc *WorkspacesCmd) newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <workspace-id>",
		Short: "Show the snapshot history for a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := wc.client.SnapshotHistory(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to fetch snapshot history: %w", err)
			}

			table := &export.Table{
				Title: fmt.Sprintf("Snapshot History: %s", args[0]),
				Columns: []export.Column{
					{Name: "Captured At", Width: 20},
					{Name: "Status", Width: 8},
					{Name: "Last Activity", Width: 20},
					{Name: "Monthly Cost", Width: 12},
				},
			}
			for _, snap := range history {
				table.Rows = append(table.Rows, []any{
					snap.CapturedAt.Format("2006-01-02 15:04:05"),
					snap.Status,
					snap.LastActivityAt.Format("2006-01-02 15:04:05"),
					fmt.Sprintf("%.2f", snap.MonthlyCost),
				})
			}
			return wc.reporter.Handle(table)
		},
	}
}
