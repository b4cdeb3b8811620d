package commands

import (
	"fmt"

	"github.com/de-tools/workspace-steward/pkg/runtime/terminal/export"
	"github.com/de-tools/workspace-steward/pkg/store/client"
	"github.com/spf13/cobra"
)

type ActionsCmd struct {
	status   string
	client   *client.Client
	reporter *export.Reporter
}

func NewActionsCmd(c *client.Client, reporter *export.Reporter) *cobra.Command {
	ac := &ActionsCmd{client: c, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List and manage remediation actions",
		RunE:  ac.run,
	}

	cmd.Flags().StringVar(&ac.status, "status", "", "Filter by status (e.g. Pending, Approved)")

	for _, command := range []string{"approve", "reject", "cancel", "retry"} {
		cmd.AddCommand(ac.newCommandCmd(command))
	}
	cmd.AddCommand(ac.newExecuteCmd())

	return cmd
}

func (ac *ActionsCmd) run(cmd *cobra.Command, _ []string) error {
	actions, err := ac.client.ListActions(cmd.Context(), ac.status)
	if err != nil {
		return fmt.Errorf("failed to list actions: %w", err)
	}

	table := &export.Table{
		Title: "Remediation Actions",
		Columns: []export.Column{
			{Name: "ID", Width: 36},
			{Name: "Workspace", Width: 28},
			{Name: "Action", Width: 8},
			{Name: "Cat", Width: 3},
			{Name: "Status", Width: 9},
			{Name: "Reason", Width: 20},
		},
	}
	for _, act := range actions {
		table.Rows = append(table.Rows, []any{
			act.Id,
			act.WorkspaceName,
			act.ActionType,
			act.Category,
			act.Status,
			act.Reason,
		})
	}
	return ac.reporter.Handle(table)
}

func (ac *ActionsCmd) newCommandCmd(command string) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <action-id>", command),
		Short: fmt.Sprintf("%s an action", command),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := ac.client.Command(cmd.Context(), args[0], command)
			if err != nil {
				return fmt.Errorf("failed to %s action %s: %w", command, args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Action %s (%s on %s) is now %s\n",
				act.Id, act.ActionType, act.WorkspaceName, act.Status)
			return nil
		},
	}
}

func (ac *ActionsCmd) newExecuteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "execute <action-id>",
		Short: "Dispatch an approved action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := ac.client.ExecuteAction(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to execute action %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Action %s finished with outcome %s\n", entry.ActionId, entry.Outcome)
			for _, result := range entry.VerificationResults {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", result)
			}
			return nil
		},
	}
}
