package commands

import (
	"fmt"

	"github.com/de-tools/workspace-steward/pkg/runtime/terminal/export"
	"github.com/de-tools/workspace-steward/pkg/store/client"
	"github.com/spf13/cobra"
)

type AuditCmd struct {
	workspace string
	page      int
	pageSize  int
	client    *client.Client
	reporter  *export.Reporter
}

func NewAuditCmd(c *client.Client, reporter *export.Reporter) *cobra.Command {
	auc := &AuditCmd{client: c, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Browse the execution audit trail",
		RunE:  auc.run,
	}

	cmd.Flags().StringVar(&auc.workspace, "workspace", "", "Filter by workspace id")
	cmd.Flags().IntVar(&auc.page, "page", 1, "Page number")
	cmd.Flags().IntVar(&auc.pageSize, "page_size", 20, "Entries per page")

	return cmd
}

func (auc *AuditCmd) run(cmd *cobra.Command, _ []string) error {
	page, err := auc.client.QueryAudit(cmd.Context(), auc.workspace, auc.page, auc.pageSize)
	if err != nil {
		return fmt.Errorf("failed to query audit trail: %w", err)
	}

	table := &export.Table{
		Title: "Audit Trail",
		Summary: map[string]string{
			"Total Entries": fmt.Sprint(page.Total),
			"Page":          fmt.Sprintf("%d (%d per page)", page.Page, page.PageSize),
		},
		Columns: []export.Column{
			{Name: "Seq", Width: 6},
			{Name: "Timestamp", Width: 20},
			{Name: "Workspace", Width: 28},
			{Name: "Action", Width: 8},
			{Name: "Outcome", Width: 7},
		},
	}
	for _, entry := range page.Entries {
		table.Rows = append(table.Rows, []any{
			entry.Seq,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.WorkspaceName,
			entry.ActionType,
			entry.Outcome,
		})
	}
	return auc.reporter.Handle(table)
}
