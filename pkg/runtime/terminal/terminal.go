package terminal

import (
	"io"
	"os"

	"github.com/de-tools/workspace-steward/pkg/runtime/terminal/commands"
	"github.com/de-tools/workspace-steward/pkg/runtime/terminal/export"
	"github.com/de-tools/workspace-steward/pkg/store/client"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	client   *client.Client
	reporter *export.Reporter
	rootCmd  *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Client *client.Client
	Output io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	cli := &CLI{
		client:   opts.Client,
		reporter: export.NewReporter(opts.Output),
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "steward",
		Short: "Workspace lifecycle governance tool",
	}

	cmd.AddCommand(commands.NewWorkspacesCmd(cli.client, cli.reporter))
	cmd.AddCommand(commands.NewActionsCmd(cli.client, cli.reporter))
	cmd.AddCommand(commands.NewAuditCmd(cli.client, cli.reporter))
	cmd.AddCommand(commands.NewCostsCmd(cli.client))
	cmd.AddCommand(commands.NewDiscoverCmd(cli.client))

	return cmd
}
