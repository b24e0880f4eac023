package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree around open, which supplies the database
// and services each subcommand runs against.
func NewRootCmd(open Opener) *cobra.Command {
	var format string

	root := &cobra.Command{
		Use:   "promptctl",
		Short: "Operate the Promptmart ledger",
		Long: `promptctl runs maintenance tasks against the marketplace database.

Subcommands:
  migrate    - Apply, inspect or roll back the schema
  reconcile  - Recompute denormalized counters and repair drift
  moderate   - Review pending listings
  admin      - Promote, demote and list administrators
  seed       - Populate a development database
  api-compat - Check an API document for breaking changes`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "yaml", "json":
				return nil
			}
			return fmt.Errorf("unsupported --format %q (want yaml or json)", format)
		},
	}
	root.PersistentFlags().StringVarP(&format, "format", "o", "yaml", "Output format: yaml or json")

	out := func(cmd *cobra.Command) printer {
		return printer{w: cmd.OutOrStdout(), format: format}
	}

	root.AddCommand(
		newMigrateCmd(open, out),
		newReconcileCmd(open, out),
		newModerateCmd(open, out),
		newAdminCmd(open, out),
		newSeedCmd(open, out),
		newAPICompatCmd(out),
	)
	return root
}

// Execute runs the root command with the configured runtime.
func Execute() {
	if err := NewRootCmd(OpenConfigured).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
