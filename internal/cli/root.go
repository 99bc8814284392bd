// Package cli implements the estimate-sync command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all pipeline commands.
type RootOptions struct {
	File      string
	LogLevel  string
	Pretty    bool
	BatchSize int
}

// NewRootCommand creates the root command for the estimate-sync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "estimate-sync",
		Short: "Push spreadsheet rows into the estimating service",
		Long: `estimate-sync reads entity rows from a spreadsheet file and pushes them
into the remote estimating service in idempotent batches. Re-running a
command against the same file is safe: records that already exist are
recognized and reused instead of duplicated.

Connection settings come from the environment:
  ESTIMATE_BASE_URL       remote service root, e.g. https://host/api
  ESTIMATE_CLIENT_ID      tenant client id
  ESTIMATE_CLIENT_SECRET  tenant client secret
  ESTIMATE_USERNAME       login user
  ESTIMATE_PASSWORD       login password
  ESTIMATE_SERVER_NAME    tenant database server
  ESTIMATE_DB_NAME        tenant database name`,
	}

	cmd.PersistentFlags().StringVarP(&opts.File, "file", "f", "", "spreadsheet file (.xlsx or .csv)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.Pretty, "pretty", false, "human-readable console log output")
	cmd.PersistentFlags().IntVar(&opts.BatchSize, "batch-size", 50, "maximum requests per dispatched batch group")
	_ = cmd.MarkPersistentFlagRequired("file")

	cmd.AddCommand(NewCustomersCommand(opts))
	cmd.AddCommand(NewVendorsCommand(opts))
	cmd.AddCommand(NewSubcontractorsCommand(opts))
	cmd.AddCommand(NewWorkTypesCommand(opts))
	cmd.AddCommand(NewMaterialsCommand(opts))
	cmd.AddCommand(NewMiscellaneousCommand(opts))
	cmd.AddCommand(NewContactsCommand(opts))
	cmd.AddCommand(NewJobCostIDsCommand(opts))

	return cmd
}
