package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gradeworks/estimate-sync/pkg/auth"
	"github.com/gradeworks/estimate-sync/pkg/client"
	"github.com/gradeworks/estimate-sync/pkg/logging"
	"github.com/gradeworks/estimate-sync/pkg/notify"
	"github.com/gradeworks/estimate-sync/pkg/sheet"
	syncpkg "github.com/gradeworks/estimate-sync/pkg/sync"
)

// pipelineFunc runs one entity pipeline on a ready syncer.
type pipelineFunc func(ctx context.Context, s *syncpkg.Syncer) (syncpkg.Report, error)

// newPipelineCommand builds a subcommand that authenticates, opens the
// spreadsheet, runs one pipeline, and reports the outcome.
func newPipelineCommand(opts *RootOptions, use, short string, run pipelineFunc) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts, run)
		},
	}
}

// runPipeline wires the auth handshake, client, source, and notifier together
// and executes one pipeline.
func runPipeline(cmd *cobra.Command, opts *RootOptions, run pipelineFunc) error {
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(opts.LogLevel),
		Pretty: opts.Pretty,
		Output: os.Stderr,
	})

	props := propertiesFromEnv()
	provider := auth.NewProvider(props)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	session, err := provider.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	cfg := client.DefaultConfig(session.BaseURL, session.Token)
	cfg.ClientID = props.ClientID
	cfg.ClientSecret = props.ClientSecret
	cfg.ConnectionString = props.ConnectionString()
	cfg.BatchSize = opts.BatchSize
	cfg.Notifier = notify.NewLogNotifier()

	c, err := client.New(cfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	source, err := newSource(opts.File)
	if err != nil {
		return err
	}

	syncer := syncpkg.New(c, source, notify.NewLogNotifier())
	report, err := run(ctx, syncer)
	if err != nil {
		return err
	}

	if !report.OK() {
		return fmt.Errorf("%d rows and %d associations failed",
			len(report.FailedRows), len(report.FailedAssociations))
	}
	fmt.Fprintln(cmd.OutOrStdout(), "All rows were created successfully.")
	return nil
}

// newSource picks the tabular reader by file extension.
func newSource(file string) (sheet.Source, error) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".xlsx":
		return sheet.NewXLSXSource(file), nil
	case ".csv":
		return sheet.NewCSVSource(file), nil
	default:
		return nil, fmt.Errorf("unsupported file type %q (want .xlsx or .csv)", filepath.Ext(file))
	}
}

// propertiesFromEnv assembles the connection properties from the environment.
func propertiesFromEnv() auth.Properties {
	return auth.Properties{
		BaseURL:      os.Getenv("ESTIMATE_BASE_URL"),
		ClientID:     os.Getenv("ESTIMATE_CLIENT_ID"),
		ClientSecret: os.Getenv("ESTIMATE_CLIENT_SECRET"),
		UserName:     os.Getenv("ESTIMATE_USERNAME"),
		Password:     os.Getenv("ESTIMATE_PASSWORD"),
		ServerName:   os.Getenv("ESTIMATE_SERVER_NAME"),
		DatabaseName: os.Getenv("ESTIMATE_DB_NAME"),
	}
}
