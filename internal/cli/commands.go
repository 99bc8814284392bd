package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	syncpkg "github.com/gradeworks/estimate-sync/pkg/sync"
)

// NewCustomersCommand creates the customers pipeline command.
func NewCustomersCommand(opts *RootOptions) *cobra.Command {
	return newPipelineCommand(opts, "customers", "Sync the Customers sheet",
		func(ctx context.Context, s *syncpkg.Syncer) (syncpkg.Report, error) {
			return s.Customers(ctx)
		})
}

// NewVendorsCommand creates the vendors pipeline command.
func NewVendorsCommand(opts *RootOptions) *cobra.Command {
	return newPipelineCommand(opts, "vendors", "Sync the Vendors sheet and material category links",
		func(ctx context.Context, s *syncpkg.Syncer) (syncpkg.Report, error) {
			return s.Vendors(ctx)
		})
}

// NewSubcontractorsCommand creates the subcontractors pipeline command.
func NewSubcontractorsCommand(opts *RootOptions) *cobra.Command {
	return newPipelineCommand(opts, "subcontractors", "Sync the Subcontractors sheet and work type links",
		func(ctx context.Context, s *syncpkg.Syncer) (syncpkg.Report, error) {
			return s.Subcontractors(ctx)
		})
}

// NewWorkTypesCommand creates the work types pipeline command.
func NewWorkTypesCommand(opts *RootOptions) *cobra.Command {
	return newPipelineCommand(opts, "worktypes", "Sync the Work Types sheet and its subtypes",
		func(ctx context.Context, s *syncpkg.Syncer) (syncpkg.Report, error) {
			return s.WorkTypes(ctx)
		})
}

// NewMaterialsCommand creates the materials pipeline command.
func NewMaterialsCommand(opts *RootOptions) *cobra.Command {
	return newPipelineCommand(opts, "materials", "Sync the Materials sheet with category references",
		func(ctx context.Context, s *syncpkg.Syncer) (syncpkg.Report, error) {
			return s.Materials(ctx)
		})
}

// NewMiscellaneousCommand creates the miscellaneous items pipeline command.
func NewMiscellaneousCommand(opts *RootOptions) *cobra.Command {
	var system string
	cmd := newPipelineCommand(opts, "miscellaneous", "Sync the Miscellaneous sheet",
		func(ctx context.Context, s *syncpkg.Syncer) (syncpkg.Report, error) {
			som, err := syncpkg.ParseSystemOfMeasure(system)
			if err != nil {
				return syncpkg.Report{}, err
			}
			return s.Miscellaneous(ctx, som)
		})
	cmd.Flags().StringVar(&system, "system", "Imperial", "unit system for costs (Imperial|Metric)")
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if _, err := syncpkg.ParseSystemOfMeasure(system); err != nil {
			return fmt.Errorf("invalid --system: %w", err)
		}
		return nil
	}
	return cmd
}

// NewContactsCommand creates the contacts pipeline command.
func NewContactsCommand(opts *RootOptions) *cobra.Command {
	return newPipelineCommand(opts, "contacts", "Sync the Contacts sheet against existing organizations",
		func(ctx context.Context, s *syncpkg.Syncer) (syncpkg.Report, error) {
			return s.Contacts(ctx)
		})
}

// NewJobCostIDsCommand creates the job cost IDs pipeline command.
func NewJobCostIDsCommand(opts *RootOptions) *cobra.Command {
	return newPipelineCommand(opts, "jobcostids", "Sync the Job Cost IDs sheet",
		func(ctx context.Context, s *syncpkg.Syncer) (syncpkg.Report, error) {
			return s.JobCostIDs(ctx)
		})
}
