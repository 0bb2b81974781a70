package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/inferloop/kanon/internal/privacy"
	"github.com/inferloop/kanon/internal/report"
)

type BadGroupsOptions struct {
	InputFile        string
	QuasiIdentifiers []string
}

func NewBadGroupsCmd() *cobra.Command {
	opts := &BadGroupsOptions{}

	cmd := &cobra.Command{
		Use:   "bad-groups",
		Short: "List the smallest equivalence classes of a dataset",
		Long: `Group the dataset by the chosen quasi-identifiers and list the classes below a
size threshold, smallest first, with their share of all rows.`,
		Example: `  kanon bad-groups -i anonymized_dataset.csv -q 1,2,3 --threshold 5 --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBadGroups(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.InputFile, "input", "i", "", "Input dataset, local path or s3:// URI (required)")
	cmd.Flags().StringSliceVarP(&opts.QuasiIdentifiers, "quasi-identifiers", "q", nil, "Quasi-identifier columns by 1-based index or name")
	cmd.Flags().Int("threshold", 0, "Only report classes smaller than this size (0 reports all)")
	cmd.Flags().Int("limit", 10, "Maximum number of classes to report (0 reports all)")
	cmd.Flags().String("delimiter", ",", "CSV field delimiter")

	cmd.MarkFlagRequired("input")

	return cmd
}

func runBadGroups(cmd *cobra.Command, opts *BadGroupsOptions) error {
	rt, err := newRuntime(cmd, map[string]string{
		"threshold": "pipeline.bad_groups.threshold",
		"limit":     "pipeline.bad_groups.limit",
		"delimiter": "csv.delimiter",
	})
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ds, err := rt.store.Load(ctx, opts.InputFile)
	if err != nil {
		return err
	}

	selectors := opts.QuasiIdentifiers
	if len(selectors) == 0 {
		selectors = rt.config.Pipeline.QuasiIdentifiers
	}
	qi, err := quasiIdentifiers(cmd, ds.ColumnNames(), selectors)
	if err != nil {
		return err
	}

	groups, err := privacy.BadGroups(ds, qi, rt.config.Pipeline.BadGroups)
	if err != nil {
		return err
	}

	report.WriteBadGroups(cmd.OutOrStdout(), qi, groups)
	return nil
}
