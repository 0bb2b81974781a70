package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/inferloop/kanon/internal/privacy"
	"github.com/inferloop/kanon/internal/report"
	"github.com/inferloop/kanon/pkg/constants"
)

type KAnonymityOptions struct {
	InputFile        string
	QuasiIdentifiers []string
	Full             bool
}

func NewKAnonymityCmd() *cobra.Command {
	opts := &KAnonymityOptions{}

	cmd := &cobra.Command{
		Use:   "kanon",
		Short: "Measure k-anonymity of a dataset",
		Long: `Group the dataset by the chosen quasi-identifiers and report the smallest,
mean and median equivalence class size. The dataset is not modified.`,
		Example: `  kanon kanon --input anonymized_dataset.csv -q shop_name,datetime,distance_band

  # Also report uniqueness over every column
  kanon kanon -i anonymized_dataset.csv -q 1,2,3 --full`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKAnonymity(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.InputFile, "input", "i", "", "Input dataset, local path or s3:// URI (required)")
	cmd.Flags().StringSliceVarP(&opts.QuasiIdentifiers, "quasi-identifiers", "q", nil, "Quasi-identifier columns by 1-based index or name")
	cmd.Flags().BoolVar(&opts.Full, "full", false, "Also report uniqueness over all columns")
	cmd.Flags().String("delimiter", ",", "CSV field delimiter")

	cmd.MarkFlagRequired("input")

	return cmd
}

func runKAnonymity(cmd *cobra.Command, opts *KAnonymityOptions) error {
	rt, err := newRuntime(cmd, map[string]string{"delimiter": "csv.delimiter"})
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

	m, err := privacy.Measure(ds, qi, privacy.MetricQuasiIdentifierKAnonymity)
	if err != nil {
		return err
	}
	all := []privacy.Metrics{m}

	if opts.Full {
		full, err := privacy.Measure(ds, ds.WithoutColumns(constants.ColumnUniqueness).ColumnNames(), privacy.MetricFullUniqueness)
		if err != nil {
			return err
		}
		all = append(all, full)
	}

	report.WriteMetrics(cmd.OutOrStdout(), all...)
	return nil
}
