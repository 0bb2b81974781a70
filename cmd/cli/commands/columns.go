package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/inferloop/kanon/internal/report"
)

func NewColumnsCmd() *cobra.Command {
	var inputFile string

	cmd := &cobra.Command{
		Use:     "columns",
		Short:   "Print the numbered column list of a dataset",
		Example: `  kanon columns --input purchases.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, map[string]string{"delimiter": "csv.delimiter"})
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			ds, err := rt.store.Load(ctx, inputFile)
			if err != nil {
				return err
			}
			report.WriteColumns(cmd.OutOrStdout(), ds.ColumnNames())
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input dataset, local path or s3:// URI (required)")
	cmd.Flags().String("delimiter", ",", "CSV field delimiter")

	cmd.MarkFlagRequired("input")

	return cmd
}
