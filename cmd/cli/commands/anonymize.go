package commands

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inferloop/kanon/internal/observability/metrics"
	"github.com/inferloop/kanon/internal/pipeline"
	"github.com/inferloop/kanon/internal/report"
	"github.com/inferloop/kanon/pkg/errors"
)

type AnonymizeOptions struct {
	InputFile        string
	OutputFile       string
	QuasiIdentifiers []string
	OutputFormat     string
}

func NewAnonymizeCmd() *cobra.Command {
	opts := &AnonymizeOptions{}

	cmd := &cobra.Command{
		Use:   "anonymize",
		Short: "Generalize and suppress a purchase dataset",
		Long: `Generalize every configured column, annotate rows with the size of their
equivalence class, suppress the least anonymous rows and report k-anonymity
over the chosen quasi-identifiers.`,
		Example: `  # Pick quasi-identifiers interactively
  kanon anonymize --input purchases.csv --settings settings.json

  # Non-interactive run suppressing 5% of the rows
  kanon anonymize -i purchases.csv -q shop_name,datetime,longitude -p 5 -o out.csv

  # Read from and write to S3
  kanon anonymize -i s3://data/purchases.csv -o s3://data/anonymized.csv -q 1,2,3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnonymize(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.InputFile, "input", "i", "", "Input dataset, local path or s3:// URI (required)")
	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "anonymized_dataset.csv", "Output dataset, local path or s3:// URI")
	cmd.Flags().StringSliceVarP(&opts.QuasiIdentifiers, "quasi-identifiers", "q", nil, "Quasi-identifier columns by 1-based index or name")
	cmd.Flags().StringVar(&opts.OutputFormat, "format", "text", "Report format (text, json)")
	cmd.Flags().Float64P("suppress", "p", 0, "Percentage of least unique rows to remove (0-100)")
	cmd.Flags().Int("buckets", 4, "Number of quantile buckets for numeric columns")
	cmd.Flags().Float64Slice("distance-thresholds", []float64{5, 15}, "Strictly increasing distance band limits in km")
	cmd.Flags().StringSlice("mask", nil, "Columns replaced entirely by the mask token")
	cmd.Flags().StringSlice("quantile", nil, "Numeric columns generalized into quantile buckets")
	cmd.Flags().Int("threshold", 0, "Report equivalence classes smaller than this size")
	cmd.Flags().Int("limit", 10, "Maximum number of equivalence classes to report")
	cmd.Flags().Bool("keep-uniqueness", false, "Keep the uniqueness column in the output")
	cmd.Flags().Int("workers", 4, "Maximum number of concurrent column transforms")
	cmd.Flags().String("settings", "settings.json", "Settings file with shop categories and the BIN list path")
	cmd.Flags().String("bin-list", "", "BIN list CSV, overrides the path named in the settings file")
	cmd.Flags().String("lookup-source", "file", "Lookup table source (file, redis)")
	cmd.Flags().String("delimiter", ",", "CSV field delimiter")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile")

	cmd.MarkFlagRequired("input")

	return cmd
}

var anonymizeBindings = map[string]string{
	"suppress":        "pipeline.suppress_percent",
	"buckets":         "pipeline.quantile_buckets",
	"mask":            "pipeline.mask_columns",
	"quantile":        "pipeline.quantile_columns",
	"threshold":       "pipeline.bad_groups.threshold",
	"limit":           "pipeline.bad_groups.limit",
	"keep-uniqueness": "pipeline.keep_uniqueness",
	"workers":         "pipeline.workers",
	"settings":        "lookup.settings_path",
	"bin-list":        "lookup.bin_list_path",
	"lookup-source":   "lookup.source",
	"delimiter":       "csv.delimiter",
	"metrics-file":    "metrics.textfile_path",
}

func runAnonymize(cmd *cobra.Command, opts *AnonymizeOptions) error {
	if opts.OutputFormat != "text" && opts.OutputFormat != "json" {
		return errors.NewValidationError(errors.CodeInvalidFormat, "unknown report format "+opts.OutputFormat)
	}

	rt, err := newRuntime(cmd, anonymizeBindings)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	m, err := metrics.NewPrometheusMetrics(&rt.config.Metrics, rt.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.WriteTextfile(); err != nil {
			rt.logger.WithError(err).Warn("Failed to write metrics")
		}
	}()

	// Lookup tables and the input are configuration: both must load before
	// any transform runs.
	provider, err := rt.lookupProvider()
	if err != nil {
		return err
	}
	tables, err := provider.Load(ctx)
	if err != nil {
		return err
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

	pcfg := rt.config.Pipeline
	pcfg.QuasiIdentifiers = qi
	if cmd.Flags().Changed("distance-thresholds") {
		if pcfg.DistanceThresholds, err = cmd.Flags().GetFloat64Slice("distance-thresholds"); err != nil {
			return err
		}
	}
	orchestrator, err := pipeline.NewOrchestrator(&pcfg, tables, rt.logger, m)
	if err != nil {
		return err
	}

	result, err := orchestrator.Run(ctx, ds)
	if err != nil {
		return err
	}

	if err := rt.store.Save(ctx, opts.OutputFile, result.Output); err != nil {
		return err
	}
	rt.logger.WithFields(logrus.Fields{
		"run_id": result.RunID,
		"output": opts.OutputFile,
		"rows":   result.Output.Rows(),
	}).Info("Anonymized dataset saved")

	out := cmd.OutOrStdout()
	if opts.OutputFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	report.WriteResult(out, result)
	return nil
}
