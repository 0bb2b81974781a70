// Package pipeline runs the anonymization state machine: column
// generalization in two parallel stages, uniqueness annotation, row
// suppression and the final report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/inferloop/kanon/internal/dataset"
	"github.com/inferloop/kanon/internal/lookup"
	"github.com/inferloop/kanon/internal/observability/metrics"
	"github.com/inferloop/kanon/internal/privacy"
	"github.com/inferloop/kanon/internal/transforms"
	"github.com/inferloop/kanon/pkg/constants"
	"github.com/inferloop/kanon/pkg/errors"
)

// Orchestrator owns a dataset for the duration of a run. Lookup tables are
// injected once and shared read-only by every transform.
type Orchestrator struct {
	config  *Config
	tables  *lookup.Tables
	logger  *logrus.Logger
	metrics *metrics.PrometheusMetrics
}

// NewOrchestrator validates the configuration and lookup tables. metrics may
// be nil.
func NewOrchestrator(config *Config, tables *lookup.Tables, logger *logrus.Logger, m *metrics.PrometheusMetrics) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Orchestrator{
		config:  config,
		tables:  tables,
		logger:  logger,
		metrics: m,
	}, nil
}

// run carries the mutable state of one execution.
type run struct {
	result  *Result
	renames map[string]string
	log     *logrus.Entry
}

func (r *run) advance(next State) error {
	state, err := r.result.State.transition(next)
	if err != nil {
		return err
	}
	r.result.State = state
	r.log.WithField("state", state.String()).Debug("State reached")
	return nil
}

// Run anonymizes ds. On failure the returned result reports the last state
// reached and the error aborts the run.
func (o *Orchestrator) Run(ctx context.Context, ds *dataset.Dataset) (*Result, error) {
	start := time.Now()
	r := &run{
		result:  &Result{RunID: uuid.New().String(), State: StateLoaded, Input: ds},
		renames: make(map[string]string),
	}
	r.log = o.logger.WithFields(logrus.Fields{"run_id": r.result.RunID})

	err := o.execute(ctx, r, ds)
	r.result.Duration = time.Since(start)

	if err != nil {
		r.log.WithError(err).WithField("state", r.result.State.String()).Error("Anonymization run aborted")
		o.recordFailure(err)
		return r.result, err
	}

	r.log.WithFields(logrus.Fields{
		"rows_in":     r.result.Utility.RowsIn,
		"rows_out":    r.result.Utility.RowsOut,
		"suppressed":  r.result.Suppressed,
		"k_anonymity": r.result.QuasiIdentifierKAnonymity.KAnonymity,
		"duration":    r.result.Duration,
	}).Info("Anonymization run completed")
	if o.metrics != nil {
		o.metrics.RecordRun("success")
	}
	return r.result, nil
}

func (o *Orchestrator) execute(ctx context.Context, r *run, ds *dataset.Dataset) error {
	if ds == nil || ds.Rows() == 0 {
		return errors.WrapError(errors.ErrEmptyDataset, errors.ErrorTypeConfiguration, errors.CodeEmptyDataset, "nothing to anonymize")
	}
	if _, err := privacy.ResolveQuasiIdentifiers(ds.ColumnNames(), o.config.QuasiIdentifiers); err != nil {
		return err
	}

	r.log.WithFields(logrus.Fields{
		"rows":              ds.Rows(),
		"columns":           len(ds.ColumnNames()),
		"quasi_identifiers": o.config.QuasiIdentifiers,
		"suppress_percent":  o.config.SuppressPercent,
	}).Info("Starting anonymization run")

	// Loaded -> ColumnsGeneralized
	current := ds
	for _, stage := range o.stages() {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, err := o.runStage(ctx, r, stage, current)
		if err != nil {
			return err
		}
		current = next
	}

	qi := privacy.EffectiveQuasiIdentifiers(o.config.QuasiIdentifiers, r.renames, current.ColumnNames())
	if len(qi) == 0 {
		return errors.NewPreconditionError(errors.CodeEmptyQuasiIdent, errors.ErrEmptyQuasiIdentifiers).
			WithDetails(fmt.Sprintf("no quasi-identifier of %v survived column generalization", o.config.QuasiIdentifiers))
	}
	r.result.QuasiIdentifiers = qi
	if err := r.advance(StateColumnsGeneralized); err != nil {
		return err
	}

	// ColumnsGeneralized -> Annotated
	annotated, full, err := privacy.Annotate(current)
	if err != nil {
		return err
	}
	r.result.FullUniqueness = full
	o.recordGroupMetrics(r, full)
	if err := r.advance(StateAnnotated); err != nil {
		return err
	}

	// Annotated -> Suppressed
	suppressed, removed, err := privacy.Suppress(annotated, o.config.SuppressPercent)
	if err != nil {
		return err
	}
	r.result.Suppressed = removed
	r.log.WithFields(logrus.Fields{
		"percent": o.config.SuppressPercent,
		"removed": removed,
	}).Info("Rows suppressed")
	if err := r.advance(StateSuppressed); err != nil {
		return err
	}

	// Suppressed -> Reported
	qiMetrics, err := privacy.Measure(suppressed, qi, privacy.MetricQuasiIdentifierKAnonymity)
	if err != nil {
		return err
	}
	r.result.QuasiIdentifierKAnonymity = qiMetrics
	o.recordGroupMetrics(r, qiMetrics)

	bad, err := privacy.BadGroups(suppressed, qi, o.config.BadGroups)
	if err != nil {
		return err
	}
	r.result.BadGroups = bad

	// Suppression invalidates the annotation, so a kept uniqueness column is
	// recounted over the surviving rows.
	output := suppressed.WithoutColumns(constants.ColumnUniqueness)
	if o.config.KeepUniqueness {
		if output, _, err = privacy.Annotate(output); err != nil {
			return err
		}
	}
	r.result.Output = output
	r.result.Utility = AssessUtility(ds, output, removed)
	if o.metrics != nil {
		o.metrics.RecordRows(ds.Rows(), output.Rows(), removed)
	}
	return r.advance(StateReported)
}

// stage is a set of transforms over disjoint columns that may run in
// parallel against the same snapshot.
type stage struct {
	name       string
	transforms []transforms.Transform
}

// stages builds the generalization plan. Quantile binning runs last so its
// boundaries reflect the already generalized dataset.
func (o *Orchestrator) stages() []stage {
	cols := o.config.Columns

	var first []transforms.Transform
	if cols.ShopName != "" {
		first = append(first, &transforms.ShopCategory{Column: cols.ShopName, Tables: o.tables})
	}
	if cols.Datetime != "" {
		first = append(first, &transforms.DatetimeSeason{Column: cols.Datetime})
	}
	if cols.Longitude != "" {
		first = append(first, transforms.NewLocationBand(cols.Longitude, cols.Latitude, o.config.DistanceThresholds))
	}
	for _, col := range o.config.MaskColumns {
		first = append(first, transforms.NewMask(col))
	}
	if cols.CardNumber != "" {
		first = append(first, &transforms.CardBrand{Column: cols.CardNumber, Tables: o.tables})
	}

	second := lo.Map(o.config.QuantileColumns, func(col string, _ int) transforms.Transform {
		return transforms.NewQuantile(col, o.config.QuantileBuckets)
	})

	return []stage{
		{name: "generalize", transforms: first},
		{name: "quantile", transforms: second},
	}
}

// runStage applies every transform of s to ds concurrently and merges the
// patches once all of them finished.
func (o *Orchestrator) runStage(ctx context.Context, r *run, s stage, ds *dataset.Dataset) (*dataset.Dataset, error) {
	if len(s.transforms) == 0 {
		return ds, nil
	}
	start := time.Now()

	patches := make([]*dataset.Patch, len(s.transforms))
	stats := make([]transforms.Stats, len(s.transforms))

	p := pool.New().
		WithMaxGoroutines(o.config.Workers).
		WithContext(ctx).
		WithFirstError().
		WithCancelOnError()
	for i, t := range s.transforms {
		i, t := i, t
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			began := time.Now()
			patch, st, err := t.Apply(ds)
			if err != nil {
				return err
			}
			patches[i], stats[i] = patch, st
			if o.metrics != nil {
				o.metrics.RecordTransform(st.Transform, st.Column, st.Unknown, time.Since(began))
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	merged, err := dataset.MergePatches(patches...)
	if err != nil {
		return nil, err
	}
	next, err := ds.Apply(merged)
	if err != nil {
		return nil, err
	}
	for from, to := range merged.Renames {
		r.renames[from] = to
	}

	for _, st := range stats {
		entry := r.log.WithFields(logrus.Fields{
			"stage":     s.name,
			"transform": st.Transform,
			"column":    st.Column,
			"processed": st.Processed,
			"unknown":   st.Unknown,
		})
		if st.Skipped {
			entry.Info("Transform skipped: fewer than two distinct values")
			continue
		}
		entry.Info("Transform applied")
	}
	r.result.Transforms = append(r.result.Transforms, stats...)

	if o.metrics != nil {
		o.metrics.RecordStage(s.name, time.Since(start))
	}
	return next, nil
}

func (o *Orchestrator) recordGroupMetrics(r *run, m privacy.Metrics) {
	r.log.WithFields(logrus.Fields{
		"metric":      m.Name,
		"k_anonymity": m.KAnonymity,
		"mean":        m.Mean,
		"median":      m.Median,
		"groups":      m.Groups,
	}).Info("Group metrics computed")
	if o.metrics != nil {
		o.metrics.SetGroupMetrics(m.Name, m.KAnonymity, m.Mean, m.Median)
	}
}

func (o *Orchestrator) recordFailure(err error) {
	if o.metrics == nil {
		return
	}
	o.metrics.RecordRun("failure")
	errType := string(errors.ErrorTypeInternal)
	for _, t := range []errors.ErrorType{
		errors.ErrorTypeConfiguration, errors.ErrorTypeValidation, errors.ErrorTypePrecondition, errors.ErrorTypeStorage,
	} {
		if errors.IsType(err, t) {
			errType = string(t)
			break
		}
	}
	o.metrics.RecordError(errType)
}
