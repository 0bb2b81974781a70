package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T, path string) *PrometheusMetrics {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	pm, err := NewPrometheusMetrics(&PrometheusConfig{
		Enabled:      true,
		Namespace:    "kanon",
		Subsystem:    "pipeline",
		TextfilePath: path,
	}, logger)
	require.NoError(t, err)
	return pm
}

func TestRecordRowsAndTransforms(t *testing.T) {
	pm := newTestMetrics(t, "")

	pm.RecordRows(10, 5, 5)
	pm.RecordTransform("card_brand", "card_number", 3, 2*time.Millisecond)
	pm.RecordTransform("card_brand", "card_number", 1, time.Millisecond)
	pm.SetGroupMetrics("quasi_identifier_k_anonymity", 4, 5, 5)
	pm.RecordRun("success")

	assert.Equal(t, 10.0, testutil.ToFloat64(pm.rowsIn))
	assert.Equal(t, 5.0, testutil.ToFloat64(pm.rowsSuppressed))
	assert.Equal(t, 4.0, testutil.ToFloat64(pm.unknownValues.WithLabelValues("card_brand", "card_number")))
	assert.Equal(t, 4.0, testutil.ToFloat64(pm.kAnonymity.WithLabelValues("quasi_identifier_k_anonymity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.runsTotal.WithLabelValues("success")))
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kanon.prom")
	pm := newTestMetrics(t, path)
	pm.RecordRows(3, 3, 0)

	require.NoError(t, pm.WriteTextfile())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "kanon_pipeline_rows_in_total 3"))
}

func TestWriteTextfileDisabled(t *testing.T) {
	pm, err := NewPrometheusMetrics(&PrometheusConfig{Enabled: false, TextfilePath: filepath.Join(t.TempDir(), "x.prom")}, nil)
	require.NoError(t, err)
	require.NoError(t, pm.WriteTextfile())
	_, err = os.Stat(pm.GetConfig().TextfilePath)
	assert.True(t, os.IsNotExist(err))
}
