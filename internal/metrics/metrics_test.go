package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
	"github.com/t968rs/FEMA-Prod-updates/pkg/qc"
)

func TestMetrics_TableFinished(t *testing.T) {
	m := New()
	m.TableStarted("S_Levee")
	m.TableFinished(qc.TableResult{
		Table:  "S_Levee",
		Status: qc.StatusValidated,
		Findings: []core.Finding{
			core.NewFinding("L1", "a"),
			core.NewFinding("L2", "b"),
			{ID: "L3", Message: "c", Severity: core.SeverityWarning},
		},
		Duration: 20 * time.Millisecond,
	})
	m.TableFinished(qc.TableResult{Table: "S_XS", Status: qc.StatusEmpty})

	assert.InDelta(t, 2, testutil.ToFloat64(m.Findings.WithLabelValues("S_Levee", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Findings.WithLabelValues("S_Levee", "warning")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TablesChecked.WithLabelValues("validated")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TablesChecked.WithLabelValues("empty")), 0)

	var pb dto.Metric
	require.NoError(t, m.TableDuration.Write(&pb))
	assert.Equal(t, uint64(2), pb.GetHistogram().GetSampleCount())
}

func TestMetrics_ObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun(1500*time.Millisecond, nil)
	assert.InDelta(t, 1.5, testutil.ToFloat64(m.RunDuration), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LastRunSuccess), 0)

	m.ObserveRun(time.Second, errors.New("boom"))
	assert.InDelta(t, 0, testutil.ToFloat64(m.LastRunSuccess), 0)
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.TableFinished(qc.TableResult{Table: "S_Levee", Status: qc.StatusValidated,
		Findings: []core.Finding{core.NewFinding("L1", "a")}})
	m.ObserveRun(time.Second, nil)

	path := filepath.Join(t.TempDir(), "textfile", "dfirmqc.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `dfirmqc_findings_total{severity="error",table="S_Levee"} 1`)
	assert.Contains(t, text, "dfirmqc_run_duration_seconds 1")
	assert.Contains(t, text, "dfirmqc_table_duration_seconds_count 1")
}
