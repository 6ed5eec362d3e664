package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/regdiag-cli/internal/pipeline"
)

func TestRecorder_ObserveAndWrite(t *testing.T) {
	r := NewRecorder()
	r.Observe(&pipeline.Run{Dataset: "acme.csv", Observations: 42, FinishedAt: time.Unix(1700000000, 0)})
	r.Failed("broken.csv")

	assert.Equal(t, 42.0, testutil.ToFloat64(r.observations.WithLabelValues("acme.csv")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("acme.csv", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("broken.csv", "error")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(r.lastSuccessTS.WithLabelValues("acme.csv")))

	path := filepath.Join(t.TempDir(), "regdiag.prom")
	require.NoError(t, r.WriteTextfile(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(b)
	assert.True(t, strings.Contains(text, `regdiag_observations{dataset="acme.csv"} 42`), text)
	assert.Contains(t, text, "# HELP regdiag_runs_total")
}
