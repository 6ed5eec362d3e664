package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesStageDefaults(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "close_price", c.Response)
	assert.Equal(t, []string{"date", "ticker", "symbol", "company", "year"}, c.DropColumns)
	assert.Equal(t, 0.05, c.Alpha)
	assert.Equal(t, 10.0, c.MaxVIF)
	assert.Equal(t, 0.5, c.MaxCooksDistance)
	assert.Equal(t, 0.05, c.SignificanceEnter)
	assert.Equal(t, 0.1, c.SignificanceRemove)
	assert.Equal(t, -10.0, c.LambdaMin)
	assert.Equal(t, 10.0, c.LambdaMax)
	assert.Equal(t, 0.01, c.LambdaStep)
	assert.Equal(t, "markdown", c.ReportFormat)

	pc := c.PipelineConfig(nil)
	require.NoError(t, pc.Selection.Validate())
	require.NoError(t, pc.Refine.Validate())
	assert.Equal(t, "close_price", pc.Response)
	assert.Len(t, pc.Refine.Grid.Points(), 2001)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "response: revenue\nalpha: 0.01\ndrop_columns: [id, period]\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("REGDIAG_MAX_VIF", "5")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "revenue", c.Response)
	assert.Equal(t, 0.01, c.Alpha)
	assert.Equal(t, 5.0, c.MaxVIF)
	assert.Equal(t, []string{"id", "period"}, c.DropColumns)
	assert.Equal(t, 0.1, c.SignificanceRemove)

	lo := c.LoaderOptions()
	assert.Equal(t, "revenue", lo.Response)
	assert.Equal(t, []string{"id", "period"}, lo.Drop)
	assert.Equal(t, 0.01, c.Thresholds().Alpha)
}

func TestLoad_InvalidValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("alpha: 1.5\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestSetGetSave(t *testing.T) {
	c := Default()
	require.NoError(t, c.Set("alpha", "0.1"))
	require.NoError(t, c.Set("drop_columns", "id, ticker ,"))
	require.NoError(t, c.Set("report_format", "JSON"))
	assert.Equal(t, []string{"id", "ticker"}, c.DropColumns)
	assert.Equal(t, "json", c.ReportFormat)

	assert.Error(t, c.Set("alpha", "abc"))
	assert.Error(t, c.Set("alpha", "2"))
	assert.Error(t, c.Set("lambda_max", "-20"))
	assert.Error(t, c.Set("nope", "1"))
	assert.Equal(t, 0.1, c.Alpha, "rejected values leave the config unchanged")

	for _, k := range Keys {
		_, err := c.Get(k)
		require.NoError(t, err, k)
	}
	v, _ := c.Get("drop_columns")
	assert.Equal(t, "id,ticker", v)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Save(c, path))
	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}
