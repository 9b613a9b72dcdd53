package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chipcore/internal/estimation"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gdp", cfg.Estimation.Weighting)
	assert.Equal(t, "Managers", cfg.Estimation.ReferenceCategorySkill)
	assert.Equal(t, "Elementary", cfg.Estimation.ReferenceCategoryTarget)
	assert.Equal(t, 3, cfg.Estimation.MinPeriodsForAlpha)
	assert.Equal(t, 0.33, cfg.Estimation.DefaultAlpha)
	assert.True(t, cfg.Estimation.EnableImputation)

	p, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, estimation.DefaultParams(), p)
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := writeConfigFile(t, `
estimation:
  weighting: labor
  min_periods_for_alpha: 5
  excluded_entities:
    - ZWE
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "labor", cfg.Estimation.Weighting)
	assert.Equal(t, 5, cfg.Estimation.MinPeriodsForAlpha)
	assert.Equal(t, []string{"ZWE"}, cfg.Estimation.ExcludedEntities)
	// Untouched keys keep their defaults.
	assert.Equal(t, "Managers", cfg.Estimation.ReferenceCategorySkill)
	assert.Equal(t, 0.33, cfg.Estimation.DefaultAlpha)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
estimation:
  weighting: labor
`)
	t.Setenv("CHIP_ESTIMATION_WEIGHTING", "unweighted")
	t.Setenv("CHIP_ESTIMATION_MAX_CONCURRENCY", "4")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "unweighted", cfg.Estimation.Weighting)
	assert.Equal(t, 4, cfg.Estimation.MaxConcurrency)
}

func TestLoadRejectsUnknownScheme(t *testing.T) {
	path := writeConfigFile(t, `
estimation:
  weighting: median
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsEqualReferenceCategories(t *testing.T) {
	path := writeConfigFile(t, `
estimation:
  reference_category_target: Managers
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsInvertedAlphaRange(t *testing.T) {
	path := writeConfigFile(t, `
estimation:
  alpha_valid_min: 0.9
  alpha_valid_max: 0.1
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gdp", cfg.Estimation.Weighting)
}

func TestParamsParsesExcludedObservations(t *testing.T) {
	cfg := Default()
	cfg.Estimation.ExcludedObservations = []string{"ALB:2015", "BGD:2016"}

	p, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, []estimation.ObservationRef{
		{EntityID: "ALB", Period: 2015},
		{EntityID: "BGD", Period: 2016},
	}, p.ExcludedObservations)
}

func TestParamsRejectsMalformedExclusion(t *testing.T) {
	cfg := Default()
	cfg.Estimation.ExcludedObservations = []string{"ALB-2015"}

	_, err := cfg.Params()
	require.Error(t, err)
}
