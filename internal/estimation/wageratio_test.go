package estimation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wageObs(entity string, period int, category string, wage float64) Observation {
	return Observation{
		EntityID:     entity,
		Period:       period,
		Category:     category,
		Wage:         wage,
		Output:       Missing,
		Capital:      Missing,
		LaborVolume:  Missing,
		HumanCapital: Missing,
	}
}

func TestWageRatioPeriodThenAverageOrdering(t *testing.T) {
	// Per-period ratios are 5/10 = 0.5 and 5/20 = 0.25. The contract is
	// the mean of ratios, 0.375, not the ratio of mean wages, 5/15.
	obs := []Observation{
		wageObs("ALB", 2010, "Managers", 10),
		wageObs("ALB", 2010, "Elementary", 5),
		wageObs("ALB", 2011, "Managers", 20),
		wageObs("ALB", 2011, "Elementary", 5),
	}

	ratios := ComputeWageRatios(context.Background(), obs, "Managers", nil)
	require.True(t, ratios.Observed("ALB", "Elementary"))
	got := ratios.Get("ALB", "Elementary")
	assert.InDelta(t, 0.375, got, 1e-12)
	assert.Greater(t, absDiff(got, 5.0/15.0), 1e-3)
}

func TestWageRatioReferenceCategoryIsUnity(t *testing.T) {
	obs := []Observation{
		wageObs("BGD", 2010, "Managers", 12),
		wageObs("BGD", 2010, "Clerks", 6),
	}

	ratios := ComputeWageRatios(context.Background(), obs, "Managers", nil)
	assert.InDelta(t, 1.0, ratios.Get("BGD", "Managers"), 1e-12)
	assert.InDelta(t, 0.5, ratios.Get("BGD", "Clerks"), 1e-12)
}

func TestWageRatioMissingReferenceExcluded(t *testing.T) {
	obs := []Observation{
		// 2010 has a reference wage, 2011 does not: only 2010 counts.
		wageObs("CHL", 2010, "Managers", 10),
		wageObs("CHL", 2010, "Clerks", 4),
		wageObs("CHL", 2011, "Clerks", 400),
		// Zero reference wage is excluded, never divided by.
		wageObs("DZA", 2010, "Managers", 0),
		wageObs("DZA", 2010, "Clerks", 4),
	}

	ratios := ComputeWageRatios(context.Background(), obs, "Managers", nil)
	assert.InDelta(t, 0.4, ratios.Get("CHL", "Clerks"), 1e-12)
	assert.False(t, ratios.Observed("DZA", "Clerks"),
		"entity without a usable reference wage must stay missing, not zero")
}

func TestWageRatioNonNegative(t *testing.T) {
	obs := []Observation{
		wageObs("EGY", 2010, "Managers", 8),
		wageObs("EGY", 2010, "Elementary", 2),
		wageObs("EGY", 2011, "Managers", 16),
		wageObs("EGY", 2011, "Elementary", 3),
	}

	ratios := ComputeWageRatios(context.Background(), obs, "Managers", nil)
	for _, e := range ratios.Rows() {
		for _, c := range ratios.Cols() {
			if ratios.Observed(e, c) {
				assert.GreaterOrEqual(t, ratios.Get(e, c), 0.0)
			}
		}
	}
}

func TestImputeRatioTableFillsMissingCells(t *testing.T) {
	// Clerks = Elementary + 0.2 across the complete entities; the
	// missing Clerks cell must come from that relation.
	obs := []Observation{
		wageObs("ALB", 2010, "Managers", 10), wageObs("ALB", 2010, "Elementary", 2), wageObs("ALB", 2010, "Clerks", 4),
		wageObs("BGD", 2010, "Managers", 10), wageObs("BGD", 2010, "Elementary", 3), wageObs("BGD", 2010, "Clerks", 5),
		wageObs("CHL", 2010, "Managers", 10), wageObs("CHL", 2010, "Elementary", 5), wageObs("CHL", 2010, "Clerks", 7),
		wageObs("DZA", 2010, "Managers", 10), wageObs("DZA", 2010, "Elementary", 4),
	}

	ratios := ComputeWageRatios(context.Background(), obs, "Managers", nil)
	require.False(t, ratios.Observed("DZA", "Clerks"))

	stats, err := imputeRatioTable(context.Background(), ratios, NewImputer(nil))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ByRegression)
	assert.InDelta(t, 0.6, ratios.Get("DZA", "Clerks"), 1e-9)
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
