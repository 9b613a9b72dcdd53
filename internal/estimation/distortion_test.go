package estimation

import (
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistortionFormula(t *testing.T) {
	panel := []panelRow{{
		EntityID:        "ALB",
		Period:          2015,
		EffectiveVolume: 100,
		Capital:         400,
		HumanCapital:    2,
		AverageWage:     7,
		TargetWage:      4,
	}}
	shares := []CapitalShareEstimate{{EntityID: "ALB", Alpha: 0.33}}

	records, dropped := ComputeDistortion(context.Background(), panel, shares, slog.Default())
	require.Len(t, records, 1)
	assert.Zero(t, dropped)

	// k_eff = (400/100)*2 = 8; mpl = 0.67 * 8^0.33.
	wantMPL := 0.67 * math.Pow(8, 0.33)
	r := records[0]
	assert.InDelta(t, wantMPL, r.MPL, 1e-12)
	assert.InDelta(t, wantMPL/7, r.Theta, 1e-12)
	assert.InDelta(t, 4*wantMPL/7, r.AdjustedValue, 1e-12)
	assert.Equal(t, 0.33, r.Alpha)
	assert.Equal(t, 7.0, r.AverageWage)
	assert.Equal(t, 4.0, r.TargetWage)
}

func TestDistortionHumanCapitalScalesInsidePower(t *testing.T) {
	base := panelRow{
		EntityID:        "BGD",
		Period:          2015,
		EffectiveVolume: 100,
		Capital:         400,
		HumanCapital:    1,
		AverageWage:     5,
		TargetWage:      3,
	}
	scaled := base
	scaled.HumanCapital = 2
	shares := []CapitalShareEstimate{{EntityID: "BGD", Alpha: 0.5}}

	one, _ := ComputeDistortion(context.Background(), []panelRow{base}, shares, slog.Default())
	two, _ := ComputeDistortion(context.Background(), []panelRow{scaled}, shares, slog.Default())
	require.Len(t, one, 1)
	require.Len(t, two, 1)

	// Doubling the index doubles k_eff before the exponent applies, so
	// with alpha = 0.5 the MPL grows by sqrt(2), not by 2^0.5 applied
	// after a fixed k^alpha plus a multiplicative index.
	assert.InDelta(t, one[0].MPL*math.Sqrt2, two[0].MPL, 1e-12)
	assert.Greater(t, two[0].MPL, one[0].MPL)
}

func TestDistortionDropsIncompleteRows(t *testing.T) {
	complete := panelRow{
		EntityID:        "CHL",
		Period:          2015,
		EffectiveVolume: 100,
		Capital:         400,
		HumanCapital:    1,
		AverageWage:     5,
		TargetWage:      3,
	}
	noCapital := complete
	noCapital.Period = 2016
	noCapital.Capital = Missing
	noWage := complete
	noWage.Period = 2017
	noWage.AverageWage = 0
	noAlpha := complete
	noAlpha.EntityID = "ZZZ"

	panel := []panelRow{complete, noCapital, noWage, noAlpha}
	shares := []CapitalShareEstimate{{EntityID: "CHL", Alpha: 0.33}}

	records, dropped := ComputeDistortion(context.Background(), panel, shares, slog.Default())
	assert.Len(t, records, 1)
	assert.Equal(t, 3, dropped)
	assert.Equal(t, "CHL", records[0].EntityID)
	assert.Equal(t, 2015, records[0].Period)
}
