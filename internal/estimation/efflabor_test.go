package estimation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func laborObs(entity string, period int, category string, volume float64) Observation {
	o := wageObs(entity, period, category, Missing)
	o.LaborVolume = volume
	return o
}

func TestEffectiveLaborAppliesSkillWeights(t *testing.T) {
	ratios := NewTable([]string{"ALB"}, []string{"Elementary", "Managers"})
	ratios.Set("ALB", "Managers", 1.0)
	ratios.Set("ALB", "Elementary", 0.4)

	obs := []Observation{
		laborObs("ALB", 2010, "Managers", 100),
		laborObs("ALB", 2010, "Elementary", 200),
	}

	records := ComputeEffectiveLabor(context.Background(), obs, ratios, nil)
	require.Len(t, records, 1)
	assert.Equal(t, 300.0, records[0].RawVolume)
	assert.InDelta(t, 180.0, records[0].EffectiveVolume, 1e-12)
	// Skill weights below one pull effective volume under the raw total.
	assert.Less(t, records[0].EffectiveVolume, records[0].RawVolume)
}

func TestEffectiveLaborDefaultsAbsentCategoryToUnity(t *testing.T) {
	ratios := NewTable([]string{"ALB"}, []string{"Managers"})
	ratios.Set("ALB", "Managers", 1.0)

	obs := []Observation{
		laborObs("ALB", 2010, "Managers", 100),
		// Agforestry never appears in the wage data: weight 1.0, not
		// imputed.
		laborObs("ALB", 2010, "Agforestry", 50),
		// Unknown entity: weight 1.0 as well.
		laborObs("ZWE", 2010, "Managers", 30),
	}

	records := ComputeEffectiveLabor(context.Background(), obs, ratios, nil)
	require.Len(t, records, 2)
	assert.Equal(t, "ALB", records[0].EntityID)
	assert.InDelta(t, 150.0, records[0].EffectiveVolume, 1e-12)
	assert.Equal(t, "ZWE", records[1].EntityID)
	assert.InDelta(t, 30.0, records[1].EffectiveVolume, 1e-12)
}

func TestEffectiveLaborSortedByEntityAndPeriod(t *testing.T) {
	obs := []Observation{
		laborObs("BGD", 2011, "Clerks", 10),
		laborObs("ALB", 2012, "Clerks", 10),
		laborObs("ALB", 2010, "Clerks", 10),
		laborObs("BGD", 2010, "Clerks", 10),
	}

	records := ComputeEffectiveLabor(context.Background(), obs, nil, nil)
	require.Len(t, records, 4)
	want := []struct {
		entity string
		period int
	}{
		{"ALB", 2010}, {"ALB", 2012}, {"BGD", 2010}, {"BGD", 2011},
	}
	for i, w := range want {
		assert.Equal(t, w.entity, records[i].EntityID)
		assert.Equal(t, w.period, records[i].Period)
	}
}
