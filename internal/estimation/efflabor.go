package estimation

import (
	"context"
	"log/slog"
	"sort"
)

// ComputeEffectiveLabor combines raw category-level labor volumes with the
// (possibly imputed) wage-ratio skill weights into one skill-adjusted
// quantity per entity-period.
//
// Every raw labor record participates, including categories that never
// appear in the wage data: those take a weight of exactly 1.0. That default
// is a policy distinct from imputation; the imputer only fills categories
// the wage data knows about, and nothing is imputed twice.
func ComputeEffectiveLabor(ctx context.Context, obs []Observation, ratios *Table, logger *slog.Logger) []EffectiveLaborRecord {
	if logger == nil {
		logger = slog.Default()
	}

	type accum struct {
		raw, effective float64
	}
	byPeriod := make(map[ObservationRef]*accum)
	defaulted := 0

	for _, o := range obs {
		if !Observed(o.LaborVolume) {
			continue
		}
		weight := 1.0
		if o.Category != "" && ratios != nil &&
			ratios.HasRow(o.EntityID) && ratios.HasCol(o.Category) &&
			ratios.Observed(o.EntityID, o.Category) {
			weight = ratios.Get(o.EntityID, o.Category)
		} else if o.Category != "" {
			defaulted++
		}

		key := ObservationRef{EntityID: o.EntityID, Period: o.Period}
		acc := byPeriod[key]
		if acc == nil {
			acc = &accum{}
			byPeriod[key] = acc
		}
		acc.raw += o.LaborVolume
		acc.effective += o.LaborVolume * weight
	}

	keys := make([]ObservationRef, 0, len(byPeriod))
	for k := range byPeriod {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].EntityID != keys[j].EntityID {
			return keys[i].EntityID < keys[j].EntityID
		}
		return keys[i].Period < keys[j].Period
	})

	out := make([]EffectiveLaborRecord, 0, len(keys))
	for _, k := range keys {
		acc := byPeriod[k]
		out = append(out, EffectiveLaborRecord{
			EntityID:        k.EntityID,
			Period:          k.Period,
			RawVolume:       acc.raw,
			EffectiveVolume: acc.effective,
		})
	}

	logger.InfoContext(ctx, "calculated effective labor",
		"entity_periods", len(out),
		"default_weighted_records", defaulted,
	)
	return out
}
