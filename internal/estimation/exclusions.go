package estimation

import (
	"context"
	"log/slog"
)

// applyExclusions removes configured entities, entity-periods, and
// observations outside the period range. Historical data-quality
// exclusions are configuration, not code; the engine only applies them and
// counts what it removed.
func applyExclusions(ctx context.Context, obs []Observation, p Params, logger *slog.Logger) (kept []Observation, excluded int) {
	entities := make(map[string]bool, len(p.ExcludedEntities))
	for _, e := range p.ExcludedEntities {
		entities[e] = true
	}
	pairs := make(map[ObservationRef]bool, len(p.ExcludedObservations))
	for _, ref := range p.ExcludedObservations {
		pairs[ref] = true
	}

	kept = make([]Observation, 0, len(obs))
	for _, o := range obs {
		if p.PeriodStart != 0 && o.Period < p.PeriodStart {
			excluded++
			continue
		}
		if p.PeriodEnd != 0 && o.Period > p.PeriodEnd {
			excluded++
			continue
		}
		if entities[o.EntityID] || pairs[ObservationRef{EntityID: o.EntityID, Period: o.Period}] {
			excluded++
			continue
		}
		kept = append(kept, o)
	}

	if excluded > 0 {
		logger.InfoContext(ctx, "applied exclusions",
			"excluded", excluded,
			"kept", len(kept),
		)
	}
	return kept, excluded
}
