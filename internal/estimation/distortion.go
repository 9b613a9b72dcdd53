package estimation

import (
	"context"
	"log/slog"
	"math"
)

// ComputeDistortion derives, per entity-period, the marginal product of
// labor, the distortion factor theta, and the corrected wage value:
//
//	k_eff = (capital / effective_volume) x human_capital
//	mpl   = (1 - alpha) x k_eff^alpha
//	theta = mpl / average_wage
//	value = target_wage x theta
//
// The human-capital index multiplies inside the exponentiation, never
// after it; that convention is pinned (see DESIGN.md). Entity-periods
// missing any required input are dropped and counted, never zero-filled.
func ComputeDistortion(ctx context.Context, panel []panelRow, shares []CapitalShareEstimate, logger *slog.Logger) (records []DistortionRecord, dropped int) {
	if logger == nil {
		logger = slog.Default()
	}

	alphas := make(map[string]float64, len(shares))
	for _, s := range shares {
		alphas[s.EntityID] = s.Alpha
	}

	for _, row := range panel {
		if attr, ok := distortionInputs(row, alphas); !ok {
			dropped++
			err := &MissingDataError{EntityID: row.EntityID, Period: row.Period, Attribute: attr}
			logger.DebugContext(ctx, "dropped entity-period", "error", err)
			continue
		}

		alpha := alphas[row.EntityID]
		kEff := (row.Capital / row.EffectiveVolume) * row.HumanCapital
		mpl := (1 - alpha) * math.Pow(kEff, alpha)
		theta := mpl / row.AverageWage

		records = append(records, DistortionRecord{
			EntityID:      row.EntityID,
			Period:        row.Period,
			Alpha:         alpha,
			MPL:           mpl,
			Theta:         theta,
			AdjustedValue: row.TargetWage * theta,
			AverageWage:   row.AverageWage,
			TargetWage:    row.TargetWage,
		})
	}

	logger.InfoContext(ctx, "calculated distortion records",
		"records", len(records),
		"dropped", dropped,
	)
	return records, dropped
}

// distortionInputs checks one panel row for everything the distortion
// formulas need and names the first missing attribute.
func distortionInputs(row panelRow, alphas map[string]float64) (missing string, ok bool) {
	switch {
	case row.EffectiveVolume <= 0:
		return "effective_volume", false
	case !Observed(row.Capital) || row.Capital <= 0:
		return "capital", false
	case !Observed(row.HumanCapital) || row.HumanCapital <= 0:
		return "human_capital_index", false
	case !Observed(row.AverageWage) || row.AverageWage <= 0:
		return "average_wage", false
	case !Observed(row.TargetWage):
		return "target_wage", false
	}
	if _, has := alphas[row.EntityID]; !has {
		return "alpha", false
	}
	return "", true
}
