package estimation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// summarizeEntities averages the distortion records across periods per
// entity and carries the weighting measures alongside, in sorted entity
// order.
func summarizeEntities(records []DistortionRecord, panel []panelRow) []EntityEstimate {
	output := make(map[ObservationRef]float64)
	volume := make(map[ObservationRef]float64)
	for _, row := range panel {
		key := ObservationRef{EntityID: row.EntityID, Period: row.Period}
		output[key] = row.Output
		volume[key] = row.RawVolume
	}

	type accum struct {
		value, theta, alpha, mpl, target float64
		gdp, labor                       float64
		gdpN, laborN                     int
		periodMin, periodMax, n          int
	}
	byEntity := make(map[string]*accum)
	var order []string

	for _, r := range records {
		acc := byEntity[r.EntityID]
		if acc == nil {
			acc = &accum{periodMin: r.Period, periodMax: r.Period}
			byEntity[r.EntityID] = acc
			order = append(order, r.EntityID)
		}
		acc.value += r.AdjustedValue
		acc.theta += r.Theta
		acc.alpha += r.Alpha
		acc.mpl += r.MPL
		acc.target += r.TargetWage
		acc.n++
		if r.Period < acc.periodMin {
			acc.periodMin = r.Period
		}
		if r.Period > acc.periodMax {
			acc.periodMax = r.Period
		}

		key := ObservationRef{EntityID: r.EntityID, Period: r.Period}
		if v, ok := output[key]; ok && Observed(v) {
			acc.gdp += v
			acc.gdpN++
		}
		if v, ok := volume[key]; ok && v > 0 {
			acc.labor += v
			acc.laborN++
		}
	}

	sort.Strings(order)
	out := make([]EntityEstimate, 0, len(order))
	for _, id := range order {
		acc := byEntity[id]
		n := float64(acc.n)
		e := EntityEstimate{
			EntityID:      id,
			AdjustedValue: acc.value / n,
			Theta:         acc.theta / n,
			Alpha:         acc.alpha / n,
			MPL:           acc.mpl / n,
			TargetWage:    acc.target / n,
			GDP:           Missing,
			LaborVolume:   Missing,
			PeriodMin:     acc.periodMin,
			PeriodMax:     acc.periodMax,
			NPeriods:      acc.n,
		}
		if acc.gdpN > 0 {
			e.GDP = acc.gdp / float64(acc.gdpN)
		}
		if acc.laborN > 0 {
			e.LaborVolume = acc.labor / float64(acc.laborN)
		}
		out = append(out, e)
	}
	return out
}

// Aggregate combines entity-level adjusted values into one global scalar
// under the chosen weighting scheme. Weights normalize over the entities
// that carry both an adjusted value and the scheme's measure; a measure
// that is entirely absent or sums to zero fails the scheme with a
// ZeroWeightError and touches nothing else.
//
// composite is the externally supplied index for WeightComposite, on a
// 0-100 or 0-1 scale; values are normalized to 0-1 when any exceeds 1.
func Aggregate(entities []EntityEstimate, scheme WeightingScheme, composite map[string]float64) (*AggregateResult, error) {
	if !scheme.IsValid() {
		return nil, fmt.Errorf("unknown weighting scheme %q", scheme)
	}
	if len(entities) == 0 {
		return nil, &ZeroWeightError{Scheme: scheme, Reason: "no entities"}
	}

	if scheme == WeightNone {
		return aggregateUnweighted(entities)
	}

	var usable []EntityEstimate
	var measures []float64
	for _, e := range entities {
		if !Observed(e.AdjustedValue) {
			continue
		}
		m, ok := schemeMeasure(e, scheme, composite)
		if !ok {
			continue
		}
		usable = append(usable, e)
		measures = append(measures, m)
	}
	if len(usable) == 0 {
		return nil, &ZeroWeightError{Scheme: scheme, Reason: "measure entirely absent"}
	}
	if scheme == WeightComposite && floats.Max(measures) > 1 {
		// Index supplied on the 0-100 scale.
		for i := range measures {
			measures[i] /= 100
		}
	}

	total := floats.Sum(measures)
	if total <= 0 {
		return nil, &ZeroWeightError{Scheme: scheme, Reason: "measure sums to zero"}
	}

	result := &AggregateResult{
		Scheme:        scheme,
		NEntities:     len(usable),
		Contributions: make([]Contribution, 0, len(usable)),
	}
	for i, e := range usable {
		w := measures[i] / total
		c := e.AdjustedValue * w
		result.GlobalValue += c
		result.Contributions = append(result.Contributions, Contribution{
			EntityID:      e.EntityID,
			AdjustedValue: e.AdjustedValue,
			Measure:       measures[i],
			Weight:        w,
			Contribution:  c,
		})
	}
	sortContributions(result.Contributions)
	return result, nil
}

// aggregateUnweighted gives every entity equal weight; the global value is
// the plain arithmetic mean of the adjusted values.
func aggregateUnweighted(entities []EntityEstimate) (*AggregateResult, error) {
	var usable []EntityEstimate
	for _, e := range entities {
		if Observed(e.AdjustedValue) {
			usable = append(usable, e)
		}
	}
	if len(usable) == 0 {
		return nil, &ZeroWeightError{Scheme: WeightNone, Reason: "no adjusted values"}
	}
	values := make([]float64, len(usable))
	for i, e := range usable {
		values[i] = e.AdjustedValue
	}

	result := &AggregateResult{
		Scheme:        WeightNone,
		GlobalValue:   stat.Mean(values, nil),
		NEntities:     len(usable),
		Contributions: make([]Contribution, 0, len(usable)),
	}
	w := 1.0 / float64(len(usable))
	for _, e := range usable {
		result.Contributions = append(result.Contributions, Contribution{
			EntityID:      e.EntityID,
			AdjustedValue: e.AdjustedValue,
			Measure:       1,
			Weight:        w,
			Contribution:  e.AdjustedValue * w,
		})
	}
	sortContributions(result.Contributions)
	return result, nil
}

// CompareSchemes evaluates every supported scheme independently. A failing
// scheme reports its failure in place; the others are unaffected.
func CompareSchemes(ctx context.Context, entities []EntityEstimate, composite map[string]float64, logger *slog.Logger) []SchemeOutcome {
	if logger == nil {
		logger = slog.Default()
	}

	out := make([]SchemeOutcome, 0, len(AllSchemes))
	for _, scheme := range AllSchemes {
		r, err := Aggregate(entities, scheme, composite)
		if err != nil {
			logger.WarnContext(ctx, "weighting scheme failed",
				"scheme", scheme,
				"error", err,
			)
			out = append(out, SchemeOutcome{Scheme: scheme, Failure: err.Error()})
			continue
		}
		logger.InfoContext(ctx, "aggregated global value",
			"scheme", scheme,
			"global_value", r.GlobalValue,
			"entities", r.NEntities,
		)
		out = append(out, SchemeOutcome{Scheme: scheme, Result: r})
	}
	return out
}

func schemeMeasure(e EntityEstimate, scheme WeightingScheme, composite map[string]float64) (float64, bool) {
	switch scheme {
	case WeightGDP:
		return e.GDP, Observed(e.GDP) && e.GDP > 0
	case WeightLabor:
		return e.LaborVolume, Observed(e.LaborVolume) && e.LaborVolume > 0
	case WeightComposite:
		m, ok := composite[e.EntityID]
		return m, ok && Observed(m) && m > 0
	}
	return 0, false
}

// sortContributions orders by descending contribution; ties break on
// entity id so output order is reproducible.
func sortContributions(cs []Contribution) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Contribution != cs[j].Contribution {
			return cs[i].Contribution > cs[j].Contribution
		}
		return cs[i].EntityID < cs[j].EntityID
	})
}
