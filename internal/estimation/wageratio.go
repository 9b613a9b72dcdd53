package estimation

import (
	"context"
	"log/slog"
	"sort"
)

// ComputeWageRatios builds the entity-by-category table of skill weights:
// each category's wage relative to the reference category, averaged across
// periods per entity.
//
// The ordering is a contract: the ratio is formed per entity-period first
// and only then averaged across periods. Averaging wages before dividing is
// a different statistic and must not be substituted. Entity-periods whose
// reference wage is missing or zero contribute nothing (excluded, never
// zero-filled), so every resulting ratio is >= 0.
//
// Rows cover every entity with at least one observed categorized wage,
// columns every category seen in the wage data, so the table is ready for
// cross-category imputation.
func ComputeWageRatios(ctx context.Context, obs []Observation, reference string, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}

	// Reference wage per entity-period. Multiple reference rows for one
	// entity-period average before use.
	type refAccum struct {
		sum float64
		n   int
	}
	refs := make(map[ObservationRef]*refAccum)
	for _, o := range obs {
		if o.Category != reference || !Observed(o.Wage) || o.Wage <= 0 {
			continue
		}
		key := ObservationRef{EntityID: o.EntityID, Period: o.Period}
		acc := refs[key]
		if acc == nil {
			acc = &refAccum{}
			refs[key] = acc
		}
		acc.sum += o.Wage
		acc.n++
	}

	type cell struct {
		entity, category string
	}
	sums := make(map[cell]float64)
	counts := make(map[cell]int)
	entitySet := make(map[string]bool)
	categorySet := make(map[string]bool)

	skippedNoRef := 0
	for _, o := range obs {
		if o.Category == "" || !Observed(o.Wage) {
			continue
		}
		entitySet[o.EntityID] = true
		categorySet[o.Category] = true

		ref := refs[ObservationRef{EntityID: o.EntityID, Period: o.Period}]
		if ref == nil {
			skippedNoRef++
			continue
		}
		c := cell{entity: o.EntityID, category: o.Category}
		sums[c] += o.Wage / (ref.sum / float64(ref.n))
		counts[c]++
	}

	entities := sortedKeys(entitySet)
	categories := sortedKeys(categorySet)

	t := NewTable(entities, categories)
	for _, e := range entities {
		for _, cat := range categories {
			c := cell{entity: e, category: cat}
			if n := counts[c]; n > 0 {
				t.Set(e, cat, sums[c]/float64(n))
			}
		}
	}

	logger.InfoContext(ctx, "calculated wage ratios",
		"entities", len(entities),
		"categories", len(categories),
		"skipped_missing_reference", skippedNoRef,
	)
	return t
}

// imputeRatioTable fills the gaps of every category column using all other
// categories as predictors, in column order.
func imputeRatioTable(ctx context.Context, t *Table, im *Imputer) (ImputeStats, error) {
	var stats ImputeStats
	cols := t.Cols()
	for _, target := range cols {
		if t.MissingCount(target) == 0 {
			continue
		}
		predictors := make([]string, 0, len(cols)-1)
		for _, c := range cols {
			if c != target {
				predictors = append(predictors, c)
			}
		}
		s, err := im.Impute(ctx, t, target, predictors)
		if err != nil {
			return stats, err
		}
		stats.add(s)
	}
	return stats, nil
}

// ratioRecords flattens the table into WageRatio records in row-major
// order. imputed marks cells that were missing before imputation.
func ratioRecords(t *Table, imputed map[cellRef]bool) []WageRatio {
	var out []WageRatio
	for _, e := range t.Rows() {
		for _, c := range t.Cols() {
			if !t.Observed(e, c) {
				continue
			}
			out = append(out, WageRatio{
				EntityID: e,
				Category: c,
				Ratio:    t.Get(e, c),
				Imputed:  imputed[cellRef{Row: e, Col: c}],
			})
		}
	}
	return out
}

// cellRef identifies one table cell.
type cellRef struct {
	Row, Col string
}

// missingCells snapshots the currently missing cells of a table.
func missingCells(t *Table) map[cellRef]bool {
	out := make(map[cellRef]bool)
	for _, r := range t.Rows() {
		for _, c := range t.Cols() {
			if !t.Observed(r, c) {
				out[cellRef{Row: r, Col: c}] = true
			}
		}
	}
	return out
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
