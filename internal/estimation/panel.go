package estimation

import (
	"sort"
)

// panelRow is the estimation-ready view of one entity-period: effective
// labor joined with the entity-period production attributes and the two
// wage summaries the distortion step needs.
type panelRow struct {
	EntityID string
	Period   int

	RawVolume       float64
	EffectiveVolume float64

	Output       float64
	Capital      float64
	HumanCapital float64

	// AverageWage is the mean of observed category wages (simple or
	// labor-share weighted per Params.WageAveraging). TargetWage is the
	// wage of the lowest-skill reference category. The two reference
	// categories serve different purposes and are never conflated: the
	// skill reference (highest skill) anchors the ratio table, the target
	// reference (lowest skill) anchors the corrected value.
	AverageWage float64
	TargetWage  float64
}

// buildPanel joins effective labor with entity-period attributes and wage
// summaries, in sorted entity-period order.
func buildPanel(obs []Observation, eff []EffectiveLaborRecord, p Params) []panelRow {
	type wageAccum struct {
		sum, weightedSum, volumeSum float64
		n                           int
		targetSum                   float64
		targetN                     int
	}

	attrs := make(map[ObservationRef]*panelRow)
	wages := make(map[ObservationRef]*wageAccum)

	for _, o := range obs {
		key := ObservationRef{EntityID: o.EntityID, Period: o.Period}

		row := attrs[key]
		if row == nil {
			row = &panelRow{
				EntityID:     o.EntityID,
				Period:       o.Period,
				Output:       Missing,
				Capital:      Missing,
				HumanCapital: Missing,
			}
			attrs[key] = row
		}
		// Entity-period attributes may repeat across category rows; the
		// first observed value wins.
		if !Observed(row.Output) && Observed(o.Output) {
			row.Output = o.Output
		}
		if !Observed(row.Capital) && Observed(o.Capital) {
			row.Capital = o.Capital
		}
		if !Observed(row.HumanCapital) && Observed(o.HumanCapital) {
			row.HumanCapital = o.HumanCapital
		}

		if o.Category == "" || !Observed(o.Wage) {
			continue
		}
		w := wages[key]
		if w == nil {
			w = &wageAccum{}
			wages[key] = w
		}
		w.sum += o.Wage
		w.n++
		if Observed(o.LaborVolume) {
			w.weightedSum += o.Wage * o.LaborVolume
			w.volumeSum += o.LaborVolume
		}
		if o.Category == p.ReferenceCategoryTarget {
			w.targetSum += o.Wage
			w.targetN++
		}
	}

	rows := make([]panelRow, 0, len(eff))
	for _, e := range eff {
		key := ObservationRef{EntityID: e.EntityID, Period: e.Period}
		row := attrs[key]
		if row == nil {
			continue
		}
		row.RawVolume = e.RawVolume
		row.EffectiveVolume = e.EffectiveVolume

		row.AverageWage = Missing
		row.TargetWage = Missing
		if w := wages[key]; w != nil {
			switch p.WageAveraging {
			case AverageWeighted:
				if w.volumeSum > 0 {
					row.AverageWage = w.weightedSum / w.volumeSum
				}
			default:
				if w.n > 0 {
					row.AverageWage = w.sum / float64(w.n)
				}
			}
			if w.targetN > 0 {
				row.TargetWage = w.targetSum / float64(w.targetN)
			}
		}
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].EntityID != rows[j].EntityID {
			return rows[i].EntityID < rows[j].EntityID
		}
		return rows[i].Period < rows[j].Period
	})
	return rows
}
