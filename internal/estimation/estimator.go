package estimation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Estimator orchestrates one CHIP estimation run. It holds configuration
// only; no state survives between runs, so a single Estimator can serve
// any number of Estimate calls.
type Estimator struct {
	params    Params
	composite map[string]float64
	logger    *slog.Logger
}

// NewEstimator creates an estimator with the given parameters. A nil
// logger falls back to slog.Default().
func NewEstimator(params Params, logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{params: params, logger: logger}
}

// SetCompositeIndex supplies the external 0-100 or 0-1 index used by the
// composite weighting scheme, keyed by entity id. Without it the composite
// scheme fails (and only it).
func (e *Estimator) SetCompositeIndex(index map[string]float64) {
	e.composite = index
}

// Estimate runs the full pipeline over the observation set. The run never
// aborts on missing or implausible data; every degradation lands in
// Result.Diagnostics. It returns an error only for invalid parameters or
// an input with nothing to estimate.
func (e *Estimator) Estimate(ctx context.Context, obs []Observation) (*Result, error) {
	start := time.Now()
	logger := e.logger.With("run_id", uuid.NewString())

	if !e.params.IsValid() {
		return nil, fmt.Errorf("invalid estimation parameters")
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("no observations provided")
	}

	logger.InfoContext(ctx, "starting estimation",
		"observations", len(obs),
		"weighting", e.params.Weighting,
	)

	result := &Result{}
	result.Diagnostics.ObservationsIn = len(obs)

	kept, excluded := applyExclusions(ctx, obs, e.params, logger)
	result.Diagnostics.ObservationsExcluded = excluded
	if len(kept) == 0 {
		return nil, fmt.Errorf("all %d observations excluded", len(obs))
	}

	// Skill weights from the wage data, gap-filled across categories.
	ratios := ComputeWageRatios(ctx, kept, e.params.ReferenceCategorySkill, logger)
	preImpute := missingCells(ratios)
	if e.params.EnableImputation {
		stats, err := imputeRatioTable(ctx, ratios, NewImputer(logger))
		if err != nil {
			return nil, fmt.Errorf("impute wage ratios: %w", err)
		}
		result.Diagnostics.RatioCellsImputedByRegression = stats.ByRegression
		result.Diagnostics.RatioCellsImputedByMean = stats.ByMean
		result.Diagnostics.RatioCellsUnfilled = stats.Remaining
	} else {
		result.Diagnostics.RatioCellsUnfilled = len(preImpute)
	}
	result.WageRatios = ratioRecords(ratios, preImpute)

	// Skill-adjusted labor, then the estimation-ready panel.
	result.EffectiveLabor = ComputeEffectiveLabor(ctx, kept, ratios, logger)
	panel := buildPanel(kept, result.EffectiveLabor, e.params)

	shares, alphaDiag, err := EstimateCapitalShares(ctx, panel, e.params, logger)
	if err != nil {
		return nil, fmt.Errorf("estimate capital shares: %w", err)
	}
	result.CapitalShares = shares
	result.Diagnostics.AlphasDirect = alphaDiag.AlphasDirect
	result.Diagnostics.AlphasRejected = alphaDiag.AlphasRejected
	result.Diagnostics.AlphasImputedByRegression = alphaDiag.AlphasImputedByRegression
	result.Diagnostics.AlphasImputedByMean = alphaDiag.AlphasImputedByMean
	result.Diagnostics.AlphasDefaulted = alphaDiag.AlphasDefaulted

	records, dropped := ComputeDistortion(ctx, panel, shares, logger)
	result.Distortions = records
	result.Diagnostics.RecordsDropped = dropped
	if len(records) == 0 {
		return nil, fmt.Errorf("no entity-period has complete data for distortion")
	}

	result.Entities = summarizeEntities(records, panel)

	result.Schemes = CompareSchemes(ctx, result.Entities, e.composite, logger)
	for _, s := range result.Schemes {
		if s.Failure != "" {
			result.Diagnostics.SchemesFailed++
			result.Diagnostics.Warnings = append(result.Diagnostics.Warnings,
				fmt.Sprintf("scheme %s failed: %s", s.Scheme, s.Failure))
		}
		if s.Scheme == e.params.Weighting && s.Result != nil {
			result.Aggregate = *s.Result
		}
	}
	if result.Aggregate.Scheme == "" {
		// The configured scheme failed; its warning is already recorded
		// and the other schemes stand on their own. No silent
		// substitution of equal weighting.
		result.Aggregate = AggregateResult{Scheme: e.params.Weighting, GlobalValue: Missing}
	}

	logger.InfoContext(ctx, "estimation completed",
		"duration", time.Since(start),
		"global_value", result.Aggregate.GlobalValue,
		"entities", len(result.Entities),
		"dropped_records", result.Diagnostics.RecordsDropped,
	)
	return result, nil
}
