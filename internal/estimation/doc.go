// Package estimation implements the CHIP cross-country labor value estimator.
//
// CHIP corrects observed low-skill wages for market distortion using a
// Cobb-Douglas production-function framework. The estimator derives, per
// entity (country) and period (year), the marginal product of labor implied
// by output and capital data, compares it with the observed average wage to
// obtain a distortion factor, and applies that factor to the lowest-skill
// wage. Entity-level values are then combined into a single global figure
// under a configurable weighting scheme.
//
// # Pipeline
//
// The estimation runs as a deterministic batch transform over an
// Observation table:
//
//  1. Exclusions: configured entity and entity-period exclusions plus an
//     optional period range filter (exclusions.go).
//  2. Wage ratios: per entity-period category wage relative to the
//     reference skill category, averaged across periods (wageratio.go).
//  3. Imputation: regression-based gap filling of the entity-by-category
//     ratio table (impute.go, table.go).
//  4. Effective labor: skill-weighted labor volume per entity-period
//     (efflabor.go).
//  5. Capital shares: per-entity OLS estimates of the Cobb-Douglas alpha
//     with plausibility filtering and a two-tier imputation fallback
//     (alpha.go).
//  6. Distortion: marginal product of labor, distortion factor theta, and
//     the corrected wage value (distortion.go).
//  7. Aggregation: GDP, labor-force, composite-index, and unweighted
//     schemes with per-entity contribution breakdowns (aggregate.go).
//
// # Usage Example
//
//	estimator := estimation.NewEstimator(estimation.DefaultParams(), slog.Default())
//	estimator.SetCompositeIndex(indexByEntity)
//
//	result, err := estimator.Estimate(ctx, observations)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("global CHIP: %.2f (%s)\n", result.Aggregate.GlobalValue, result.Aggregate.Scheme)
//
// # Determinism
//
// Given the same observations and parameters the estimator produces
// bit-identical results: all grouping iterates over sorted keys, summations
// run in a fixed order, and imputation is single-pass plug-in OLS with no
// randomness. Per-entity capital-share fits may run concurrently
// (Params.MaxConcurrency), but results are merged in sorted entity order so
// output does not depend on scheduling.
//
// # Degradation policy
//
// Missing, sparse, or economically implausible data never aborts a run.
// Records with missing required attributes are dropped and counted,
// singular regressions fall back to mean imputation, out-of-range alpha
// estimates route through cross-entity imputation, and a weighting scheme
// whose measure is absent fails alone with a recorded warning. Every
// degradation is tallied in Result.Diagnostics.
package estimation
