package estimation

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Predicted alphas from the second-stage regression are clipped to this
// range so an extrapolated entity can never leave the economically
// meaningful interval.
const (
	alphaClipMin = 0.01
	alphaClipMax = 0.99
)

// entityLogs holds one entity's finite log-ratio series and their means,
// the inputs to both estimation tiers.
type entityLogs struct {
	entityID string
	lnY, lnK []float64

	meanLnY, meanLnK float64
}

// alphaOutcome is the per-entity result of the first-stage fit.
type alphaOutcome struct {
	estimate CapitalShareEstimate
	rejected *InvalidParameterError
}

// EstimateCapitalShares estimates the Cobb-Douglas capital share per entity
// by regressing ln(output/L_eff) on ln(capital/L_eff) with
// L_eff = effective volume x human capital. Only slopes inside the open
// interval (Params.AlphaValidMin, Params.AlphaValidMax) are accepted as
// direct estimates; everything else routes through a fixed-priority
// fallback chain, regression first, cross-entity mean second.
//
// First-stage fits are independent across entities and run concurrently
// when Params.MaxConcurrency > 1; results merge in sorted entity order so
// the output never depends on scheduling.
func EstimateCapitalShares(ctx context.Context, panel []panelRow, p Params, logger *slog.Logger) ([]CapitalShareEstimate, Diagnostics, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var diag Diagnostics

	logs := collectEntityLogs(panel)
	outcomes := make([]alphaOutcome, len(logs))

	fit := func(i int) {
		outcomes[i] = fitEntityAlpha(logs[i], p)
	}
	if p.MaxConcurrency > 1 {
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(p.MaxConcurrency)
		for i := range logs {
			i := i
			g.Go(func() error {
				fit(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, diag, err
		}
	} else {
		for i := range logs {
			fit(i)
		}
	}

	estimates := make(map[string]CapitalShareEstimate, len(logs))
	var valid []CapitalShareEstimate
	for _, out := range outcomes {
		if out.rejected != nil {
			diag.AlphasRejected++
			logger.DebugContext(ctx, "discarded implausible capital share",
				"entity", out.rejected.EntityID,
				"alpha", out.rejected.Value,
			)
		}
		if out.estimate.IsDirectlyEstimated {
			estimates[out.estimate.EntityID] = out.estimate
			valid = append(valid, out.estimate)
			diag.AlphasDirect++
		}
	}

	meanAlpha := p.DefaultAlpha
	if len(valid) > 0 {
		alphas := make([]float64, len(valid))
		for i, e := range valid {
			alphas[i] = e.Alpha
		}
		meanAlpha = stat.Mean(alphas, nil)
	}

	imputeMissingAlphas(ctx, logs, estimates, valid, meanAlpha, p, &diag, logger)

	out := make([]CapitalShareEstimate, 0, len(estimates))
	for _, l := range logs {
		if e, ok := estimates[l.entityID]; ok {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })

	logger.InfoContext(ctx, "estimated capital shares",
		"entities", len(out),
		"direct", diag.AlphasDirect,
		"rejected", diag.AlphasRejected,
		"imputed_regression", diag.AlphasImputedByRegression,
		"imputed_mean", diag.AlphasImputedByMean,
		"mean_alpha", meanAlpha,
	)
	return out, diag, nil
}

// collectEntityLogs extracts the finite log-ratio series per entity in
// sorted entity order. Rows with non-positive or missing inputs are
// dropped here; sparse entities keep their (short) series so the
// characteristic means remain available to the imputation tier.
func collectEntityLogs(panel []panelRow) []entityLogs {
	byEntity := make(map[string]*entityLogs)
	var order []string

	for _, row := range panel {
		if !Observed(row.Output) || !Observed(row.Capital) || !Observed(row.HumanCapital) {
			continue
		}
		if row.EffectiveVolume <= 0 || row.HumanCapital <= 0 || row.Output <= 0 || row.Capital <= 0 {
			continue
		}
		lEff := row.EffectiveVolume * row.HumanCapital
		lnY := math.Log(row.Output / lEff)
		lnK := math.Log(row.Capital / lEff)
		if math.IsInf(lnY, 0) || math.IsNaN(lnY) || math.IsInf(lnK, 0) || math.IsNaN(lnK) {
			continue
		}

		l := byEntity[row.EntityID]
		if l == nil {
			l = &entityLogs{entityID: row.EntityID}
			byEntity[row.EntityID] = l
			order = append(order, row.EntityID)
		}
		l.lnY = append(l.lnY, lnY)
		l.lnK = append(l.lnK, lnK)
	}

	sort.Strings(order)
	out := make([]entityLogs, 0, len(order))
	for _, id := range order {
		l := byEntity[id]
		l.meanLnY = stat.Mean(l.lnY, nil)
		l.meanLnK = stat.Mean(l.lnK, nil)
		out = append(out, *l)
	}
	return out
}

// fitEntityAlpha runs the first-stage intercept+slope OLS for one entity.
func fitEntityAlpha(l entityLogs, p Params) alphaOutcome {
	if len(l.lnY) < p.MinPeriodsForAlpha {
		return alphaOutcome{}
	}

	_, alpha := stat.LinearRegression(l.lnK, l.lnY, nil, false)
	if math.IsNaN(alpha) || math.IsInf(alpha, 0) ||
		alpha <= p.AlphaValidMin || alpha >= p.AlphaValidMax {
		return alphaOutcome{
			rejected: &InvalidParameterError{EntityID: l.entityID, Name: "alpha", Value: alpha},
		}
	}

	return alphaOutcome{
		estimate: CapitalShareEstimate{
			EntityID:            l.entityID,
			Alpha:               alpha,
			IsDirectlyEstimated: true,
			NObservationsUsed:   len(l.lnY),
			Method:              "ols",
		},
	}
}

// alphaFallback is one named imputation strategy with an explicit
// applicability precondition. Strategies are evaluated in slice order and
// the first applicable one fills every entity it can; the mean strategy is
// always applicable and closes the chain.
type alphaFallback struct {
	name       string
	applicable func(nValid int, p Params) bool
	apply      func(ctx context.Context, logs []entityLogs, estimates map[string]CapitalShareEstimate, valid []CapitalShareEstimate, p Params, diag *Diagnostics, logger *slog.Logger)
}

var alphaFallbacks = []alphaFallback{
	{
		name: "regression",
		applicable: func(nValid int, p Params) bool {
			return nValid >= p.MinEntitiesForAlphaRegression
		},
		apply: imputeAlphasByRegression,
	},
	{
		name:       "mean",
		applicable: func(int, Params) bool { return true },
		apply:      nil, // handled inline; the mean needs no entity data
	},
}

// imputeMissingAlphas fills every entity without a direct estimate using
// the fallback chain: second-stage regression on the entity characteristics
// when enough valid alphas exist, otherwise the cross-entity mean of valid
// alphas (or Params.DefaultAlpha when none exist at all).
func imputeMissingAlphas(ctx context.Context, logs []entityLogs, estimates map[string]CapitalShareEstimate, valid []CapitalShareEstimate, meanAlpha float64, p Params, diag *Diagnostics, logger *slog.Logger) {
	missing := 0
	for _, l := range logs {
		if _, ok := estimates[l.entityID]; !ok {
			missing++
		}
	}
	if missing == 0 {
		return
	}

	for _, fb := range alphaFallbacks {
		if !fb.applicable(len(valid), p) {
			logger.DebugContext(ctx, "alpha fallback not applicable",
				"strategy", fb.name,
				"valid_entities", len(valid),
			)
			continue
		}
		if fb.apply != nil {
			fb.apply(ctx, logs, estimates, valid, p, diag, logger)
		}
		break
	}

	// Mean fallback closes the chain for anything still missing, either
	// because the regression tier was inapplicable or because an entity
	// lacked usable characteristics.
	method := "mean"
	if len(valid) == 0 {
		method = "default"
	}
	for _, l := range logs {
		if _, ok := estimates[l.entityID]; ok {
			continue
		}
		estimates[l.entityID] = CapitalShareEstimate{
			EntityID:          l.entityID,
			Alpha:             meanAlpha,
			NObservationsUsed: len(l.lnY),
			Method:            method,
		}
		if method == "default" {
			diag.AlphasDefaulted++
		} else {
			diag.AlphasImputedByMean++
		}
	}
}

// imputeAlphasByRegression fits alpha ~ (mean lnY, mean lnK) over the
// directly estimated entities and predicts the missing ones, clipped to
// [0.01, 0.99]. A singular design matrix abandons the tier; the mean
// fallback then covers everything.
func imputeAlphasByRegression(ctx context.Context, logs []entityLogs, estimates map[string]CapitalShareEstimate, valid []CapitalShareEstimate, p Params, diag *Diagnostics, logger *slog.Logger) {
	chars := make(map[string]entityLogs, len(logs))
	for _, l := range logs {
		chars[l.entityID] = l
	}

	type trainRow struct {
		lnY, lnK, alpha float64
	}
	var train []trainRow
	for _, v := range valid {
		l, ok := chars[v.EntityID]
		if !ok || !finite(l.meanLnY) || !finite(l.meanLnK) {
			continue
		}
		train = append(train, trainRow{lnY: l.meanLnY, lnK: l.meanLnK, alpha: v.Alpha})
	}
	if len(train) < p.MinEntitiesForAlphaRegression {
		logger.WarnContext(ctx, "too few entities with usable characteristics for alpha regression",
			"usable", len(train),
			"required", p.MinEntitiesForAlphaRegression,
		)
		return
	}

	x := mat.NewDense(len(train), 3, nil)
	y := make([]float64, len(train))
	for i, r := range train {
		x.Set(i, 0, 1)
		x.Set(i, 1, r.lnY)
		x.Set(i, 2, r.lnK)
		y[i] = r.alpha
	}
	coefs, err := leastSquares(x, y, "alpha imputation")
	if err != nil {
		logger.WarnContext(ctx, "alpha imputation regression failed, using mean",
			"error", err,
		)
		return
	}

	for _, l := range logs {
		if _, ok := estimates[l.entityID]; ok {
			continue
		}
		if !finite(l.meanLnY) || !finite(l.meanLnK) {
			continue
		}
		alpha := predict(coefs, []float64{l.meanLnY, l.meanLnK})
		alpha = math.Min(math.Max(alpha, alphaClipMin), alphaClipMax)
		estimates[l.entityID] = CapitalShareEstimate{
			EntityID:          l.entityID,
			Alpha:             alpha,
			NObservationsUsed: len(l.lnY),
			Method:            "regression",
		}
		diag.AlphasImputedByRegression++
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
