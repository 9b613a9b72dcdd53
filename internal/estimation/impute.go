package estimation

import (
	"context"
	"log/slog"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// minCompleteForRegression is the smallest training set the imputer will
// fit a model on; below it every gap is filled with the column mean.
const minCompleteForRegression = 3

// ImputeStats reports how the gaps of one target column were filled.
type ImputeStats struct {
	ByRegression int `json:"by_regression"`
	ByMean       int `json:"by_mean"`
	Remaining    int `json:"remaining"`
}

// Total returns the number of cells filled.
func (s ImputeStats) Total() int { return s.ByRegression + s.ByMean }

func (s *ImputeStats) add(o ImputeStats) {
	s.ByRegression += o.ByRegression
	s.ByMean += o.ByMean
	s.Remaining += o.Remaining
}

// Imputer fills missing table cells with single-pass deterministic plug-in
// OLS prediction: fit on complete rows, predict rows whose predictors are
// observed, mean-fill the rest. Observed values are never overwritten and
// no randomness is involved, so imputation on fully observed data is a
// no-op and repeated runs agree bit for bit.
type Imputer struct {
	logger *slog.Logger
}

// NewImputer creates an imputer. A nil logger falls back to slog.Default().
func NewImputer(logger *slog.Logger) *Imputer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Imputer{logger: logger}
}

// Impute fills the missing cells of target in place using the predictor
// columns. Rows where target and all predictors are observed form the
// training set; with fewer than three such rows, or when the fit fails,
// every gap takes the mean of the observed target values. Rows whose
// predictors are themselves missing also take the mean. When no target
// value is observed at all the gaps stay missing and are reported in
// Remaining.
func (im *Imputer) Impute(ctx context.Context, t *Table, target string, predictors []string) (ImputeStats, error) {
	var stats ImputeStats

	tj, ok := t.colIdx[target]
	if !ok {
		return stats, &MissingDataError{Attribute: target}
	}
	pj := make([]int, 0, len(predictors))
	for _, p := range predictors {
		j, ok := t.colIdx[p]
		if !ok {
			return stats, &MissingDataError{Attribute: p}
		}
		pj = append(pj, j)
	}

	var missing, complete []int
	for i := range t.rows {
		if !Observed(t.at(i, tj)) {
			missing = append(missing, i)
			continue
		}
		if rowObserved(t, i, pj) {
			complete = append(complete, i)
		}
	}
	if len(missing) == 0 {
		return stats, nil
	}

	mean, nObserved := columnMean(t, tj)
	if nObserved == 0 {
		stats.Remaining = len(missing)
		im.logger.WarnContext(ctx, "no observed values to impute from",
			"column", target,
			"missing", len(missing),
		)
		return stats, nil
	}

	coefs, usedPj := im.fitColumn(ctx, t, target, tj, pj, complete)
	for _, i := range missing {
		if coefs != nil && rowObserved(t, i, pj) {
			row := make([]float64, len(usedPj))
			for k, j := range usedPj {
				row[k] = t.at(i, j)
			}
			t.setAt(i, tj, predict(coefs, row))
			stats.ByRegression++
			continue
		}
		t.setAt(i, tj, mean)
		stats.ByMean++
	}

	im.logger.DebugContext(ctx, "imputed column",
		"column", target,
		"by_regression", stats.ByRegression,
		"by_mean", stats.ByMean,
	)
	return stats, nil
}

// fitColumn returns the OLS coefficients for target and the predictor
// columns actually used, or nil when the training set is too small or the
// design matrix unusable. Predictors that are constant over the training
// rows add nothing beyond the intercept and would leave the design matrix
// rank-deficient, so they are dropped before fitting.
func (im *Imputer) fitColumn(ctx context.Context, t *Table, target string, tj int, pj, complete []int) (coefs []float64, usedPj []int) {
	if len(complete) < minCompleteForRegression || len(pj) == 0 {
		return nil, nil
	}

	for _, j := range pj {
		first := t.at(complete[0], j)
		for _, i := range complete[1:] {
			if t.at(i, j) != first {
				usedPj = append(usedPj, j)
				break
			}
		}
	}
	if len(usedPj) == 0 {
		return nil, nil
	}

	x := mat.NewDense(len(complete), len(usedPj)+1, nil)
	y := make([]float64, len(complete))
	for r, i := range complete {
		x.Set(r, 0, 1)
		for k, j := range usedPj {
			x.Set(r, k+1, t.at(i, j))
		}
		y[r] = t.at(i, tj)
	}

	coefs, err := leastSquares(x, y, "imputation")
	if err != nil {
		im.logger.WarnContext(ctx, "imputation regression failed, using mean",
			"column", target,
			"error", err,
		)
		return nil, nil
	}
	return coefs, usedPj
}

func rowObserved(t *Table, i int, cols []int) bool {
	for _, j := range cols {
		if !Observed(t.at(i, j)) {
			return false
		}
	}
	return true
}

func columnMean(t *Table, j int) (mean float64, n int) {
	vals := make([]float64, 0, len(t.rows))
	for i := range t.rows {
		if v := t.at(i, j); Observed(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return Missing, 0
	}
	return stat.Mean(vals, nil), len(vals)
}
