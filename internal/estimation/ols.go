package estimation

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// leastSquares solves min ||X b - y|| via QR factorization. X must already
// carry the intercept column. An under-ranked or singular design matrix
// returns a RegressionFailureError so callers can take their mean-fallback
// path.
func leastSquares(x *mat.Dense, y []float64, stage string) ([]float64, error) {
	r, c := x.Dims()
	if r < c {
		return nil, &RegressionFailureError{
			Stage:  stage,
			Reason: "under-ranked design matrix",
		}
	}

	var beta mat.Dense
	err := beta.Solve(x, mat.NewDense(len(y), 1, y))
	if err != nil {
		// A Condition error still carries a usable solution; anything
		// else means the factorization failed outright.
		if _, ok := err.(mat.Condition); !ok {
			return nil, &RegressionFailureError{Stage: stage, Reason: err.Error()}
		}
	}

	coefs := make([]float64, c)
	for i := range coefs {
		v := beta.At(i, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &RegressionFailureError{
				Stage:  stage,
				Reason: "non-finite coefficients",
			}
		}
		coefs[i] = v
	}
	return coefs, nil
}

// predict evaluates an intercept-first coefficient vector on one predictor
// row.
func predict(coefs, predictors []float64) float64 {
	v := coefs[0]
	for i, p := range predictors {
		v += coefs[i+1] * p
	}
	return v
}
