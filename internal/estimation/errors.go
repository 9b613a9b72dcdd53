package estimation

import (
	"fmt"
)

// MissingDataError reports a required attribute absent for one
// entity-period. The record is dropped and counted; the run continues.
type MissingDataError struct {
	EntityID  string `json:"entity_id"`
	Period    int    `json:"period"`
	Attribute string `json:"attribute"`
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("missing %s for %s period %d", e.Attribute, e.EntityID, e.Period)
}

// RegressionFailureError reports a singular or under-ranked design matrix.
// The caller falls back to mean imputation; the run continues.
type RegressionFailureError struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

func (e *RegressionFailureError) Error() string {
	return fmt.Sprintf("regression failed in %s: %s", e.Stage, e.Reason)
}

// InvalidParameterError reports an estimated parameter outside its
// configured valid range. The estimate is discarded and the entity routed
// through imputation; the run continues.
type InvalidParameterError struct {
	EntityID string  `json:"entity_id"`
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s for %s: %g", e.Name, e.EntityID, e.Value)
}

// ZeroWeightError reports a weighting measure that is entirely absent or
// sums to zero across all entities. Only the affected scheme fails; other
// schemes and entities are unaffected.
type ZeroWeightError struct {
	Scheme WeightingScheme `json:"scheme"`
	Reason string          `json:"reason"`
}

func (e *ZeroWeightError) Error() string {
	return fmt.Sprintf("scheme %s has no usable weights: %s", e.Scheme, e.Reason)
}
