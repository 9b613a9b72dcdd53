package estimation

import (
	"math"
)

// WeightingScheme selects how entity-level values combine into the global
// estimate.
type WeightingScheme string

const (
	// WeightGDP weights entities by mean output (the original study approach).
	WeightGDP WeightingScheme = "gdp"
	// WeightLabor weights entities by mean raw labor volume.
	WeightLabor WeightingScheme = "labor"
	// WeightComposite weights entities by an externally supplied 0-100 or
	// 0-1 index.
	WeightComposite WeightingScheme = "composite"
	// WeightNone gives every entity equal weight.
	WeightNone WeightingScheme = "unweighted"
)

// AllSchemes lists every supported scheme in comparison order.
var AllSchemes = []WeightingScheme{WeightGDP, WeightLabor, WeightComposite, WeightNone}

// IsValid reports whether the scheme is one of the supported values.
func (ws WeightingScheme) IsValid() bool {
	switch ws {
	case WeightGDP, WeightLabor, WeightComposite, WeightNone:
		return true
	}
	return false
}

func (ws WeightingScheme) String() string { return string(ws) }

// WageAveraging selects how the per entity-period average wage is formed.
type WageAveraging string

const (
	// AverageSimple is the plain mean of observed category wages.
	AverageSimple WageAveraging = "simple"
	// AverageWeighted weights category wages by their labor-volume share.
	AverageWeighted WageAveraging = "weighted"
)

// IsValid reports whether the averaging method is supported.
func (wa WageAveraging) IsValid() bool {
	return wa == AverageSimple || wa == AverageWeighted
}

// Missing marks an absent numeric attribute. Observation fields set to
// Missing (or any NaN) are treated as unobserved throughout the engine.
var Missing = math.NaN()

// Observed reports whether v carries an actual observation.
func Observed(v float64) bool { return !math.IsNaN(v) }

// Observation is one immutable input record at entity-period-category
// grain. Entity-period level attributes (Output, Capital, HumanCapital) may
// repeat across the category rows of one entity-period; the first observed
// value wins. Category may be empty for records that only carry
// entity-period attributes.
type Observation struct {
	EntityID     string  `json:"entity_id"`
	Period       int     `json:"period"`
	Category     string  `json:"category,omitempty"`
	Output       float64 `json:"output"`
	Capital      float64 `json:"capital"`
	LaborVolume  float64 `json:"labor_volume"`
	Wage         float64 `json:"wage"`
	HumanCapital float64 `json:"human_capital_index"`
}

// ObservationRef identifies one entity-period, used for exclusion lists.
type ObservationRef struct {
	EntityID string `json:"entity_id"`
	Period   int    `json:"period"`
}

// WageRatio is the period-averaged wage of one entity-category relative to
// the reference skill category.
type WageRatio struct {
	EntityID string  `json:"entity_id"`
	Category string  `json:"category"`
	Ratio    float64 `json:"ratio"`
	Imputed  bool    `json:"imputed"`
}

// EffectiveLaborRecord is the skill-adjusted labor quantity of one
// entity-period. EffectiveVolume sums raw volume times skill weight over
// every category present, including categories without wage data (weight
// 1.0).
type EffectiveLaborRecord struct {
	EntityID        string  `json:"entity_id"`
	Period          int     `json:"period"`
	RawVolume       float64 `json:"raw_volume"`
	EffectiveVolume float64 `json:"effective_volume"`
}

// CapitalShareEstimate is the Cobb-Douglas capital share of one entity.
// When IsDirectlyEstimated is true the value came from the entity's own OLS
// fit and lies inside the configured valid range; otherwise it was imputed
// (second-stage regression or cross-entity mean).
type CapitalShareEstimate struct {
	EntityID            string  `json:"entity_id"`
	Alpha               float64 `json:"alpha"`
	IsDirectlyEstimated bool    `json:"is_directly_estimated"`
	NObservationsUsed   int     `json:"n_observations_used"`
	Method              string  `json:"method"` // "ols", "regression", "mean", "default"
}

// DistortionRecord carries the marginal product of labor, the distortion
// factor, and the corrected wage value of one entity-period.
type DistortionRecord struct {
	EntityID      string  `json:"entity_id"`
	Period        int     `json:"period"`
	Alpha         float64 `json:"alpha"`
	MPL           float64 `json:"mpl"`
	Theta         float64 `json:"theta"`
	AdjustedValue float64 `json:"adjusted_value"`
	AverageWage   float64 `json:"average_wage"`
	TargetWage    float64 `json:"target_wage"`
}

// EntityEstimate summarizes one entity across its estimated periods.
type EntityEstimate struct {
	EntityID      string  `json:"entity_id"`
	AdjustedValue float64 `json:"adjusted_value"` // mean across periods
	Theta         float64 `json:"theta"`
	Alpha         float64 `json:"alpha"`
	MPL           float64 `json:"mpl"`
	TargetWage    float64 `json:"target_wage"`
	GDP           float64 `json:"gdp"`          // mean output
	LaborVolume   float64 `json:"labor_volume"` // mean raw volume
	PeriodMin     int     `json:"period_min"`
	PeriodMax     int     `json:"period_max"`
	NPeriods      int     `json:"n_periods"`
}

// Contribution is one entity's share of a weighted global value.
type Contribution struct {
	EntityID      string  `json:"entity_id"`
	AdjustedValue float64 `json:"adjusted_value"`
	Measure       float64 `json:"measure"`
	Weight        float64 `json:"weight"`
	Contribution  float64 `json:"contribution"`
}

// AggregateResult is the global value under one weighting scheme together
// with the per-entity contribution breakdown.
type AggregateResult struct {
	Scheme        WeightingScheme `json:"weighting_scheme"`
	GlobalValue   float64         `json:"global_value"`
	NEntities     int             `json:"n_entities"`
	Contributions []Contribution  `json:"contributions"`
}

// SchemeOutcome is one scheme's result in a side-by-side comparison.
// Failure is non-empty when the scheme could not be computed; other schemes
// are unaffected.
type SchemeOutcome struct {
	Scheme  WeightingScheme  `json:"scheme"`
	Result  *AggregateResult `json:"result,omitempty"`
	Failure string           `json:"failure,omitempty"`
}

// Diagnostics counts every degradation taken during a run. Nothing in the
// pipeline fails silently: drops, fallbacks, imputations, and scheme
// failures all land here.
type Diagnostics struct {
	ObservationsIn       int `json:"observations_in"`
	ObservationsExcluded int `json:"observations_excluded"`
	RecordsDropped       int `json:"records_dropped"` // entity-periods missing required data

	RatioCellsImputedByRegression int `json:"ratio_cells_imputed_by_regression"`
	RatioCellsImputedByMean       int `json:"ratio_cells_imputed_by_mean"`
	RatioCellsUnfilled            int `json:"ratio_cells_unfilled"`

	AlphasDirect              int `json:"alphas_direct"`
	AlphasRejected            int `json:"alphas_rejected"` // outside the valid range
	AlphasImputedByRegression int `json:"alphas_imputed_by_regression"`
	AlphasImputedByMean       int `json:"alphas_imputed_by_mean"`
	AlphasDefaulted           int `json:"alphas_defaulted"` // no valid alpha anywhere

	SchemesFailed int      `json:"schemes_failed"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Result is the full output of one estimation run.
type Result struct {
	Aggregate      AggregateResult        `json:"aggregate"`
	Schemes        []SchemeOutcome        `json:"schemes"`
	WageRatios     []WageRatio            `json:"wage_ratios"`
	EffectiveLabor []EffectiveLaborRecord `json:"effective_labor"`
	CapitalShares  []CapitalShareEstimate `json:"capital_shares"`
	Distortions    []DistortionRecord     `json:"distortions"`
	Entities       []EntityEstimate       `json:"entities"`
	Diagnostics    Diagnostics            `json:"diagnostics"`
}

// Params configures one estimation run.
type Params struct {
	Weighting               WeightingScheme `json:"weighting"`
	ReferenceCategorySkill  string          `json:"reference_category_skill"`
	ReferenceCategoryTarget string          `json:"reference_category_target"`

	MinPeriodsForAlpha            int     `json:"min_periods_for_alpha"`
	AlphaValidMin                 float64 `json:"alpha_valid_min"`
	AlphaValidMax                 float64 `json:"alpha_valid_max"`
	MinEntitiesForAlphaRegression int     `json:"min_entities_for_alpha_regression"`
	DefaultAlpha                  float64 `json:"default_alpha"`

	EnableImputation bool          `json:"enable_imputation"`
	WageAveraging    WageAveraging `json:"wage_averaging"`

	// MaxConcurrency bounds the per-entity capital-share fits. 1 runs
	// sequentially; higher values only affect wall time, never output.
	MaxConcurrency int `json:"max_concurrency"`

	// PeriodStart and PeriodEnd bound the observation periods, inclusive.
	// Zero means unbounded.
	PeriodStart int `json:"period_start"`
	PeriodEnd   int `json:"period_end"`

	ExcludedEntities     []string         `json:"excluded_entities,omitempty"`
	ExcludedObservations []ObservationRef `json:"excluded_observations,omitempty"`
}

// DefaultParams returns the parameterization of the original study.
func DefaultParams() Params {
	return Params{
		Weighting:                     WeightGDP,
		ReferenceCategorySkill:        "Managers",
		ReferenceCategoryTarget:       "Elementary",
		MinPeriodsForAlpha:            3,
		AlphaValidMin:                 0,
		AlphaValidMax:                 1,
		MinEntitiesForAlphaRegression: 10,
		DefaultAlpha:                  0.33,
		EnableImputation:              true,
		WageAveraging:                 AverageSimple,
		MaxConcurrency:                1,
	}
}

// IsValid checks the parameter set for internal consistency.
func (p Params) IsValid() bool {
	return p.Weighting.IsValid() &&
		p.ReferenceCategorySkill != "" &&
		p.ReferenceCategoryTarget != "" &&
		p.ReferenceCategorySkill != p.ReferenceCategoryTarget &&
		p.MinPeriodsForAlpha >= 2 &&
		p.AlphaValidMin < p.AlphaValidMax &&
		p.MinEntitiesForAlphaRegression >= 2 &&
		p.DefaultAlpha > 0 && p.DefaultAlpha < 1 &&
		p.WageAveraging.IsValid() &&
		p.MaxConcurrency >= 1
}
