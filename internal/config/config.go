// Package config resolves the estimation configuration from defaults, an
// optional YAML file, and CHIP_-prefixed environment variables, in that
// precedence order (environment wins).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"chipcore/internal/estimation"
)

// Config is the complete application configuration.
type Config struct {
	Estimation EstimationConfig `yaml:"estimation" envconfig:"ESTIMATION"`
}

// EstimationConfig mirrors estimation.Params in file/env friendly form.
// Excluded observations are written as "ENTITY:PERIOD" pairs.
type EstimationConfig struct {
	Weighting               string `yaml:"weighting" envconfig:"WEIGHTING" validate:"oneof=gdp labor composite unweighted"`
	ReferenceCategorySkill  string `yaml:"reference_category_skill" envconfig:"REFERENCE_CATEGORY_SKILL" validate:"required"`
	ReferenceCategoryTarget string `yaml:"reference_category_target" envconfig:"REFERENCE_CATEGORY_TARGET" validate:"required,nefield=ReferenceCategorySkill"`

	MinPeriodsForAlpha            int     `yaml:"min_periods_for_alpha" envconfig:"MIN_PERIODS_FOR_ALPHA" validate:"min=2"`
	AlphaValidMin                 float64 `yaml:"alpha_valid_min" envconfig:"ALPHA_VALID_MIN"`
	AlphaValidMax                 float64 `yaml:"alpha_valid_max" envconfig:"ALPHA_VALID_MAX" validate:"gtfield=AlphaValidMin"`
	MinEntitiesForAlphaRegression int     `yaml:"min_entities_for_alpha_regression" envconfig:"MIN_ENTITIES_FOR_ALPHA_REGRESSION" validate:"min=2"`
	DefaultAlpha                  float64 `yaml:"default_alpha" envconfig:"DEFAULT_ALPHA" validate:"gt=0,lt=1"`

	EnableImputation bool   `yaml:"enable_imputation" envconfig:"ENABLE_IMPUTATION"`
	WageAveraging    string `yaml:"wage_averaging" envconfig:"WAGE_AVERAGING" validate:"oneof=simple weighted"`

	MaxConcurrency int `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY" validate:"min=1"`

	PeriodStart int `yaml:"period_start" envconfig:"PERIOD_START"`
	PeriodEnd   int `yaml:"period_end" envconfig:"PERIOD_END"`

	ExcludedEntities     []string `yaml:"excluded_entities" envconfig:"EXCLUDED_ENTITIES"`
	ExcludedObservations []string `yaml:"excluded_observations" envconfig:"EXCLUDED_OBSERVATIONS" validate:"dive,contains=:"`
}

// Default returns the built-in configuration, matching the original study
// parameterization.
func Default() *Config {
	p := estimation.DefaultParams()
	return &Config{
		Estimation: EstimationConfig{
			Weighting:                     p.Weighting.String(),
			ReferenceCategorySkill:        p.ReferenceCategorySkill,
			ReferenceCategoryTarget:       p.ReferenceCategoryTarget,
			MinPeriodsForAlpha:            p.MinPeriodsForAlpha,
			AlphaValidMin:                 p.AlphaValidMin,
			AlphaValidMax:                 p.AlphaValidMax,
			MinEntitiesForAlphaRegression: p.MinEntitiesForAlphaRegression,
			DefaultAlpha:                  p.DefaultAlpha,
			EnableImputation:              p.EnableImputation,
			WageAveraging:                 string(p.WageAveraging),
			MaxConcurrency:                p.MaxConcurrency,
		},
	}
}

// Load builds the configuration: defaults, overlaid by the YAML file at
// path when it exists, overlaid by CHIP_-prefixed environment variables.
// An empty path skips the file step.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process("CHIP", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the struct-tag constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// Params materializes the estimation parameters.
func (c *Config) Params() (estimation.Params, error) {
	ec := c.Estimation

	var refs []estimation.ObservationRef
	for _, s := range ec.ExcludedObservations {
		ref, err := parseObservationRef(s)
		if err != nil {
			return estimation.Params{}, err
		}
		refs = append(refs, ref)
	}

	p := estimation.Params{
		Weighting:                     estimation.WeightingScheme(ec.Weighting),
		ReferenceCategorySkill:        ec.ReferenceCategorySkill,
		ReferenceCategoryTarget:       ec.ReferenceCategoryTarget,
		MinPeriodsForAlpha:            ec.MinPeriodsForAlpha,
		AlphaValidMin:                 ec.AlphaValidMin,
		AlphaValidMax:                 ec.AlphaValidMax,
		MinEntitiesForAlphaRegression: ec.MinEntitiesForAlphaRegression,
		DefaultAlpha:                  ec.DefaultAlpha,
		EnableImputation:              ec.EnableImputation,
		WageAveraging:                 estimation.WageAveraging(ec.WageAveraging),
		MaxConcurrency:                ec.MaxConcurrency,
		PeriodStart:                   ec.PeriodStart,
		PeriodEnd:                     ec.PeriodEnd,
		ExcludedEntities:              ec.ExcludedEntities,
		ExcludedObservations:          refs,
	}
	if !p.IsValid() {
		return estimation.Params{}, fmt.Errorf("inconsistent estimation parameters")
	}
	return p, nil
}

// parseObservationRef parses an "ENTITY:PERIOD" exclusion entry.
func parseObservationRef(s string) (estimation.ObservationRef, error) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return estimation.ObservationRef{}, fmt.Errorf("invalid excluded observation %q, want ENTITY:PERIOD", s)
	}
	period, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return estimation.ObservationRef{}, fmt.Errorf("invalid period in excluded observation %q: %w", s, err)
	}
	return estimation.ObservationRef{EntityID: s[:idx], Period: period}, nil
}
