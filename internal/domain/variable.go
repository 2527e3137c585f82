package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared; validator instances cache struct metadata.
var validate = validator.New()

// VariableSpec describes one aggregated variable: which band to read, how
// to rescale it, the resampling scale, and the temporal extent. Scale is
// caller-owned and must match the variable's nominal native resolution;
// a coarser scale degrades accuracy without failing, so it is configuration,
// never inferred.
type VariableSpec struct {
	Name      string    `json:"name" validate:"required"`
	Band      string    `json:"band" validate:"required"`
	Temporal  bool      `json:"temporal"`
	StartYear int       `json:"start_year,omitempty"`
	EndYear   int       `json:"end_year,omitempty"`
	Scale     float64   `json:"scale" validate:"gt=0"`
	Statistic Statistic `json:"statistic" validate:"required,oneof=mean"`

	// Linear rescale applied once per source image before composition.
	// Factor 0 means "no rescale" so the zero value stays usable.
	RescaleFactor float64 `json:"rescale_factor,omitempty"`
	RescaleOffset float64 `json:"rescale_offset,omitempty"`

	// TileHint bounds lattice rows per reduction chunk (0 = unchunked).
	// MaxPixels is the per-region budget (0 = unlimited).
	TileHint  int   `json:"tile_hint,omitempty" validate:"gte=0"`
	MaxPixels int64 `json:"max_pixels,omitempty" validate:"gte=0"`
}

// Rescales reports whether the spec carries a rescale transform.
func (v VariableSpec) Rescales() bool {
	return v.RescaleFactor != 0 && !(v.RescaleFactor == 1 && v.RescaleOffset == 0)
}

// Validate checks the spec before any pipeline work begins; an invalid spec
// is fatal for that variable.
func (v VariableSpec) Validate() error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("variable %q: %w", v.Name, err)
	}
	if v.Temporal {
		if v.StartYear == 0 || v.EndYear == 0 {
			return fmt.Errorf("variable %q: temporal variable requires start_year and end_year", v.Name)
		}
		if v.StartYear > v.EndYear {
			return fmt.Errorf("variable %q: start_year %d after end_year %d", v.Name, v.StartYear, v.EndYear)
		}
	}
	return nil
}

// DefaultVariables returns the built-in variable set. Scales follow each
// product's nominal native resolution.
func DefaultVariables() []VariableSpec {
	return []VariableSpec{
		{
			Name:      "nightlights",
			Band:      "avg_rad",
			Temporal:  true,
			StartYear: 2014,
			EndYear:   2023,
			Scale:     500,
			Statistic: StatMean,
			TileHint:  256,
		},
		{
			Name:          "vegetation",
			Band:          "NDVI",
			Temporal:      true,
			StartYear:     2001,
			EndYear:       2023,
			Scale:         250,
			Statistic:     StatMean,
			RescaleFactor: 0.0001,
			TileHint:      256,
		},
		{
			Name:      "elevation",
			Band:      "elevation",
			Temporal:  false,
			Scale:     30,
			Statistic: StatMean,
			TileHint:  512,
			MaxPixels: 100_000_000,
		},
	}
}
