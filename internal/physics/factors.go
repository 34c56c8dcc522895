// Package physics holds the calibrated physical constants and the
// closed-form models built on them: column-to-surface conversion, fire
// plume contribution and precipitation washout.
package physics

import "fmt"

// Factors are the tunable physical constants of the engine. A Factors
// value is immutable once constructed: the defaults below or the output of
// a calibration run.
type Factors struct {
	NO2ColumnToSurface   float64 `json:"no2_column_to_surface"`
	PMIndexToSurface     float64 `json:"pm_index_to_surface"`
	PBLReference         float64 `json:"pbl_reference"`
	FireFRPScaling       float64 `json:"fire_frp_scaling"`
	FireDistanceDecay    float64 `json:"fire_distance_decay"`
	WashoutRate          float64 `json:"washout_rate"`
	BiasCorrectionWeight float64 `json:"bias_correction_weight"`
}

// DefaultFactors are the through-origin calibrated constants: 2e-16 base
// conversion times the 1.8749 regression factor, against an 800 m
// reference boundary layer.
func DefaultFactors() Factors {
	return Factors{
		NO2ColumnToSurface:   2e-16 * 1.8749,
		PMIndexToSurface:     0.85,
		PBLReference:         800,
		FireFRPScaling:       0.12,
		FireDistanceDecay:    2.5,
		WashoutRate:          0.08,
		BiasCorrectionWeight: 0.3,
	}
}

// Validate rejects factor sets with non-positive constants.
func (f Factors) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"no2_column_to_surface", f.NO2ColumnToSurface},
		{"pm_index_to_surface", f.PMIndexToSurface},
		{"pbl_reference", f.PBLReference},
		{"fire_frp_scaling", f.FireFRPScaling},
		{"fire_distance_decay", f.FireDistanceDecay},
		{"washout_rate", f.WashoutRate},
		{"bias_correction_weight", f.BiasCorrectionWeight},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return fmt.Errorf("factor %s must be positive, got %v", c.name, c.value)
		}
	}
	return nil
}
