// Package meteo models hourly weather conditions and interpolates them
// spatially from a sparse set of observation sites.
package meteo

import (
	"fmt"
	"math"
	"time"
)

// Conditions is one hourly weather record or forecast step. WindDirection
// uses the meteorological "from" convention in degrees.
type Conditions struct {
	WindSpeed     float64   `json:"wind_speed"`
	WindDirection float64   `json:"wind_direction"`
	PBLHeight     float64   `json:"pbl_height"`
	Temperature   float64   `json:"temperature"`
	Precipitation float64   `json:"precipitation"`
	Timestamp     time.Time `json:"timestamp"`
}

// Check rejects physically impossible records. Forecast steps failing this
// are skipped rather than propagated into transport.
func (c Conditions) Check() error {
	if c.WindSpeed < 0 {
		return fmt.Errorf("wind speed %v is negative", c.WindSpeed)
	}
	if c.PBLHeight <= 0 {
		return fmt.Errorf("pbl height %v is not positive", c.PBLHeight)
	}
	return nil
}

// UV decomposes the wind into u/v components in m/s.
func (c Conditions) UV() (u, v float64) {
	rad := c.WindDirection * math.Pi / 180
	return c.WindSpeed * math.Cos(rad), c.WindSpeed * math.Sin(rad)
}

// Fallback conditions used when no site covers a timestamp: a light
// westerly over an 800 m boundary layer.
const (
	DefaultWindSpeed     = 5.0
	DefaultWindDirection = 270.0
	DefaultPBLHeight     = 800.0
	DefaultTemperature   = 20.0
)

// DefaultConditions returns the fallback record at ts.
func DefaultConditions(ts time.Time) Conditions {
	return Conditions{
		WindSpeed:     DefaultWindSpeed,
		WindDirection: DefaultWindDirection,
		PBLHeight:     DefaultPBLHeight,
		Temperature:   DefaultTemperature,
		Precipitation: 0,
		Timestamp:     ts,
	}
}
