// Package validate scores forecast output against ground-truth measurements
// and tunes the physical factor set with a grid search over candidate
// values.
package validate

import (
	"math"
	"time"

	"github.com/atmoscast/atmoscast/internal/geo"
)

// Sample pairs one prediction with its ground-truth measurement.
type Sample struct {
	Predicted    float64   `json:"predicted"`
	Actual       float64   `json:"actual"`
	Error        float64   `json:"error"`
	ErrorPercent float64   `json:"error_percent"`
	Timestamp    time.Time `json:"timestamp"`
	Location     geo.Point `json:"location"`
	Pollutant    string    `json:"pollutant"`
	HoursAhead   int       `json:"hours_ahead,omitempty"`
}

// NewSample fills in the derived error fields. ErrorPercent is 0 when the
// actual value is 0.
func NewSample(predicted, actual float64, ts time.Time, loc geo.Point, pollutant string, hoursAhead int) Sample {
	s := Sample{
		Predicted:  predicted,
		Actual:     actual,
		Error:      predicted - actual,
		Timestamp:  ts,
		Location:   loc,
		Pollutant:  pollutant,
		HoursAhead: hoursAhead,
	}
	if actual != 0 {
		s.ErrorPercent = 100 * s.Error / actual
	}
	return s
}

// Metrics summarizes prediction accuracy over a sample set.
type Metrics struct {
	MAE   float64 `json:"mae"`
	RMSE  float64 `json:"rmse"`
	R2    float64 `json:"r2"`
	Bias  float64 `json:"bias"`
	Count int     `json:"count"`
}

// CalculateMetrics computes MAE, RMSE, bias and R2 over samples. R2 is 0,
// not NaN, when the actual values carry no variance. Empty input yields the
// zero Metrics.
func CalculateMetrics(samples []Sample) Metrics {
	if len(samples) == 0 {
		return Metrics{}
	}

	var sumAbs, sumSq, sumErr, sumActual float64
	for _, s := range samples {
		sumAbs += math.Abs(s.Error)
		sumSq += s.Error * s.Error
		sumErr += s.Error
		sumActual += s.Actual
	}
	n := float64(len(samples))
	meanActual := sumActual / n

	var ssTot float64
	for _, s := range samples {
		d := s.Actual - meanActual
		ssTot += d * d
	}

	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - sumSq/ssTot
	}

	return Metrics{
		MAE:   sumAbs / n,
		RMSE:  math.Sqrt(sumSq / n),
		R2:    r2,
		Bias:  sumErr / n,
		Count: len(samples),
	}
}

// SkillScore measures improvement over a baseline MAE: positive means the
// model beats the baseline. When baselineMAE is not positive it is
// approximated as 0.8 times the standard deviation of the actual values, a
// stand-in for a persistence forecast. Returns 0 when no baseline can be
// formed.
func SkillScore(m Metrics, samples []Sample, baselineMAE float64) float64 {
	if baselineMAE <= 0 {
		baselineMAE = 0.8 * actualStddev(samples)
	}
	if baselineMAE <= 0 {
		return 0
	}
	return (baselineMAE - m.MAE) / baselineMAE
}

func actualStddev(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s.Actual
	}
	mean := sum / float64(len(samples))

	var ss float64
	for _, s := range samples {
		d := s.Actual - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(samples)))
}
