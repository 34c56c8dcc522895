package geo

import "math"

// MeanResultantLength computes R for a set of angles in degrees. R is 1
// when all angles agree and approaches 0 as they spread uniformly.
func MeanResultantLength(degrees []float64) float64 {
	if len(degrees) == 0 {
		return 0
	}

	var sumSin, sumCos float64
	for _, d := range degrees {
		rad := d * math.Pi / 180
		sumSin += math.Sin(rad)
		sumCos += math.Cos(rad)
	}

	return math.Sqrt(sumSin*sumSin+sumCos*sumCos) / float64(len(degrees))
}

// CircularVariance is 1 − R, in [0, 1].
func CircularVariance(degrees []float64) float64 {
	return 1 - MeanResultantLength(degrees)
}

// DirectionalStability maps wind directions to a [0, 1] stability score:
// 1 for a steady wind, 0 for directions spread around the compass.
func DirectionalStability(degrees []float64) float64 {
	if len(degrees) == 0 {
		return 0
	}
	s := 1 - CircularVariance(degrees)
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
