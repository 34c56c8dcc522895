package validate

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/atmoscast/atmoscast/internal/geo"
	"github.com/atmoscast/atmoscast/internal/physics"
)

// trainR2Gate rejects combinations that cannot even fit the training split;
// without it the search can select factors that memorized test noise.
const trainR2Gate = 0.3

// trainFraction splits samples by time order, never randomly, so the test
// split is strictly later than the training split.
const trainFraction = 0.8

// LabeledSample carries the raw inputs needed to re-run the physics under a
// candidate factor set, plus the ground-truth surface value.
type LabeledSample struct {
	NO2Column     float64   `json:"no2_column"`
	PBLHeight     float64   `json:"pbl_height"`
	Precipitation float64   `json:"precipitation"`
	LocalHour     int       `json:"local_hour"`
	Actual        float64   `json:"actual"`
	Timestamp     time.Time `json:"timestamp"`
	Location      geo.Point `json:"location"`
}

// SearchSpace maps a factor name to its candidate values. Factor names
// match the JSON tags of physics.Factors.
type SearchSpace map[string][]float64

// Calibration is the winning factor set with its split metrics.
type Calibration struct {
	Factors physics.Factors `json:"factors"`
	Train   Metrics         `json:"train_metrics"`
	Test    Metrics         `json:"test_metrics"`
}

// ProgressFunc receives (combinationsDone, combinationsTotal) as the search
// advances. It may be called from multiple goroutines.
type ProgressFunc func(done, total int)

// Calibrate grid-searches the Cartesian product of space over samples,
// already sorted chronologically by the caller. Samples split 80/20 by time
// order; the winner is the combination with the highest test R2 among those
// whose train R2 exceeds the gate, ties broken by enumeration order. Errors
// when the space or sample set cannot support a search.
func Calibrate(base physics.Factors, space SearchSpace, samples []LabeledSample, workers int, progress ProgressFunc) (*Calibration, error) {
	if len(space) == 0 {
		return nil, fmt.Errorf("calibrate: empty search space")
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("calibrate: no samples to evaluate")
	}

	trainN := int(trainFraction * float64(len(samples)))
	if trainN < 2 || len(samples)-trainN < 1 {
		return nil, fmt.Errorf("calibrate: %d samples is too few to split", len(samples))
	}
	train, test := samples[:trainN], samples[trainN:]

	if actualVariance(train) == 0 {
		return nil, fmt.Errorf("calibrate: training ground truth has zero variance")
	}

	combos, err := enumerate(base, space)
	if err != nil {
		return nil, err
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(combos) {
		workers = len(combos)
	}

	type outcome struct {
		train Metrics
		test  Metrics
		ok    bool
	}
	results := make([]outcome, len(combos))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				trainM := CalculateMetrics(evaluate(combos[i], train))
				testM := CalculateMetrics(evaluate(combos[i], test))
				results[i] = outcome{train: trainM, test: testM, ok: trainM.R2 > trainR2Gate}

				if progress != nil {
					mu.Lock()
					done++
					progress(done, len(combos))
					mu.Unlock()
				}
			}
		}()
	}
	for i := range combos {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	// Reduce in enumeration order so ties resolve the same way regardless
	// of worker scheduling.
	best := -1
	for i, r := range results {
		if !r.ok {
			continue
		}
		if best < 0 || r.test.R2 > results[best].test.R2 {
			best = i
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("calibrate: no combination passed the train R2 gate of %.1f over %d combinations", trainR2Gate, len(combos))
	}

	return &Calibration{
		Factors: combos[best],
		Train:   results[best].train,
		Test:    results[best].test,
	}, nil
}

// evaluate predicts every sample under f and pairs it with ground truth.
func evaluate(f physics.Factors, samples []LabeledSample) []Sample {
	out := make([]Sample, len(samples))
	for i, s := range samples {
		surface := physics.SurfaceFromColumn(&s.NO2Column, s.PBLHeight, f, s.LocalHour)
		predicted := *surface * physics.Washout(s.Precipitation, f)
		out[i] = NewSample(predicted, s.Actual, s.Timestamp, s.Location, "no2", 0)
	}
	return out
}

// enumerate expands the Cartesian product of candidate values onto the base
// factor set. Factor names iterate in sorted order so combination indexes
// are stable across runs.
func enumerate(base physics.Factors, space SearchSpace) ([]physics.Factors, error) {
	names := make([]string, 0, len(space))
	for name, candidates := range space {
		if len(candidates) == 0 {
			return nil, fmt.Errorf("calibrate: factor %q has no candidate values", name)
		}
		if err := applyFactor(&base, name, candidates[0]); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	combos := []physics.Factors{base}
	for _, name := range names {
		expanded := make([]physics.Factors, 0, len(combos)*len(space[name]))
		for _, c := range combos {
			for _, v := range space[name] {
				f := c
				if err := applyFactor(&f, name, v); err != nil {
					return nil, err
				}
				expanded = append(expanded, f)
			}
		}
		combos = expanded
	}

	for i := range combos {
		if err := combos[i].Validate(); err != nil {
			return nil, fmt.Errorf("calibrate: combination %d: %w", i, err)
		}
	}
	return combos, nil
}

func applyFactor(f *physics.Factors, name string, value float64) error {
	switch name {
	case "no2_column_to_surface":
		f.NO2ColumnToSurface = value
	case "pm_index_to_surface":
		f.PMIndexToSurface = value
	case "pbl_reference":
		f.PBLReference = value
	case "fire_frp_scaling":
		f.FireFRPScaling = value
	case "fire_distance_decay":
		f.FireDistanceDecay = value
	case "washout_rate":
		f.WashoutRate = value
	case "bias_correction_weight":
		f.BiasCorrectionWeight = value
	default:
		return fmt.Errorf("calibrate: unknown factor %q", name)
	}
	return nil
}

func actualVariance(samples []LabeledSample) float64 {
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
	return ss / float64(len(samples))
}
