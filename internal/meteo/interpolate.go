package meteo

import (
	"sort"
	"time"

	"github.com/atmoscast/atmoscast/internal/geo"
)

// Series is the hourly record of one observation site. Hour keys marshal
// as RFC3339 strings.
type Series struct {
	Name     string                   `json:"name"`
	Location geo.Point                `json:"location"`
	Hours    map[time.Time]Conditions `json:"hours"`
}

// DefaultNeighbors is the number of sites blended per interpolation query.
const DefaultNeighbors = 3

// Interpolator estimates conditions at arbitrary points by inverse
// distance-squared weighting over the nearest observation sites.
type Interpolator struct {
	sites []Series
}

func NewInterpolator(sites []Series) *Interpolator {
	return &Interpolator{sites: sites}
}

type rankedSite struct {
	idx  int
	dist float64
}

func (in *Interpolator) nearest(p geo.Point, k int) []rankedSite {
	ranked := make([]rankedSite, 0, len(in.sites))
	for i := range in.sites {
		ranked = append(ranked, rankedSite{idx: i, dist: geo.DistanceKm(p, in.sites[i].Location)})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].dist < ranked[j].dist })
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// At interpolates conditions for p at ts (truncated to the hour) from the
// k nearest sites. Sites without that hour are skipped; if none cover it,
// DefaultConditions are returned.
func (in *Interpolator) At(p geo.Point, ts time.Time, k int) Conditions {
	hour := ts.UTC().Truncate(time.Hour)

	var (
		totalWeight float64
		acc         Conditions
	)
	for _, r := range in.nearest(p, k) {
		c, ok := in.sites[r.idx].Hours[hour]
		if !ok {
			continue
		}
		// Closer sites dominate; the 0.1 km floor keeps co-located sites finite.
		w := 1.0 / ((r.dist + 0.1) * (r.dist + 0.1))
		totalWeight += w
		acc.WindSpeed += w * c.WindSpeed
		acc.WindDirection += w * c.WindDirection
		acc.PBLHeight += w * c.PBLHeight
		acc.Temperature += w * c.Temperature
		acc.Precipitation += w * c.Precipitation
	}

	if totalWeight == 0 {
		return DefaultConditions(hour)
	}

	return Conditions{
		WindSpeed:     acc.WindSpeed / totalWeight,
		WindDirection: acc.WindDirection / totalWeight,
		PBLHeight:     acc.PBLHeight / totalWeight,
		Temperature:   acc.Temperature / totalWeight,
		Precipitation: acc.Precipitation / totalWeight,
		Timestamp:     hour,
	}
}
