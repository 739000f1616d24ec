package trends

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Point is one timestamped value.
type Point struct {
	Time  time.Time
	Value float64
}

// TrendPoint is a Point with its trailing window statistics. NaN marks an
// undefined statistic.
type TrendPoint struct {
	Time        time.Time
	Value       float64
	RollingMean float64
	RollingStd  float64
	ZScore      float64
}

// Daily groups points by calendar day in their own location and combines
// each day with agg. The result is ascending by day, stamped at midnight.
func Daily(points []Point, agg Aggregation) []Point {
	if agg == AggNone {
		out := append([]Point(nil), points...)
		sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
		return out
	}

	type bucket struct {
		day    time.Time
		values []float64
	}
	byDay := make(map[string]*bucket)
	for _, p := range points {
		key := p.Time.Format(time.DateOnly)
		b, ok := byDay[key]
		if !ok {
			y, m, d := p.Time.Date()
			b = &bucket{day: time.Date(y, m, d, 0, 0, 0, 0, p.Time.Location())}
			byDay[key] = b
		}
		b.values = append(b.values, p.Value)
	}

	out := make([]Point, 0, len(byDay))
	for _, b := range byDay {
		out = append(out, Point{Time: b.day, Value: combine(b.values, agg)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func combine(values []float64, agg Aggregation) float64 {
	switch agg {
	case AggCount:
		return float64(len(values))
	case AggMean:
		return stat.Mean(values, nil)
	case AggMax:
		return floats.Max(values)
	default:
		return floats.Sum(values)
	}
}

// Rolling computes trailing window statistics over the points in order.
// The mean needs minPeriods values in the window and the sample standard
// deviation needs two. A zero deviation leaves the z-score undefined.
func Rolling(points []Point, window, minPeriods int) []TrendPoint {
	out := make([]TrendPoint, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	for i, p := range points {
		lo := max(0, i-window+1)
		w := values[lo : i+1]

		tp := TrendPoint{Time: p.Time, Value: p.Value, RollingMean: math.NaN(), RollingStd: math.NaN(), ZScore: math.NaN()}
		if len(w) >= minPeriods {
			tp.RollingMean = stat.Mean(w, nil)
			if len(w) >= 2 {
				tp.RollingStd = stat.StdDev(w, nil)
			}
		}
		if !math.IsNaN(tp.RollingStd) && tp.RollingStd != 0 {
			tp.ZScore = (tp.Value - tp.RollingMean) / tp.RollingStd
		}
		out[i] = tp
	}
	return out
}
