package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// SDNN is the population standard deviation of the intervals. Undefined
// (NaN) for fewer than two intervals.
func SDNN(rr []float64) float64 {
	if len(rr) < 2 {
		return math.NaN()
	}
	_, std := stat.PopMeanStdDev(rr, nil)
	return std
}

// RMSSD is the root mean square of successive differences.
func RMSSD(rr []float64) float64 {
	d := diffs(rr)
	if len(d) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range d {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(d)))
}

// PNN50 is the percentage of successive differences larger than 50 ms.
func PNN50(rr []float64) float64 {
	return pnn(rr, 50)
}

func pnn(rr []float64, limit float64) float64 {
	d := diffs(rr)
	if len(d) == 0 {
		return math.NaN()
	}
	var n int
	for _, v := range d {
		if math.Abs(v) > limit {
			n++
		}
	}
	return float64(n) / float64(len(d)) * 100
}
