package signal

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrFlatSignal is returned by ZScore for a signal with no variance.
var ErrFlatSignal = errors.New("signal has zero variance")

// FindPeaks returns the indices of local maxima of x whose value is at least
// height, in ascending order. A flat top counts once, at its middle sample
// (rounded down). The first and last samples are never peaks.
func FindPeaks(x []float64, height float64) []int {
	peaks := make([]int, 0)
	i := 1
	last := len(x) - 1
	for i < last {
		if x[i-1] < x[i] {
			// Walk over a possible plateau.
			ahead := i + 1
			for ahead < last && x[ahead] == x[i] {
				ahead++
			}
			if x[ahead] < x[i] {
				mid := (i + ahead - 1) / 2
				if x[mid] >= height {
					peaks = append(peaks, mid)
				}
				i = ahead
				continue
			}
		}
		i++
	}
	return peaks
}

// FindPeaksDistance is FindPeaks with a refractory constraint: peaks closer
// than distance samples to a higher peak are dropped.
func FindPeaksDistance(x []float64, height float64, distance int) []int {
	peaks := FindPeaks(x, height)
	if distance <= 1 || len(peaks) < 2 {
		return peaks
	}

	// Visit peaks from highest to lowest, suppressing neighbours.
	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sortByHeight(order, peaks, x)

	keep := make([]bool, len(peaks))
	for i := range keep {
		keep[i] = true
	}
	for _, idx := range order {
		if !keep[idx] {
			continue
		}
		for j := idx - 1; j >= 0 && peaks[idx]-peaks[j] < distance; j-- {
			keep[j] = false
		}
		for j := idx + 1; j < len(peaks) && peaks[j]-peaks[idx] < distance; j++ {
			keep[j] = false
		}
	}

	out := make([]int, 0, len(peaks))
	for i, p := range peaks {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// sortByHeight orders peak positions by descending amplitude; among equal
// amplitudes the later peak wins.
func sortByHeight(order, peaks []int, x []float64) {
	sort.Slice(order, func(i, j int) bool {
		hi, hj := x[peaks[order[i]]], x[peaks[order[j]]]
		if hi != hj {
			return hi > hj
		}
		return order[i] > order[j]
	})
}

// ZScore returns (x - mean) / std using the population standard deviation.
func ZScore(x []float64) ([]float64, error) {
	mean, std := stat.PopMeanStdDev(x, nil)
	if std == 0 || len(x) == 0 {
		return nil, ErrFlatSignal
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - mean) / std
	}
	return out, nil
}
