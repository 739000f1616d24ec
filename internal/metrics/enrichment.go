package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"pulse-go/internal/models"
	"pulse-go/internal/signal"
)

// ErrEnrichment wraps every reason the time-domain enrichment gives up.
var ErrEnrichment = errors.New("time-domain enrichment failed")

const (
	minEnrichSamples = 100
	minEnrichPeaks   = 3
	// Normalized R-wave height and refractory period used for enrichment.
	enrichHeight     = 1.5
	refractoryMillis = 250
	madScale         = 1.4826
)

// ExtractTimeDomain normalizes the conditioned signal, re-detects beats with
// a refractory period and summarizes the resulting intervals. It makes one
// attempt; callers keep the record when it fails.
func ExtractTimeDomain(filtered []float64, fs float64, b Bounds) (*models.TimeDomainHRV, error) {
	if len(filtered) < minEnrichSamples {
		return nil, fmt.Errorf("%w: %d samples", ErrEnrichment, len(filtered))
	}
	z, err := signal.ZScore(filtered)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnrichment, err)
	}
	distance := int(math.Round(refractoryMillis * fs / 1000))
	peaks := signal.FindPeaksDistance(z, enrichHeight, distance)
	if len(peaks) < minEnrichPeaks {
		return nil, fmt.Errorf("%w: %d peaks", ErrEnrichment, len(peaks))
	}
	rr := FilterOutliers(RRIntervals(peaks, fs), b)
	if len(rr) < 2 {
		return nil, fmt.Errorf("%w: %d usable intervals", ErrEnrichment, len(rr))
	}

	d := diffs(rr)
	sorted := append([]float64(nil), rr...)
	sort.Float64s(sorted)

	mean := stat.Mean(rr, nil)
	sdnn := stat.StdDev(rr, nil)
	rmssd := RMSSD(rr)
	median := percentile(sorted, 0.5)

	sdsd := math.NaN()
	if len(d) > 1 {
		sdsd = stat.StdDev(d, nil)
	}

	return &models.TimeDomainHRV{
		PeakCount: len(peaks),
		MeanNN:    mean,
		MedianNN:  median,
		SDNN:      sdnn,
		SDSD:      sdsd,
		RMSSD:     rmssd,
		CVNN:      sdnn / mean,
		CVSD:      rmssd / mean,
		PNN20:     pnn(rr, 20),
		PNN50:     pnn(rr, 50),
		MinNN:     sorted[0],
		MaxNN:     sorted[len(sorted)-1],
		IQRNN:     percentile(sorted, 0.75) - percentile(sorted, 0.25),
		MadNN:     madScale * medianAbsDeviation(sorted, median),
		MeanHR:    60000 / mean,
	}, nil
}

func medianAbsDeviation(sorted []float64, median float64) float64 {
	dev := make([]float64, len(sorted))
	for i, v := range sorted {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	return percentile(dev, 0.5)
}

// percentile interpolates linearly between closest ranks, the convention
// gonum's stat.Quantile does not offer.
func percentile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}
