package ecg

import (
	"pulse-go/internal/models"
	"pulse-go/internal/signal"
)

// BeatDetector finds R-peaks in a conditioned signal.
type BeatDetector struct {
	Threshold float64
}

// Detect returns the ascending sample indices of detected beats. Nearby
// double detections are left for the interval range filter to absorb.
func (d BeatDetector) Detect(cr models.ConditionedRecord) []int {
	return signal.FindPeaks(cr.FilteredSamples, d.Threshold)
}
