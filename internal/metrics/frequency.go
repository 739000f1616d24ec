package metrics

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectral bands in cycles per interval, both ends exclusive.
var (
	lfBand = [2]float64{0.04, 0.15}
	hfBand = [2]float64{0.15, 0.4}
)

// FrequencyPower sums |DFT|^2 of the interval sequence over the LF and HF
// bands. Bin k sits at frequency k/n measured against interval index, not
// elapsed time, so the result is an approximation of autonomic balance and
// not a calibrated LF/HF measure. Only non-negative frequencies count.
func FrequencyPower(rr []float64) (lf, hf float64) {
	n := len(rr)
	if n < 2 {
		return math.NaN(), math.NaN()
	}
	coeffs := fourier.NewFFT(n).Coefficients(nil, rr)
	for k, c := range coeffs {
		freq := float64(k) / float64(n)
		p := math.Pow(cmplx.Abs(c), 2)
		switch {
		case freq > lfBand[0] && freq < lfBand[1]:
			lf += p
		case freq > hfBand[0] && freq < hfBand[1]:
			hf += p
		}
	}
	return lf, hf
}
