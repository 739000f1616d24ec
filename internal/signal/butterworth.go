// Package signal holds the numeric building blocks of ECG conditioning:
// IIR band-pass design, zero-phase filtering and peak picking.
package signal

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sort"
)

// ErrSignalTooShort is returned when a sequence cannot be padded for
// zero-phase filtering.
var ErrSignalTooShort = errors.New("signal too short for filter")

// Section is one second-order IIR section, normalized so that a0 == 1.
type Section struct {
	B [3]float64
	A [3]float64
}

// SOSFilter is a cascade of second-order sections.
type SOSFilter struct {
	Sections []Section
	order    int
}

// BandPass designs a digital Butterworth band-pass filter of the given order
// for cutoffs low and high (Hz) at sampling rate fs.
//
// The design follows the classic route: analog low-pass prototype, low-pass
// to band-pass transform, then the bilinear transform with pre-warped
// cutoffs. The 2*order resulting poles are grouped into second-order sections.
func BandPass(order int, low, high, fs float64) (*SOSFilter, error) {
	nyquist := fs / 2
	switch {
	case order < 1:
		return nil, fmt.Errorf("filter order must be >= 1, got %d", order)
	case fs <= 0:
		return nil, fmt.Errorf("sampling rate must be positive, got %v", fs)
	case low <= 0 || high >= nyquist || low >= high:
		return nil, fmt.Errorf("band edges must satisfy 0 < low < high < %v, got %v-%v", nyquist, low, high)
	}

	// Pre-warp the normalized edges (design sample rate 2).
	const designFs = 2.0
	w1 := 2 * designFs * math.Tan(math.Pi*(low/nyquist)/designFs)
	w2 := 2 * designFs * math.Tan(math.Pi*(high/nyquist)/designFs)
	bw := w2 - w1
	wo := math.Sqrt(w1 * w2)

	// Analog Butterworth prototype poles on the left half of the unit circle.
	proto := make([]complex128, 0, order)
	for m := -order + 1; m < order; m += 2 {
		theta := math.Pi * float64(m) / float64(2*order)
		proto = append(proto, -cmplx.Exp(complex(0, theta)))
	}

	// Low-pass to band-pass: each prototype pole splits into two.
	analog := make([]complex128, 0, 2*order)
	for _, p := range proto {
		pl := p * complex(bw/2, 0)
		root := cmplx.Sqrt(pl*pl - complex(wo*wo, 0))
		analog = append(analog, pl+root, pl-root)
	}

	// Bilinear transform. The order zeros at s=0 map to z=+1 and the order
	// zeros at infinity map to z=-1.
	fs2 := complex(2*designFs, 0)
	poles := make([]complex128, len(analog))
	den := complex(1, 0)
	for i, p := range analog {
		poles[i] = (fs2 + p) / (fs2 - p)
		den *= fs2 - p
	}
	gain := math.Pow(bw, float64(order)) * math.Pow(2*designFs, float64(order)) * real(1/den)

	sections, err := pairSections(poles)
	if err != nil {
		return nil, err
	}
	for i := range sections {
		sections[i].B = [3]float64{1, 0, -1}
	}
	sections[0].B[0] *= gain
	sections[0].B[2] *= gain

	return &SOSFilter{Sections: sections, order: order}, nil
}

// pairSections groups poles into conjugate pairs; real poles are paired with
// each other in sorted order.
func pairSections(poles []complex128) ([]Section, error) {
	const tol = 1e-12
	var reals []float64
	var sections []Section
	for _, p := range poles {
		switch {
		case math.Abs(imag(p)) <= tol*math.Max(1, cmplx.Abs(p)):
			reals = append(reals, real(p))
		case imag(p) > 0:
			sections = append(sections, Section{A: [3]float64{1, -2 * real(p), real(p)*real(p) + imag(p)*imag(p)}})
		}
	}
	if len(reals)%2 != 0 {
		return nil, fmt.Errorf("unpaired real pole in filter design")
	}
	sort.Float64s(reals)
	for i := 0; i < len(reals); i += 2 {
		p1, p2 := reals[i], reals[i+1]
		sections = append(sections, Section{A: [3]float64{1, -(p1 + p2), p1 * p2}})
	}
	if len(sections)*2 != len(poles) {
		return nil, fmt.Errorf("filter design produced %d sections for %d poles", len(sections), len(poles))
	}
	return sections, nil
}

// PadLen is the number of samples reflected on each side by FiltFilt. Inputs
// must be strictly longer than this.
func (f *SOSFilter) PadLen() int {
	return 3 * (2*f.order + 1)
}

// Response evaluates the magnitude of the frequency response at freq (Hz)
// for sampling rate fs.
func (f *SOSFilter) Response(freq, fs float64) float64 {
	z := cmplx.Exp(complex(0, -2*math.Pi*freq/fs)) // z^-1
	h := complex(1, 0)
	for _, s := range f.Sections {
		num := complex(s.B[0], 0) + complex(s.B[1], 0)*z + complex(s.B[2], 0)*z*z
		den := complex(s.A[0], 0) + complex(s.A[1], 0)*z + complex(s.A[2], 0)*z*z
		h *= num / den
	}
	return cmplx.Abs(h)
}
