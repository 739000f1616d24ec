package signal

import (
	"fmt"
)

// Filter runs the cascade once over x, starting from the given per-section
// state (nil for zero state). It uses the transposed direct form II.
func (f *SOSFilter) Filter(x []float64, zi [][2]float64) []float64 {
	y := make([]float64, len(x))
	copy(y, x)
	for k, s := range f.Sections {
		var z1, z2 float64
		if zi != nil {
			z1, z2 = zi[k][0], zi[k][1]
		}
		for i, in := range y {
			out := s.B[0]*in + z1
			z1 = s.B[1]*in - s.A[1]*out + z2
			z2 = s.B[2]*in - s.A[2]*out
			y[i] = out
		}
	}
	return y
}

// steadyState returns the per-section state of the cascade after an
// infinitely long unit step, so that filtering a constant signal starts
// without a transient.
func (f *SOSFilter) steadyState() [][2]float64 {
	zi := make([][2]float64, len(f.Sections))
	scale := 1.0
	for k, s := range f.Sections {
		b, a := s.B, s.A
		g := (b[0] + b[1] + b[2]) / (a[0] + a[1] + a[2])
		z2 := b[2] - a[2]*g
		z1 := b[1] - a[1]*g + z2
		zi[k] = [2]float64{scale * z1, scale * z2}
		scale *= g
	}
	return zi
}

// FiltFilt applies the filter forward and then backward so the result has
// zero phase distortion. Both ends are extended by odd reflection of PadLen
// samples. The output has the same length as x.
func (f *SOSFilter) FiltFilt(x []float64) ([]float64, error) {
	n := len(x)
	pad := f.PadLen()
	if n <= pad {
		return nil, fmt.Errorf("%w: %d samples, need more than %d", ErrSignalTooShort, n, pad)
	}

	ext := make([]float64, 0, n+2*pad)
	first, last := x[0], x[n-1]
	for i := pad; i >= 1; i-- {
		ext = append(ext, 2*first-x[i])
	}
	ext = append(ext, x...)
	for i := n - 2; i >= n-1-pad; i-- {
		ext = append(ext, 2*last-x[i])
	}

	zi := f.steadyState()

	y := f.Filter(ext, scaleState(zi, ext[0]))
	reverse(y)
	y = f.Filter(y, scaleState(zi, y[0]))
	reverse(y)

	out := make([]float64, n)
	copy(out, y[pad:pad+n])
	return out, nil
}

func scaleState(zi [][2]float64, v float64) [][2]float64 {
	out := make([][2]float64, len(zi))
	for i, s := range zi {
		out[i] = [2]float64{s[0] * v, s[1] * v}
	}
	return out
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
