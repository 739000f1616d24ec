package signal

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func mustBandPass(t *testing.T) *SOSFilter {
	t.Helper()
	f, err := BandPass(5, 0.5, 50, 512)
	if err != nil {
		t.Fatalf("BandPass: %v", err)
	}
	return f
}

func TestBandPassResponse(t *testing.T) {
	t.Parallel()
	f := mustBandPass(t)

	if got := len(f.Sections); got != 5 {
		t.Fatalf("sections=%d want 5", got)
	}

	tests := []struct {
		name string
		freq float64
		want float64
		tol  float64
	}{
		{name: "dc", freq: 0, want: 0, tol: 1e-9},
		{name: "lower edge", freq: 0.5, want: math.Sqrt2 / 2, tol: 1e-3},
		{name: "passband", freq: 5, want: 1, tol: 1e-3},
		{name: "passband high", freq: 20, want: 1, tol: 1e-2},
		{name: "upper edge", freq: 50, want: math.Sqrt2 / 2, tol: 1e-3},
		{name: "stopband", freq: 250, want: 0, tol: 1e-3},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := f.Response(tc.freq, 512)
			if math.Abs(got-tc.want) > tc.tol {
				t.Fatalf("Response(%v)=%v want %v±%v", tc.freq, got, tc.want, tc.tol)
			}
		})
	}
}

func TestBandPassInvalid(t *testing.T) {
	t.Parallel()
	cases := []struct {
		order           int
		low, high, rate float64
	}{
		{0, 0.5, 50, 512},
		{5, 0, 50, 512},
		{5, 50, 0.5, 512},
		{5, 0.5, 256, 512},
		{5, 0.5, 50, 0},
	}
	for _, c := range cases {
		if _, err := BandPass(c.order, c.low, c.high, c.rate); err == nil {
			t.Fatalf("BandPass(%d,%v,%v,%v) expected error", c.order, c.low, c.high, c.rate)
		}
	}
}

func TestFiltFiltPreservesLengthAndPhase(t *testing.T) {
	t.Parallel()
	f := mustBandPass(t)

	const fs = 512.0
	n := 8192
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * 10 * float64(i) / fs)
	}

	y, err := f.FiltFilt(x)
	if err != nil {
		t.Fatalf("FiltFilt: %v", err)
	}
	if len(y) != n {
		t.Fatalf("len=%d want %d", len(y), n)
	}

	// A zero-phase filter leaves an in-band sinusoid where it was.
	for i := n / 4; i < 3*n/4; i++ {
		if d := math.Abs(y[i] - x[i]); d > 0.05 {
			t.Fatalf("sample %d: filtered=%v original=%v", i, y[i], x[i])
		}
		if i > 0 && (x[i-1] < 0) != (x[i] < 0) {
			if (y[i-2] < 0) == (y[i+1] < 0) {
				t.Fatalf("zero crossing near %d moved", i)
			}
		}
	}
}

func TestFiltFiltRemovesOffset(t *testing.T) {
	t.Parallel()
	f := mustBandPass(t)
	x := make([]float64, 4096)
	for i := range x {
		x[i] = 3
	}
	y, err := f.FiltFilt(x)
	if err != nil {
		t.Fatalf("FiltFilt: %v", err)
	}
	for i, v := range y {
		if math.Abs(v) > 1e-6 {
			t.Fatalf("y[%d]=%v want ~0 for a constant input", i, v)
		}
	}
}

func TestFiltFiltTooShort(t *testing.T) {
	t.Parallel()
	f := mustBandPass(t)
	if f.PadLen() != 33 {
		t.Fatalf("PadLen=%d want 33", f.PadLen())
	}
	_, err := f.FiltFilt(make([]float64, 33))
	if !errors.Is(err, ErrSignalTooShort) {
		t.Fatalf("err=%v want ErrSignalTooShort", err)
	}
	if _, err := f.FiltFilt(make([]float64, 34)); err != nil {
		t.Fatalf("34 samples: %v", err)
	}
}

func TestFindPeaks(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		x      []float64
		height float64
		want   []int
	}{
		{name: "empty", x: nil, height: 0.5, want: []int{}},
		{name: "edges ignored", x: []float64{2, 0, 0, 2}, height: 0.5, want: []int{}},
		{name: "below height", x: []float64{0, 0.4, 0, 0.6, 0}, height: 0.5, want: []int{3}},
		{name: "height inclusive", x: []float64{0, 0.5, 0}, height: 0.5, want: []int{1}},
		{name: "plateau middle", x: []float64{0, 1, 1, 1, 1, 0}, height: 0.5, want: []int{2}},
		{name: "rising plateau", x: []float64{0, 1, 1, 2, 0}, height: 0.5, want: []int{3}},
		{name: "close peaks kept", x: []float64{0, 1, 0.9, 1, 0}, height: 0.5, want: []int{1, 3}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := FindPeaks(tc.x, tc.height)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("FindPeaks(%v)=%v want %v", tc.x, got, tc.want)
			}
		})
	}
}

func TestFindPeaksDistance(t *testing.T) {
	t.Parallel()
	x := []float64{0, 1, 0, 2, 0, 0, 0, 0, 1.5, 0}
	got := FindPeaksDistance(x, 0.5, 3)
	want := []int{3, 8}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FindPeaksDistance=%v want %v", got, want)
	}
}

func TestZScore(t *testing.T) {
	t.Parallel()
	z, err := ZScore([]float64{1, 2, 3})
	if err != nil {
		t.Fatalf("ZScore: %v", err)
	}
	if math.Abs(z[0]+1.224744871) > 1e-6 || z[1] != 0 {
		t.Fatalf("ZScore=%v", z)
	}
	if _, err := ZScore([]float64{4, 4, 4}); !errors.Is(err, ErrFlatSignal) {
		t.Fatalf("flat signal err=%v", err)
	}
}
