package metrics

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

var defaultBounds = Bounds{Min: 300, Max: 2000}

func TestRRIntervals(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		peaks []int
		want  []float64
	}{
		{name: "no peaks", peaks: nil, want: []float64{}},
		{name: "single peak", peaks: []int{40}, want: []float64{}},
		{name: "one second apart", peaks: []int{0, 512, 1024}, want: []float64{1000, 1000}},
		{name: "uneven", peaks: []int{0, 256, 1024}, want: []float64{500, 1500}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := RRIntervals(tc.peaks, 512); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("RRIntervals(%v)=%v want %v", tc.peaks, got, tc.want)
			}
		})
	}
}

func TestFilterOutliers(t *testing.T) {
	t.Parallel()
	got := FilterOutliers([]float64{100, 500, 2500}, defaultBounds)
	if !reflect.DeepEqual(got, []float64{500}) {
		t.Fatalf("FilterOutliers=%v want [500]", got)
	}
	got = FilterOutliers([]float64{300, 2000, 299.9}, defaultBounds)
	if !reflect.DeepEqual(got, []float64{300, 2000}) {
		t.Fatalf("bounds must be inclusive, got %v", got)
	}
}

func TestStatisticsUndefined(t *testing.T) {
	t.Parallel()
	for _, rr := range [][]float64{nil, {}, {812}} {
		if v := SDNN(rr); !math.IsNaN(v) {
			t.Errorf("SDNN(%v)=%v want NaN", rr, v)
		}
		if v := RMSSD(rr); !math.IsNaN(v) {
			t.Errorf("RMSSD(%v)=%v want NaN", rr, v)
		}
		if v := PNN50(rr); !math.IsNaN(v) {
			t.Errorf("PNN50(%v)=%v want NaN", rr, v)
		}
		lf, hf := FrequencyPower(rr)
		if !math.IsNaN(lf) || !math.IsNaN(hf) {
			t.Errorf("FrequencyPower(%v)=%v,%v want NaN", rr, lf, hf)
		}
	}
}

func TestStatistics(t *testing.T) {
	t.Parallel()
	rr := []float64{800, 900, 800, 820}

	// population std: mean 830, squared deviations 900+4900+900+100
	if got, want := SDNN(rr), math.Sqrt(6800.0/4); math.Abs(got-want) > 1e-9 {
		t.Errorf("SDNN=%v want %v", got, want)
	}
	// diffs 100, -100, 20
	if got, want := RMSSD(rr), math.Sqrt(20400.0/3); math.Abs(got-want) > 1e-9 {
		t.Errorf("RMSSD=%v want %v", got, want)
	}
	if got, want := PNN50(rr), 200.0/3; math.Abs(got-want) > 1e-9 {
		t.Errorf("PNN50=%v want %v", got, want)
	}
}

func TestPNN50Boundary(t *testing.T) {
	t.Parallel()
	cases := []struct {
		rr   []float64
		want float64
	}{
		{[]float64{800, 850, 900}, 0},     // exactly 50 ms is not counted
		{[]float64{900, 850, 800}, 0},     // nor is -50 ms
		{[]float64{800, 851, 901}, 50},    // 51 ms counts, 50 ms does not
		{[]float64{800, 749.9, 800}, 100}, // both beyond 50 ms in magnitude
	}
	for _, tc := range cases {
		if got := PNN50(tc.rr); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("PNN50(%v)=%v want %v", tc.rr, got, tc.want)
		}
	}
}

func TestFrequencyPower(t *testing.T) {
	t.Parallel()
	n := 10
	rr := make([]float64, n)
	for i := range rr {
		rr[i] = 800 + 50*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	// All the oscillation sits in bin 1 (0.1 cycles per interval).
	lf, hf := FrequencyPower(rr)
	if math.Abs(lf-62500) > 1e-6 {
		t.Errorf("lf=%v want 62500", lf)
	}
	if math.Abs(hf) > 1e-6 {
		t.Errorf("hf=%v want 0", hf)
	}
}

func TestAnalyze(t *testing.T) {
	t.Parallel()
	// A 100 sample gap is 195 ms and must be filtered out.
	peaks := []int{0, 410, 820, 920, 1330}
	a := Analyze(peaks, 512, defaultBounds)
	if len(a.Intervals) != 4 {
		t.Fatalf("intervals=%v", a.Intervals)
	}
	if len(a.Filtered) != 3 {
		t.Fatalf("filtered=%v", a.Filtered)
	}
	if a.Stats.SDNN != 0 {
		t.Fatalf("SDNN=%v want 0 for identical intervals", a.Stats.SDNN)
	}

	none := Analyze([]int{10}, 512, defaultBounds)
	if !math.IsNaN(none.Stats.SDNN) || !math.IsNaN(none.Stats.LFPower) {
		t.Fatalf("single peak stats=%+v", none.Stats)
	}
}

func beats(n, every int) []float64 {
	x := make([]float64, n)
	for c := every / 2; c < n; c += every {
		for i := c - 25; i <= c+25 && i < n; i++ {
			d := float64(i - c)
			x[i] += 1.5 * math.Exp(-d*d/(2*25))
		}
	}
	return x
}

func TestExtractTimeDomain(t *testing.T) {
	t.Parallel()
	hrv, err := ExtractTimeDomain(beats(5120, 410), 512, defaultBounds)
	if err != nil {
		t.Fatalf("ExtractTimeDomain: %v", err)
	}
	if hrv.PeakCount != 12 {
		t.Errorf("PeakCount=%d want 12", hrv.PeakCount)
	}
	wantNN := 410.0 / 512 * 1000
	if math.Abs(hrv.MeanNN-wantNN) > 1e-9 || math.Abs(hrv.MedianNN-wantNN) > 1e-9 {
		t.Errorf("MeanNN=%v MedianNN=%v want %v", hrv.MeanNN, hrv.MedianNN, wantNN)
	}
	if math.Abs(hrv.MeanHR-60000/wantNN) > 1e-9 {
		t.Errorf("MeanHR=%v", hrv.MeanHR)
	}
	if hrv.SDNN != 0 || hrv.PNN50 != 0 {
		t.Errorf("regular rhythm SDNN=%v PNN50=%v", hrv.SDNN, hrv.PNN50)
	}
}

func TestExtractTimeDomainFailures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		x    []float64
	}{
		{name: "too short", x: make([]float64, 99)},
		{name: "flat", x: make([]float64, 1000)},
		{name: "too few beats", x: beats(1000, 600)},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ExtractTimeDomain(tc.x, 512, defaultBounds); !errors.Is(err, ErrEnrichment) {
				t.Fatalf("err=%v want ErrEnrichment", err)
			}
		})
	}
}
