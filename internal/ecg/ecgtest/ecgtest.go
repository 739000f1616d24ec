// Package ecgtest writes synthetic ECG exports for tests.
package ecgtest

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// SampleRate is the rate synthetic signals are generated at.
const SampleRate = 512

// Export describes one synthetic export file.
type Export struct {
	Patient        string
	RecordedAt     string
	Classification string
	Samples        []float64
	// DecimalComma writes samples the way some locales export them.
	DecimalComma bool
}

// Beats renders Gaussian R-waves of the given amplitude at each position on a
// flat baseline of n samples.
func Beats(positions []int, n int, amplitude float64) []float64 {
	const sigma = 8.0
	x := make([]float64, n)
	for _, c := range positions {
		for i := c - 5*int(sigma); i <= c+5*int(sigma); i++ {
			if i < 0 || i >= n {
				continue
			}
			d := float64(i - c)
			x[i] += amplitude * math.Exp(-d*d/(2*sigma*sigma))
		}
	}
	return x
}

// Alternating places count beats whose spacing alternates between
// base+delta and base-delta samples and renders them.
func Alternating(base, delta, count int) []float64 {
	positions := make([]int, count)
	pos := 200
	for i := range positions {
		positions[i] = pos
		if i%2 == 0 {
			pos += base + delta
		} else {
			pos += base - delta
		}
	}
	return Beats(positions, positions[count-1]+200, 1.5)
}

// Content renders e in the device export layout: a thirteen line header
// followed by one sample per line.
func Content(e Export) string {
	var b strings.Builder
	header := []string{
		"Name," + e.Patient,
		"Date of Birth,\"Jan 1, 1980\"",
		"Recorded Date," + e.RecordedAt,
		"Classification," + e.Classification,
		"Symptoms,",
		"Software Version,1.90",
		"Device,\"Watch6,1\"",
		"Sample Rate,512 hertz",
		"",
		"Lead,Lead I",
		"Unit,µV",
		"",
		"",
	}
	for _, h := range header {
		b.WriteString(h)
		b.WriteByte('\n')
	}
	for _, s := range e.Samples {
		v := strconv.FormatFloat(s, 'f', -1, 64)
		if e.DecimalComma {
			v = `"` + strings.Replace(v, ".", ",", 1) + `"`
		}
		b.WriteString(v)
		b.WriteByte('\n')
	}
	return b.String()
}

// Write stores e as dir/name and returns the path.
func Write(tb testing.TB, dir, name string, e Export) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(Content(e)), 0o644); err != nil {
		tb.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// Cohort writes five identical baseline recordings, one baseline recording
// with roughly three times their RMSSD, and one poor recording. It returns
// the number of files written.
func Cohort(tb testing.TB, dir string) int {
	tb.Helper()
	steady := Alternating(410, 10, 30)
	for i := 1; i <= 5; i++ {
		Write(tb, dir, "ecg_2024-03-0"+strconv.Itoa(i)+".csv", Export{
			Patient:        "Jane Doe",
			RecordedAt:     "2024-03-0" + strconv.Itoa(i) + " 08:15:30 -0600",
			Classification: "Sinus Rhythm",
			Samples:        steady,
		})
	}
	Write(tb, dir, "ecg_2024-03-06.csv", Export{
		Patient:        "Jane Doe",
		RecordedAt:     "2024-03-06 08:15:30 -0600",
		Classification: "Sinus Rhythm",
		Samples:        Alternating(410, 31, 30),
	})
	Write(tb, dir, "ecg_2024-03-07.csv", Export{
		Patient:        "Jane Doe",
		RecordedAt:     "2024-03-07 08:15:30 -0600",
		Classification: "Poor Recording",
		Samples:        steady,
	})
	return 7
}
