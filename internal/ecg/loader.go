// Package ecg turns per-session ECG export files into conditioned signals
// and beat marks.
package ecg

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pulse-go/internal/models"
	"pulse-go/internal/utils"
)

// ErrNoSamples is returned for an export with nothing past its header.
var ErrNoSamples = errors.New("no samples after header")

// Header line positions of an ECG export.
const (
	patientLine        = 0
	recordedDateLine   = 2
	classificationLine = 3
)

// Loader parses ECG export files.
type Loader struct {
	// DataOffset is the zero-based line where samples start.
	DataOffset int
	// Location is the display timezone recording dates are converted to.
	Location *time.Location
}

// NewLoader builds a Loader for the given data offset and IANA timezone name.
func NewLoader(dataOffset int, timezone string) (*Loader, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}
	if dataOffset <= classificationLine {
		return nil, fmt.Errorf("data offset %d overlaps the header", dataOffset)
	}
	return &Loader{DataOffset: dataOffset, Location: loc}, nil
}

// ListFiles returns the .csv files of dir in lexical order.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading ECG directory: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// LoadFile parses one export into a Record.
func (l *Loader) LoadFile(path string) (models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Record{}, err
	}
	defer f.Close()

	rec := models.Record{Source: filepath.Base(path)}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := -1
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		switch {
		case lineNo == patientLine:
			if rec.PatientID, err = headerValue(line); err != nil {
				return models.Record{}, fmt.Errorf("patient (line %d): %w", lineNo+1, err)
			}
		case lineNo == recordedDateLine:
			raw, err := headerValue(line)
			if err != nil {
				return models.Record{}, fmt.Errorf("recorded date (line %d): %w", lineNo+1, err)
			}
			if rec.RecordedAt, err = utils.ParseTimestamp(raw, l.Location); err != nil {
				return models.Record{}, fmt.Errorf("recorded date (line %d): %w", lineNo+1, err)
			}
		case lineNo == classificationLine:
			if rec.Classification, err = headerValue(line); err != nil {
				return models.Record{}, fmt.Errorf("classification (line %d): %w", lineNo+1, err)
			}
		case lineNo >= l.DataOffset:
			value := strings.TrimSpace(line)
			if value == "" {
				continue
			}
			sample, err := utils.ParseDecimal(value)
			if err != nil {
				return models.Record{}, fmt.Errorf("sample (line %d): %w", lineNo+1, err)
			}
			rec.RawSamples = append(rec.RawSamples, sample)
		}
	}
	if err := scanner.Err(); err != nil {
		return models.Record{}, fmt.Errorf("reading %s: %w", rec.Source, err)
	}
	if lineNo < classificationLine {
		return models.Record{}, fmt.Errorf("truncated header: %d lines", lineNo+1)
	}
	if len(rec.RawSamples) == 0 {
		return models.Record{}, ErrNoSamples
	}
	return rec, nil
}

// headerValue returns the text after the first comma of a "Key,Value" line.
func headerValue(line string) (string, error) {
	_, value, ok := strings.Cut(line, ",")
	if !ok {
		return "", fmt.Errorf("missing value in %q", line)
	}
	value = strings.Trim(strings.TrimSpace(value), `"`)
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("empty value in %q", line)
	}
	return value, nil
}
