package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/model"
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// CSVParser reads one value column from a headered CSV file. The timestamp
// column is "timestamp" (RFC3339 or "2006-01-02 15:04[:05]", UTC when no
// offset is given); the value column is configurable.
type CSVParser struct {
	ValueColumn string
}

func NewCSVParser(valueColumn string) *CSVParser {
	if valueColumn == "" {
		valueColumn = "value"
	}
	return &CSVParser{ValueColumn: valueColumn}
}

func (p *CSVParser) Parse(r io.Reader) ([]model.Sample, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	timeIdx, valueIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(strings.ToLower(col)) {
		case "timestamp", "time":
			timeIdx = i
		case strings.ToLower(p.ValueColumn):
			valueIdx = i
		}
	}
	if timeIdx < 0 {
		return nil, fmt.Errorf("no timestamp column in header %v", header)
	}
	if valueIdx < 0 {
		return nil, fmt.Errorf("no %q column in header %v", p.ValueColumn, header)
	}

	var samples []model.Sample
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := parseTimestamp(record[timeIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(record[valueIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid value %q", line, record[valueIdx])
		}

		samples = append(samples, model.Sample{Time: ts, Value: value})
	}

	return samples, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// ReadSeriesFile parses one series file into samples.
func ReadSeriesFile(path, valueColumn string) ([]model.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open series file: %w", err)
	}
	defer f.Close()

	samples, err := NewCSVParser(valueColumn).Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return samples, nil
}
