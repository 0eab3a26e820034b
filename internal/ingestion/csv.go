package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/idhash"
)

// ErrMissingColumn is returned when a required CSV column is absent.
var ErrMissingColumn = errors.New("required column missing")

// ParseStats counts the rows read from a CSV feed.
type ParseStats struct {
	Rows    int // data rows read, header excluded
	Dropped int // rows with an unparseable timestamp, price or key field
}

// Column aliases, first match wins.
var (
	eventColumnAliases = map[string][]string{
		"ts_utc":     {"ts_utc", "timestamp", "datetime", "date"},
		"country":    {"country"},
		"currency":   {"currency"},
		"title":      {"title", "event_title", "event"},
		"event_key":  {"event_key"},
		"label":      {"label"},
		"type":       {"type"},
		"importance": {"importance", "importance_n", "impact"},
		"unit":       {"unit"},
		"actual":     {"actual"},
		"forecast":   {"forecast", "estimate"},
		"previous":   {"previous", "prev"},
	}
	priceColumnAliases = map[string][]string{
		"ts_utc": {"ts_utc", "datetime", "timestamp", "time", "date"},
		"close":  {"close", "price", "last", "c"},
	}
)

// timestampLayouts are tried in order; zone-less layouts are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// ParseEventsCSV reads the economic calendar feed.
// Required columns: ts_utc, country, title. Rows missing any of them are dropped.
// Numeric fields that do not parse are stored as null.
func ParseEventsCSV(r io.Reader) ([]*domain.Event, ParseStats, error) {
	var stats ParseStats

	reader, cols, err := openCSV(r, eventColumnAliases, "ts_utc", "country", "title")
	if err != nil {
		return nil, stats, err
	}

	var events []*domain.Event
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read events csv: %w", err)
		}
		stats.Rows++

		ts, ok := parseTimestamp(cols.get(record, "ts_utc"))
		country := strings.ToUpper(cols.get(record, "country"))
		title := cols.get(record, "title")
		if !ok || country == "" || title == "" {
			stats.Dropped++
			continue
		}

		events = append(events, &domain.Event{
			EventID:     idhash.ComputeEventID(ts, country, title),
			TimestampMs: ts,
			Country:     country,
			Currency:    strings.ToUpper(cols.get(record, "currency")),
			Title:       title,
			EventKey:    cols.get(record, "event_key"),
			Label:       cols.get(record, "label"),
			Type:        cols.get(record, "type"),
			Importance:  parseImportance(cols.get(record, "importance")),
			Unit:        cols.get(record, "unit"),
			Actual:      parseNullableFloat(cols.get(record, "actual")),
			Forecast:    parseNullableFloat(cols.get(record, "forecast")),
			Previous:    parseNullableFloat(cols.get(record, "previous")),
		})
	}
	return events, stats, nil
}

// ParsePricesCSV reads a close-price feed for symbol.
// Required columns: ts_utc, close. Rows with an unparseable timestamp or
// non-positive close are dropped.
func ParsePricesCSV(r io.Reader, symbol string) ([]*domain.PriceSample, ParseStats, error) {
	var stats ParseStats
	if symbol == "" {
		return nil, stats, errors.New("symbol is required")
	}

	reader, cols, err := openCSV(r, priceColumnAliases, "ts_utc", "close")
	if err != nil {
		return nil, stats, err
	}

	var samples []*domain.PriceSample
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read prices csv: %w", err)
		}
		stats.Rows++

		ts, ok := parseTimestamp(cols.get(record, "ts_utc"))
		closePrice := parseNullableFloat(cols.get(record, "close"))
		if !ok || closePrice == nil || *closePrice <= 0 {
			stats.Dropped++
			continue
		}
		samples = append(samples, &domain.PriceSample{
			Symbol:      symbol,
			TimestampMs: ts,
			Close:       *closePrice,
		})
	}
	return samples, stats, nil
}

type columnIndex map[string]int

func (c columnIndex) get(record []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// openCSV reads the header, detects a semicolon separator and resolves column aliases.
func openCSV(r io.Reader, aliases map[string][]string, required ...string) (*csv.Reader, columnIndex, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if header, _, _ := strings.Cut(string(data), "\n"); strings.Count(header, ";") > strings.Count(header, ",") {
		reader.Comma = ';'
	}

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	positions := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	cols := make(columnIndex, len(aliases))
	for canonical, names := range aliases {
		for _, name := range names {
			if idx, ok := positions[name]; ok {
				cols[canonical] = idx
				break
			}
		}
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return reader, cols, nil
}

// parseTimestamp accepts the layouts above or Unix epoch seconds/milliseconds.
func parseTimestamp(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e11 {
			return n, true
		}
		return n * 1000, true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC().UnixMilli(), true
		}
	}
	return 0, false
}

// parseNullableFloat returns nil for empty or non-numeric input.
// A lone decimal comma is accepted.
func parseNullableFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseImportance maps 1..3 or low/medium/high onto 1..3, anything else to 0.
func parseImportance(s string) int {
	switch strings.ToLower(s) {
	case "1", "1.0", "low", "l":
		return 1
	case "2", "2.0", "medium", "m":
		return 2
	case "3", "3.0", "high", "h":
		return 3
	default:
		return 0
	}
}
