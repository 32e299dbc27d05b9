package dataset

import (
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/urbanrisk/crimeml/pkg/log"
)

// timestampFormats are tried in order when parsing the timestamp column.
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FeatureSpec describes the engineered feature layout of a buffer: ordered
// feature names and the category vocabulary behind the one-hot columns.
// An artifact persists this so evaluation rebuilds identical columns.
type FeatureSpec struct {
	Names      []string
	Categories []string
	Columns    Columns
}

// BuildBuffer reads every row of src into a RowBuffer, engineering feature
// vectors according to the schema map.
//
// Feature layout, in order: hour_of_day and day_of_week (when a timestamp
// column resolves), latitude, longitude, risk (when present), then one
// one-hot indicator per category. When categories is nil the vocabulary is
// collected from the source in a first streaming pass (sorted, distinct);
// otherwise the given vocabulary is used verbatim so that evaluation
// matches the training-time layout. Unknown categories at transform time
// produce all-zero indicators.
//
// Rows whose label or numeric cells cannot be parsed are skipped and
// counted, never fatal. Empty numeric cells become NaN for the imputer.
func BuildBuffer(src Source, schema SchemaMap, categories []string, memCap int) (*RowBuffer, *FeatureSpec, error) {
	header, err := src.Header()
	if err != nil {
		return nil, nil, err
	}
	cols := schema.Resolve(header)

	if categories == nil && cols.Category >= 0 {
		categories, err = collectCategories(src, cols.Category)
		if err != nil {
			return nil, nil, err
		}
		if err := src.Reset(); err != nil {
			return nil, nil, err
		}
	}

	spec := &FeatureSpec{Columns: cols, Categories: categories}
	if cols.Timestamp >= 0 {
		spec.Names = append(spec.Names, "hour_of_day", "day_of_week")
	}
	if cols.Latitude >= 0 {
		spec.Names = append(spec.Names, "latitude")
	}
	if cols.Longitude >= 0 {
		spec.Names = append(spec.Names, "longitude")
	}
	if cols.Risk >= 0 {
		spec.Names = append(spec.Names, "risk")
	}
	categoryIndex := make(map[string]int, len(categories))
	for i, c := range categories {
		categoryIndex[c] = i
		spec.Names = append(spec.Names, "category_"+c)
	}

	buffer := NewRowBuffer(memCap)
	skipped := 0
	for {
		record, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		row, ok := buildRow(record, cols, categoryIndex, len(spec.Names))
		if !ok {
			skipped++
			continue
		}
		if err := buffer.Append(row); err != nil {
			buffer.Close() //nolint:errcheck
			return nil, nil, err
		}
	}

	if skipped > 0 {
		slog.Warn("skipped unparseable rows",
			log.ComponentKey, "dataset",
			log.SkippedRowsKey, skipped,
			log.SamplesKey, buffer.Count(),
		)
	}
	return buffer, spec, nil
}

// collectCategories streams the source once to build the sorted distinct
// category vocabulary.
func collectCategories(src Source, categoryCol int) ([]string, error) {
	seen := make(map[string]bool)
	for {
		record, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if categoryCol >= len(record) {
			continue
		}
		c := NormalizeColumn(record[categoryCol])
		if c != "" {
			seen[c] = true
		}
	}

	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories, nil
}

func buildRow(record []string, cols Columns, categoryIndex map[string]int, arity int) (LabeledRow, bool) {
	features := make([]float64, 0, arity)

	cell := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	if cols.Timestamp >= 0 {
		hour, weekday, ok := parseTimestamp(cell(cols.Timestamp))
		if ok {
			features = append(features, hour, weekday)
		} else {
			features = append(features, math.NaN(), math.NaN())
		}
	}
	for _, idx := range []int{cols.Latitude, cols.Longitude, cols.Risk} {
		if idx < 0 {
			continue
		}
		value, ok := parseNumericCell(cell(idx))
		if !ok {
			return LabeledRow{}, false
		}
		features = append(features, value)
	}

	for i := 0; i < len(categoryIndex); i++ {
		features = append(features, 0)
	}
	if cols.Category >= 0 {
		if slot, ok := categoryIndex[NormalizeColumn(cell(cols.Category))]; ok {
			features[len(features)-len(categoryIndex)+slot] = 1
		}
	}

	label, ok := resolveLabel(record, cols)
	if !ok {
		return LabeledRow{}, false
	}
	return LabeledRow{Features: features, Label: label}, true
}

// parseNumericCell parses a float cell. Empty cells are missing values and
// become NaN; non-empty unparseable cells invalidate the row.
func parseNumericCell(s string) (float64, bool) {
	if s == "" {
		return math.NaN(), true
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func parseTimestamp(s string) (hour, weekday float64, ok bool) {
	if s == "" {
		return 0, 0, false
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return float64(t.Hour()), float64(t.Weekday()), true
		}
	}
	return 0, 0, false
}

func resolveLabel(record []string, cols Columns) (int, bool) {
	if cols.Label >= 0 {
		if cols.Label >= len(record) {
			return 0, false
		}
		value, err := strconv.ParseFloat(record[cols.Label], 64)
		if err != nil || math.IsNaN(value) || value < 0 {
			return 0, false
		}
		return int(value), true
	}

	// No label column: derive deterministically from category and risk.
	category := ""
	if cols.Category >= 0 && cols.Category < len(record) {
		category = record[cols.Category]
	}
	risk := 0.0
	hasRisk := false
	if cols.Risk >= 0 && cols.Risk < len(record) {
		if value, err := strconv.ParseFloat(record[cols.Risk], 64); err == nil {
			risk = value
			hasRisk = true
		}
	}
	if category == "" && !hasRisk {
		return 0, false
	}
	return DeriveLabel(category, risk, hasRisk), true
}
