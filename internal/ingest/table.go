// Package ingest - table.go loads tabular uploads and profiles them.
//
// DESIGN: Every table is read into strings first (CSV, TSV or the first XLSX
// sheet), capped at the configured row limit, then typed column by column.
// A column is INTEGER, REAL or BOOLEAN only if every non-empty cell parses
// as that type; anything else is TEXT. Empty cells become NULL.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/gaia-chat/gaia-gateway/internal/analytics"
	"github.com/gaia-chat/gaia-gateway/internal/config"
)

// ErrEmptyTable is returned for files with no header row.
var ErrEmptyTable = errors.New("table has no header row")

// RawTable is a header plus string rows, every row padded or cut to the
// header width.
type RawTable struct {
	Header []string
	Rows   [][]string
	Capped bool
}

// ColumnStat is the quick profile of one column.
type ColumnStat struct {
	Column     string   `json:"column"`
	NonNullPct float64  `json:"nonnull_pct"`
	Samples    []string `json:"samples"`
}

// TableProfile describes a loaded table for the planning prompt.
type TableProfile struct {
	TableName  string             `json:"table_name"`
	Columns    []analytics.Column `json:"columns"`
	QuickStats []ColumnStat       `json:"quick_stats"`
	RowCount   int                `json:"row_count"`
	EngineRef  string             `json:"engine_ref"`
}

// LoadTable reads f as a table, keeping at most maxRows data rows.
func LoadTable(f UploadedFile, maxRows int) (*RawTable, error) {
	if maxRows <= 0 {
		maxRows = config.DefaultMaxTableRows
	}
	switch {
	case f.Ext == ".xlsx" || f.MIME == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return loadXLSX(f.Data, maxRows)
	case f.Ext == ".xls" || f.MIME == "application/vnd.ms-excel":
		return nil, fmt.Errorf("legacy .xls workbooks are not supported")
	case f.Ext == ".tsv" || f.MIME == "text/tab-separated-values":
		return loadDelimited(f.Data, '\t', maxRows)
	default:
		return loadDelimited(f.Data, ',', maxRows)
	}
}

func loadDelimited(data []byte, sep rune, maxRows int) (*RawTable, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &RawTable{Header: cleanHeader(header)}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+2, err)
		}
		if len(t.Rows) >= maxRows {
			t.Capped = true
			break
		}
		t.Rows = append(t.Rows, fitRow(rec, len(t.Header)))
	}
	return t, nil
}

func loadXLSX(data []byte, maxRows int) (*RawTable, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyTable
	}
	rows, err := wb.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	defer rows.Close()

	var t *RawTable
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
		}
		if t == nil {
			if len(cols) == 0 {
				continue
			}
			t = &RawTable{Header: cleanHeader(cols)}
			continue
		}
		if len(t.Rows) >= maxRows {
			t.Capped = true
			break
		}
		t.Rows = append(t.Rows, fitRow(cols, len(t.Header)))
	}
	if t == nil {
		return nil, ErrEmptyTable
	}
	return t, nil
}

// cleanHeader trims names, fills blanks and de-duplicates.
func cleanHeader(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		key := strings.ToLower(name)
		if n := seen[key]; n > 0 {
			name = fmt.Sprintf("%s_%d", name, n+1)
		}
		seen[key]++
		out[i] = name
	}
	return out
}

func fitRow(rec []string, width int) []string {
	row := make([]string, width)
	copy(row, rec)
	return row
}

// =============================================================================
// TYPING
// =============================================================================

// Typed converts the raw table into an engine table named name.
func (t *RawTable) Typed(name string) analytics.Table {
	cols := make([]analytics.Column, len(t.Header))
	for i, h := range t.Header {
		cols[i] = analytics.Column{Name: h, Type: t.inferType(i)}
	}

	rows := make([][]any, len(t.Rows))
	for r, raw := range t.Rows {
		row := make([]any, len(cols))
		for i, c := range cols {
			row[i] = convert(raw[i], c.Type)
		}
		rows[r] = row
	}
	return analytics.Table{Name: name, Columns: cols, Rows: rows}
}

func (t *RawTable) inferType(col int) string {
	isInt, isReal, isBool, seen := true, true, true, false
	for _, row := range t.Rows {
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isReal {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isReal = false
			}
		}
		if isBool {
			if _, ok := parseBool(v); !ok {
				isBool = false
			}
		}
		if !isInt && !isReal && !isBool {
			break
		}
	}

	switch {
	case !seen:
		return analytics.TypeText
	case isInt:
		return analytics.TypeInteger
	case isReal:
		return analytics.TypeReal
	case isBool:
		return analytics.TypeBoolean
	}
	return analytics.TypeText
}

func convert(raw, typ string) any {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	switch typ {
	case analytics.TypeInteger:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case analytics.TypeReal:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case analytics.TypeBoolean:
		b, _ := parseBool(v)
		return b
	}
	return raw
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "true", "yes":
		return true, true
	case "false", "no":
		return false, true
	}
	return false, false
}

// =============================================================================
// PROFILE
// =============================================================================

// Profile summarizes the first maxCols columns of t with up to samples
// example values each.
func (t *RawTable) Profile(fileName string, cols []analytics.Column, maxCols, samples int) TableProfile {
	if maxCols <= 0 {
		maxCols = config.DefaultProfileColumns
	}
	if samples <= 0 {
		samples = config.DefaultProfileSamples
	}

	p := TableProfile{TableName: fileName, Columns: cols, RowCount: len(t.Rows)}
	for i := 0; i < len(t.Header) && i < maxCols; i++ {
		stat := ColumnStat{Column: t.Header[i], NonNullPct: 100}
		nonNull := 0
		for _, row := range t.Rows {
			v := strings.TrimSpace(row[i])
			if v == "" {
				continue
			}
			nonNull++
			if len(stat.Samples) < samples {
				stat.Samples = append(stat.Samples, v)
			}
		}
		if len(t.Rows) > 0 {
			stat.NonNullPct = 100 * float64(nonNull) / float64(len(t.Rows))
		}
		p.QuickStats = append(p.QuickStats, stat)
	}
	return p
}
