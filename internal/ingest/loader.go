package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/AngelCh415/sales-compare/internal/config"
	"github.com/AngelCh415/sales-compare/internal/models"
	"github.com/AngelCh415/sales-compare/internal/utils"
)

const (
	FieldSaleDate       = "sale_date"
	FieldExperienceDate = "experience_date"
	FieldAmount         = "amount"
	FieldUnits          = "units"
	FieldStatus         = "status"
	FieldOrderID        = "order_id"
	FieldCampaign       = "campaign"
	FieldClient         = "client"
)

var ErrMissingColumn = errors.New("required column not found")

// Diagnostics counts fields that ended up absent while loading. Invalid is
// the subset of Absent whose source cell was non-empty but failed to parse.
type Diagnostics struct {
	Rows           int            `json:"rows"`
	Absent         map[string]int `json:"absent"`
	Invalid        map[string]int `json:"invalid"`
	MissingColumns []string       `json:"missing_columns,omitempty"`
}

func newDiagnostics() Diagnostics {
	return Diagnostics{Absent: map[string]int{}, Invalid: map[string]int{}}
}

func (d *Diagnostics) absent(field, raw string) {
	d.Absent[field]++
	if strings.TrimSpace(raw) != "" {
		d.Invalid[field]++
	}
}

type Result struct {
	Rows        []models.Transaction
	Diagnostics Diagnostics
}

type Loader struct {
	c   HTTPClient
	log *slog.Logger
	cfg config.DatasetConfig
	bo  utils.Backoff
}

func NewLoader(c HTTPClient, log *slog.Logger, cfg config.DatasetConfig) *Loader {
	return &Loader{
		c:   c,
		log: log.With(slog.String("component", "loader")),
		cfg: cfg,
		bo:  utils.NewBackoff(200*time.Millisecond, cfg.Retries),
	}
}

// Load reads the configured source once and normalizes every row.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	start := time.Now()
	b, err := l.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", l.cfg.Source, err)
	}
	res, err := Parse(b, l.cfg.Format, l.cfg.Sheet, l.cfg.Columns)
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", l.cfg.Source, err)
	}
	observeLoad(res)

	l.log.Info("dataset loaded",
		slog.Int("rows", res.Diagnostics.Rows),
		slog.Int("bytes", len(b)),
		slog.Duration("took", time.Since(start)))
	if len(res.Diagnostics.MissingColumns) > 0 {
		l.log.Warn("dataset columns not found", slog.Any("columns", res.Diagnostics.MissingColumns))
	}
	for field, n := range res.Diagnostics.Invalid {
		l.log.Warn("field values could not be parsed", slog.String("field", field), slog.Int("count", n))
	}
	return res, nil
}

func (l *Loader) read(ctx context.Context) ([]byte, error) {
	src := strings.TrimSpace(l.cfg.Source)
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return FetchWithRetry(ctx, l.c, src, l.bo, l.log)
	}
	return os.ReadFile(src)
}

// Parse decodes a CSV or XLSX payload. format "auto" picks XLSX when the
// payload is a zip archive.
func Parse(b []byte, format, sheet string, cols config.ColumnsConfig) (*Result, error) {
	var (
		tbl   table
		cells cellReader
		err   error
	)
	switch detectFormat(b, format) {
	case "xlsx":
		tbl, err = readXLSX(b, sheet)
		cells = sheetCells
	default:
		tbl.records, err = readCSV(b)
		cells = textCells
	}
	if err != nil {
		return nil, err
	}
	return buildRows(tbl, cols, cells)
}

// table is the decoded payload. numeric, when set, reports whether a cell
// holds a spreadsheet number rather than text.
type table struct {
	records [][]string
	numeric func(row, col int) bool
}

func (t table) isNumeric(row, col int) bool {
	return t.numeric != nil && t.numeric(row, col)
}

func detectFormat(b []byte, format string) string {
	switch strings.ToLower(format) {
	case "csv", "xlsx":
		return strings.ToLower(format)
	}
	if bytes.HasPrefix(b, []byte("PK\x03\x04")) {
		return "xlsx"
	}
	return "csv"
}

func readCSV(b []byte) ([][]string, error) {
	b = bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.Comma = sniffComma(b)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv read: %w", err)
	}
	return records, nil
}

// sniffComma prefers ';' when the header line has more semicolons than commas.
func sniffComma(b []byte) rune {
	line := b
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		line = b[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func readXLSX(b []byte, sheet string) (table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		return table{}, fmt.Errorf("xlsx open: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return table{}, errors.New("xlsx has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return table{}, fmt.Errorf("xlsx rows of %q: %w", sheet, err)
	}

	numeric := make([][]bool, len(rows))
	for i, row := range rows {
		numeric[i] = make([]bool, len(row))
		for j, v := range row {
			if v == "" {
				continue
			}
			name, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return table{}, fmt.Errorf("xlsx cell %d,%d: %w", i+1, j+1, err)
			}
			typ, err := f.GetCellType(sheet, name)
			if err != nil {
				return table{}, fmt.Errorf("xlsx cell %s type: %w", name, err)
			}
			// sin atributo t la celda es numérica
			numeric[i][j] = typ == excelize.CellTypeNumber || typ == excelize.CellTypeUnset
		}
	}
	return table{
		records: rows,
		numeric: func(row, col int) bool { return col < len(numeric[row]) && numeric[row][col] },
	}, nil
}

// cellReader parses typed cells. numeric is true only for spreadsheet number
// cells, whose raw value is a plain decimal or a date serial.
type cellReader struct {
	amount func(s string, numeric bool) (decimal.Decimal, bool)
	units  func(s string, numeric bool) (decimal.Decimal, bool)
	date   func(s string, numeric bool) (time.Time, bool)
}

var textCells = cellReader{
	amount: func(s string, _ bool) (decimal.Decimal, bool) { return ParseAmount(s) },
	units:  func(s string, _ bool) (decimal.Decimal, bool) { return ParseUnits(s) },
	date:   func(s string, _ bool) (time.Time, bool) { return ParseDate(s) },
}

var sheetCells = cellReader{
	amount: func(s string, numeric bool) (decimal.Decimal, bool) {
		if !numeric {
			return ParseAmount(s)
		}
		d, ok := plainDecimal(s)
		return d.Round(2), ok
	},
	units: func(s string, numeric bool) (decimal.Decimal, bool) {
		if !numeric {
			return ParseUnits(s)
		}
		d, ok := plainDecimal(s)
		if !ok || d.IsNegative() {
			return decimal.Zero, false
		}
		return d, true
	},
	date: func(s string, numeric bool) (time.Time, bool) {
		if !numeric {
			return ParseDate(s)
		}
		serial, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return dayUTC(t), true
	},
}

func buildRows(tbl table, cols config.ColumnsConfig, cells cellReader) (*Result, error) {
	diag := newDiagnostics()
	records := tbl.records
	if len(records) == 0 {
		return nil, errors.New("dataset is empty")
	}

	header := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		k := strings.ToLower(strings.TrimSpace(h))
		if _, dup := header[k]; !dup {
			header[k] = i
		}
	}

	fields := []struct{ name, column string }{
		{FieldSaleDate, cols.SaleDate},
		{FieldExperienceDate, cols.ExperienceDate},
		{FieldAmount, cols.Amount},
		{FieldUnits, cols.Units},
		{FieldStatus, cols.Status},
		{FieldOrderID, cols.OrderID},
		{FieldCampaign, cols.Campaign},
		{FieldClient, cols.Client},
	}
	idx := make(map[string]int, len(fields))
	for _, f := range fields {
		i, ok := header[strings.ToLower(strings.TrimSpace(f.column))]
		if !ok || f.column == "" {
			idx[f.name] = -1
			diag.MissingColumns = append(diag.MissingColumns, f.name)
			continue
		}
		idx[f.name] = i
	}
	for _, required := range []string{FieldSaleDate, FieldStatus} {
		if idx[required] < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	out := make([]models.Transaction, 0, len(records)-1)
	for n, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := n + 1
		get := func(field string) string {
			i := idx[field]
			if i < 0 || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		num := func(field string) bool {
			i := idx[field]
			return i >= 0 && tbl.isNumeric(row, i)
		}

		var t models.Transaction
		raw := get(FieldSaleDate)
		if d, ok := cells.date(raw, num(FieldSaleDate)); ok {
			t.SaleDate = d
		} else {
			diag.absent(FieldSaleDate, raw)
		}
		raw = get(FieldExperienceDate)
		if d, ok := cells.date(raw, num(FieldExperienceDate)); ok {
			t.ExperienceDate = d
		} else {
			diag.absent(FieldExperienceDate, raw)
		}
		raw = get(FieldAmount)
		if a, ok := cells.amount(raw, num(FieldAmount)); ok {
			t.Amount = decimal.NewNullDecimal(a)
		} else {
			diag.absent(FieldAmount, raw)
		}
		raw = get(FieldUnits)
		if u, ok := cells.units(raw, num(FieldUnits)); ok {
			t.Units = decimal.NewNullDecimal(u)
		} else {
			diag.absent(FieldUnits, raw)
		}

		t.Status = NormalizeStatus(get(FieldStatus))
		t.OrderID = get(FieldOrderID)
		t.Campaign = get(FieldCampaign)
		t.Client = get(FieldClient)
		for field, v := range map[string]string{
			FieldStatus:   t.Status,
			FieldOrderID:  t.OrderID,
			FieldCampaign: t.Campaign,
			FieldClient:   t.Client,
		} {
			if v == "" {
				diag.Absent[field]++
			}
		}

		out = append(out, t)
	}
	diag.Rows = len(out)
	return &Result{Rows: out, Diagnostics: diag}, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
