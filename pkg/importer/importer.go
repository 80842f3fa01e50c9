package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	"itam-api/internal/inventory"
	"itam-api/internal/models"
)

// DefaultMaxErrors stops an import once this many rows fail to parse.
const DefaultMaxErrors = 50

// dateLayout is how acquisition dates are stored.
const dateLayout = "01/02/2006"

// ErrTooManyErrors is returned when parsing rejects more rows than allowed.
var ErrTooManyErrors = errors.New("too many errors")

// ImportOptions defines the configuration for Excel import operations
type ImportOptions struct {
	Mapping   *Mapping // nil uses DefaultMapping
	DryRun    bool
	MaxErrors int // default 50
}

// RowError represents an error that occurred during row processing
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportSummary contains the overall import statistics
type ImportSummary struct {
	Sheet     string           `json:"sheet"`
	Rows      int              `json:"rows"`
	Skipped   int              `json:"skipped"`
	Assets    int              `json:"assets"`
	Computers int              `json:"computers"`
	Errors    int              `json:"errors"`
	Samples   []RowError       `json:"error_samples,omitempty"`
	BatchID   string           `json:"batch_id,omitempty"`
	Created   []models.ItemRef `json:"created"`
	DryRun    bool             `json:"dry_run"`
}

// Target is what parsed rows are handed to. *inventory.Service satisfies it.
type Target interface {
	ClassifyRow(typeLabel string) models.ItemKind
	ImportBatch(ctx context.Context, rows []inventory.ImportRow) (*inventory.ImportResult, error)
}

// Parsed is the outcome of reading a workbook.
type Parsed struct {
	Sheet   string
	Rows    []inventory.ImportRow
	Skipped int
	Errors  []RowError
}

// ImportExcel parses an .xlsx workbook and imports its rows into target.
// A dry run stops after parsing and classification.
func ImportExcel(ctx context.Context, target Target, r io.Reader, opts ImportOptions) (ImportSummary, error) {
	summary := ImportSummary{DryRun: opts.DryRun, Created: []models.ItemRef{}}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = DefaultMaxErrors
	}
	if opts.Mapping == nil {
		opts.Mapping = DefaultMapping()
	}

	// xlsx needs random access, so the upload is buffered whole.
	data, err := io.ReadAll(r)
	if err != nil {
		return summary, fmt.Errorf("failed to read Excel file: %w", err)
	}
	parsed, err := ParseWorkbook(data, opts.Mapping)
	if err != nil {
		return summary, err
	}

	summary.Sheet = parsed.Sheet
	summary.Rows = len(parsed.Rows)
	summary.Skipped = parsed.Skipped
	summary.Errors = len(parsed.Errors)
	summary.Samples = sample(parsed.Errors, opts.MaxErrors)
	for _, row := range parsed.Rows {
		if target.ClassifyRow(row.Fields.Type) == models.KindComputer {
			summary.Computers++
		} else {
			summary.Assets++
		}
	}

	if summary.Errors > opts.MaxErrors {
		return summary, fmt.Errorf("%w (%d), stopping import", ErrTooManyErrors, summary.Errors)
	}
	if opts.DryRun {
		return summary, nil
	}

	res, err := target.ImportBatch(ctx, parsed.Rows)
	if res != nil {
		summary.BatchID = res.BatchID
		summary.Created = res.Created
		summary.Errors += len(res.Errors)
		for _, e := range res.Errors {
			summary.Samples = append(summary.Samples, RowError{Sheet: parsed.Sheet, Row: e.Line, Message: e.Message})
		}
		summary.Samples = sample(summary.Samples, opts.MaxErrors)
	}
	return summary, err
}

func sample(errs []RowError, n int) []RowError {
	if len(errs) > n {
		return errs[:n]
	}
	return errs
}

// ParseWorkbook reads rows from the mapped sheet, or the first sheet when the
// mapping names none. Rows whose mapped cells are all blank are skipped; rows
// missing a type or barcode, or with an unreadable cost, are reported.
func ParseWorkbook(data []byte, m *Mapping) (*Parsed, error) {
	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	sheet := file.Sheets[0]
	if m.Sheet != "" {
		s, ok := file.Sheet[m.Sheet]
		if !ok {
			return nil, fmt.Errorf("sheet %q not found", m.Sheet)
		}
		sheet = s
	}

	p := &Parsed{Sheet: sheet.Name, Rows: []inventory.ImportRow{}}
	for r := m.HeaderRows; r < sheet.MaxRow; r++ {
		rd := rowReader{sheet: sheet, row: r, cols: m.Columns, date1904: file.Date1904}
		line := r + 1

		if rd.blank() {
			p.Skipped++
			continue
		}

		row, err := rd.importRow()
		if err != nil {
			p.Errors = append(p.Errors, RowError{Sheet: sheet.Name, Row: line, Message: err.Error()})
			continue
		}
		row.Line = line
		p.Rows = append(p.Rows, row)
	}
	return p, nil
}

type rowReader struct {
	sheet    *xlsx.Sheet
	row      int
	cols     map[string]int
	date1904 bool
}

func (rd rowReader) cell(field string) *xlsx.Cell {
	col, ok := rd.cols[field]
	if !ok || col > rd.sheet.MaxCol {
		return nil
	}
	c, err := rd.sheet.Cell(rd.row, col-1)
	if err != nil {
		return nil
	}
	return c
}

func (rd rowReader) text(field string) string {
	c := rd.cell(field)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.String())
}

func (rd rowReader) blank() bool {
	for field := range rd.cols {
		if rd.text(field) != "" {
			return false
		}
	}
	return true
}

func (rd rowReader) importRow() (inventory.ImportRow, error) {
	row := inventory.ImportRow{
		Owner: models.UserIdentity{
			Name:       rd.text(FieldName),
			Company:    rd.text(FieldCompany),
			Department: rd.text(FieldDepartment),
			EmployeeID: rd.text(FieldEmployeeID),
		},
		Fields: models.ItemFields{
			Type:         rd.text(FieldType),
			DateAcquired: rd.date(),
			Barcode:      rd.text(FieldBarcode),
			Brand:        rd.text(FieldBrand),
			Model:        rd.text(FieldModel),
			RAM:          rd.text(FieldRAM),
			SSD:          rd.text(FieldSSD),
			HDD:          rd.text(FieldHDD),
			GPU:          rd.text(FieldGPU),
			Size:         rd.text(FieldSize),
			Color:        rd.text(FieldColor),
			SerialNo:     rd.text(FieldSerial),
			PO:           rd.text(FieldPO),
			Warranty:     rd.text(FieldWarranty),
			Remarks:      rd.text(FieldRemarks),
		},
	}
	if row.Fields.Type == "" {
		return row, errors.New("type is required")
	}
	if row.Fields.Barcode == "" {
		return row, errors.New("barcode is required")
	}

	cost, err := parseCost(rd.text(FieldCost))
	if err != nil {
		return row, err
	}
	row.Fields.Cost = cost
	return row, nil
}

// date normalises the acquisition date to MM/DD/YYYY. Excel serial numbers
// and MM/DD/YY text are both accepted; anything else is kept as written.
func (rd rowReader) date() string {
	c := rd.cell(FieldDateAcquired)
	if c == nil {
		return ""
	}
	if c.IsTime() {
		if t, err := c.GetTime(rd.date1904); err == nil {
			return t.Format(dateLayout)
		}
	}
	raw := strings.TrimSpace(c.Value)
	if raw == "" {
		return ""
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		return xlsx.TimeFromExcelTime(serial, rd.date1904).Format(dateLayout)
	}
	text := strings.TrimSpace(c.String())
	for _, layout := range []string{"01/02/06", "1/2/06", dateLayout, "1/2/2006", "2006-01-02"} {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Format(dateLayout)
		}
	}
	return text
}

func parseCost(s string) (decimal.Decimal, error) {
	s = strings.NewReplacer(",", "", " ", "").Replace(s)
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cost %q is not a number", s)
	}
	return d, nil
}
