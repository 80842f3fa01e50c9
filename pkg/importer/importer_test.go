package importer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"

	"itam-api/internal/inventory"
	"itam-api/internal/models"
)

// workbook builds an .xlsx in memory. Each row is a map from 1-based column
// to cell value; strings, floats and times are supported.
func workbook(t *testing.T, sheetName string, rows ...map[int]any) []byte {
	t.Helper()
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	require.NoError(t, err)

	title := sheet.AddRow()
	title.AddCell().SetString("ACCOUNTABILITY LIST")
	header := sheet.AddRow()
	for _, h := range []string{"NAME", "COMPANY", "DEPARTMENT", "TYPE", "DATE", "BARCODE"} {
		header.AddCell().SetString(h)
	}

	for _, values := range rows {
		row := sheet.AddRow()
		for col := 1; col <= 26; col++ {
			cell := row.AddCell()
			switch v := values[col].(type) {
			case string:
				cell.SetString(v)
			case float64:
				cell.SetFloat(v)
			case time.Time:
				cell.SetDate(v)
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, file.Write(&buf))
	return buf.Bytes()
}

func laptopRow(name, barcode string) map[int]any {
	return map[int]any{
		1: name, 2: "AcmeCo", 3: "IT", 4: "Laptop", 5: "03/15/24", 6: barcode,
		7: "Dell", 8: "Latitude", 9: "16GB", 10: "512GB", 18: "1,250.00", 26: "issued",
	}
}

type fakeTarget struct {
	rows   []inventory.ImportRow
	err    error
	reject map[int]string
}

func (f *fakeTarget) ClassifyRow(label string) models.ItemKind {
	return inventory.NewClassifier(nil).Classify(label)
}

func (f *fakeTarget) ImportBatch(_ context.Context, rows []inventory.ImportRow) (*inventory.ImportResult, error) {
	f.rows = rows
	res := &inventory.ImportResult{BatchID: "batch-1", Created: []models.ItemRef{}, Errors: []inventory.RowError{}}
	for i, r := range rows {
		if msg, ok := f.reject[r.Line]; ok {
			res.Errors = append(res.Errors, inventory.RowError{Line: r.Line, Message: msg})
			continue
		}
		res.Created = append(res.Created, models.ItemRef{Kind: f.ClassifyRow(r.Fields.Type), ID: int64(i + 1)})
	}
	return res, f.err
}

func TestDefaultMapping(t *testing.T) {
	m := DefaultMapping()
	assert.Equal(t, 2, m.HeaderRows)
	assert.Equal(t, 1, m.Columns[FieldName])
	assert.Equal(t, 6, m.Columns[FieldBarcode])
	assert.Equal(t, 18, m.Columns[FieldCost])
	assert.Equal(t, 26, m.Columns[FieldRemarks])
}

func TestParseMapping_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "columns: [", "decode mapping"},
		{"unknown field", "columns: {type: 1, barcode: 2, colour: 3}", `unknown mapping field "colour"`},
		{"zero column", "columns: {type: 0, barcode: 2}", `column for "type"`},
		{"missing barcode", "columns: {type: 1}", `must bind "barcode"`},
		{"negative header", "header_rows: -1\ncolumns: {type: 1, barcode: 2}", "header_rows"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMapping([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sheet: Ledger\nheader_rows: 1\ncolumns: {type: 2, barcode: 1}\n"), 0o600))

	m, err := LoadMapping(path)
	require.NoError(t, err)
	assert.Equal(t, "Ledger", m.Sheet)
	assert.Equal(t, 2, m.Columns[FieldType])

	_, err = LoadMapping(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseWorkbook(t *testing.T) {
	acquired := time.Date(2023, time.November, 2, 0, 0, 0, 0, time.UTC)
	printer := map[int]any{4: "Printer", 5: acquired, 6: "PR-1", 7: "HP", 14: "Black", 18: 99.5}
	noBarcode := map[int]any{1: "Bob", 4: "Monitor"}
	badCost := map[int]any{4: "Monitor", 6: "MON-9", 18: "lots"}

	data := workbook(t, "Sheet1", laptopRow("Alice", "LAP-1"), map[int]any{}, printer, noBarcode, badCost)

	p, err := ParseWorkbook(data, DefaultMapping())
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", p.Sheet)
	assert.Equal(t, 1, p.Skipped)
	require.Len(t, p.Rows, 2)

	lap := p.Rows[0]
	assert.Equal(t, 3, lap.Line)
	assert.Equal(t, models.UserIdentity{Name: "Alice", Company: "AcmeCo", Department: "IT"}, lap.Owner)
	assert.Equal(t, "Laptop", lap.Fields.Type)
	assert.Equal(t, "03/15/2024", lap.Fields.DateAcquired)
	assert.Equal(t, "16GB", lap.Fields.RAM)
	assert.True(t, decimal.RequireFromString("1250").Equal(lap.Fields.Cost))
	assert.Equal(t, "issued", lap.Fields.Remarks)

	pr := p.Rows[1]
	assert.Equal(t, 5, pr.Line)
	assert.True(t, pr.Owner.Blank())
	assert.Equal(t, "11/02/2023", pr.Fields.DateAcquired)
	assert.True(t, decimal.RequireFromString("99.5").Equal(pr.Fields.Cost))

	require.Len(t, p.Errors, 2)
	assert.Equal(t, RowError{Sheet: "Sheet1", Row: 6, Message: "barcode is required"}, p.Errors[0])
	assert.Equal(t, 7, p.Errors[1].Row)
	assert.Contains(t, p.Errors[1].Message, "cost")
}

func TestParseWorkbook_NamedSheet(t *testing.T) {
	data := workbook(t, "Other", laptopRow("Alice", "LAP-1"))

	m := DefaultMapping()
	m.Sheet = "Ledger"
	_, err := ParseWorkbook(data, m)
	assert.ErrorContains(t, err, `sheet "Ledger" not found`)

	_, err = ParseWorkbook([]byte("not a zip"), DefaultMapping())
	assert.ErrorContains(t, err, "failed to open Excel file")
}

func TestImportExcel(t *testing.T) {
	ctx := context.Background()
	data := workbook(t, "Sheet1",
		laptopRow("Alice", "LAP-1"),
		map[int]any{1: "Bob", 2: "AcmeCo", 3: "HR", 4: "Monitor", 6: "MON-1"},
		map[int]any{4: "Monitor"},
	)

	t.Run("dry run stops before import", func(t *testing.T) {
		target := &fakeTarget{}
		sum, err := ImportExcel(ctx, target, bytes.NewReader(data), ImportOptions{DryRun: true})
		require.NoError(t, err)
		assert.True(t, sum.DryRun)
		assert.Equal(t, 2, sum.Rows)
		assert.Equal(t, 1, sum.Computers)
		assert.Equal(t, 1, sum.Assets)
		assert.Equal(t, 1, sum.Errors)
		assert.Empty(t, sum.BatchID)
		assert.Nil(t, target.rows)
	})

	t.Run("rows go to the target", func(t *testing.T) {
		target := &fakeTarget{reject: map[int]string{4: "conflict: duplicate"}}
		sum, err := ImportExcel(ctx, target, bytes.NewReader(data), ImportOptions{})
		require.NoError(t, err)
		assert.Equal(t, "batch-1", sum.BatchID)
		require.Len(t, target.rows, 2)
		assert.Equal(t, []models.ItemRef{{Kind: models.KindComputer, ID: 1}}, sum.Created)
		assert.Equal(t, 2, sum.Errors)
		require.Len(t, sum.Samples, 2)
		assert.Equal(t, 4, sum.Samples[1].Row)
	})

	t.Run("too many parse errors", func(t *testing.T) {
		target := &fakeTarget{}
		_, err := ImportExcel(ctx, target, bytes.NewReader(data), ImportOptions{MaxErrors: 1, DryRun: false})
		require.NoError(t, err)

		bad := workbook(t, "Sheet1", map[int]any{4: "Monitor"}, map[int]any{6: "X"})
		sum, err := ImportExcel(ctx, target, bytes.NewReader(bad), ImportOptions{MaxErrors: 1})
		assert.ErrorIs(t, err, ErrTooManyErrors)
		assert.Len(t, sum.Samples, 1)
	})

	t.Run("target failure is returned", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := ImportExcel(ctx, &fakeTarget{err: boom}, bytes.NewReader(data), ImportOptions{})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unreadable upload", func(t *testing.T) {
		_, err := ImportExcel(ctx, &fakeTarget{}, strings.NewReader("garbage"), ImportOptions{})
		assert.Error(t, err)
	})
}
