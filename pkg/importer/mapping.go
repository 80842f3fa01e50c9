package importer

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed default_mapping.yaml
var defaultMappingYAML []byte

// Field names a mapping may bind to a column.
const (
	FieldName         = "name"
	FieldCompany      = "company"
	FieldDepartment   = "department"
	FieldEmployeeID   = "employee_id"
	FieldType         = "type"
	FieldDateAcquired = "date"
	FieldBarcode      = "barcode"
	FieldBrand        = "brand"
	FieldModel        = "model"
	FieldRAM          = "ram"
	FieldSSD          = "ssd"
	FieldHDD          = "hdd"
	FieldGPU          = "gpu"
	FieldSize         = "size"
	FieldColor        = "color"
	FieldSerial       = "serial"
	FieldPO           = "po"
	FieldWarranty     = "warranty"
	FieldCost         = "cost"
	FieldRemarks      = "remarks"
)

var knownFields = map[string]bool{
	FieldName: true, FieldCompany: true, FieldDepartment: true, FieldEmployeeID: true,
	FieldType: true, FieldDateAcquired: true, FieldBarcode: true, FieldBrand: true,
	FieldModel: true, FieldRAM: true, FieldSSD: true, FieldHDD: true, FieldGPU: true,
	FieldSize: true, FieldColor: true, FieldSerial: true, FieldPO: true,
	FieldWarranty: true, FieldCost: true, FieldRemarks: true,
}

// Mapping describes where each item field lives in a workbook. Columns are
// 1-based, as spreadsheet users count them.
type Mapping struct {
	Version    int            `yaml:"version"`
	Sheet      string         `yaml:"sheet"`
	HeaderRows int            `yaml:"header_rows"`
	Columns    map[string]int `yaml:"columns"`
}

// DefaultMapping returns the layout of the legacy accountability workbook.
func DefaultMapping() *Mapping {
	m, err := ParseMapping(defaultMappingYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded mapping: %v", err))
	}
	return m
}

// LoadMapping reads and validates a YAML mapping file.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	return ParseMapping(data)
}

// ParseMapping decodes and validates a YAML mapping.
func ParseMapping(data []byte) (*Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks field names and column numbers.
func (m *Mapping) Validate() error {
	if m.HeaderRows < 0 {
		return fmt.Errorf("header_rows must not be negative")
	}
	for _, required := range []string{FieldType, FieldBarcode} {
		if _, ok := m.Columns[required]; !ok {
			return fmt.Errorf("mapping must bind %q", required)
		}
	}
	fields := make([]string, 0, len(m.Columns))
	for f := range m.Columns {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if !knownFields[f] {
			return fmt.Errorf("unknown mapping field %q", f)
		}
		if m.Columns[f] < 1 {
			return fmt.Errorf("column for %q must be 1 or greater", f)
		}
	}
	return nil
}
