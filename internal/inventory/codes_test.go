package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"itam-api/internal/inventory"
)

func TestFormatCode(t *testing.T) {
	assert.Equal(t, "ACID-0001", inventory.FormatCode(inventory.AccountabilityCode, 1))
	assert.Equal(t, "TRID-0042", inventory.FormatCode(inventory.TrackingCode, 42))
	assert.Equal(t, "ACID-12345", inventory.FormatCode(inventory.AccountabilityCode, 12345))
}

func TestParseCodeNumber(t *testing.T) {
	tests := []struct {
		code   string
		want   int
		wantOK bool
	}{
		{"ACID-0007", 7, true},
		{"TRID-0100", 100, true},
		{"ACID-", 0, false},
		{"ACID-x1", 0, false},
		{"nodash", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := inventory.ParseCodeNumber(tt.code)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextCode(t *testing.T) {
	assert.Equal(t, "ACID-0001", inventory.NextCode(inventory.AccountabilityCode, nil))
	assert.Equal(t, "ACID-0010", inventory.NextCode(inventory.AccountabilityCode,
		[]string{"ACID-0002", "ACID-0009", "garbage", "ACID-0003"}))
	assert.Equal(t, "TRID-0001", inventory.NextCode(inventory.TrackingCode, []string{"TRID-bad"}))
}

func TestCodeKind(t *testing.T) {
	assert.Equal(t, "accountability", inventory.AccountabilityCode.String())
	assert.Equal(t, "tracking", inventory.TrackingCode.String())
	assert.Equal(t, "ACID", inventory.AccountabilityCode.Prefix())
	assert.Equal(t, "TRID", inventory.TrackingCode.Prefix())
}
