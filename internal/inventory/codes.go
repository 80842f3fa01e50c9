package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// CodeKind selects one of the two independent ledger code sequences.
type CodeKind int

const (
	AccountabilityCode CodeKind = iota
	TrackingCode
)

// CodeKinds lists every kind, in counter-seeding order.
var CodeKinds = []CodeKind{AccountabilityCode, TrackingCode}

func (k CodeKind) String() string {
	if k == TrackingCode {
		return "tracking"
	}
	return "accountability"
}

// Prefix is the code prefix, e.g. ACID.
func (k CodeKind) Prefix() string {
	if k == TrackingCode {
		return "TRID"
	}
	return "ACID"
}

// FormatCode renders n as PREFIX-NNNN.
func FormatCode(kind CodeKind, n int) string {
	return fmt.Sprintf("%s-%04d", kind.Prefix(), n)
}

// ParseCodeNumber extracts the digits after the last '-'.
func ParseCodeNumber(code string) (int, bool) {
	i := strings.LastIndex(code, "-")
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(code[i+1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// HighestCodeNumber returns the greatest parsable suffix among codes, or 0.
func HighestCodeNumber(codes []string) int {
	highest := 0
	for _, c := range codes {
		if n, ok := ParseCodeNumber(c); ok && n > highest {
			highest = n
		}
	}
	return highest
}

// NextCode derives the code following the highest existing one. Unparsable
// codes are ignored and an empty history starts at 1. Runtime allocation goes
// through the counter row; this is used to seed it from existing ledgers.
func NextCode(kind CodeKind, existing []string) string {
	return FormatCode(kind, HighestCodeNumber(existing)+1)
}

// CodeGenerator allocates codes from the store's counter rows.
type CodeGenerator struct{}

// Next allocates the next code of kind inside tx.
func (CodeGenerator) Next(ctx context.Context, tx Tx, kind CodeKind) (string, error) {
	n, err := tx.NextCodeValue(ctx, kind)
	if err != nil {
		return "", fmt.Errorf("allocate %s code: %w", kind, err)
	}
	return FormatCode(kind, n), nil
}
