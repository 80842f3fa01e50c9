package models

import (
	"strconv"
	"strings"
)

// IDSet is an insertion-ordered set of item ids. Its text form is the legacy
// ledger encoding: base-10 integers joined by single commas, no whitespace.
type IDSet []int64

// ParseIDSet decodes the legacy encoding. Non-numeric, non-positive and
// duplicate tokens are skipped so partially corrupt rows stay readable.
func ParseIDSet(s string) IDSet {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var set IDSet
	for _, tok := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		set.Add(id)
	}
	return set
}

// String encodes the set in the legacy format. An empty set encodes as "".
func (s IDSet) String() string {
	if len(s) == 0 {
		return ""
	}
	parts := make([]string, len(s))
	for i, id := range s {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// Contains reports exact membership.
func (s IDSet) Contains(id int64) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id unless present and reports whether the set changed.
func (s *IDSet) Add(id int64) bool {
	if s.Contains(id) {
		return false
	}
	*s = append(*s, id)
	return true
}

// Remove drops id, keeping the order of the rest, and reports whether the set changed.
func (s *IDSet) Remove(id int64) bool {
	for i, v := range *s {
		if v == id {
			*s = append((*s)[:i:i], (*s)[i+1:]...)
			return true
		}
	}
	return false
}

// MarshalText implements encoding.TextMarshaler using the legacy encoding.
func (s IDSet) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, skipping malformed tokens.
func (s *IDSet) UnmarshalText(b []byte) error {
	*s = ParseIDSet(string(b))
	return nil
}
