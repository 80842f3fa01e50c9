package postgres

import "strings"

var itemSortColumns = map[string]string{
	"id":         "id",
	"barcode":    "barcode",
	"type":       "type",
	"created_at": "created_at",
}

var ledgerSortColumns = map[string]string{
	"id":                  "l.id",
	"accountability_code": "l.accountability_code",
	"tracking_code":       "l.tracking_code",
	"created_at":          "l.created_at",
}

var userSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"company":    "company",
	"department": "department",
}

// buildOrderBy builds an ORDER BY clause from a comma-separated sort
// parameter. Only keys in allowed are used; a '-' prefix means DESC.
// It always returns " ORDER BY ...", falling back to the id column ascending.
func buildOrderBy(sortParam string, allowed map[string]string) string {
	fallback := " ORDER BY id ASC"
	if col, ok := allowed["id"]; ok {
		fallback = " ORDER BY " + col + " ASC"
	}
	if sortParam == "" {
		return fallback
	}

	var clauses []string
	for _, raw := range strings.Split(sortParam, ",") {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		dir := " ASC"
		if strings.HasPrefix(s, "-") {
			dir = " DESC"
			s = strings.TrimPrefix(s, "-")
		}
		if col, ok := allowed[s]; ok {
			clauses = append(clauses, col+dir)
		}
	}
	if len(clauses) == 0 {
		return fallback
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}
