package internal

import (
	"net/http"
	"strconv"
	"strings"

	"itam-api/internal/inventory"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// listParams holds common query parameters for list endpoints
type listParams struct {
	limit  int
	offset int
	q      string
	sort   string
}

// parseListParams parses limit, offset, q, and sort from the request
// Defaults: limit=50 (max 200), offset=0
func parseListParams(r *http.Request) listParams {
	values := r.URL.Query()

	limit := defaultListLimit
	if s := strings.TrimSpace(values.Get("limit")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			if v > maxListLimit {
				v = maxListLimit
			}
			limit = v
		}
	}

	offset := 0
	if s := strings.TrimSpace(values.Get("offset")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	return listParams{
		limit:  limit,
		offset: offset,
		q:      strings.TrimSpace(values.Get("q")),
		sort:   strings.TrimSpace(values.Get("sort")),
	}
}

func (p listParams) toPage() inventory.Page {
	return inventory.Page{Limit: p.limit, Offset: p.offset, Sort: p.sort}
}

type pageInfo struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

type listResponse struct {
	Data any      `json:"data"`
	Page pageInfo `json:"page"`
}

// sendListResponse writes a page of results with its window and total count.
func sendListResponse(w http.ResponseWriter, data any, total int, p listParams) {
	writeJSON(w, http.StatusOK, listResponse{
		Data: data,
		Page: pageInfo{Limit: p.limit, Offset: p.offset, Total: total},
	})
}

// boolParam reads true/false/1/0; anything else is false.
func boolParam(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(name)))
	return err == nil && v
}
