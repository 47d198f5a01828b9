// Package pagination parses page/per_page query parameters into offsets.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Params is a parsed page request. Offset is derived and ready to feed
// into a SQL LIMIT/OFFSET clause.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// DefaultParams is page 1 with the default page size.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: defaultPerPage}
}

// FromRequest reads page and per_page from the query string. Malformed,
// non-positive, or oversized values silently fall back to the defaults.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if v, ok := queryInt(r, "page"); ok && v > 0 {
		p.Page = v
	}
	if v, ok := queryInt(r, "per_page"); ok && v > 0 && v <= maxPerPage {
		p.PerPage = v
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

func queryInt(r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
