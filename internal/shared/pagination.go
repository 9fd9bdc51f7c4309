package shared

import (
	"net/url"
	"strconv"
)

// PageRequest is the limit/offset pair derived from query parameters.
type PageRequest struct {
	Page    int
	PerPage int
}

// Offset returns the SQL offset of the page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// ParsePage reads ?page= and ?per_page= with defaults and an upper bound.
func ParsePage(q url.Values) PageRequest {
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 50
	}
	if perPage > 500 {
		perPage = 500
	}
	return PageRequest{Page: page, PerPage: perPage}
}
