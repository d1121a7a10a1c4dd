package api

import (
	"net/http"
	"strconv"
)

// PaginationParams holds parsed paging values from query params.
type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit and offset, or page as an alternative to
// offset. Missing or invalid values fall back to defaultLimit and zero;
// limit is capped at maxLimit.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) PaginationParams {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	page, _ := strconv.Atoi(q.Get("page"))

	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	if q.Get("offset") == "" && page > 1 {
		offset = (page - 1) * limit
	}
	return PaginationParams{Limit: limit, Offset: offset}
}
