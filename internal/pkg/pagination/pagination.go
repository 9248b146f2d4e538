package pagination

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/insightboard/core/internal/pkg/apperr"
	"github.com/insightboard/core/internal/pkg/response"
)

const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit inside int64 for every accepted limit.
	MaxPage int64 = math.MaxInt64 / MaxLimit
)

// Query holds parsed pagination parameters.
type Query struct {
	Page  int
	Limit int
}

// Parse reads page and limit from values. Absent or empty values take the
// defaults; anything else must be an integer in range.
func Parse(values url.Values) (Query, error) {
	page, err := parseIntOr(values.Get("page"), DefaultPage)
	if err != nil || page < 1 || int64(page) > MaxPage {
		return Query{}, fmt.Errorf("%w: page must be an integer between 1 and %d", apperr.ErrInvalidFilter, MaxPage)
	}
	limit, err := parseIntOr(values.Get("limit"), DefaultLimit)
	if err != nil || limit < 1 || limit > MaxLimit {
		return Query{}, fmt.Errorf("%w: limit must be an integer between 1 and %d", apperr.ErrInvalidFilter, MaxLimit)
	}
	return Query{Page: page, Limit: limit}, nil
}

// Skip is the number of records before the requested page. It saturates
// at math.MaxInt64 instead of wrapping.
func (q Query) Skip() int64 {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if int64(q.Page-1) > math.MaxInt64/int64(q.Limit) {
		return math.MaxInt64
	}
	return int64(q.Page-1) * int64(q.Limit)
}

// Build computes the pagination metadata for a page of q over total records.
func Build(q Query, total int64) response.Pagination {
	pages := 0
	if q.Limit > 0 {
		pages = int((total + int64(q.Limit) - 1) / int64(q.Limit))
	}
	return response.Pagination{
		Current: q.Page,
		Pages:   pages,
		Total:   total,
		HasNext: q.Page < pages,
		HasPrev: q.Page > 1,
	}
}

func parseIntOr(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
