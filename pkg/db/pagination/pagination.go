// Package pagination holds paging parameters shared by the report APIs.
//
// Report rows are filtered, sorted and aggregated in memory after a bulk
// fetch, so paging is plain page/offset slicing applied last rather than
// a pushed-down cursor.
package pagination

// DefaultPageSize caps report responses when the caller does not ask for
// a specific size.
const DefaultPageSize = 25

// MaxPageSize bounds normal (non-export) requests.
const MaxPageSize = 250

type Pagination struct {
	Page     int `form:"page,default=1"`
	PageSize int `form:"page_size,default=25"`

	// Unbounded lifts MaxPageSize for export runs, which must return
	// every matching row.
	Unbounded bool `form:"-"`
}

// Normalize clamps the parameters to valid bounds.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if !p.Unbounded && p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

type PageInfo struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalCount int  `json:"total_count"`
	HasMore    bool `json:"has_more"`
}

// Slice applies the page window to an already-sorted slice and reports
// the resulting page info.
func Slice[T any](rows []T, p Pagination) ([]T, PageInfo) {
	p = p.Normalize()
	total := len(rows)

	info := PageInfo{
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalCount: total,
	}

	if p.Unbounded {
		info.Page = 1
		info.PageSize = total
		return rows, info
	}

	start := (p.Page - 1) * p.PageSize
	if start >= total {
		return nil, info
	}
	end := start + p.PageSize
	if end > total {
		end = total
	}
	info.HasMore = end < total
	return rows[start:end], info
}
