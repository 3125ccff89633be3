// Package pagination holds the count+rows envelope shared by every ranked listing.
package pagination

import "math"

// Page is a single slice of an ordered result set together with the size of the
// whole set. Total is always present, and Rows is never nil.
type Page[T any] struct {
	Total int `json:"total"`
	Rows  []T `json:"rows"`
}

// Empty returns a page with no matches.
func Empty[T any]() Page[T] {
	return Page[T]{Total: 0, Rows: []T{}}
}

// Paginate slices rows starting at offset with at most limit entries. When
// isExport is set offset and limit are ignored and every row is returned.
func Paginate[T any](rows []T, offset, limit int, isExport bool) Page[T] {
	total := len(rows)
	if total == 0 {
		return Empty[T]()
	}
	if isExport {
		out := make([]T, total)
		copy(out, rows)
		return Page[T]{Total: total, Rows: out}
	}

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= total {
		return Page[T]{Total: total, Rows: []T{}}
	}

	end := offset + limit
	if end > total || end < offset {
		end = total
	}

	out := make([]T, end-offset)
	copy(out, rows[offset:end])
	return Page[T]{Total: total, Rows: out}
}

// Map converts the rows of a page while preserving its total.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Rows))
	for i, row := range p.Rows {
		out[i] = fn(row)
	}
	return Page[U]{Total: p.Total, Rows: out}
}

// Window clamps a requested page size against the configured default and
// maximum, returning the offset and limit for a 1-based page number.
func Window(page, pageSize, defaultSize, maxSize int) (offset, limit int) {
	if pageSize <= 0 {
		pageSize = defaultSize
	}
	if maxSize > 0 && pageSize > maxSize {
		pageSize = maxSize
	}
	if page < 1 {
		page = 1
	}
	// A page far past any result set still has to land past the end.
	if pageSize > 0 && page-1 > math.MaxInt/pageSize {
		return math.MaxInt, pageSize
	}
	return (page - 1) * pageSize, pageSize
}
