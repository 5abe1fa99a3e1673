// Package pagination implements the shared offset-pagination contract used by
// the catalog listings.
//
// Two behaviors are deliberate and caller-observable: requesting a page past
// the end is reported as not-found rather than an empty page, and a page that
// slices to zero rows is also reported as not-found. The second conflates
// "momentarily empty but valid page" with "missing" and is kept for
// compatibility with existing clients.
package pagination

import (
	"errors"
	"fmt"
)

var (
	// ErrPageNotFound is returned for pages past the end and for empty result
	// pages. Mapped to 404 at the boundary.
	ErrPageNotFound = errors.New("page not found")
)

// AllowedPageSizes is the closed set of accepted page sizes.
var AllowedPageSizes = []int{10, 25, 50, 100}

// InvalidPageSizeError is a validation failure, distinguished from not-found
// at the boundary (422, not 404).
type InvalidPageSizeError struct {
	PageSize int
}

func (e *InvalidPageSizeError) Error() string {
	return fmt.Sprintf("page_size must be one of %v, got %d", AllowedPageSizes, e.PageSize)
}

// Params are the caller-supplied paging inputs.
type Params struct {
	Page     int
	PageSize int
}

// DefaultParams returns page 1 with the smallest allowed page size.
func DefaultParams() Params {
	return Params{Page: 1, PageSize: AllowedPageSizes[0]}
}

// Validate rejects non-positive pages and page sizes outside the allow-list
// before any query runs.
func (p Params) Validate() error {
	if p.Page < 1 {
		return fmt.Errorf("page must be >= 1, got %d", p.Page)
	}
	for _, allowed := range AllowedPageSizes {
		if p.PageSize == allowed {
			return nil
		}
	}
	return &InvalidPageSizeError{PageSize: p.PageSize}
}

// Page is one page of results plus paging metadata.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// TotalPages computes ceil(total/pageSize), with 0 pages for 0 rows.
func TotalPages(total, pageSize int) int {
	if total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Window converts validated params plus a row count into an offset/limit
// window, failing with ErrPageNotFound when the page is past the end.
func Window(p Params, total int) (offset, limit int, err error) {
	totalPages := TotalPages(total, p.PageSize)
	if p.Page > totalPages && totalPages > 0 {
		return 0, 0, fmt.Errorf("page %d does not exist: %w", p.Page, ErrPageNotFound)
	}
	return (p.Page - 1) * p.PageSize, p.PageSize, nil
}

// New assembles the response page. An empty sliced page is reported as
// not-found (see the package doc).
func New[T any](items []T, total int, p Params) (Page[T], error) {
	if len(items) == 0 {
		return Page[T]{}, fmt.Errorf("no records on page %d: %w", p.Page, ErrPageNotFound)
	}
	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: TotalPages(total, p.PageSize),
	}, nil
}
