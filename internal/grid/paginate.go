package grid

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// PageSizes are the selectable page sizes.
var PageSizes = []int{5, 10, 20, 50, 100}

// DefaultPageSize is the initial page size of a new grid view.
const DefaultPageSize = 5

var (
	ErrInvalidPageSize = errors.New("grid: invalid page size")
	ErrInvalidPage     = errors.New("grid: invalid page number")
)

// ValidPageSize reports whether size is one of PageSizes.
func ValidPageSize(size int) bool {
	return slices.Contains(PageSizes, size)
}

// PageCount returns the number of pages needed for total rows.
func PageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// ClampPage bounds a zero-based page to the pages that exist.
func ClampPage(page, total, pageSize int) int {
	last := PageCount(total, pageSize) - 1
	if page > last {
		page = last
	}
	if page < 0 {
		page = 0
	}
	return page
}

// Window returns the [start, end) row range of a zero-based page.
func Window(page, total, pageSize int) (int, int) {
	page = ClampPage(page, total, pageSize)
	start := page * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return start, end
}

// ParseGoToPage converts the free-text, one-based "go to page" input into a zero-based page.
func ParseGoToPage(input string, total, pageSize int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPage, input)
	}
	return ClampPage(n-1, total, pageSize), nil
}
