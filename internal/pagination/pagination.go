package pagination

import "math"

// MaxPageSize caps any requested page size.
const MaxPageSize = 200

// Metadata describes one page of a larger result
type Metadata struct {
	TotalCount  int64 `json:"totalCount"`
	PageSize    int   `json:"pageSize"`
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	HasPrevious bool  `json:"hasPrevious"`
	HasNext     bool  `json:"hasNext"`
}

// Normalize clamps user supplied paging values.
func Normalize(page, pageSize, defaultPageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// CalculateOffset calculates the offset for database queries based on page and page size
func CalculateOffset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return (page - 1) * pageSize
}

// Calculate calculates the complete pagination metadata for a given total count, page, and page size
func Calculate(totalCount int64, page, pageSize int) Metadata {
	if pageSize < 1 {
		pageSize = 10
	}
	totalPages := int(math.Ceil(float64(totalCount) / float64(pageSize)))
	if totalPages < 0 {
		totalPages = 0
	}

	currentPage := page
	if currentPage < 1 {
		currentPage = 1
	}
	if currentPage > totalPages && totalPages > 0 {
		currentPage = totalPages
	}

	hasPrevious := currentPage > 1
	hasNext := currentPage < totalPages

	if totalCount == 0 {
		hasPrevious = false
		hasNext = false
	}

	return Metadata{
		TotalCount:  totalCount,
		PageSize:    pageSize,
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		HasPrevious: hasPrevious,
		HasNext:     hasNext,
	}
}
