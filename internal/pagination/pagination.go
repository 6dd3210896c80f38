// Package pagination holds the page arithmetic shared by the free-text and
// cascading result views. Every function is pure; moving past either end of
// the range returns the input page unchanged.
package pagination

// DefaultPageSize is the number of summaries requested per page.
const DefaultPageSize = 20

// Page is one page of results together with its position in the full set.
type Page[T any] struct {
	Items       []T `json:"items"`
	TotalItems  int `json:"total_items"`
	PageSize    int `json:"page_size"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

// TotalPages returns ceil(totalItems / pageSize). A non-positive page size or
// item count yields zero pages.
func TotalPages(totalItems, pageSize int) int {
	if pageSize <= 0 || totalItems <= 0 {
		return 0
	}
	return (totalItems + pageSize - 1) / pageSize
}

// CanGoPrev reports whether a previous page exists.
func CanGoPrev(page int) bool {
	return page > 1
}

// CanGoNext reports whether a next page exists.
func CanGoNext(page, totalPages int) bool {
	return page < totalPages
}

// Clamp bounds page to [1, max(totalPages, 1)].
func Clamp(page, totalPages int) int {
	upper := max(totalPages, 1)
	return min(max(page, 1), upper)
}

// Next returns page+1, or page itself when already on the last page.
func Next(page, totalPages int) int {
	if !CanGoNext(page, totalPages) {
		return page
	}
	return page + 1
}

// Prev returns page-1, or page itself when already on the first page.
func Prev(page int) int {
	if !CanGoPrev(page) {
		return page
	}
	return page - 1
}

// New builds a Page with its derived fields filled in. currentPage is clamped.
func New[T any](items []T, totalItems, pageSize, currentPage int) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := TotalPages(totalItems, pageSize)
	return Page[T]{
		Items:       items,
		TotalItems:  totalItems,
		PageSize:    pageSize,
		CurrentPage: Clamp(currentPage, totalPages),
		TotalPages:  totalPages,
	}
}

// Empty returns a page with no items and zero pages.
func Empty[T any](pageSize int) Page[T] {
	return New[T](nil, 0, pageSize, 1)
}
