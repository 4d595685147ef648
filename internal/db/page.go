package db

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is a normalized page request.
type Page struct {
	Page  int
	Limit int
}

// NewPage applies defaults: page 1, limit 10, at most 100.
func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// Paged is the response envelope of every paginated list.
type Paged[T any] struct {
	Items       []T `json:"items"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
}

func NewPaged[T any](items []T, p Page, total int) Paged[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if total > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Paged[T]{Items: items, CurrentPage: p.Page, TotalPages: pages, TotalItems: total}
}
