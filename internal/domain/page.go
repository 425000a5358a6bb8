package domain

// Window is the offset/limit slice of a result set addressed by one page.
type Window struct {
	Offset int
	Limit  int
}

// Page is one materialized page of a query plus the server-side total.
type Page[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
	HasMore  bool
}

// NewPage assembles a page; HasMore is derived from the window and the total.
func NewPage[T any](items []T, total int, f Filter) Page[T] {
	n := f.Normalized()
	w := n.Window()
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:    items,
		Total:    total,
		Page:     n.Page,
		PageSize: n.PageSize,
		HasMore:  w.Offset+len(items) < total,
	}
}
