package dashboard

// DefaultPageSize is the number of recent signals shown per page
const DefaultPageSize = 4

// Pager splits a list into fixed-size pages numbered from 1
type Pager[T any] struct {
	items []T
	size  int
}

// NewPager creates a pager; a non-positive size falls back to DefaultPageSize
func NewPager[T any](items []T, size int) *Pager[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Pager[T]{items: items, size: size}
}

// Len returns the total number of items
func (p *Pager[T]) Len() int {
	return len(p.items)
}

// Size returns the page size
func (p *Pager[T]) Size() int {
	return p.size
}

// Pages returns the number of pages, 0 for an empty list
func (p *Pager[T]) Pages() int {
	return (len(p.items) + p.size - 1) / p.size
}

// Clamp maps n into [1, Pages]; it returns 0 when there are no pages
func (p *Pager[T]) Clamp(n int) int {
	pages := p.Pages()
	switch {
	case pages == 0:
		return 0
	case n < 1:
		return 1
	case n > pages:
		return pages
	}
	return n
}

// Page returns the items of page n after clamping
func (p *Pager[T]) Page(n int) []T {
	n = p.Clamp(n)
	if n == 0 {
		return nil
	}
	start := (n - 1) * p.size
	end := min(start+p.size, len(p.items))
	return p.items[start:end]
}
