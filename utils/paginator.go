package utils

import (
	"strconv"

	"gorm.io/gorm"
)

// Page describes one slice of an ordered listing.
// Number is always within 1..NumPages and an empty listing still has one page.
type Page struct {
	Number   int   `json:"number"`
	Limit    int   `json:"limit"`
	Total    int64 `json:"total"`
	NumPages int   `json:"num_pages"`
}

// NewPage resolves the requested page number against total items.
// Missing or non-numeric input yields page 1; out of range input is clamped.
func NewPage(requested string, total int64, limit int) Page {
	if limit <= 0 {
		limit = 10
	}
	if total < 0 {
		total = 0
	}
	numPages := int((total + int64(limit) - 1) / int64(limit))
	if numPages < 1 {
		numPages = 1
	}

	number, err := strconv.Atoi(requested)
	if err != nil || number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}
	return Page{Number: number, Limit: limit, Total: total, NumPages: numPages}
}

// Offset is the index of the first item on the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

func (p Page) HasNext() bool     { return p.Number < p.NumPages }
func (p Page) HasPrevious() bool { return p.Number > 1 }
func (p Page) HasOtherPages() bool {
	return p.HasNext() || p.HasPrevious()
}
func (p Page) NextNumber() int     { return p.Number + 1 }
func (p Page) PreviousNumber() int { return p.Number - 1 }

// Numbers lists every page number, for rendering page links.
func (p Page) Numbers() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Scope applies the page window to a gorm query.
func (p Page) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.Limit)
	}
}

// PaginateSlice returns the items of a pre-ordered slice that fall on the requested page.
func PaginateSlice[T any](items []T, requested string, limit int) ([]T, Page) {
	page := NewPage(requested, int64(len(items)), limit)
	start := page.Offset()
	if start >= len(items) {
		return []T{}, page
	}
	end := min(start+page.Limit, len(items))
	return items[start:end], page
}
