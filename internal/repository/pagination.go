package repository

import "strings"

// Page represents a simple limit/offset window for listing operations.
// Rows inserted or deleted between two offset calls shift page boundaries,
// so a caller walking pages may see a record twice or miss it. Use Cursor when that matters.
type Page struct {
	Limit  int
	Offset int
}

// PageResult carries a slice of items and the total count matching the query.
// I return the total so clients can compute pagination without an extra round trip.
type PageResult[T any] struct {
	Items []T
	Total int
}

// Cursor is a keyset window: items with id strictly below LastID, newest first.
// LastID == 0 means "start from the newest record".
type Cursor struct {
	LastID int64
	Limit  int
}

// CursorResult carries one keyset page. NextCursor is the id of the last item,
// nil once the page is empty.
type CursorResult[T any] struct {
	Items      []T
	NextCursor *int64
}

// Filter narrows listings with a case-insensitive substring match on text fields.
type Filter struct {
	Query string
}

// Normalized trims the query and lowercases it for comparisons.
func (f Filter) Normalized() string {
	return strings.ToLower(strings.TrimSpace(f.Query))
}

// Matches reports whether any of the given fields contains the query, ignoring case.
// An empty query matches everything.
func (f Filter) Matches(fields ...string) bool {
	q := f.Normalized()
	if q == "" {
		return true
	}
	for _, v := range fields {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

// LikePattern renders the query as a SQL LIKE pattern with wildcards escaped by '\'.
func (f Filter) LikePattern() string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(f.Normalized()) + "%"
}
