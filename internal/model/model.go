// Package model contains domain entities and DTOs used across layers.
// I keep it lean and focused on data shapes without behavior.
package model

import "time"

// Book statuses.
const (
	BookAvailable = "available"
	BookBorrowed  = "borrowed"
)

// Loan statuses.
const (
	LoanBorrowed = "borrowed"
	LoanReturned = "returned"
)

// Book is the paginated record of the service. IDs are assigned by the store,
// grow monotonically and are never reused, which is what makes cursor paging work.
type Book struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Category  *string   `json:"category"`
	Status    string    `json:"status"`
	Year      *int      `json:"year"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is a library patron.
type Member struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Loan links a book to the member who borrowed it.
type Loan struct {
	ID         int64      `json:"id"`
	BookID     int64      `json:"book_id"`
	MemberID   int64      `json:"member_id"`
	BorrowDate time.Time  `json:"borrow_date"`
	ReturnDate *time.Time `json:"return_date"`
	Status     string     `json:"status"` // borrowed, returned
}

// Open reports whether the book has not come back yet.
func (l Loan) Open() bool { return l.ReturnDate == nil }

// BookPatch is a partial update. Each field tells apart "absent" from "explicitly null".
type BookPatch struct {
	Title    Optional[string] `json:"title"`
	Author   Optional[string] `json:"author"`
	Category Optional[string] `json:"category"`
	Status   Optional[string] `json:"status"`
	Year     Optional[int]    `json:"year"`
}

// Empty reports whether the patch carries no fields at all.
func (p BookPatch) Empty() bool {
	return !p.Title.Set && !p.Author.Set && !p.Category.Set && !p.Status.Set && !p.Year.Set
}

// Apply merges the patch into b and returns the result. Null on a nullable field clears it;
// callers validate nulls on required fields before applying.
func (p BookPatch) Apply(b Book) Book {
	if p.Title.Present() {
		b.Title = p.Title.Value
	}
	if p.Author.Present() {
		b.Author = p.Author.Value
	}
	if p.Status.Present() {
		b.Status = p.Status.Value
	}
	if p.Category.Set {
		b.Category = p.Category.Ptr()
	}
	if p.Year.Set {
		b.Year = p.Year.Ptr()
	}
	return b
}
