package repository

import (
	"context"

	"github.com/maxviazov/library-service/internal/model"
)

// Pinger represents a minimal readiness check capability.
// I use it to decouple health checks from storage implementation details.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BookMutation receives the current row and returns the row to persist.
// Returning an error aborts the update and leaves the row untouched.
type BookMutation func(current model.Book) (model.Book, error)

// BookRepository declares persistence operations for books.
// Implementations must hand out strictly increasing ids and never reuse them.
type BookRepository interface {
	Create(ctx context.Context, b model.Book) (model.Book, error)
	GetByID(ctx context.Context, id int64) (model.Book, error)
	// Update applies fn to the stored row atomically; ErrNotFound if the id is unknown.
	Update(ctx context.Context, id int64, fn BookMutation) (model.Book, error)
	// Delete removes the book and its closed loans. ErrConflict while a loan is still open.
	Delete(ctx context.Context, id int64) error
	// ListOffset orders by id descending, skips p.Offset rows and takes p.Limit.
	ListOffset(ctx context.Context, f Filter, p Page) (PageResult[model.Book], error)
	// ListCursor orders by id descending and returns rows with id < c.LastID.
	ListCursor(ctx context.Context, f Filter, c Cursor) (CursorResult[model.Book], error)
}

// MemberRepository declares persistence operations for members.
type MemberRepository interface {
	Create(ctx context.Context, m model.Member) (model.Member, error)
	GetByID(ctx context.Context, id int64) (model.Member, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// LoanRepository declares persistence operations for loans.
type LoanRepository interface {
	// Create stores a loan record as given; it does not touch the book. Used for imports and seeding.
	Create(ctx context.Context, l model.Loan) (model.Loan, error)
	// Borrow opens a loan and marks the book borrowed in one step.
	// ErrNotFound when the book or member is unknown, ErrConflict when the book is not available.
	Borrow(ctx context.Context, bookID, memberID int64) (model.Loan, error)
	// Return closes an open loan and makes its book available again.
	// A loan that is already closed is returned unchanged.
	Return(ctx context.Context, loanID int64) (model.Loan, error)
	// ListByMember returns the member's loans newest first. Unknown members yield an empty page.
	ListByMember(ctx context.Context, memberID int64, p Page) (PageResult[model.Loan], error)
}

// Store bundles the repositories of one backend so the application owns a single handle.
type Store interface {
	Pinger
	Books() BookRepository
	Members() MemberRepository
	Loans() LoanRepository
	Close() error
}
