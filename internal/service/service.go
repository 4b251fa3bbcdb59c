// Package service holds business logic orchestration across repositories and handlers.
// Kept intentionally lean: only use-case coordination, validation and domain error shaping.
package service

import (
	"context"
	"errors"

	"github.com/maxviazov/library-service/internal/model"
)

// ErrInvalidInput is the marker error for aggregated validation failures (maps to HTTP 400).
// Field-level details are retrieved via FieldErrors(err).
var ErrInvalidInput = errors.New("invalid input")

// FieldError describes a single invalid field in a client request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// invalidInputError aggregates multiple FieldError instances and unwraps to ErrInvalidInput.
type invalidInputError struct {
	fields []FieldError
}

func (e *invalidInputError) Error() string        { return ErrInvalidInput.Error() }
func (e *invalidInputError) Unwrap() error        { return ErrInvalidInput }
func (e *invalidInputError) Fields() []FieldError { return e.fields }

// NewInvalidInputError builds an aggregated validation error if any field errors are present.
// Handlers use it for transport-level problems such as non-numeric query parameters.
func NewInvalidInputError(fe []FieldError) error {
	if len(fe) == 0 { // protective case
		return nil
	}
	return &invalidInputError{fields: fe}
}

func newInvalidInput(fe []FieldError) error { return NewInvalidInputError(fe) }

// FieldErrors extracts field errors from an aggregated validation error.
func FieldErrors(err error) []FieldError {
	if err == nil {
		return nil
	}
	var v interface{ Fields() []FieldError }
	if errors.As(err, &v) && errors.Is(err, ErrInvalidInput) {
		return v.Fields()
	}
	return nil
}

// OffsetQuery carries offset-mode listing parameters. Nil pointers mean "not supplied".
type OffsetQuery struct {
	Query  string
	Limit  *int
	Offset *int
}

// CursorQuery carries cursor-mode listing parameters. A nil or zero LastID starts from the newest record.
type CursorQuery struct {
	Query  string
	LastID *int64
	Limit  *int
}

// OffsetPage is one offset-mode page after normalization.
type OffsetPage[T any] struct {
	Limit  int
	Offset int
	Total  int
	Items  []T
}

// CursorPage is one keyset page. NextCursor is nil once the page is empty.
type CursorPage[T any] struct {
	Limit      int
	NextCursor *int64
	Items      []T
}

// BookInput is the writable part of a book used by create and full replace.
type BookInput struct {
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Category *string `json:"category"`
	Status   string  `json:"status"`
	Year     *int    `json:"year"`
}

// BookService defines book listing and CRUD use cases.
type BookService interface {
	ListOffset(ctx context.Context, q OffsetQuery) (OffsetPage[model.Book], error)
	ListCursor(ctx context.Context, q CursorQuery) (CursorPage[model.Book], error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	// CreateBook reports created=false when idempotencyKey matched an earlier create.
	CreateBook(ctx context.Context, in BookInput, idempotencyKey string) (book model.Book, created bool, err error)
	ReplaceBook(ctx context.Context, id int64, in BookInput) (model.Book, error)
	PatchBook(ctx context.Context, id int64, patch model.BookPatch) (model.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	// SimulateAdd inserts a timestamped demo book to show offset drift between page requests.
	SimulateAdd(ctx context.Context) (model.Book, error)
}

// BorrowInput names the book a member takes out.
type BorrowInput struct {
	BookID   int64 `json:"book_id"`
	MemberID int64 `json:"member_id"`
}

// LoanService defines member loan use cases.
type LoanService interface {
	ListMemberLoans(ctx context.Context, memberID int64, q OffsetQuery) (OffsetPage[model.Loan], error)
	// BorrowBook opens a loan; the book must be available.
	BorrowBook(ctx context.Context, in BorrowInput) (model.Loan, error)
	// ReturnLoan closes a loan. Returning twice is harmless and yields the closed loan.
	ReturnLoan(ctx context.Context, loanID int64) (model.Loan, error)
}
