package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/library-service/internal/model"
	"github.com/maxviazov/library-service/internal/repository"
	"github.com/maxviazov/library-service/internal/repository/memory"
)

func TestLoanService_ListMemberLoans(t *testing.T) {
	store := memory.New()
	_, err := Seed(context.Background(), store, zerolog.Nop())
	require.NoError(t, err)
	svc := NewLoanService(store.Loans(), testPaging, zerolog.Nop())

	page, err := svc.ListMemberLoans(context.Background(), 1, OffsetQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Items[0].ID)
	assert.Equal(t, int64(1), page.Items[1].ID)

	page, err = svc.ListMemberLoans(context.Background(), 1, OffsetQuery{Limit: intp(1), Offset: intp(1)})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Items[0].ID)
}

func TestLoanService_UnknownMemberIsEmpty(t *testing.T) {
	store := memory.New()
	svc := NewLoanService(store.Loans(), testPaging, zerolog.Nop())
	page, err := svc.ListMemberLoans(context.Background(), 77, OffsetQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Items)
}

func TestLoanService_InvalidMemberID(t *testing.T) {
	svc := NewLoanService(memory.New().Loans(), testPaging, zerolog.Nop())
	_, err := svc.ListMemberLoans(context.Background(), 0, OffsetQuery{Limit: intp(-1)})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Len(t, FieldErrors(err), 2)
}

func TestLoanService_BorrowAndReturn(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := Seed(ctx, store, zerolog.Nop())
	require.NoError(t, err)
	svc := NewLoanService(store.Loans(), testPaging, zerolog.Nop())

	// book 4 ("1984") is on the shelf in the demo data
	loan, err := svc.BorrowBook(ctx, BorrowInput{BookID: 4, MemberID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), loan.ID)
	assert.Equal(t, model.LoanBorrowed, loan.Status)
	assert.Nil(t, loan.ReturnDate)

	book, err := store.Books().GetByID(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, model.BookBorrowed, book.Status)

	_, err = svc.BorrowBook(ctx, BorrowInput{BookID: 4, MemberID: 1})
	assert.ErrorIs(t, err, repository.ErrConflict)

	back, err := svc.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanReturned, back.Status)
	require.NotNil(t, back.ReturnDate)

	again, err := svc.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, *back.ReturnDate, *again.ReturnDate)

	book, err = store.Books().GetByID(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, model.BookAvailable, book.Status)
}

func TestLoanService_BorrowValidation(t *testing.T) {
	svc := NewLoanService(memory.New().Loans(), testPaging, zerolog.Nop())

	_, err := svc.BorrowBook(context.Background(), BorrowInput{})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Len(t, FieldErrors(err), 2)

	_, err = svc.BorrowBook(context.Background(), BorrowInput{BookID: 9, MemberID: 9})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.ReturnLoan(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.ReturnLoan(context.Background(), 9)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
