package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/library-service/internal/config"
	"github.com/maxviazov/library-service/internal/model"
	"github.com/maxviazov/library-service/internal/repository"
	"github.com/maxviazov/library-service/internal/repository/memory"
)

var testPaging = config.PaginationConfig{DefaultLimit: 5, MaxLimit: 10}

func intp(v int) *int     { return &v }
func i64p(v int64) *int64 { return &v }

func newBookSvc(t *testing.T, n int) (*bookService, *memory.Store) {
	t.Helper()
	store := memory.New()
	for i := 1; i <= n; i++ {
		_, err := store.Books().Create(context.Background(), model.Book{Title: fmt.Sprintf("Book %d", i), Author: "Author"})
		require.NoError(t, err)
	}
	return NewBookService(store.Books(), testPaging, zerolog.Nop()).(*bookService), store
}

func ids(items []model.Book) []int64 { return bookIDsOf(items) }

func TestBookService_ListOffset_Defaults(t *testing.T) {
	svc, _ := newBookSvc(t, 7)
	page, err := svc.ListOffset(context.Background(), OffsetQuery{})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Limit)
	assert.Equal(t, 0, page.Offset)
	assert.Equal(t, 7, page.Total)
	assert.Equal(t, []int64{7, 6, 5, 4, 3}, ids(page.Items))
}

func TestBookService_ListOffset_SecondPageAndPastEnd(t *testing.T) {
	svc, _ := newBookSvc(t, 7)
	page, err := svc.ListOffset(context.Background(), OffsetQuery{Limit: intp(5), Offset: intp(5)})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids(page.Items))

	page, err = svc.ListOffset(context.Background(), OffsetQuery{Offset: intp(50)})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 7, page.Total)
}

func TestBookService_ListOffset_ClampsLimit(t *testing.T) {
	svc, _ := newBookSvc(t, 12)
	page, err := svc.ListOffset(context.Background(), OffsetQuery{Limit: intp(1000)})
	require.NoError(t, err)
	assert.Equal(t, 10, page.Limit)
	assert.Len(t, page.Items, 10)
}

func TestBookService_ListOffset_InvalidParams(t *testing.T) {
	svc, _ := newBookSvc(t, 1)
	_, err := svc.ListOffset(context.Background(), OffsetQuery{Limit: intp(0), Offset: intp(-1)})
	require.ErrorIs(t, err, ErrInvalidInput)
	fields := FieldErrors(err)
	require.Len(t, fields, 2)
	assert.Equal(t, "limit", fields[0].Field)
	assert.Equal(t, "offset", fields[1].Field)
}

func TestBookService_ListOffset_NoMatches(t *testing.T) {
	svc, _ := newBookSvc(t, 7)
	page, err := svc.ListOffset(context.Background(), OffsetQuery{Query: "nonexistent"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.Total)
}

func TestBookService_ListCursor_Walk(t *testing.T) {
	svc, _ := newBookSvc(t, 7)
	ctx := context.Background()

	page, err := svc.ListCursor(ctx, CursorQuery{Limit: intp(5)})
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 6, 5, 4, 3}, ids(page.Items))
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, int64(3), *page.NextCursor)

	page, err = svc.ListCursor(ctx, CursorQuery{LastID: page.NextCursor, Limit: intp(5)})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids(page.Items))
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, int64(1), *page.NextCursor)

	page, err = svc.ListCursor(ctx, CursorQuery{LastID: page.NextCursor, Limit: intp(5)})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.NextCursor)
}

func TestBookService_ListCursor_ZeroMeansStart(t *testing.T) {
	svc, _ := newBookSvc(t, 3)
	page, err := svc.ListCursor(context.Background(), CursorQuery{LastID: i64p(0)})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, ids(page.Items))
}

func TestBookService_ListCursor_NegativeLastID(t *testing.T) {
	svc, _ := newBookSvc(t, 3)
	_, err := svc.ListCursor(context.Background(), CursorQuery{LastID: i64p(-4)})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "last_id", FieldErrors(err)[0].Field)
}

func TestBookService_ListLogsIDs(t *testing.T) {
	var buf bytes.Buffer
	store := memory.New()
	for i := 0; i < 3; i++ {
		_, err := store.Books().Create(context.Background(), model.Book{Title: "t", Author: "a"})
		require.NoError(t, err)
	}
	svc := NewBookService(store.Books(), testPaging, zerolog.New(&buf))

	_, err := svc.ListOffset(context.Background(), OffsetQuery{Limit: intp(2)})
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "offset", entry["mode"])
	assert.Equal(t, "book", entry["component"])
	assert.Equal(t, []any{float64(3), float64(2)}, entry["ids"])
}

func TestBookService_CreateBook_Validation(t *testing.T) {
	svc, _ := newBookSvc(t, 0)
	year := -3
	_, _, err := svc.CreateBook(context.Background(), BookInput{Title: "  ", Author: "", Status: "lost", Year: &year}, "")
	require.ErrorIs(t, err, ErrInvalidInput)

	var fields []string
	for _, fe := range FieldErrors(err) {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"title", "author", "status", "year"}, fields)
}

func TestBookService_CreateBook_Normalizes(t *testing.T) {
	svc, _ := newBookSvc(t, 0)
	blank := "   "
	b, created, err := svc.CreateBook(context.Background(), BookInput{Title: " Dune ", Author: " Frank Herbert ", Category: &blank}, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, "Frank Herbert", b.Author)
	assert.Nil(t, b.Category)
	assert.Equal(t, model.BookAvailable, b.Status)
}

func TestBookService_CreateBook_Idempotent(t *testing.T) {
	svc, store := newBookSvc(t, 0)
	ctx := context.Background()
	in := BookInput{Title: "Dune", Author: "Frank Herbert"}

	first, created, err := svc.CreateBook(ctx, in, "key-1")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := svc.CreateBook(ctx, BookInput{Title: "Other", Author: "Body"}, "key-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Dune", again.Title)

	res, err := store.Books().ListOffset(ctx, repository.Filter{}, repository.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)

	// once the original is gone the key creates again
	require.NoError(t, svc.DeleteBook(ctx, first.ID))
	third, created, err := svc.CreateBook(ctx, in, "key-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Greater(t, third.ID, first.ID)
}

func TestBookService_CreateBook_KeyTooLong(t *testing.T) {
	svc, _ := newBookSvc(t, 0)
	_, _, err := svc.CreateBook(context.Background(), BookInput{Title: "a", Author: "b"}, strings.Repeat("k", 256))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestBookService_ReplaceBook(t *testing.T) {
	svc, _ := newBookSvc(t, 1)
	ctx := context.Background()
	cat := "Sci-Fi"
	out, err := svc.ReplaceBook(ctx, 1, BookInput{Title: "New", Author: "Writer", Category: &cat, Status: "BORROWED"})
	require.NoError(t, err)
	assert.Equal(t, "New", out.Title)
	assert.Equal(t, model.BookBorrowed, out.Status)
	require.NotNil(t, out.Category)
	assert.Equal(t, "Sci-Fi", *out.Category)

	_, err = svc.ReplaceBook(ctx, 99, BookInput{Title: "x", Author: "y"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.ReplaceBook(ctx, 0, BookInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBookService_PatchBook(t *testing.T) {
	svc, store := newBookSvc(t, 0)
	ctx := context.Background()
	cat := "Fantasy"
	year := 1937
	created, err := store.Books().Create(ctx, model.Book{Title: "The Hobbit", Author: "Tolkien", Category: &cat, Year: &year})
	require.NoError(t, err)

	out, err := svc.PatchBook(ctx, created.ID, model.BookPatch{Category: model.Null[string](), Status: model.Some("borrowed")})
	require.NoError(t, err)
	assert.Equal(t, "The Hobbit", out.Title)
	assert.Nil(t, out.Category)
	require.NotNil(t, out.Year)
	assert.Equal(t, 1937, *out.Year)
	assert.Equal(t, model.BookBorrowed, out.Status)
}

func TestBookService_PatchBook_Rejects(t *testing.T) {
	svc, _ := newBookSvc(t, 1)
	ctx := context.Background()

	_, err := svc.PatchBook(ctx, 1, model.BookPatch{})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "body", FieldErrors(err)[0].Field)

	_, err = svc.PatchBook(ctx, 1, model.BookPatch{Title: model.Null[string](), Status: model.Some("lost")})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Len(t, FieldErrors(err), 2)

	_, err = svc.PatchBook(ctx, 42, model.BookPatch{Title: model.Some("x")})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBookService_DeleteBook(t *testing.T) {
	svc, _ := newBookSvc(t, 2)
	ctx := context.Background()
	require.NoError(t, svc.DeleteBook(ctx, 2))
	assert.ErrorIs(t, svc.DeleteBook(ctx, 2), repository.ErrNotFound)
	_, err := svc.GetBook(ctx, 2)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBookService_DeleteBookOnLoan(t *testing.T) {
	svc, store := newBookSvc(t, 1)
	ctx := context.Background()
	m, err := store.Members().Create(ctx, model.Member{Name: "M", Email: "m@example.com"})
	require.NoError(t, err)
	loan, err := store.Loans().Borrow(ctx, 1, m.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteBook(ctx, 1), repository.ErrConflict)

	_, err = store.Loans().Return(ctx, loan.ID)
	require.NoError(t, err)
	assert.NoError(t, svc.DeleteBook(ctx, 1))
}

func TestBookService_SimulateAdd(t *testing.T) {
	svc, _ := newBookSvc(t, 7)
	svc.now = func() time.Time { return time.Date(2025, 10, 1, 9, 4, 5, 0, time.UTC) }

	b, err := svc.SimulateAdd(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(8), b.ID)
	assert.Equal(t, "NEW BOOK 09:04:05", b.Title)
	assert.Equal(t, "Dynamic Author", b.Author)
}

// The page-one boundary row shows up again on page two after a concurrent insert.
func TestBookService_OffsetDriftAfterInsert(t *testing.T) {
	svc, _ := newBookSvc(t, 7)
	ctx := context.Background()

	first, err := svc.ListOffset(ctx, OffsetQuery{})
	require.NoError(t, err)
	_, err = svc.SimulateAdd(ctx)
	require.NoError(t, err)
	second, err := svc.ListOffset(ctx, OffsetQuery{Offset: intp(5)})
	require.NoError(t, err)

	assert.Equal(t, []int64{7, 6, 5, 4, 3}, ids(first.Items))
	assert.Equal(t, []int64{3, 2, 1}, ids(second.Items))
}

func TestFieldErrors_NonValidationError(t *testing.T) {
	assert.Nil(t, FieldErrors(nil))
	assert.Nil(t, FieldErrors(errors.New("other")))
	assert.NoError(t, NewInvalidInputError(nil))
	wrapped := fmt.Errorf("ctx: %w", NewInvalidInputError([]FieldError{{Field: "x", Message: "y"}}))
	assert.Len(t, FieldErrors(wrapped), 1)
}
