package contract

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/maxviazov/library-service/internal/model"
	"github.com/maxviazov/library-service/internal/repository"
)

// StoreFactory hands a suite an empty store plus a cleanup func.
// Every backend (memory, sqlite, postgres) runs the same suites through it.
type StoreFactory func(t *testing.T) (repository.Store, func())

func strPtr(s string) *string { return &s }

// seedBooks inserts n books titled "Book-1".."Book-n" and returns their ids in insert order.
func seedBooks(t *testing.T, repo repository.BookRepository, n int) []int64 {
	t.Helper()
	ctx := context.Background()
	ids := make([]int64, 0, n)
	for i := 1; i <= n; i++ {
		b, err := repo.Create(ctx, model.Book{Title: fmt.Sprintf("Book-%d", i), Author: "Author"})
		if err != nil {
			t.Fatalf("seed book %d: %v", i, err)
		}
		ids = append(ids, b.ID)
	}
	return ids
}

func bookIDs(items []model.Book) []int64 {
	out := make([]int64, 0, len(items))
	for _, b := range items {
		out = append(out, b.ID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// reversed returns ids[from..to] (inclusive, 0-based) newest first.
func reversed(ids []int64, from, to int) []int64 {
	out := make([]int64, 0, to-from+1)
	for i := to; i >= from; i-- {
		out = append(out, ids[i])
	}
	return out
}

func RunBookRepositoryContract(t *testing.T, makeStore StoreFactory) {
	t.Helper()

	t.Run("create_and_get", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		year := 1937
		created, err := store.Books().Create(ctx, model.Book{
			Title: "The Hobbit", Author: "J.R.R. Tolkien", Category: strPtr("Fantasy"), Year: &year,
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if created.ID <= 0 {
			t.Fatalf("expected positive id, got %d", created.ID)
		}
		if created.Status != model.BookAvailable {
			t.Fatalf("expected default status %q, got %q", model.BookAvailable, created.Status)
		}
		got, err := store.Books().GetByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Title != "The Hobbit" || got.Author != "J.R.R. Tolkien" {
			t.Fatalf("mismatch: %+v", got)
		}
		if got.Category == nil || *got.Category != "Fantasy" || got.Year == nil || *got.Year != 1937 {
			t.Fatalf("optional fields lost: %+v", got)
		}
	})

	t.Run("get_not_found", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		_, err := store.Books().GetByID(context.Background(), 999999)
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("offset_pages", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		ids := seedBooks(t, store.Books(), 7)

		res, err := store.Books().ListOffset(ctx, repository.Filter{}, repository.Page{Limit: 5, Offset: 0})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if res.Total != 7 || !equalIDs(bookIDs(res.Items), reversed(ids, 2, 6)) {
			t.Fatalf("unexpected first page: total=%d ids=%v", res.Total, bookIDs(res.Items))
		}

		res, err = store.Books().ListOffset(ctx, repository.Filter{}, repository.Page{Limit: 5, Offset: 5})
		if err != nil {
			t.Fatalf("list2: %v", err)
		}
		if res.Total != 7 || !equalIDs(bookIDs(res.Items), reversed(ids, 0, 1)) {
			t.Fatalf("unexpected second page: total=%d ids=%v", res.Total, bookIDs(res.Items))
		}

		res, err = store.Books().ListOffset(ctx, repository.Filter{}, repository.Page{Limit: 5, Offset: 100})
		if err != nil {
			t.Fatalf("list3: %v", err)
		}
		if res.Total != 7 || len(res.Items) != 0 || res.Items == nil {
			t.Fatalf("past the end should be an empty non-nil page with total: total=%d items=%v", res.Total, res.Items)
		}
	})

	t.Run("offset_filter", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		seedBooks(t, store.Books(), 3)
		if _, err := store.Books().Create(ctx, model.Book{Title: "1984", Author: "George Orwell"}); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := store.Books().Create(ctx, model.Book{Title: "100%_pure", Author: "Nobody"}); err != nil {
			t.Fatalf("create: %v", err)
		}

		res, err := store.Books().ListOffset(ctx, repository.Filter{Query: "  ORWELL "}, repository.Page{Limit: 5})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if res.Total != 1 || len(res.Items) != 1 || res.Items[0].Title != "1984" {
			t.Fatalf("author match failed: %+v", res)
		}

		res, err = store.Books().ListOffset(ctx, repository.Filter{Query: "%_"}, repository.Page{Limit: 5})
		if err != nil {
			t.Fatalf("list wildcard: %v", err)
		}
		if res.Total != 1 || res.Items[0].Title != "100%_pure" {
			t.Fatalf("wildcards must match literally: %+v", res)
		}

		res, err = store.Books().ListOffset(ctx, repository.Filter{Query: "nonexistent"}, repository.Page{Limit: 5})
		if err != nil {
			t.Fatalf("list none: %v", err)
		}
		if res.Total != 0 || len(res.Items) != 0 {
			t.Fatalf("expected empty result: %+v", res)
		}
	})

	t.Run("cursor_walk", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		ids := seedBooks(t, store.Books(), 7)

		res, err := store.Books().ListCursor(ctx, repository.Filter{}, repository.Cursor{Limit: 5})
		if err != nil {
			t.Fatalf("cursor: %v", err)
		}
		if !equalIDs(bookIDs(res.Items), reversed(ids, 2, 6)) || res.NextCursor == nil || *res.NextCursor != ids[2] {
			t.Fatalf("unexpected first cursor page: %v next=%v", bookIDs(res.Items), res.NextCursor)
		}

		res, err = store.Books().ListCursor(ctx, repository.Filter{}, repository.Cursor{LastID: *res.NextCursor, Limit: 5})
		if err != nil {
			t.Fatalf("cursor2: %v", err)
		}
		if !equalIDs(bookIDs(res.Items), reversed(ids, 0, 1)) || res.NextCursor == nil || *res.NextCursor != ids[0] {
			t.Fatalf("unexpected second cursor page: %v next=%v", bookIDs(res.Items), res.NextCursor)
		}

		res, err = store.Books().ListCursor(ctx, repository.Filter{}, repository.Cursor{LastID: *res.NextCursor, Limit: 5})
		if err != nil {
			t.Fatalf("cursor3: %v", err)
		}
		if len(res.Items) != 0 || res.Items == nil || res.NextCursor != nil {
			t.Fatalf("expected exhausted cursor, got %v next=%v", bookIDs(res.Items), res.NextCursor)
		}
	})

	t.Run("cursor_filter", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		var matchIDs []int64
		for i := 1; i <= 3; i++ {
			m, err := store.Books().Create(ctx, model.Book{Title: fmt.Sprintf("Match-%d", i), Author: "Author"})
			if err != nil {
				t.Fatalf("create match: %v", err)
			}
			matchIDs = append(matchIDs, m.ID)
			if _, err := store.Books().Create(ctx, model.Book{Title: fmt.Sprintf("Other-%d", i), Author: "Author"}); err != nil {
				t.Fatalf("create other: %v", err)
			}
		}
		f := repository.Filter{Query: "MATCH"}

		res, err := store.Books().ListCursor(ctx, f, repository.Cursor{Limit: 2})
		if err != nil {
			t.Fatalf("cursor: %v", err)
		}
		if !equalIDs(bookIDs(res.Items), []int64{matchIDs[2], matchIDs[1]}) || res.NextCursor == nil || *res.NextCursor != matchIDs[1] {
			t.Fatalf("non-matching rows leaked into first page: %v next=%v", bookIDs(res.Items), res.NextCursor)
		}

		res, err = store.Books().ListCursor(ctx, f, repository.Cursor{LastID: *res.NextCursor, Limit: 2})
		if err != nil {
			t.Fatalf("cursor2: %v", err)
		}
		if !equalIDs(bookIDs(res.Items), []int64{matchIDs[0]}) || res.NextCursor == nil || *res.NextCursor != matchIDs[0] {
			t.Fatalf("unexpected second filtered page: %v next=%v", bookIDs(res.Items), res.NextCursor)
		}

		res, err = store.Books().ListCursor(ctx, f, repository.Cursor{LastID: *res.NextCursor, Limit: 2})
		if err != nil {
			t.Fatalf("cursor3: %v", err)
		}
		if len(res.Items) != 0 || res.NextCursor != nil {
			t.Fatalf("filtered walk should end empty, got %v next=%v", bookIDs(res.Items), res.NextCursor)
		}

		res, err = store.Books().ListCursor(ctx, repository.Filter{Query: "nonexistent"}, repository.Cursor{Limit: 5})
		if err != nil {
			t.Fatalf("cursor none: %v", err)
		}
		if len(res.Items) != 0 || res.Items == nil || res.NextCursor != nil {
			t.Fatalf("expected empty non-nil page without cursor: %v next=%v", res.Items, res.NextCursor)
		}
	})

	t.Run("filter_unicode_case", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		seedBooks(t, store.Books(), 2)
		dac, err := store.Books().Create(ctx, model.Book{Title: "Đắc Nhân Tâm", Author: "Dale Carnegie"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		germinal, err := store.Books().Create(ctx, model.Book{Title: "Germinal", Author: "Émile Zola"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		cases := []struct {
			q    string
			want int64
		}{
			{"đắc", dac.ID},
			{"ĐẮC NHÂN", dac.ID},
			{"émile", germinal.ID},
		}
		for _, tc := range cases {
			f := repository.Filter{Query: tc.q}
			res, err := store.Books().ListOffset(ctx, f, repository.Page{Limit: 5})
			if err != nil {
				t.Fatalf("offset %q: %v", tc.q, err)
			}
			if res.Total != 1 || len(res.Items) != 1 || res.Items[0].ID != tc.want {
				t.Fatalf("offset %q: total=%d ids=%v", tc.q, res.Total, bookIDs(res.Items))
			}
			cur, err := store.Books().ListCursor(ctx, f, repository.Cursor{Limit: 5})
			if err != nil {
				t.Fatalf("cursor %q: %v", tc.q, err)
			}
			if !equalIDs(bookIDs(cur.Items), []int64{tc.want}) {
				t.Fatalf("cursor %q: ids=%v", tc.q, bookIDs(cur.Items))
			}
		}
	})

	t.Run("cursor_stable_under_insert", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		ids := seedBooks(t, store.Books(), 7)

		first, err := store.Books().ListCursor(ctx, repository.Filter{}, repository.Cursor{Limit: 5})
		if err != nil {
			t.Fatalf("cursor: %v", err)
		}
		seedBooks(t, store.Books(), 2)
		second, err := store.Books().ListCursor(ctx, repository.Filter{}, repository.Cursor{LastID: *first.NextCursor, Limit: 5})
		if err != nil {
			t.Fatalf("cursor2: %v", err)
		}
		if !equalIDs(bookIDs(second.Items), reversed(ids, 0, 1)) {
			t.Fatalf("new rows leaked into a later page: %v", bookIDs(second.Items))
		}
	})

	t.Run("offset_shifts_under_insert", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		ids := seedBooks(t, store.Books(), 7)

		if _, err := store.Books().ListOffset(ctx, repository.Filter{}, repository.Page{Limit: 5}); err != nil {
			t.Fatalf("list: %v", err)
		}
		seedBooks(t, store.Books(), 1)
		second, err := store.Books().ListOffset(ctx, repository.Filter{}, repository.Page{Limit: 5, Offset: 5})
		if err != nil {
			t.Fatalf("list2: %v", err)
		}
		// ids[2] was the last item of page one and comes around again
		want := []int64{ids[2], ids[1], ids[0]}
		if second.Total != 8 || !equalIDs(bookIDs(second.Items), want) {
			t.Fatalf("expected repeated boundary row: total=%d ids=%v", second.Total, bookIDs(second.Items))
		}
	})

	t.Run("update_atomic", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		created, err := store.Books().Create(ctx, model.Book{Title: "Draft", Author: "Anon", Category: strPtr("Misc")})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		updated, err := store.Books().Update(ctx, created.ID, func(cur model.Book) (model.Book, error) {
			cur.Title = "Final"
			cur.Category = nil
			cur.Status = model.BookBorrowed
			return cur, nil
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.ID != created.ID || updated.Title != "Final" || updated.Category != nil || updated.Status != model.BookBorrowed {
			t.Fatalf("unexpected update result: %+v", updated)
		}
		if updated.UpdatedAt.Before(created.UpdatedAt) {
			t.Fatalf("updated_at went backwards: %v < %v", updated.UpdatedAt, created.UpdatedAt)
		}
		got, err := store.Books().GetByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Title != "Final" || got.Category != nil {
			t.Fatalf("update not persisted: %+v", got)
		}
	})

	t.Run("update_aborts_on_error", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		created, err := store.Books().Create(ctx, model.Book{Title: "Keep", Author: "Me"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		boom := errors.New("boom")
		_, err = store.Books().Update(ctx, created.ID, func(cur model.Book) (model.Book, error) {
			cur.Title = "Lost"
			return cur, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected mutation error, got %v", err)
		}
		got, _ := store.Books().GetByID(ctx, created.ID)
		if got.Title != "Keep" {
			t.Fatalf("failed mutation leaked: %+v", got)
		}
	})

	t.Run("update_not_found", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		_, err := store.Books().Update(context.Background(), 424242, func(cur model.Book) (model.Book, error) { return cur, nil })
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete_never_reuses_ids", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		ids := seedBooks(t, store.Books(), 3)
		if err := store.Books().Delete(ctx, ids[2]); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := store.Books().Delete(ctx, ids[2]); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("second delete should be ErrNotFound, got %v", err)
		}
		next, err := store.Books().Create(ctx, model.Book{Title: "After", Author: "Delete"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if next.ID <= ids[2] {
			t.Fatalf("id %d reused or went backwards (deleted %d)", next.ID, ids[2])
		}
	})
	t.Run("delete_blocked_by_open_loan", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		ids := seedBooks(t, store.Books(), 1)
		m, err := store.Members().Create(ctx, model.Member{Name: "M", Email: "m@example.com"})
		if err != nil {
			t.Fatalf("member: %v", err)
		}
		loan, err := store.Loans().Borrow(ctx, ids[0], m.ID)
		if err != nil {
			t.Fatalf("borrow: %v", err)
		}
		if err := store.Books().Delete(ctx, ids[0]); !errors.Is(err, repository.ErrConflict) {
			t.Fatalf("expected ErrConflict while on loan, got %v", err)
		}
		if _, err := store.Books().GetByID(ctx, ids[0]); err != nil {
			t.Fatalf("book must survive a refused delete: %v", err)
		}
		if _, err := store.Loans().Return(ctx, loan.ID); err != nil {
			t.Fatalf("return: %v", err)
		}
		if err := store.Books().Delete(ctx, ids[0]); err != nil {
			t.Fatalf("delete after return: %v", err)
		}
		res, err := store.Loans().ListByMember(ctx, m.ID, repository.Page{Limit: 5})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if res.Total != 0 {
			t.Fatalf("closed loans should go with the book: %+v", res)
		}
	})
}

func RunMemberRepositoryContract(t *testing.T, makeStore StoreFactory) {
	t.Helper()

	t.Run("create_get_exists", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		m, err := store.Members().Create(ctx, model.Member{Name: "Nguyễn Văn A", Email: "vana@example.com"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := store.Members().GetByID(ctx, m.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Name != "Nguyễn Văn A" || got.Email != "vana@example.com" {
			t.Fatalf("mismatch: %+v", got)
		}
		ok, err := store.Members().Exists(ctx, m.ID)
		if err != nil || !ok {
			t.Fatalf("exists: ok=%v err=%v", ok, err)
		}
		ok, err = store.Members().Exists(ctx, m.ID+100)
		if err != nil || ok {
			t.Fatalf("missing member reported: ok=%v err=%v", ok, err)
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		if _, err := store.Members().Create(ctx, model.Member{Name: "A", Email: "dup@example.com"}); err != nil {
			t.Fatalf("create: %v", err)
		}
		_, err := store.Members().Create(ctx, model.Member{Name: "B", Email: "dup@example.com"})
		if !errors.Is(err, repository.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("get_not_found", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		_, err := store.Members().GetByID(context.Background(), 999999)
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func RunLoanRepositoryContract(t *testing.T, makeStore StoreFactory) {
	t.Helper()

	t.Run("list_by_member", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		books := seedBooks(t, store.Books(), 3)
		a, err := store.Members().Create(ctx, model.Member{Name: "A", Email: "a@example.com"})
		if err != nil {
			t.Fatalf("member: %v", err)
		}
		b, err := store.Members().Create(ctx, model.Member{Name: "B", Email: "b@example.com"})
		if err != nil {
			t.Fatalf("member: %v", err)
		}
		day := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
		ret := day.Add(72 * time.Hour)
		seed := []model.Loan{
			{BookID: books[0], MemberID: a.ID, BorrowDate: day, ReturnDate: &ret, Status: model.LoanReturned},
			{BookID: books[1], MemberID: a.ID, BorrowDate: day.AddDate(0, 0, 4)},
			{BookID: books[2], MemberID: b.ID, BorrowDate: day.AddDate(0, 0, 9)},
		}
		var loanIDs []int64
		for _, l := range seed {
			created, err := store.Loans().Create(ctx, l)
			if err != nil {
				t.Fatalf("loan: %v", err)
			}
			loanIDs = append(loanIDs, created.ID)
		}

		res, err := store.Loans().ListByMember(ctx, a.ID, repository.Page{Limit: 5})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if res.Total != 2 || len(res.Items) != 2 {
			t.Fatalf("unexpected loans page: %+v", res)
		}
		if res.Items[0].ID != loanIDs[1] || res.Items[1].ID != loanIDs[0] {
			t.Fatalf("loans should be newest first: %+v", res.Items)
		}
		if res.Items[0].Status != model.LoanBorrowed || res.Items[0].ReturnDate != nil {
			t.Fatalf("default loan status lost: %+v", res.Items[0])
		}
		if res.Items[1].ReturnDate == nil || !res.Items[1].ReturnDate.Equal(ret) {
			t.Fatalf("return date lost: %+v", res.Items[1])
		}

		res, err = store.Loans().ListByMember(ctx, a.ID, repository.Page{Limit: 1, Offset: 1})
		if err != nil {
			t.Fatalf("list2: %v", err)
		}
		if res.Total != 2 || len(res.Items) != 1 || res.Items[0].ID != loanIDs[0] {
			t.Fatalf("unexpected second loans page: %+v", res)
		}

		res, err = store.Loans().ListByMember(ctx, 999999, repository.Page{Limit: 5})
		if err != nil {
			t.Fatalf("list unknown: %v", err)
		}
		if res.Total != 0 || len(res.Items) != 0 {
			t.Fatalf("unknown member should have no loans: %+v", res)
		}
	})

	t.Run("borrow_and_return", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		ids := seedBooks(t, store.Books(), 1)
		m, err := store.Members().Create(ctx, model.Member{Name: "M", Email: "m@example.com"})
		if err != nil {
			t.Fatalf("member: %v", err)
		}

		loan, err := store.Loans().Borrow(ctx, ids[0], m.ID)
		if err != nil {
			t.Fatalf("borrow: %v", err)
		}
		if loan.ID == 0 || loan.BookID != ids[0] || loan.MemberID != m.ID || loan.Status != model.LoanBorrowed || !loan.Open() {
			t.Fatalf("unexpected loan: %+v", loan)
		}
		book, _ := store.Books().GetByID(ctx, ids[0])
		if book.Status != model.BookBorrowed {
			t.Fatalf("book should be borrowed, got %q", book.Status)
		}
		if _, err := store.Loans().Borrow(ctx, ids[0], m.ID); !errors.Is(err, repository.ErrConflict) {
			t.Fatalf("second borrow should be ErrConflict, got %v", err)
		}

		returned, err := store.Loans().Return(ctx, loan.ID)
		if err != nil {
			t.Fatalf("return: %v", err)
		}
		if returned.ID != loan.ID || returned.Status != model.LoanReturned || returned.Open() {
			t.Fatalf("unexpected returned loan: %+v", returned)
		}
		book, _ = store.Books().GetByID(ctx, ids[0])
		if book.Status != model.BookAvailable {
			t.Fatalf("book should be available again, got %q", book.Status)
		}

		again, err := store.Loans().Return(ctx, loan.ID)
		if err != nil {
			t.Fatalf("second return: %v", err)
		}
		if again.Open() || !again.ReturnDate.Equal(*returned.ReturnDate) {
			t.Fatalf("second return must leave the loan as it was: %+v vs %+v", again, returned)
		}

		if _, err := store.Loans().Borrow(ctx, ids[0], m.ID); err != nil {
			t.Fatalf("borrow after return: %v", err)
		}
	})

	t.Run("borrow_unknown_refs", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		ids := seedBooks(t, store.Books(), 1)
		m, err := store.Members().Create(ctx, model.Member{Name: "M", Email: "m@example.com"})
		if err != nil {
			t.Fatalf("member: %v", err)
		}
		if _, err := store.Loans().Borrow(ctx, 999999, m.ID); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("unknown book: expected ErrNotFound, got %v", err)
		}
		if _, err := store.Loans().Borrow(ctx, ids[0], 999999); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("unknown member: expected ErrNotFound, got %v", err)
		}
		book, _ := store.Books().GetByID(ctx, ids[0])
		if book.Status != model.BookAvailable {
			t.Fatalf("failed borrow must not leave the book borrowed: %q", book.Status)
		}
		if _, err := store.Loans().Return(ctx, 999999); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("unknown loan: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unknown_references", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		_, err := store.Loans().Create(context.Background(), model.Loan{BookID: 999, MemberID: 999})
		if !errors.Is(err, repository.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})
}

func RunPingerContract(t *testing.T, makeStore StoreFactory) {
	t.Helper()
	t.Run("ping_ok", func(t *testing.T) {
		store, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			t.Fatalf("ping failed: %v", err)
		}
	})
}
