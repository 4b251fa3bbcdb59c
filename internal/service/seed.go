package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxviazov/library-service/internal/model"
	"github.com/maxviazov/library-service/internal/repository"
)

func strp(s string) *string { return &s }

// demoBooks is the starter catalog, inserted oldest first so ids ascend in this order.
var demoBooks = []model.Book{
	{Title: "Dế Mèn Phiêu Lưu Ký", Author: "Tô Hoài", Category: strp("Thiếu nhi"), Status: model.BookAvailable},
	{Title: "O Chuột", Author: "Tô Hoài", Category: strp("Văn học"), Status: model.BookBorrowed},
	{Title: "Harry Potter", Author: "J.K. Rowling", Category: strp("Fantasy"), Status: model.BookBorrowed},
	{Title: "1984", Author: "George Orwell", Category: strp("Dystopian"), Status: model.BookAvailable},
	{Title: "The Hobbit", Author: "J.R.R. Tolkien", Category: strp("Fantasy"), Status: model.BookAvailable},
	{Title: "Les Misérables", Author: "Victor Hugo", Category: strp("Classic"), Status: model.BookAvailable},
	{Title: "The Little Prince", Author: "Antoine de Saint-Exupéry", Category: strp("Children"), Status: model.BookAvailable},
}

var demoMembers = []model.Member{
	{Name: "Nguyễn Văn A", Email: "vana@example.com"},
	{Name: "Trần Thị B", Email: "thib@example.com"},
}

// demoLoan books are borrowed in demoBooks exactly while returned is empty.
type demoLoan struct {
	book, member int // positions in demoBooks / demoMembers
	day          string
	returned     string
}

var demoLoans = []demoLoan{
	{book: 0, member: 0, day: "2025-10-01", returned: "2025-10-08"},
	{book: 1, member: 0, day: "2025-10-05"},
	{book: 2, member: 1, day: "2025-10-10"},
}

// Seed fills an empty store with the demo catalog, members and loans.
// It reports false without touching anything when books already exist.
func Seed(ctx context.Context, store repository.Store, logger zerolog.Logger) (bool, error) {
	log := logger.With().Str("module", "service").Str("component", "seed").Logger()

	existing, err := store.Books().ListOffset(ctx, repository.Filter{}, repository.Page{Limit: 1})
	if err != nil {
		return false, fmt.Errorf("check existing books: %w", err)
	}
	if existing.Total > 0 {
		log.Debug().Int("books", existing.Total).Msg("store not empty; seed skipped")
		return false, nil
	}

	bookIDs := make([]int64, 0, len(demoBooks))
	for _, b := range demoBooks {
		out, err := store.Books().Create(ctx, b)
		if err != nil {
			return false, fmt.Errorf("seed book %q: %w", b.Title, err)
		}
		bookIDs = append(bookIDs, out.ID)
	}
	memberIDs := make([]int64, 0, len(demoMembers))
	for _, m := range demoMembers {
		out, err := store.Members().Create(ctx, m)
		if err != nil {
			return false, fmt.Errorf("seed member %q: %w", m.Email, err)
		}
		memberIDs = append(memberIDs, out.ID)
	}
	for _, l := range demoLoans {
		day, err := time.Parse(time.DateOnly, l.day)
		if err != nil {
			return false, fmt.Errorf("seed loan date: %w", err)
		}
		loan := model.Loan{BookID: bookIDs[l.book], MemberID: memberIDs[l.member], BorrowDate: day, Status: model.LoanBorrowed}
		if l.returned != "" {
			back, err := time.Parse(time.DateOnly, l.returned)
			if err != nil {
				return false, fmt.Errorf("seed loan return date: %w", err)
			}
			loan.ReturnDate = &back
			loan.Status = model.LoanReturned
		}
		if _, err := store.Loans().Create(ctx, loan); err != nil {
			return false, fmt.Errorf("seed loan: %w", err)
		}
	}

	log.Info().Int("books", len(bookIDs)).Int("members", len(memberIDs)).Int("loans", len(demoLoans)).Msg("demo data seeded")
	return true, nil
}
