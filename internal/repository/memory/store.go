// Package memory is the in-process backend. A Store is an explicit object owned by the
// application and handed to services; there is no package-level state.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maxviazov/library-service/internal/model"
	"github.com/maxviazov/library-service/internal/repository"
)

// Store keeps books, members and loans in id-ascending slices. Ids come from counters
// that only grow, so deletes never free an id for reuse.
// One RWMutex guards everything, which gives listings a consistent snapshot.
type Store struct {
	mu      sync.RWMutex
	now     func() time.Time
	books   []model.Book
	members []model.Member
	loans   []model.Loan

	nextBookID   int64
	nextMemberID int64
	nextLoanID   int64
}

// New creates an empty store.
func New() *Store {
	return &Store{now: time.Now, nextBookID: 1, nextMemberID: 1, nextLoanID: 1}
}

func (s *Store) Books() repository.BookRepository     { return bookRepository{s} }
func (s *Store) Members() repository.MemberRepository { return memberRepository{s} }
func (s *Store) Loans() repository.LoanRepository     { return loanRepository{s} }

// Ping always succeeds; memory is never unreachable.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

// bookIndex finds the slice position of id via binary search over the ascending ids.
func (s *Store) bookIndex(id int64) (int, bool) {
	i := sort.Search(len(s.books), func(i int) bool { return s.books[i].ID >= id })
	return i, i < len(s.books) && s.books[i].ID == id
}

func (s *Store) loanIndex(id int64) (int, bool) {
	i := sort.Search(len(s.loans), func(i int) bool { return s.loans[i].ID >= id })
	return i, i < len(s.loans) && s.loans[i].ID == id
}

func (s *Store) memberIndex(id int64) (int, bool) {
	i := sort.Search(len(s.members), func(i int) bool { return s.members[i].ID >= id })
	return i, i < len(s.members) && s.members[i].ID == id
}

// cloneBook detaches pointer fields so callers cannot mutate stored rows.
func cloneBook(b model.Book) model.Book {
	if b.Category != nil {
		c := *b.Category
		b.Category = &c
	}
	if b.Year != nil {
		y := *b.Year
		b.Year = &y
	}
	return b
}

func cloneLoan(l model.Loan) model.Loan {
	if l.ReturnDate != nil {
		t := *l.ReturnDate
		l.ReturnDate = &t
	}
	return l
}

type bookRepository struct{ s *Store }

func (r bookRepository) Create(ctx context.Context, b model.Book) (model.Book, error) {
	if err := ctx.Err(); err != nil {
		return model.Book{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now().UTC()
	b = cloneBook(b)
	b.ID = r.s.nextBookID
	r.s.nextBookID++
	if b.Status == "" {
		b.Status = model.BookAvailable
	}
	b.CreatedAt, b.UpdatedAt = now, now
	r.s.books = append(r.s.books, b)
	return cloneBook(b), nil
}

func (r bookRepository) GetByID(ctx context.Context, id int64) (model.Book, error) {
	if err := ctx.Err(); err != nil {
		return model.Book{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	i, ok := r.s.bookIndex(id)
	if !ok {
		return model.Book{}, repository.ErrNotFound
	}
	return cloneBook(r.s.books[i]), nil
}

func (r bookRepository) Update(ctx context.Context, id int64, fn repository.BookMutation) (model.Book, error) {
	if err := ctx.Err(); err != nil {
		return model.Book{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i, ok := r.s.bookIndex(id)
	if !ok {
		return model.Book{}, repository.ErrNotFound
	}
	current := r.s.books[i]
	next, err := fn(cloneBook(current))
	if err != nil {
		return model.Book{}, err
	}
	next = cloneBook(next)
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = r.s.now().UTC()
	if next.Status == "" {
		next.Status = model.BookAvailable
	}
	r.s.books[i] = next
	return cloneBook(next), nil
}

func (r bookRepository) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i, ok := r.s.bookIndex(id)
	if !ok {
		return repository.ErrNotFound
	}
	for _, l := range r.s.loans {
		if l.BookID == id && l.Open() {
			return repository.ErrConflict
		}
	}
	r.s.books = append(r.s.books[:i], r.s.books[i+1:]...)

	// closed loans go with the book, like ON DELETE CASCADE in the SQL schemas
	kept := r.s.loans[:0]
	for _, l := range r.s.loans {
		if l.BookID != id {
			kept = append(kept, l)
		}
	}
	r.s.loans = kept
	return nil
}

func (r bookRepository) ListOffset(ctx context.Context, f repository.Filter, p repository.Page) (repository.PageResult[model.Book], error) {
	if err := ctx.Err(); err != nil {
		return repository.PageResult[model.Book]{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	res := repository.PageResult[model.Book]{Items: []model.Book{}}
	matched := 0
	for i := len(r.s.books) - 1; i >= 0; i-- {
		b := r.s.books[i]
		if !f.Matches(b.Title, b.Author) {
			continue
		}
		if matched >= p.Offset && len(res.Items) < p.Limit {
			res.Items = append(res.Items, cloneBook(b))
		}
		matched++
	}
	res.Total = matched
	return res, nil
}

func (r bookRepository) ListCursor(ctx context.Context, f repository.Filter, c repository.Cursor) (repository.CursorResult[model.Book], error) {
	if err := ctx.Err(); err != nil {
		return repository.CursorResult[model.Book]{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	start := len(r.s.books)
	if c.LastID > 0 {
		// first position with id >= LastID; everything before it is strictly smaller
		start, _ = r.s.bookIndex(c.LastID)
	}
	res := repository.CursorResult[model.Book]{Items: []model.Book{}}
	for i := start - 1; i >= 0 && len(res.Items) < c.Limit; i-- {
		b := r.s.books[i]
		if f.Matches(b.Title, b.Author) {
			res.Items = append(res.Items, cloneBook(b))
		}
	}
	if n := len(res.Items); n > 0 {
		last := res.Items[n-1].ID
		res.NextCursor = &last
	}
	return res, nil
}

type memberRepository struct{ s *Store }

func (r memberRepository) Create(ctx context.Context, m model.Member) (model.Member, error) {
	if err := ctx.Err(); err != nil {
		return model.Member{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.members {
		if strings.EqualFold(existing.Email, m.Email) {
			return model.Member{}, repository.ErrAlreadyExists
		}
	}
	m.ID = r.s.nextMemberID
	r.s.nextMemberID++
	m.CreatedAt = r.s.now().UTC()
	r.s.members = append(r.s.members, m)
	return m, nil
}

func (r memberRepository) GetByID(ctx context.Context, id int64) (model.Member, error) {
	if err := ctx.Err(); err != nil {
		return model.Member{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	i, ok := r.s.memberIndex(id)
	if !ok {
		return model.Member{}, repository.ErrNotFound
	}
	return r.s.members[i], nil
}

func (r memberRepository) Exists(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.memberIndex(id)
	return ok, nil
}

type loanRepository struct{ s *Store }

func (r loanRepository) Create(ctx context.Context, l model.Loan) (model.Loan, error) {
	if err := ctx.Err(); err != nil {
		return model.Loan{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.bookIndex(l.BookID); !ok {
		return model.Loan{}, repository.ErrConflict
	}
	if _, ok := r.s.memberIndex(l.MemberID); !ok {
		return model.Loan{}, repository.ErrConflict
	}
	l.ID = r.s.nextLoanID
	r.s.nextLoanID++
	if l.BorrowDate.IsZero() {
		l.BorrowDate = r.s.now().UTC()
	}
	if l.Status == "" {
		l.Status = model.LoanBorrowed
	}
	r.s.loans = append(r.s.loans, cloneLoan(l))
	return cloneLoan(l), nil
}

func (r loanRepository) Borrow(ctx context.Context, bookID, memberID int64) (model.Loan, error) {
	if err := ctx.Err(); err != nil {
		return model.Loan{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	bi, ok := r.s.bookIndex(bookID)
	if !ok {
		return model.Loan{}, repository.ErrNotFound
	}
	if r.s.books[bi].Status != model.BookAvailable {
		return model.Loan{}, repository.ErrConflict
	}
	if _, ok := r.s.memberIndex(memberID); !ok {
		return model.Loan{}, repository.ErrNotFound
	}
	now := r.s.now().UTC()
	l := model.Loan{ID: r.s.nextLoanID, BookID: bookID, MemberID: memberID, BorrowDate: now, Status: model.LoanBorrowed}
	r.s.nextLoanID++
	r.s.loans = append(r.s.loans, l)
	r.s.books[bi].Status = model.BookBorrowed
	r.s.books[bi].UpdatedAt = now
	return l, nil
}

func (r loanRepository) Return(ctx context.Context, loanID int64) (model.Loan, error) {
	if err := ctx.Err(); err != nil {
		return model.Loan{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	li, ok := r.s.loanIndex(loanID)
	if !ok {
		return model.Loan{}, repository.ErrNotFound
	}
	l := r.s.loans[li]
	if !l.Open() {
		return cloneLoan(l), nil
	}
	now := r.s.now().UTC()
	l.ReturnDate = &now
	l.Status = model.LoanReturned
	r.s.loans[li] = l
	if bi, ok := r.s.bookIndex(l.BookID); ok {
		r.s.books[bi].Status = model.BookAvailable
		r.s.books[bi].UpdatedAt = now
	}
	return cloneLoan(l), nil
}

func (r loanRepository) ListByMember(ctx context.Context, memberID int64, p repository.Page) (repository.PageResult[model.Loan], error) {
	if err := ctx.Err(); err != nil {
		return repository.PageResult[model.Loan]{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	res := repository.PageResult[model.Loan]{Items: []model.Loan{}}
	matched := 0
	for i := len(r.s.loans) - 1; i >= 0; i-- {
		l := r.s.loans[i]
		if l.MemberID != memberID {
			continue
		}
		if matched >= p.Offset && len(res.Items) < p.Limit {
			res.Items = append(res.Items, cloneLoan(l))
		}
		matched++
	}
	res.Total = matched
	return res, nil
}

var (
	_ repository.Store            = (*Store)(nil)
	_ repository.BookRepository   = bookRepository{}
	_ repository.MemberRepository = memberRepository{}
	_ repository.LoanRepository   = loanRepository{}
)
