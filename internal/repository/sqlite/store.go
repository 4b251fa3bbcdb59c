// Package sqlite provides a SQLite-backed library store on top of modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	msqlite "modernc.org/sqlite"

	"github.com/maxviazov/library-service/internal/migrations"
	"github.com/maxviazov/library-service/internal/model"
	"github.com/maxviazov/library-service/internal/repository"
)

// foldFunc lowers text with Unicode rules. The built-in LOWER folds ASCII only.
const foldFunc = "unicode_lower"

func init() {
	msqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, unicodeLower)
}

func unicodeLower(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// Store persists library state in one SQLite file.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database file, enables foreign keys and applies embedded migrations.
func Open(ctx context.Context, path string, logger zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrations.Up(ctx, sqlDB, migrations.SQLite, logger); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info().Str("module", "repository").Str("path", path).Msg("sqlite store opened")
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error { return s.sqlDB.PingContext(ctx) }

func (s *Store) Books() repository.BookRepository     { return &bookRepository{s} }
func (s *Store) Members() repository.MemberRepository { return &memberRepository{s} }
func (s *Store) Loans() repository.LoanRepository     { return &loanRepository{s} }

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const bookColumns = `id, title, author, category, status, year, created_at, updated_at`

// titleAuthorMatch is the case-insensitive substring filter; the pattern comes from Filter.LikePattern.
const titleAuthorMatch = `(` + foldFunc + `(title) LIKE ? ESCAPE '\' OR ` + foldFunc + `(author) LIKE ? ESCAPE '\')`

func scanBook(row rowScanner, extra ...any) (model.Book, error) {
	var (
		b          model.Book
		category   sql.NullString
		year       sql.NullInt64
		created    int64
		updated    int64
		scanTarget = []any{&b.ID, &b.Title, &b.Author, &category, &b.Status, &year, &created, &updated}
	)
	if err := row.Scan(append(scanTarget, extra...)...); err != nil {
		return model.Book{}, err
	}
	if category.Valid {
		b.Category = &category.String
	}
	if year.Valid {
		y := int(year.Int64)
		b.Year = &y
	}
	b.CreatedAt = fromMillis(created)
	b.UpdatedAt = fromMillis(updated)
	return b, nil
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

type bookRepository struct{ s *Store }

func (r *bookRepository) Create(ctx context.Context, b model.Book) (model.Book, error) {
	if b.Status == "" {
		b.Status = model.BookAvailable
	}
	now := toMillis(r.s.now())
	row := r.s.sqlDB.QueryRowContext(ctx,
		`INSERT INTO books (title, author, category, status, year, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING `+bookColumns,
		b.Title, b.Author, nullableString(b.Category), b.Status, nullableInt(b.Year), now, now,
	)
	out, err := scanBook(row)
	if err != nil {
		return model.Book{}, repository.MapSQLiteError(err)
	}
	return out, nil
}

func (r *bookRepository) GetByID(ctx context.Context, id int64) (model.Book, error) {
	row := r.s.sqlDB.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	out, err := scanBook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, repository.ErrNotFound
		}
		return model.Book{}, repository.MapSQLiteError(err)
	}
	return out, nil
}

func (r *bookRepository) Update(ctx context.Context, id int64, fn repository.BookMutation) (model.Book, error) {
	tx, err := r.s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return model.Book{}, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanBook(tx.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, repository.ErrNotFound
		}
		return model.Book{}, repository.MapSQLiteError(err)
	}
	next, err := fn(current)
	if err != nil {
		return model.Book{}, err
	}
	if next.Status == "" {
		next.Status = model.BookAvailable
	}
	out, err := scanBook(tx.QueryRowContext(ctx,
		`UPDATE books
		    SET title = ?, author = ?, category = ?, status = ?, year = ?, updated_at = ?
		  WHERE id = ?
		 RETURNING `+bookColumns,
		next.Title, next.Author, nullableString(next.Category), next.Status, nullableInt(next.Year),
		toMillis(r.s.now()), id,
	))
	if err != nil {
		return model.Book{}, repository.MapSQLiteError(err)
	}
	if err := tx.Commit(); err != nil {
		return model.Book{}, fmt.Errorf("commit update: %w", err)
	}
	return out, nil
}

func (r *bookRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.s.sqlDB.ExecContext(ctx,
		`DELETE FROM books
		  WHERE id = ?
		    AND NOT EXISTS (SELECT 1 FROM loans WHERE book_id = ? AND return_date IS NULL)`,
		id, id,
	)
	if err != nil {
		return repository.MapSQLiteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete book rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	// nothing deleted: either the id is unknown or an open loan holds the book
	var exists bool
	if err := r.s.sqlDB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE id = ?)`, id).Scan(&exists); err != nil {
		return repository.MapSQLiteError(err)
	}
	if exists {
		return repository.ErrConflict
	}
	return repository.ErrNotFound
}

func (r *bookRepository) ListOffset(ctx context.Context, f repository.Filter, p repository.Page) (repository.PageResult[model.Book], error) {
	pattern := f.LikePattern()
	rows, err := r.s.sqlDB.QueryContext(ctx,
		`SELECT `+bookColumns+`, COUNT(*) OVER() AS total
		   FROM books
		  WHERE `+titleAuthorMatch+`
		  ORDER BY id DESC
		  LIMIT ? OFFSET ?`,
		pattern, pattern, p.Limit, p.Offset,
	)
	if err != nil {
		return repository.PageResult[model.Book]{}, repository.MapSQLiteError(err)
	}
	defer rows.Close()

	res := repository.PageResult[model.Book]{Items: make([]model.Book, 0, p.Limit)}
	for rows.Next() {
		var total int
		b, err := scanBook(rows, &total)
		if err != nil {
			return repository.PageResult[model.Book]{}, repository.MapSQLiteError(err)
		}
		res.Items = append(res.Items, b)
		res.Total = total
	}
	if err := rows.Err(); err != nil {
		return repository.PageResult[model.Book]{}, repository.MapSQLiteError(err)
	}
	// Past the last page the window function has no row to ride on.
	if len(res.Items) == 0 && p.Offset > 0 {
		if err := r.s.sqlDB.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM books WHERE `+titleAuthorMatch, pattern, pattern,
		).Scan(&res.Total); err != nil {
			return repository.PageResult[model.Book]{}, repository.MapSQLiteError(err)
		}
	}
	return res, nil
}

func (r *bookRepository) ListCursor(ctx context.Context, f repository.Filter, c repository.Cursor) (repository.CursorResult[model.Book], error) {
	pattern := f.LikePattern()
	query := `SELECT ` + bookColumns + ` FROM books WHERE ` + titleAuthorMatch
	args := []any{pattern, pattern}
	if c.LastID > 0 {
		query += ` AND id < ?`
		args = append(args, c.LastID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, c.Limit)

	rows, err := r.s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return repository.CursorResult[model.Book]{}, repository.MapSQLiteError(err)
	}
	defer rows.Close()

	res := repository.CursorResult[model.Book]{Items: make([]model.Book, 0, c.Limit)}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return repository.CursorResult[model.Book]{}, repository.MapSQLiteError(err)
		}
		res.Items = append(res.Items, b)
	}
	if err := rows.Err(); err != nil {
		return repository.CursorResult[model.Book]{}, repository.MapSQLiteError(err)
	}
	if n := len(res.Items); n > 0 {
		last := res.Items[n-1].ID
		res.NextCursor = &last
	}
	return res, nil
}

type memberRepository struct{ s *Store }

func (r *memberRepository) Create(ctx context.Context, m model.Member) (model.Member, error) {
	var created int64
	err := r.s.sqlDB.QueryRowContext(ctx,
		`INSERT INTO members (name, email, created_at) VALUES (?, ?, ?)
		 RETURNING id, name, email, created_at`,
		m.Name, m.Email, toMillis(r.s.now()),
	).Scan(&m.ID, &m.Name, &m.Email, &created)
	if err != nil {
		return model.Member{}, repository.MapSQLiteError(err)
	}
	m.CreatedAt = fromMillis(created)
	return m, nil
}

func (r *memberRepository) GetByID(ctx context.Context, id int64) (model.Member, error) {
	var (
		m       model.Member
		created int64
	)
	err := r.s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM members WHERE id = ?`, id,
	).Scan(&m.ID, &m.Name, &m.Email, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Member{}, repository.ErrNotFound
		}
		return model.Member{}, repository.MapSQLiteError(err)
	}
	m.CreatedAt = fromMillis(created)
	return m, nil
}

func (r *memberRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.s.sqlDB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM members WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, repository.MapSQLiteError(err)
	}
	return exists, nil
}

type loanRepository struct{ s *Store }

func scanLoan(row rowScanner, extra ...any) (model.Loan, error) {
	var (
		l        model.Loan
		borrowed int64
		returned sql.NullInt64
	)
	if err := row.Scan(append([]any{&l.ID, &l.BookID, &l.MemberID, &borrowed, &returned, &l.Status}, extra...)...); err != nil {
		return model.Loan{}, err
	}
	l.BorrowDate = fromMillis(borrowed)
	if returned.Valid {
		t := fromMillis(returned.Int64)
		l.ReturnDate = &t
	}
	return l, nil
}

func (r *loanRepository) Create(ctx context.Context, l model.Loan) (model.Loan, error) {
	if l.BorrowDate.IsZero() {
		l.BorrowDate = r.s.now()
	}
	if l.Status == "" {
		l.Status = model.LoanBorrowed
	}
	var returned any
	if l.ReturnDate != nil {
		returned = toMillis(*l.ReturnDate)
	}
	out, err := scanLoan(r.s.sqlDB.QueryRowContext(ctx,
		`INSERT INTO loans (book_id, member_id, borrow_date, return_date, status)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING `+loanColumns,
		l.BookID, l.MemberID, toMillis(l.BorrowDate), returned, l.Status,
	))
	if err != nil {
		return model.Loan{}, repository.MapSQLiteError(err)
	}
	return out, nil
}

const loanColumns = `id, book_id, member_id, borrow_date, return_date, status`

// Borrow flips the book to borrowed before any read, so the transaction holds the write lock throughout.
func (r *loanRepository) Borrow(ctx context.Context, bookID, memberID int64) (model.Loan, error) {
	tx, err := r.s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return model.Loan{}, fmt.Errorf("begin borrow: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := toMillis(r.s.now())
	res, err := tx.ExecContext(ctx,
		`UPDATE books SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		model.BookBorrowed, now, bookID, model.BookAvailable,
	)
	if err != nil {
		return model.Loan{}, repository.MapSQLiteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Loan{}, fmt.Errorf("borrow rows affected: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE id = ?)`, bookID).Scan(&exists); err != nil {
			return model.Loan{}, repository.MapSQLiteError(err)
		}
		if !exists {
			return model.Loan{}, repository.ErrNotFound
		}
		return model.Loan{}, repository.ErrConflict
	}

	var member bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM members WHERE id = ?)`, memberID).Scan(&member); err != nil {
		return model.Loan{}, repository.MapSQLiteError(err)
	}
	if !member {
		return model.Loan{}, repository.ErrNotFound
	}

	out, err := scanLoan(tx.QueryRowContext(ctx,
		`INSERT INTO loans (book_id, member_id, borrow_date, status)
		 VALUES (?, ?, ?, ?)
		 RETURNING `+loanColumns,
		bookID, memberID, now, model.LoanBorrowed,
	))
	if err != nil {
		return model.Loan{}, repository.MapSQLiteError(err)
	}
	if err := tx.Commit(); err != nil {
		return model.Loan{}, fmt.Errorf("commit borrow: %w", err)
	}
	return out, nil
}

func (r *loanRepository) Return(ctx context.Context, loanID int64) (model.Loan, error) {
	tx, err := r.s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return model.Loan{}, fmt.Errorf("begin return: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := toMillis(r.s.now())
	out, err := scanLoan(tx.QueryRowContext(ctx,
		`UPDATE loans SET return_date = ?, status = ?
		  WHERE id = ? AND return_date IS NULL
		 RETURNING `+loanColumns,
		now, model.LoanReturned, loanID,
	))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// unknown, or returned earlier
		closed, err := scanLoan(tx.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, loanID))
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, repository.ErrNotFound
		}
		if err != nil {
			return model.Loan{}, repository.MapSQLiteError(err)
		}
		return closed, nil
	case err != nil:
		return model.Loan{}, repository.MapSQLiteError(err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE books SET status = ?, updated_at = ? WHERE id = ?`,
		model.BookAvailable, now, out.BookID,
	); err != nil {
		return model.Loan{}, repository.MapSQLiteError(err)
	}
	if err := tx.Commit(); err != nil {
		return model.Loan{}, fmt.Errorf("commit return: %w", err)
	}
	return out, nil
}

func (r *loanRepository) ListByMember(ctx context.Context, memberID int64, p repository.Page) (repository.PageResult[model.Loan], error) {
	res := repository.PageResult[model.Loan]{Items: make([]model.Loan, 0, p.Limit)}
	if err := r.s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE member_id = ?`, memberID,
	).Scan(&res.Total); err != nil {
		return repository.PageResult[model.Loan]{}, repository.MapSQLiteError(err)
	}
	rows, err := r.s.sqlDB.QueryContext(ctx,
		`SELECT `+loanColumns+`
		   FROM loans WHERE member_id = ?
		  ORDER BY id DESC
		  LIMIT ? OFFSET ?`,
		memberID, p.Limit, p.Offset,
	)
	if err != nil {
		return repository.PageResult[model.Loan]{}, repository.MapSQLiteError(err)
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return repository.PageResult[model.Loan]{}, repository.MapSQLiteError(err)
		}
		res.Items = append(res.Items, l)
	}
	if err := rows.Err(); err != nil {
		return repository.PageResult[model.Loan]{}, repository.MapSQLiteError(err)
	}
	return res, nil
}

var (
	_ repository.Store            = (*Store)(nil)
	_ repository.BookRepository   = (*bookRepository)(nil)
	_ repository.MemberRepository = (*memberRepository)(nil)
	_ repository.LoanRepository   = (*loanRepository)(nil)
)
