package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/maxviazov/library-service/internal/model"
	"github.com/maxviazov/library-service/internal/repository"
)

type loanRepository struct{ pool *pgxpool.Pool }

func NewLoanRepository(pool *pgxpool.Pool) repository.LoanRepository {
	return &loanRepository{pool: pool}
}

const loanColumns = `id, book_id, member_id, borrow_date, return_date, status`

func (r *loanRepository) Create(ctx context.Context, l model.Loan) (model.Loan, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Loan{}, err
	}
	if l.BorrowDate.IsZero() {
		l.BorrowDate = time.Now().UTC()
	}
	if l.Status == "" {
		l.Status = model.LoanBorrowed
	}
	exec := getQ(ctx, r.pool)
	row := exec.QueryRow(ctx,
		`INSERT INTO loans (book_id, member_id, borrow_date, return_date, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+loanColumns,
		l.BookID, l.MemberID, l.BorrowDate, l.ReturnDate, l.Status,
	)
	var out model.Loan
	if err := row.Scan(&out.ID, &out.BookID, &out.MemberID, &out.BorrowDate, &out.ReturnDate, &out.Status); err != nil {
		return model.Loan{}, repository.MapPgError(err)
	}
	return out, nil
}

func scanLoan(row pgx.Row) (model.Loan, error) {
	var l model.Loan
	if err := row.Scan(&l.ID, &l.BookID, &l.MemberID, &l.BorrowDate, &l.ReturnDate, &l.Status); err != nil {
		return model.Loan{}, err
	}
	return l, nil
}

func (r *loanRepository) Borrow(ctx context.Context, bookID, memberID int64) (model.Loan, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Loan{}, err
	}
	var out model.Loan
	err := withinTx(ctx, r.pool, func(ctx context.Context) error {
		exec := getQ(ctx, r.pool)
		var status string
		err := exec.QueryRow(ctx, `SELECT status FROM books WHERE id = $1 FOR UPDATE`, bookID).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repository.ErrNotFound
			}
			return repository.MapPgError(err)
		}
		if status != model.BookAvailable {
			return repository.ErrConflict
		}
		var member bool
		if err := exec.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM members WHERE id = $1)`, memberID).Scan(&member); err != nil {
			return repository.MapPgError(err)
		}
		if !member {
			return repository.ErrNotFound
		}
		if _, err := exec.Exec(ctx,
			`UPDATE books SET status = $2, updated_at = now() WHERE id = $1`, bookID, model.BookBorrowed,
		); err != nil {
			return repository.MapPgError(err)
		}
		out, err = scanLoan(exec.QueryRow(ctx,
			`INSERT INTO loans (book_id, member_id, status)
			 VALUES ($1, $2, $3)
			 RETURNING `+loanColumns,
			bookID, memberID, model.LoanBorrowed,
		))
		return repository.MapPgError(err)
	})
	if err != nil {
		return model.Loan{}, err
	}
	return out, nil
}

func (r *loanRepository) Return(ctx context.Context, loanID int64) (model.Loan, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Loan{}, err
	}
	var out model.Loan
	err := withinTx(ctx, r.pool, func(ctx context.Context) error {
		exec := getQ(ctx, r.pool)
		current, err := scanLoan(exec.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, loanID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repository.ErrNotFound
			}
			return repository.MapPgError(err)
		}
		if !current.Open() {
			out = current
			return nil
		}
		out, err = scanLoan(exec.QueryRow(ctx,
			`UPDATE loans SET return_date = now(), status = $2
			  WHERE id = $1
			 RETURNING `+loanColumns,
			loanID, model.LoanReturned,
		))
		if err != nil {
			return repository.MapPgError(err)
		}
		_, err = exec.Exec(ctx,
			`UPDATE books SET status = $2, updated_at = now() WHERE id = $1`, out.BookID, model.BookAvailable,
		)
		return repository.MapPgError(err)
	})
	if err != nil {
		return model.Loan{}, err
	}
	return out, nil
}

func (r *loanRepository) ListByMember(ctx context.Context, memberID int64, p repository.Page) (repository.PageResult[model.Loan], error) {
	if err := ensurePool(r.pool); err != nil {
		return repository.PageResult[model.Loan]{}, err
	}
	exec := getQ(ctx, r.pool)
	res := repository.PageResult[model.Loan]{Items: make([]model.Loan, 0, p.Limit)}
	if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM loans WHERE member_id = $1`, memberID).Scan(&res.Total); err != nil {
		return repository.PageResult[model.Loan]{}, repository.MapPgError(err)
	}
	rows, err := exec.Query(ctx,
		`SELECT `+loanColumns+`
		 FROM loans WHERE member_id = $1
		 ORDER BY id DESC
		 LIMIT $2 OFFSET $3`,
		memberID, p.Limit, p.Offset,
	)
	if err != nil {
		return repository.PageResult[model.Loan]{}, repository.MapPgError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var it model.Loan
		if err := rows.Scan(&it.ID, &it.BookID, &it.MemberID, &it.BorrowDate, &it.ReturnDate, &it.Status); err != nil {
			return repository.PageResult[model.Loan]{}, repository.MapPgError(err)
		}
		res.Items = append(res.Items, it)
	}
	if err := rows.Err(); err != nil {
		return repository.PageResult[model.Loan]{}, repository.MapPgError(err)
	}
	return res, nil
}

var _ repository.LoanRepository = (*loanRepository)(nil)
