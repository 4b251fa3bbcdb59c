package postgres

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/maxviazov/library-service/internal/model"
	"github.com/maxviazov/library-service/internal/repository"
)

type bookRepository struct{ pool *pgxpool.Pool }

func NewBookRepository(pool *pgxpool.Pool) repository.BookRepository {
	return &bookRepository{pool: pool}
}

const bookColumns = `id, title, author, category, status, year, created_at, updated_at`

// titleAuthorMatch takes its pattern from Filter.LikePattern as $1.
const titleAuthorMatch = `(title ILIKE $1 ESCAPE '\' OR author ILIKE $1 ESCAPE '\')`

func scanBook(row pgx.Row, extra ...any) (model.Book, error) {
	var b model.Book
	dest := []any{&b.ID, &b.Title, &b.Author, &b.Category, &b.Status, &b.Year, &b.CreatedAt, &b.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.Book{}, err
	}
	return b, nil
}

func (r *bookRepository) Create(ctx context.Context, b model.Book) (model.Book, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Book{}, err
	}
	if b.Status == "" {
		b.Status = model.BookAvailable
	}
	exec := getQ(ctx, r.pool)
	out, err := scanBook(exec.QueryRow(ctx,
		`INSERT INTO books (title, author, category, status, year)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+bookColumns,
		b.Title, b.Author, b.Category, b.Status, b.Year,
	))
	if err != nil {
		return model.Book{}, repository.MapPgError(err)
	}
	return out, nil
}

func (r *bookRepository) GetByID(ctx context.Context, id int64) (model.Book, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Book{}, err
	}
	exec := getQ(ctx, r.pool)
	out, err := scanBook(exec.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Book{}, repository.ErrNotFound
		}
		return model.Book{}, repository.MapPgError(err)
	}
	return out, nil
}

// Update locks the row with SELECT ... FOR UPDATE so concurrent patches serialize.
func (r *bookRepository) Update(ctx context.Context, id int64, fn repository.BookMutation) (model.Book, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Book{}, err
	}
	var out model.Book
	err := withinTx(ctx, r.pool, func(ctx context.Context) error {
		exec := getQ(ctx, r.pool)
		current, err := scanBook(exec.QueryRow(ctx,
			`SELECT `+bookColumns+` FROM books WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repository.ErrNotFound
			}
			return repository.MapPgError(err)
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if next.Status == "" {
			next.Status = model.BookAvailable
		}
		out, err = scanBook(exec.QueryRow(ctx,
			`UPDATE books
			    SET title = $2, author = $3, category = $4, status = $5, year = $6, updated_at = now()
			  WHERE id = $1
			 RETURNING `+bookColumns,
			id, next.Title, next.Author, next.Category, next.Status, next.Year,
		))
		return repository.MapPgError(err)
	})
	if err != nil {
		return model.Book{}, err
	}
	return out, nil
}

func (r *bookRepository) Delete(ctx context.Context, id int64) error {
	if err := ensurePool(r.pool); err != nil {
		return err
	}
	return withinTx(ctx, r.pool, func(ctx context.Context) error {
		exec := getQ(ctx, r.pool)
		// the row lock orders this delete against a concurrent Borrow of the same book
		var locked int64
		err := exec.QueryRow(ctx, `SELECT id FROM books WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repository.ErrNotFound
			}
			return repository.MapPgError(err)
		}
		var open bool
		if err := exec.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM loans WHERE book_id = $1 AND return_date IS NULL)`, id,
		).Scan(&open); err != nil {
			return repository.MapPgError(err)
		}
		if open {
			return repository.ErrConflict
		}
		if _, err := exec.Exec(ctx, `DELETE FROM books WHERE id = $1`, id); err != nil {
			return repository.MapPgError(err)
		}
		return nil
	})
}

func (r *bookRepository) ListOffset(ctx context.Context, f repository.Filter, p repository.Page) (repository.PageResult[model.Book], error) {
	if err := ensurePool(r.pool); err != nil {
		return repository.PageResult[model.Book]{}, err
	}
	pattern := f.LikePattern()
	exec := getQ(ctx, r.pool)
	rows, err := exec.Query(ctx,
		`SELECT `+bookColumns+`, COUNT(*) OVER() AS total
		 FROM books
		 WHERE `+titleAuthorMatch+`
		 ORDER BY id DESC
		 LIMIT $2 OFFSET $3`,
		pattern, p.Limit, p.Offset,
	)
	if err != nil {
		return repository.PageResult[model.Book]{}, repository.MapPgError(err)
	}
	defer rows.Close()
	res := repository.PageResult[model.Book]{Items: make([]model.Book, 0, p.Limit)}
	for rows.Next() {
		var total int
		b, err := scanBook(rows, &total)
		if err != nil {
			return repository.PageResult[model.Book]{}, repository.MapPgError(err)
		}
		res.Items = append(res.Items, b)
		res.Total = total
	}
	if err := rows.Err(); err != nil {
		return repository.PageResult[model.Book]{}, repository.MapPgError(err)
	}
	// Past the last page the window function has no row to ride on.
	if len(res.Items) == 0 && p.Offset > 0 {
		err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM books WHERE `+titleAuthorMatch, pattern).Scan(&res.Total)
		if err != nil {
			return repository.PageResult[model.Book]{}, repository.MapPgError(err)
		}
	}
	return res, nil
}

func (r *bookRepository) ListCursor(ctx context.Context, f repository.Filter, c repository.Cursor) (repository.CursorResult[model.Book], error) {
	if err := ensurePool(r.pool); err != nil {
		return repository.CursorResult[model.Book]{}, err
	}
	query := `SELECT ` + bookColumns + ` FROM books WHERE ` + titleAuthorMatch
	args := []any{f.LikePattern()}
	if c.LastID > 0 {
		args = append(args, c.LastID)
		query += ` AND id < $` + strconv.Itoa(len(args))
	}
	args = append(args, c.Limit)
	query += ` ORDER BY id DESC LIMIT $` + strconv.Itoa(len(args))

	exec := getQ(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return repository.CursorResult[model.Book]{}, repository.MapPgError(err)
	}
	defer rows.Close()
	res := repository.CursorResult[model.Book]{Items: make([]model.Book, 0, c.Limit)}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return repository.CursorResult[model.Book]{}, repository.MapPgError(err)
		}
		res.Items = append(res.Items, b)
	}
	if err := rows.Err(); err != nil {
		return repository.CursorResult[model.Book]{}, repository.MapPgError(err)
	}
	if n := len(res.Items); n > 0 {
		last := res.Items[n-1].ID
		res.NextCursor = &last
	}
	return res, nil
}

var _ repository.BookRepository = (*bookRepository)(nil)
