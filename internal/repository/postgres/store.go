package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/maxviazov/library-service/internal/repository"
)

// Store adapts a pgx pool to repository.Store. It owns the pool and closes it.
type Store struct{ pool *pgxpool.Pool }

// NewStore wraps an open pool.
func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func (s *Store) Ping(ctx context.Context) error {
	if err := ensurePool(s.pool); err != nil {
		return err
	}
	return s.pool.Ping(ctx)
}

func (s *Store) Books() repository.BookRepository     { return NewBookRepository(s.pool) }
func (s *Store) Members() repository.MemberRepository { return NewMemberRepository(s.pool) }
func (s *Store) Loans() repository.LoanRepository     { return NewLoanRepository(s.pool) }

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

var _ repository.Store = (*Store)(nil)
