package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/maxviazov/library-service/internal/model"
	"github.com/maxviazov/library-service/internal/repository"
)

type memberRepository struct{ pool *pgxpool.Pool }

func NewMemberRepository(pool *pgxpool.Pool) repository.MemberRepository {
	return &memberRepository{pool: pool}
}

func (r *memberRepository) Create(ctx context.Context, m model.Member) (model.Member, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Member{}, err
	}
	exec := getQ(ctx, r.pool)
	row := exec.QueryRow(ctx,
		`INSERT INTO members (name, email) VALUES ($1, $2)
		 RETURNING id, name, email, created_at`,
		m.Name, m.Email,
	)
	var out model.Member
	if err := row.Scan(&out.ID, &out.Name, &out.Email, &out.CreatedAt); err != nil {
		return model.Member{}, repository.MapPgError(err)
	}
	return out, nil
}

func (r *memberRepository) GetByID(ctx context.Context, id int64) (model.Member, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Member{}, err
	}
	exec := getQ(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT id, name, email, created_at FROM members WHERE id = $1`, id)
	var out model.Member
	if err := row.Scan(&out.ID, &out.Name, &out.Email, &out.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Member{}, repository.ErrNotFound
		}
		return model.Member{}, repository.MapPgError(err)
	}
	return out, nil
}

// Exists performs a lightweight check to see if a member with the given ID exists.
func (r *memberRepository) Exists(ctx context.Context, id int64) (bool, error) {
	if err := ensurePool(r.pool); err != nil {
		return false, err
	}
	var exists bool
	exec := getQ(ctx, r.pool)
	err := exec.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM members WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, repository.MapPgError(err)
	}
	return exists, nil
}

var _ repository.MemberRepository = (*memberRepository)(nil)
