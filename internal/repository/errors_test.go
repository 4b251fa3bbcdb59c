package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPgError(t *testing.T) {
	assert.NoError(t, MapPgError(nil))
	assert.ErrorIs(t, MapPgError(&pgconn.PgError{Code: pgerrcode.UniqueViolation}), ErrAlreadyExists)
	assert.ErrorIs(t, MapPgError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}), ErrConflict)

	other := &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	assert.Same(t, other, MapPgError(other))

	plain := errors.New("plain")
	assert.Same(t, plain, MapPgError(plain))
}

func TestMapSQLiteError_PassThrough(t *testing.T) {
	assert.NoError(t, MapSQLiteError(nil))
	plain := errors.New("plain")
	assert.Same(t, plain, MapSQLiteError(plain))
}
