package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/library-service/internal/repository"
	"github.com/maxviazov/library-service/internal/repository/contract"
)

func makeStore(t *testing.T) (repository.Store, func()) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.db")
	s, err := Open(context.Background(), path, zerolog.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return s, func() { _ = s.Close() }
}

func TestBookRepository_SQLiteContract(t *testing.T) {
	contract.RunBookRepositoryContract(t, makeStore)
}

func TestMemberRepository_SQLiteContract(t *testing.T) {
	contract.RunMemberRepositoryContract(t, makeStore)
}

func TestLoanRepository_SQLiteContract(t *testing.T) {
	contract.RunLoanRepositoryContract(t, makeStore)
}

func TestPinger_SQLiteContract(t *testing.T) {
	contract.RunPingerContract(t, makeStore)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "library.db")

	s, err := Open(ctx, path, zerolog.Nop())
	require.NoError(t, err)
	res, _ := s.Books().ListOffset(ctx, repository.Filter{}, repository.Page{Limit: 1})
	assert.Zero(t, res.Total)
	require.NoError(t, s.Close())

	// migrations must be idempotent
	s, err = Open(ctx, path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "  ", zerolog.Nop())
	assert.Error(t, err)
}

func TestMillis_RoundTrip(t *testing.T) {
	ts := time.Date(2025, 10, 5, 12, 30, 0, 123_000_000, time.UTC)
	assert.True(t, fromMillis(toMillis(ts)).Equal(ts))
	assert.Equal(t, time.UTC, fromMillis(0).Location())
}

func TestUnicodeLower_RegisteredWithDriver(t *testing.T) {
	st, cleanup := makeStore(t)
	t.Cleanup(cleanup)
	s := st.(*Store)

	var got string
	require.NoError(t, s.sqlDB.QueryRowContext(context.Background(),
		`SELECT `+foldFunc+`(?)`, "ĐẮC NHÂN TÂM Émile").Scan(&got))
	assert.Equal(t, "đắc nhân tâm émile", got)

	var null *string
	require.NoError(t, s.sqlDB.QueryRowContext(context.Background(), `SELECT `+foldFunc+`(NULL)`).Scan(&null))
	assert.Nil(t, null)
}
