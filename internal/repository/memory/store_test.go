package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/library-service/internal/model"
	"github.com/maxviazov/library-service/internal/repository"
	"github.com/maxviazov/library-service/internal/repository/contract"
)

func makeStore(t *testing.T) (repository.Store, func()) {
	return New(), func() {}
}

func TestBookRepository_MemoryContract(t *testing.T) {
	contract.RunBookRepositoryContract(t, makeStore)
}

func TestMemberRepository_MemoryContract(t *testing.T) {
	contract.RunMemberRepositoryContract(t, makeStore)
}

func TestLoanRepository_MemoryContract(t *testing.T) {
	contract.RunLoanRepositoryContract(t, makeStore)
}

func TestPinger_MemoryContract(t *testing.T) {
	contract.RunPingerContract(t, makeStore)
}

func TestStore_ReturnedBooksAreDetached(t *testing.T) {
	s := New()
	ctx := context.Background()
	cat := "Fantasy"
	created, err := s.Books().Create(ctx, model.Book{Title: "T", Author: "A", Category: &cat})
	require.NoError(t, err)

	*created.Category = "changed"
	got, err := s.Books().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fantasy", *got.Category)
}

func TestStore_DeleteCascadesClosedLoans(t *testing.T) {
	s := New()
	ctx := context.Background()
	b, err := s.Books().Create(ctx, model.Book{Title: "T", Author: "A"})
	require.NoError(t, err)
	m, err := s.Members().Create(ctx, model.Member{Name: "M", Email: "m@example.com"})
	require.NoError(t, err)
	open, err := s.Loans().Create(ctx, model.Loan{BookID: b.ID, MemberID: m.ID})
	require.NoError(t, err)
	require.ErrorIs(t, s.Books().Delete(ctx, b.ID), repository.ErrConflict)

	_, err = s.Loans().Return(ctx, open.ID)
	require.NoError(t, err)
	require.NoError(t, s.Books().Delete(ctx, b.ID))
	res, err := s.Loans().ListByMember(ctx, m.ID, repository.Page{Limit: 5})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}

func TestStore_ConcurrentCreatesGetDistinctIDs(t *testing.T) {
	s := New()
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := s.Books().Create(ctx, model.Book{Title: "t", Author: "a"})
			if err == nil {
				ids <- b.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)

	res, err := s.Books().ListCursor(ctx, repository.Filter{}, repository.Cursor{Limit: n})
	require.NoError(t, err)
	for i := 1; i < len(res.Items); i++ {
		assert.Greater(t, res.Items[i-1].ID, res.Items[i].ID)
	}
}

func TestStore_CanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Books().ListOffset(ctx, repository.Filter{}, repository.Page{Limit: 5})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Ping(ctx), context.Canceled)
}
