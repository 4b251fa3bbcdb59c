package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/library-service/internal/model"
	"github.com/maxviazov/library-service/internal/repository"
	"github.com/maxviazov/library-service/internal/repository/memory"
)

func TestSeed_FillsEmptyStoreOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	seeded, err := Seed(ctx, store, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, seeded)

	res, err := store.Books().ListOffset(ctx, repository.Filter{}, repository.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 7, res.Total)
	assert.Equal(t, "The Little Prince", res.Items[0].Title)
	assert.Equal(t, "Dế Mèn Phiêu Lưu Ký", res.Items[6].Title)

	seeded, err = Seed(ctx, store, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, seeded)

	res, err = store.Books().ListOffset(ctx, repository.Filter{Query: "tô hoài"}, repository.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)

	ok, err := store.Members().Exists(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSeed_BookStatusFollowsOpenLoans(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := Seed(ctx, store, zerolog.Nop())
	require.NoError(t, err)

	open := map[int64]bool{}
	for _, member := range []int64{1, 2} {
		res, err := store.Loans().ListByMember(ctx, member, repository.Page{Limit: 10})
		require.NoError(t, err)
		for _, l := range res.Items {
			if l.Open() {
				open[l.BookID] = true
				assert.Equal(t, model.LoanBorrowed, l.Status)
			} else {
				assert.Equal(t, model.LoanReturned, l.Status)
			}
		}
	}
	assert.Len(t, open, 2)

	books, err := store.Books().ListOffset(ctx, repository.Filter{}, repository.Page{Limit: 10})
	require.NoError(t, err)
	for _, b := range books.Items {
		want := model.BookAvailable
		if open[b.ID] {
			want = model.BookBorrowed
		}
		assert.Equal(t, want, b.Status, "book %d %q", b.ID, b.Title)
	}
}
