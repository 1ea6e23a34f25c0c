package document

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Qty   int    `json:"qty"`
}

func newItems(store Store) *Collection[item] {
	return NewCollection(store, "items",
		func(i *item) string { return i.ID },
		func(i *item) map[string]string { return map[string]string{"email": i.Email} })
}

func TestCollection_InsertGetDelete(t *testing.T) {
	ctx := context.Background()
	c := newItems(NewMemoryStore())

	require.NoError(t, c.Insert(ctx, &item{ID: "a", Email: "a@x.io", Qty: 1}))

	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, &item{ID: "a", Email: "a@x.io", Qty: 1}, got)

	require.NoError(t, c.Delete(ctx, "a"))
	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, c.Delete(ctx, "a"), ErrNotFound)
}

func TestCollection_UniqueKeys(t *testing.T) {
	ctx := context.Background()
	c := newItems(NewMemoryStore())

	require.NoError(t, c.Insert(ctx, &item{ID: "a", Email: "same@x.io"}))

	err := c.Insert(ctx, &item{ID: "b", Email: "same@x.io"})
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "email", dup.Field)
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, c.Insert(ctx, &item{ID: "b", Email: "other@x.io"}))

	_, err = c.Update(ctx, "b", func(i *item) error {
		i.Email = "same@x.io"
		return nil
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	// Releasing the key on "a" frees it for "b".
	_, err = c.Update(ctx, "a", func(i *item) error {
		i.Email = "new@x.io"
		return nil
	})
	require.NoError(t, err)
	_, err = c.Update(ctx, "b", func(i *item) error {
		i.Email = "same@x.io"
		return nil
	})
	assert.NoError(t, err)

	require.NoError(t, c.Delete(ctx, "b"))
	assert.NoError(t, c.Insert(ctx, &item{ID: "c", Email: "same@x.io"}))
}

func TestCollection_ConcurrentUpdatesAreNotLost(t *testing.T) {
	ctx := context.Background()
	c := newItems(NewMemoryStore())
	require.NoError(t, c.Insert(ctx, &item{ID: "a", Email: "a@x.io"}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Update(ctx, "a", func(i *item) error {
				i.Qty++
				return nil
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, succeeded, got.Qty)
}

func TestCollection_UpdateMutateErrorAborts(t *testing.T) {
	ctx := context.Background()
	c := newItems(NewMemoryStore())
	require.NoError(t, c.Insert(ctx, &item{ID: "a", Email: "a@x.io", Qty: 3}))

	boom := errors.New("no stock")
	_, err := c.Update(ctx, "a", func(i *item) error {
		i.Qty = 0
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := c.Get(ctx, "a")
	assert.Equal(t, 3, got.Qty)
}

func TestCollection_FindAndCount(t *testing.T) {
	ctx := context.Background()
	c := newItems(NewMemoryStore())
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, c.Insert(ctx, &item{ID: id, Email: id + "@x.io", Qty: i}))
	}

	q := Query[item]{
		Match: func(i *item) bool { return i.Qty >= 1 },
		Less:  func(a, b *item) bool { return a.Qty > b.Qty },
		Skip:  1,
		Limit: 2,
	}
	got, err := c.Find(ctx, q)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d", got[0].ID)
	assert.Equal(t, "c", got[1].ID)

	n, err := c.Count(ctx, q.Match)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	empty, err := c.Find(ctx, Query[item]{Skip: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestChangedUniques(t *testing.T) {
	claim, release := ChangedUniques(
		map[string]string{"email": "old", "nick": "same"},
		map[string]string{"email": "new", "nick": "same"},
	)
	assert.Equal(t, map[string]string{"email": "new"}, claim)
	assert.Equal(t, map[string]string{"email": "old"}, release)
}
