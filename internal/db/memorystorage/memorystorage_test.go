package memorystorage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/catsapi/internal/models"
)

func TestCats(t *testing.T) {
	t.Run("The base memorystorage cats test", func(t *testing.T) {
		ctx := context.Background()
		theStorage, err := New()
		require.NoError(t, err, "The memorystorage.New() should not return error")

		cats, err := theStorage.FindAllCats(ctx)
		require.NoError(t, err)
		assert.Empty(t, cats)

		tom, err := theStorage.CreateCat(ctx, "Tom", 3)
		require.NoError(t, err)
		assert.Equal(t, models.Cat{ID: 1, Name: "Tom", Age: 3}, *tom)

		felix, err := theStorage.CreateCat(ctx, "Felix", 5)
		require.NoError(t, err)
		assert.Equal(t, int64(2), felix.ID)

		found, err := theStorage.FindCatByID(ctx, tom.ID)
		require.NoError(t, err)
		assert.Equal(t, *tom, *found)

		age := 4
		updated, err := theStorage.UpdateCat(ctx, tom.ID, models.CatPatch{Age: &age})
		require.NoError(t, err)
		assert.Equal(t, models.Cat{ID: 1, Name: "Tom", Age: 4}, *updated)

		cats, err = theStorage.FindAllCats(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.Cat{*updated, *felix}, cats)

		require.NoError(t, theStorage.DeleteCat(ctx, tom.ID))
		assert.ErrorIs(t, theStorage.DeleteCat(ctx, tom.ID), models.ErrNotFound)

		_, err = theStorage.FindCatByID(ctx, tom.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = theStorage.UpdateCat(ctx, tom.ID, models.CatPatch{Age: &age})
		assert.ErrorIs(t, err, models.ErrNotFound)

		newcomer, err := theStorage.CreateCat(ctx, "Garfield", 7)
		require.NoError(t, err)
		assert.Equal(t, int64(3), newcomer.ID, "ids of deleted cats should not be reused")

		assert.NoError(t, theStorage.Ping(ctx), "The memorystorage.Ping() should not return error")
		assert.NoError(t, theStorage.Close(), "The memorystorage.Close() should not return error")
	})
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	theStorage, err := New()
	require.NoError(t, err)

	count, err := theStorage.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	created, err := theStorage.CreateUser(ctx, &models.User{Email: "admin@example.com", Name: "ADMIN", Hash: "hash"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	_, err = theStorage.CreateUser(ctx, &models.User{Email: "admin@example.com", Name: "OTHER", Hash: "hash2"})
	assert.ErrorIs(t, err, models.ErrConflict)

	found, err := theStorage.FindUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", found.Hash)
	assert.Equal(t, "ADMIN", found.Name)

	_, err = theStorage.FindUserByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)

	count, err = theStorage.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSnapshotIsDetached(t *testing.T) {
	ctx := context.Background()
	theStorage, err := New()
	require.NoError(t, err)

	_, err = theStorage.CreateCat(ctx, "Tom", 3)
	require.NoError(t, err)

	snapshot := theStorage.Snapshot()
	_, err = theStorage.CreateCat(ctx, "Felix", 5)
	require.NoError(t, err)

	assert.Len(t, snapshot.Cats, 1)
	assert.Equal(t, int64(2), snapshot.NextCatID)
}
