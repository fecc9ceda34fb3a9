package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/catsapi/internal/auth"
	"github.com/patric-chuzhbe/catsapi/internal/db/memorystorage"
	"github.com/patric-chuzhbe/catsapi/internal/mockstorage"
	"github.com/patric-chuzhbe/catsapi/internal/models"
)

func TestSeedDefaultUser(t *testing.T) {
	ctx := context.Background()
	theStorage, err := memorystorage.New()
	require.NoError(t, err)

	require.NoError(t, SeedDefaultUser(ctx, theStorage, "admin@example.com", "s3cret-pass"))

	usr, err := theStorage.FindUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, DefaultUserName, usr.Name)
	assert.NotEqual(t, "s3cret-pass", usr.Hash)
	assert.True(t, auth.CheckPassword(usr.Hash, "s3cret-pass"))

	// A second start finds the user and leaves the table alone.
	require.NoError(t, SeedDefaultUser(ctx, theStorage, "other@example.com", "another-pass"))
	count, err := theStorage.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSeedDefaultUserFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("count_fails", func(t *testing.T) {
		theStorage := &mockstorage.StorageMock{
			OnCountUsers: func(ctx context.Context) (int64, error) {
				return 0, errors.New("database is down")
			},
		}

		err := SeedDefaultUser(ctx, theStorage, "admin@example.com", "password")
		assert.Error(t, err)
		theStorage.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("conflict", func(t *testing.T) {
		theStorage := new(mockstorage.StorageMock)
		theStorage.On("CountUsers", mock.Anything).Return(int64(0), nil)
		theStorage.On("CreateUser", mock.Anything, mock.MatchedBy(func(usr *models.User) bool {
			return usr.Email == "admin@example.com" && usr.Name == DefaultUserName
		})).Return(nil, models.ErrConflict)

		err := SeedDefaultUser(ctx, theStorage, "admin@example.com", "password")
		assert.ErrorIs(t, err, models.ErrConflict)
		theStorage.AssertExpectations(t)
	})
}
