// Package mockstorage provides a testify-based mock implementation
// of storage.Storage. Service and router tests use it to simulate
// repository failures that the real backends cannot produce on demand.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/catsapi/internal/models"
)

// StorageMock is a testify mock that implements every repository method.
type StorageMock struct {
	mock.Mock

	// OnCountUsers is an optional function field that can be assigned
	// to define custom mock behavior for CountUsers in tests.
	//
	// If set, CountUsers will delegate to this function instead of
	// using testify's generic mock handler.
	OnCountUsers func(ctx context.Context) (int64, error)
}

func (m *StorageMock) FindAllCats(ctx context.Context) ([]models.Cat, error) {
	args := m.Called(ctx)
	cats, _ := args.Get(0).([]models.Cat)
	return cats, args.Error(1)
}

func (m *StorageMock) FindCatByID(ctx context.Context, id int64) (*models.Cat, error) {
	args := m.Called(ctx, id)
	cat, _ := args.Get(0).(*models.Cat)
	return cat, args.Error(1)
}

func (m *StorageMock) CreateCat(ctx context.Context, name string, age int) (*models.Cat, error) {
	args := m.Called(ctx, name, age)
	cat, _ := args.Get(0).(*models.Cat)
	return cat, args.Error(1)
}

func (m *StorageMock) UpdateCat(ctx context.Context, id int64, patch models.CatPatch) (*models.Cat, error) {
	args := m.Called(ctx, id, patch)
	cat, _ := args.Get(0).(*models.Cat)
	return cat, args.Error(1)
}

func (m *StorageMock) DeleteCat(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *StorageMock) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*models.User)
	return usr, args.Error(1)
}

// CountUsers mocks counting the user records.
// If OnCountUsers is set, it is used instead of the default testify mock behavior.
func (m *StorageMock) CountUsers(ctx context.Context) (int64, error) {
	if m.OnCountUsers != nil {
		return m.OnCountUsers(ctx)
	}
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) CreateUser(ctx context.Context, usr *models.User) (*models.User, error) {
	args := m.Called(ctx, usr)
	created, _ := args.Get(0).(*models.User)
	return created, args.Error(1)
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
