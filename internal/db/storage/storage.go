// Package storage declares the repository contract every persistence backend
// (postgres, JSON file, memory) implements.
package storage

import (
	"context"

	"github.com/patric-chuzhbe/catsapi/internal/models"
)

// CatRepository is the typed gateway to the cats table.
// Lookups of a missing id return models.ErrNotFound.
type CatRepository interface {
	FindAllCats(ctx context.Context) ([]models.Cat, error)

	FindCatByID(ctx context.Context, id int64) (*models.Cat, error)

	CreateCat(ctx context.Context, name string, age int) (*models.Cat, error)

	UpdateCat(ctx context.Context, id int64, patch models.CatPatch) (*models.Cat, error)

	DeleteCat(ctx context.Context, id int64) error
}

// UserRepository is the typed gateway to the users table.
// CreateUser returns models.ErrConflict when the email is taken.
type UserRepository interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	CountUsers(ctx context.Context) (int64, error)

	CreateUser(ctx context.Context, usr *models.User) (*models.User, error)
}

type Storage interface {
	CatRepository
	UserRepository

	Ping(ctx context.Context) error

	Close() error
}
