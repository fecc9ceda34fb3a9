package service

import (
	"context"
	"fmt"

	"github.com/patric-chuzhbe/catsapi/internal/auth"
	"github.com/patric-chuzhbe/catsapi/internal/logger"
	"github.com/patric-chuzhbe/catsapi/internal/models"
)

// DefaultUserName is the display name of the seeded administrator.
const DefaultUserName = "ADMIN"

type userStore interface {
	CountUsers(ctx context.Context) (int64, error)

	CreateUser(ctx context.Context, usr *models.User) (*models.User, error)
}

// SeedDefaultUser creates the administrator account when the users table is
// empty. It does nothing otherwise. Any failure, a duplicate email included,
// must stop the startup.
func SeedDefaultUser(ctx context.Context, db userStore, email, password string) error {
	logger.Log.Infoln("Checking whether the default user has to be created")

	count, err := db.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("in internal/service/seed.go/SeedDefaultUser(): error while `db.CountUsers()` calling: %w", err)
	}
	if count > 0 {
		logger.Log.Infow("Users already exist, seeding skipped", "users", count)
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("in internal/service/seed.go/SeedDefaultUser(): error while `auth.HashPassword()` calling: %w", err)
	}

	usr, err := db.CreateUser(ctx, &models.User{
		Email: email,
		Name:  DefaultUserName,
		Hash:  hash,
	})
	if err != nil {
		return fmt.Errorf("in internal/service/seed.go/SeedDefaultUser(): error while `db.CreateUser()` calling: %w", err)
	}

	logger.Log.Infow("Default user created", "id", usr.ID, "email", usr.Email)

	return nil
}
