// Package service holds the business operations behind the HTTP handlers.
package service

import (
	"context"

	"github.com/patric-chuzhbe/catsapi/internal/models"
)

type catStore interface {
	FindAllCats(ctx context.Context) ([]models.Cat, error)

	FindCatByID(ctx context.Context, id int64) (*models.Cat, error)

	CreateCat(ctx context.Context, name string, age int) (*models.Cat, error)

	UpdateCat(ctx context.Context, id int64, patch models.CatPatch) (*models.Cat, error)

	DeleteCat(ctx context.Context, id int64) error
}

// Cats implements the cat resource on top of a repository.
// Missing ids are reported as models.ErrNotFound.
type Cats struct {
	db catStore
}

func NewCats(db catStore) *Cats {
	return &Cats{
		db: db,
	}
}

// List returns every cat ordered by id. An empty table gives an empty, non-nil slice.
func (s *Cats) List(ctx context.Context) ([]models.Cat, error) {
	cats, err := s.db.FindAllCats(ctx)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []models.Cat{}
	}

	return cats, nil
}

func (s *Cats) Get(ctx context.Context, id int64) (*models.Cat, error) {
	return s.db.FindCatByID(ctx, id)
}

func (s *Cats) Create(ctx context.Context, request models.CreateCatRequest) (*models.Cat, error) {
	return s.db.CreateCat(ctx, request.Name, request.Age)
}

// Update applies the fields present in patch. An empty patch returns the
// record unchanged; an unknown id is models.ErrNotFound.
func (s *Cats) Update(ctx context.Context, id int64, patch models.CatPatch) (*models.Cat, error) {
	return s.db.UpdateCat(ctx, id, patch)
}

func (s *Cats) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.FindCatByID(ctx, id); err != nil {
		return err
	}

	return s.db.DeleteCat(ctx, id)
}
