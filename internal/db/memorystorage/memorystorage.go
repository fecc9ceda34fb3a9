// Package memorystorage keeps users and cats in process memory. It is the
// fallback backend when neither a database DSN nor a storage file is configured,
// and the base the JSON file backend persists.
package memorystorage

import (
	"context"
	"sort"
	"sync"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/catsapi/internal/models"
)

// CacheStruct is the whole state of the storage. It is exported so the
// JSON file backend can serialize it as is.
type CacheStruct struct {
	Cats       map[int64]models.Cat
	Users      map[int64]StoredUser
	NextCatID  int64
	NextUserID int64
}

// StoredUser mirrors models.User but keeps the hash visible to encoding/json.
type StoredUser struct {
	ID    int64
	Email string
	Name  string
	Hash  string
}

type MemoryStorage struct {
	mu    sync.RWMutex
	Cache CacheStruct
}

func NewCache() CacheStruct {
	return CacheStruct{
		Cats:       map[int64]models.Cat{},
		Users:      map[int64]StoredUser{},
		NextCatID:  1,
		NextUserID: 1,
	}
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{Cache: NewCache()}, nil
}

// FindAllCats returns every cat ordered by id.
func (s *MemoryStorage) FindAllCats(ctx context.Context) ([]models.Cat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := funk.Keys(s.Cache.Cats).([]int64)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := make([]models.Cat, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.Cache.Cats[id])
	}

	return result, nil
}

func (s *MemoryStorage) FindCatByID(ctx context.Context, id int64) (*models.Cat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cat, found := s.Cache.Cats[id]
	if !found {
		return nil, models.ErrNotFound
	}

	return &cat, nil
}

func (s *MemoryStorage) CreateCat(ctx context.Context, name string, age int) (*models.Cat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat := models.Cat{ID: s.Cache.NextCatID, Name: name, Age: age}
	s.Cache.Cats[cat.ID] = cat
	s.Cache.NextCatID++

	return &cat, nil
}

func (s *MemoryStorage) UpdateCat(ctx context.Context, id int64, patch models.CatPatch) (*models.Cat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat, found := s.Cache.Cats[id]
	if !found {
		return nil, models.ErrNotFound
	}
	if patch.Name != nil {
		cat.Name = *patch.Name
	}
	if patch.Age != nil {
		cat.Age = *patch.Age
	}
	s.Cache.Cats[id] = cat

	return &cat, nil
}

func (s *MemoryStorage) DeleteCat(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.Cache.Cats[id]; !found {
		return models.ErrNotFound
	}
	delete(s.Cache.Cats, id)

	return nil
}

func (s *MemoryStorage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, usr := range s.Cache.Users {
		if usr.Email == email {
			return usr.toModel(), nil
		}
	}

	return nil, models.ErrNotFound
}

func (s *MemoryStorage) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.Cache.Users)), nil
}

func (s *MemoryStorage) CreateUser(ctx context.Context, usr *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.Cache.Users {
		if existing.Email == usr.Email {
			return nil, models.ErrConflict
		}
	}

	stored := StoredUser{
		ID:    s.Cache.NextUserID,
		Email: usr.Email,
		Name:  usr.Name,
		Hash:  usr.Hash,
	}
	s.Cache.Users[stored.ID] = stored
	s.Cache.NextUserID++

	return stored.toModel(), nil
}

// Snapshot returns a deep copy of the state, safe to serialize while
// the storage keeps serving requests.
func (s *MemoryStorage) Snapshot() CacheStruct {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := CacheStruct{
		Cats:       make(map[int64]models.Cat, len(s.Cache.Cats)),
		Users:      make(map[int64]StoredUser, len(s.Cache.Users)),
		NextCatID:  s.Cache.NextCatID,
		NextUserID: s.Cache.NextUserID,
	}
	for id, cat := range s.Cache.Cats {
		snapshot.Cats[id] = cat
	}
	for id, usr := range s.Cache.Users {
		snapshot.Users[id] = usr
	}

	return snapshot
}

func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

func (u StoredUser) toModel() *models.User {
	return &models.User{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Hash:  u.Hash,
	}
}
