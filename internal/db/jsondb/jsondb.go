// Package jsondb is the file-backed storage: the memory storage state is loaded
// from a JSON file on start and written back on Close.
package jsondb

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/patric-chuzhbe/catsapi/internal/db/memorystorage"
	"github.com/patric-chuzhbe/catsapi/internal/models"
)

type JSONDB struct {
	*memorystorage.MemoryStorage
	fileName string
}

func initDBFile(fileName string) error {
	return writeToJSONFile(fileName, memorystorage.NewCache())
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *memorystorage.CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

// New opens the storage file, creating an empty one when it does not exist yet.
func New(fileName string) (*JSONDB, error) {
	cache := memorystorage.NewCache()

	err := parseJSONFile(fileName, &cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `parseJSONFile()` calling: %w", err)
		}
		if err := initDBFile(fileName); err != nil {
			return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `initDBFile()` calling: %w", err)
		}
	}

	normalizeCache(&cache)

	theStorage, err := memorystorage.New()
	if err != nil {
		return nil, err
	}
	theStorage.Cache = cache

	return &JSONDB{
		MemoryStorage: theStorage,
		fileName:      fileName,
	}, nil
}

// Close flushes the current state to the file.
func (db *JSONDB) Close() error {
	return writeToJSONFile(db.fileName, db.MemoryStorage.Snapshot())
}

// normalizeCache repairs files written by hand: missing maps and counters
// that lag behind the stored ids.
func normalizeCache(cache *memorystorage.CacheStruct) {
	if cache.Cats == nil {
		cache.Cats = map[int64]models.Cat{}
	}
	if cache.Users == nil {
		cache.Users = map[int64]memorystorage.StoredUser{}
	}
	for id := range cache.Cats {
		if id >= cache.NextCatID {
			cache.NextCatID = id + 1
		}
	}
	for id := range cache.Users {
		if id >= cache.NextUserID {
			cache.NextUserID = id + 1
		}
	}
	if cache.NextCatID < 1 {
		cache.NextCatID = 1
	}
	if cache.NextUserID < 1 {
		cache.NextUserID = 1
	}
}
