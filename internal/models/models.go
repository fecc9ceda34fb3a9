// Package models holds the records, request/response payloads and sentinel
// errors shared by the storage, service and router layers.
package models

import "errors"

// Cat is the single resource exposed by the API.
type Cat struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// CatPatch is a partial update; nil fields keep their stored value.
type CatPatch struct {
	Name *string
	Age  *int
}

// IsEmpty reports whether the patch changes nothing.
func (p CatPatch) IsEmpty() bool {
	return p.Name == nil && p.Age == nil
}

// User is an account that may log in. Users are only created by the startup seeding.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Hash  string `json:"-"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"min=3,email"`
	Password string `json:"password" validate:"min=8"`
}

type LoginResponse struct {
	Status      string `json:"status"`
	AccessToken string `json:"accessToken"`
}

// CreateCatRequest is a validated cat creation body.
type CreateCatRequest struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

type CatsResponse struct {
	Status string `json:"status"`
	Cats   []Cat  `json:"cats"`
}

type CatResponse struct {
	Status string `json:"status"`
	Data   Cat    `json:"data"`
}

type ErrorResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Errors  interface{} `json:"errors,omitempty"`
}

const (
	StatusOK         = "ok"
	StatusAuthorized = "Authorized"
	StatusError      = "error"
)

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("record already exists")
	ErrUnauthorized = errors.New("unauthorized")
)
