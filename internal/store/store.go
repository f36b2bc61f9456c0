// Package store holds the storage contract shared by the dish and order
// resources and a generic in-memory implementation of it.
package store

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
	// ErrPrecondition is returned by DeleteIf when the record exists but
	// fails its condition.
	ErrPrecondition = errors.New("record does not meet condition")
)

// Record is implemented by the models kept in a store.
type Record[T any] interface {
	Key() string
	Clone() T
}
