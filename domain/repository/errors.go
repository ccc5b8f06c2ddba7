package repository

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("record not found")

// StorageError reports a failed read or write against a backing store.
// Nothing is persisted by an Append or AppendBatch that returns one.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
