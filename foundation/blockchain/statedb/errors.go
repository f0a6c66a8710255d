package statedb

import (
	"errors"
	"fmt"
)

// ErrStorage matches every StorageError with errors.Is.
var ErrStorage = errors.New("storage failure")

// StorageError reports a failure of the backing database.
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (se *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %s", se.Op, se.Err)
}

// Unwrap returns the underlying failure.
func (se *StorageError) Unwrap() error {
	return se.Err
}

// Is lets errors.Is(err, ErrStorage) match any StorageError.
func (se *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// IsStorageError checks if an error of type StorageError exists.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
