package queue

import (
	"errors"
	"fmt"
)

// StorageError wraps any failure of the underlying queue database. Callers
// distinguish it from delivery failures with IsStorageError: storage problems
// abort the current operation but must never crash the host process or be
// confused with a rejected command.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("queue storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err originated in the queue database layer.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
