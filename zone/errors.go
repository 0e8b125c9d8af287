package zone

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound       = errors.New("no file found")
	ErrNoNewData      = errors.New("no new data")
	ErrMarkerMissing  = errors.New("watermark marker missing")
	ErrMalformedInput = errors.New("malformed input")
	ErrStorage        = errors.New("storage failure")

	// Reasons carried by MalformedInputError.
	ErrIncorrectTableName = errors.New("incorrect table name")
	ErrWrongFileType      = errors.New("wrong file type")
	ErrBadTimestamp       = errors.New("bad timestamp")
)

// NoNewDataError reports that the newest file for Table does not belong to the
// watermark generation. Callers skip the table.
type NoNewDataError struct {
	Table     string
	Candidate string
	Watermark string
}

func (e *NoNewDataError) Error() string {
	return fmt.Sprintf("no new data for table %q: newest file %q does not match watermark %q", e.Table, e.Candidate, e.Watermark)
}

func (e *NoNewDataError) Is(target error) bool {
	return target == ErrNoNewData
}

// MalformedInputError matches ErrMalformedInput and unwraps to its Reason.
type MalformedInputError struct {
	Reason error
	Detail string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("%v: %v: %v", ErrMalformedInput, e.Reason, e.Detail)
}

func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}

func (e *MalformedInputError) Unwrap() error {
	return e.Reason
}

// Malformed builds a MalformedInputError.
func Malformed(reason error, format string, args ...interface{}) error {
	return &MalformedInputError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// StorageError matches ErrStorage and unwraps to the client error.
type StorageError struct {
	Bucket string
	Key    string
	Op     string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%v: %v s3://%v/%v: %v", ErrStorage, e.Op, e.Bucket, e.Key, e.Err)
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
