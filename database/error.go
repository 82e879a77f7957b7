// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific database Error.
const (
	// ErrDbNotOpen indicates a database instance is accessed before it is
	// opened or after it is closed.
	ErrDbNotOpen = ErrorKind("ErrDbNotOpen")

	// ErrKeyNotFound indicates a key does not exist in the database.
	ErrKeyNotFound = ErrorKind("ErrKeyNotFound")

	// ErrBatchCommitted indicates an attempt was made to commit or mutate
	// a batch that has already been committed.
	ErrBatchCommitted = ErrorKind("ErrBatchCommitted")

	// ErrDriver indicates the underlying storage driver returned an
	// unexpected failure.
	ErrDriver = ErrorKind("ErrDriver")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error provides a single type for errors that can happen during database
// operation.  It has full support for errors.Is and errors.As, so the caller
// can ascertain the specific reason for the error.
type Error struct {
	Err         error
	Description string
	RawErr      error
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// makeError creates an Error given a set of arguments.  The raw error is
// kept for callers that need the driver-level failure detail.
func makeError(kind ErrorKind, desc string, rawErr error) Error {
	return Error{Err: kind, Description: desc, RawErr: rawErr}
}
