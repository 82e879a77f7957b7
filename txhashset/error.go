// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txhashset

import "fmt"

// ErrorKind identifies a kind of error.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ErrOutputNotFound indicates a referenced output commitment does not
	// exist in the unspent output set, either because it never existed or
	// because it has already been spent.
	ErrOutputNotFound = ErrorKind("ErrOutputNotFound")

	// ErrDuplicateOutput indicates an output commitment already exists
	// unspent in the output set.
	ErrDuplicateOutput = ErrorKind("ErrDuplicateOutput")

	// ErrCorruptState indicates serialized accumulator state loaded from
	// the database could not be parsed.
	ErrCorruptState = ErrorKind("ErrCorruptState")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies an error related to the transaction hash set.  It has
// full support for errors.Is and errors.As, so the caller can ascertain the
// specific reason for the error by checking the underlying error.
type Error struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// makeError creates an Error given a set of arguments.
func makeError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}

// AssertError identifies an error that indicates an internal code
// consistency issue and should be treated as a critical and unrecoverable
// error.
type AssertError string

// Error returns the assertion error as a human-readable string and
// satisfies the error interface.
func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}

// panicf is a convenience function that formats according to the given
// format specifier and arguments and panics with it.
func panicf(format string, args ...interface{}) {
	str := fmt.Sprintf(format, args...)
	panic(AssertError(str))
}
