// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrInvalidSize indicates a node count that does not describe a
	// valid mountain range, such as one that ends mid-subtree.
	ErrInvalidSize = ErrorKind("ErrInvalidSize")

	// ErrBeyondSize indicates a position at or beyond the current size of
	// the range.
	ErrBeyondSize = ErrorKind("ErrBeyondSize")

	// ErrNonLeaf indicates a leaf-only operation was attempted on an
	// internal node position.
	ErrNonLeaf = ErrorKind("ErrNonLeaf")

	// ErrMissingNode indicates a node hash that is not available, either
	// because it was physically compacted away or because the backing
	// store lost it.  The latter case is a corruption-class failure the
	// caller must not ignore.
	ErrMissingNode = ErrorKind("ErrMissingNode")

	// ErrPrunedLeaf indicates an operation that requires live leaf data
	// was attempted on a pruned leaf.
	ErrPrunedLeaf = ErrorKind("ErrPrunedLeaf")

	// ErrProofInvalid indicates a membership proof that does not verify
	// against the provided root.
	ErrProofInvalid = ErrorKind("ErrProofInvalid")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies an error related to mountain range operation.  It has
// full support for errors.Is and errors.As, so the caller can ascertain the
// specific reason for the error.
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
