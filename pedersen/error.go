// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pedersen

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrInvalidCommitment indicates a serialized commitment does not
	// represent a valid curve point.
	ErrInvalidCommitment = ErrorKind("ErrInvalidCommitment")

	// ErrCommitToInfinity indicates a commitment operation produced the
	// point at infinity, which has no serialized form.
	ErrCommitToInfinity = ErrorKind("ErrCommitToInfinity")

	// ErrInvalidSignature indicates a kernel excess signature failed to
	// verify against its excess and message.
	ErrInvalidSignature = ErrorKind("ErrInvalidSignature")

	// ErrInvalidRangeProof indicates a range proof failed to verify
	// against its commitment.
	ErrInvalidRangeProof = ErrorKind("ErrInvalidRangeProof")

	// ErrZeroBlind indicates a zero blinding factor was provided where a
	// nonzero one is required.
	ErrZeroBlind = ErrorKind("ErrZeroBlind")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies an error related to the commitment algebra.  It has full
// support for errors.Is and errors.As, so the caller can ascertain the
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
