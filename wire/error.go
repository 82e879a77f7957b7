// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrNonCanonicalVarInt is returned when a variable length integer is
	// not canonically encoded.
	ErrNonCanonicalVarInt = ErrorKind("ErrNonCanonicalVarInt")

	// ErrTooManyInputs is returned when the number of inputs exceeds the
	// maximum allowed.
	ErrTooManyInputs = ErrorKind("ErrTooManyInputs")

	// ErrTooManyOutputs is returned when the number of outputs exceeds the
	// maximum allowed.
	ErrTooManyOutputs = ErrorKind("ErrTooManyOutputs")

	// ErrTooManyKernels is returned when the number of kernels exceeds the
	// maximum allowed.
	ErrTooManyKernels = ErrorKind("ErrTooManyKernels")

	// ErrUnknownOutputFeatures is returned when an output declares feature
	// bits that are not defined by consensus.
	ErrUnknownOutputFeatures = ErrorKind("ErrUnknownOutputFeatures")

	// ErrUnknownKernelFeatures is returned when a kernel declares feature
	// bits that are not defined by consensus.
	ErrUnknownKernelFeatures = ErrorKind("ErrUnknownKernelFeatures")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// MessageError describes an issue with serializing or deserializing one of
// the wire structures.  It has full support for errors.Is and errors.As, so
// the caller can ascertain the specific reason for the error.
type MessageError struct {
	Func        string
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e MessageError) Error() string {
	if e.Func != "" {
		return e.Func + ": " + e.Description
	}
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e MessageError) Unwrap() error {
	return e.Err
}

// messageError creates a MessageError given a set of arguments.
func messageError(fn string, kind ErrorKind, desc string) MessageError {
	return MessageError{Func: fn, Err: kind, Description: desc}
}
