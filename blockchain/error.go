// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "fmt"

// ErrorKind identifies a kind of error.
type ErrorKind string

// These constants are used to identify a specific RuleError.
const (
	// ErrDuplicateBlock indicates a block with the same hash already
	// exists.
	ErrDuplicateBlock = ErrorKind("ErrDuplicateBlock")

	// ErrMissingParent indicates that the block was an orphan.
	ErrMissingParent = ErrorKind("ErrMissingParent")

	// ErrBlockTooBig indicates the weight of a block exceeds the maximum
	// allowed block weight.
	ErrBlockTooBig = ErrorKind("ErrBlockTooBig")

	// ErrBadBlockHeight indicates the block does not have a height that is
	// exactly one more than its parent.
	ErrBadBlockHeight = ErrorKind("ErrBadBlockHeight")

	// ErrTimeTooOld indicates the time is either before the median time of
	// the last several blocks per the chain consensus rules or prior to
	// the parent block time.
	ErrTimeTooOld = ErrorKind("ErrTimeTooOld")

	// ErrTimeTooNew indicates the time is too far in the future as
	// compared to the current time.
	ErrTimeTooNew = ErrorKind("ErrTimeTooNew")

	// ErrUnexpectedDifficulty indicates specified bits do not align with
	// the expected value either because it doesn't match the calculated
	// value based on difficulty rules.
	ErrUnexpectedDifficulty = ErrorKind("ErrUnexpectedDifficulty")

	// ErrHighHash indicates the block does not hash to a value which is
	// lower than the required target difficultly.
	ErrHighHash = ErrorKind("ErrHighHash")

	// ErrNoKernels indicates the block does not carry a single kernel.
	ErrNoKernels = ErrorKind("ErrNoKernels")

	// ErrBadCoinbase indicates the block does not carry exactly one
	// coinbase output and one coinbase kernel.
	ErrBadCoinbase = ErrorKind("ErrBadCoinbase")

	// ErrBadKernel indicates a kernel carries a field combination that is
	// invalid for its features, such as a lock height on a plain kernel.
	ErrBadKernel = ErrorKind("ErrBadKernel")

	// ErrDuplicateKernel indicates a block carries the same kernel excess
	// more than once.
	ErrDuplicateKernel = ErrorKind("ErrDuplicateKernel")

	// ErrDuplicateInput indicates a block or transaction spends the same
	// output commitment more than once.
	ErrDuplicateInput = ErrorKind("ErrDuplicateInput")

	// ErrDuplicateCommitment indicates a block or transaction attempts to
	// create an output commitment that already exists unspent.
	ErrDuplicateCommitment = ErrorKind("ErrDuplicateCommitment")

	// ErrMissingInput indicates an input references an output commitment
	// that does not exist unspent, either because it never existed or
	// because it was already spent.
	ErrMissingInput = ErrorKind("ErrMissingInput")

	// ErrImmatureCoinbase indicates an input spends a coinbase output
	// before the required coinbase maturity.
	ErrImmatureCoinbase = ErrorKind("ErrImmatureCoinbase")

	// ErrImmatureTransaction indicates a kernel with a height lock was
	// included in a block before the lock height.
	ErrImmatureTransaction = ErrorKind("ErrImmatureTransaction")

	// ErrBadRangeProof indicates an output's range proof does not verify
	// against its commitment.
	ErrBadRangeProof = ErrorKind("ErrBadRangeProof")

	// ErrBadKernelSignature indicates a kernel's excess signature does not
	// verify against its excess commitment.
	ErrBadKernelSignature = ErrorKind("ErrBadKernelSignature")

	// ErrBadKernelSums indicates the sum of a block's or transaction's
	// output and input commitments does not balance against its kernel
	// excesses and kernel offset.
	ErrBadKernelSums = ErrorKind("ErrBadKernelSums")

	// ErrBadAccumulatorRoot indicates a header commits to accumulator
	// roots that do not match the state after connecting the block.
	ErrBadAccumulatorRoot = ErrorKind("ErrBadAccumulatorRoot")

	// ErrBadAccumulatorSize indicates a header commits to accumulator
	// sizes that do not match the state after connecting the block.
	ErrBadAccumulatorSize = ErrorKind("ErrBadAccumulatorSize")

	// ErrBadKernelOffset indicates a header's total kernel offset does not
	// extend its parent's total offset by the block offset.
	ErrBadKernelOffset = ErrorKind("ErrBadKernelOffset")

	// ErrInvalidAncestorBlock indicates an ancestor of this block has
	// already failed validation.
	ErrInvalidAncestorBlock = ErrorKind("ErrInvalidAncestorBlock")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// RuleError identifies a rule violation.  It is used to indicate that
// processing of a block or transaction failed due to one of the many
// validation rules.  It has full support for errors.Is and errors.As, so
// the caller can ascertain the specific reason for the error by checking
// the underlying error.
type RuleError struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e RuleError) Unwrap() error {
	return e.Err
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(kind ErrorKind, desc string) RuleError {
	return RuleError{Err: kind, Description: desc}
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
