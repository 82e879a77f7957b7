// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package pedersen implements the confidential commitment algebra the chain is
built on.

A commitment has the form value*H + blind*G for a second generator H whose
discrete log with respect to G is unknown.  Commitments are homomorphic under
addition, which is what allows transaction balances to be verified without any
amounts ever being visible: the sum of output commitments minus the sum of
input commitments commits to zero value exactly when no value was created or
destroyed, leaving only the excess blinding factor, which the kernel signature
proves knowledge of.

The package provides the commitment type and its sum predicates, Schnorr style
signatures over kernel excesses, and range proofs demonstrating that a
committed value lies in [0, 2^64) without revealing it.
*/
package pedersen
