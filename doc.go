// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
mnd is a MimbleWimble chain daemon.

It maintains a fully validated block chain whose state is committed to by
three merkle mountain range accumulators over outputs, range proofs, and
transaction kernels.  Blocks are checked for structural sanity, contextual
validity against the chain, and cryptographic balance before being
connected, and the chain reorganizes automatically onto whichever branch
carries the most cumulative proof of work.

Usage:

	mnd [OPTIONS]

Application Options:

	-V, --version        Display version information and exit
	-C, --configfile=    Path to configuration file
	    --appdata=       Path to application home directory
	-b, --datadir=       Directory to store data
	    --logdir=        Directory to log output
	    --nofilelogging  Disable file logging
	-d, --debuglevel=    Logging level {trace, debug, info, warn, error,
	                     critical} (default: info)
	    --simnet         Use the simulation test network

Help Options:

	-h, --help           Show this help message
*/
package main
