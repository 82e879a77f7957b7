// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines chain configuration parameters.
//
// In addition to the main network, which is intended for the transfer of
// monetary value, there is also a simulation test network.  The simulation
// network is used for private testing with a difficulty low enough that
// blocks can be created on demand.
package chaincfg
