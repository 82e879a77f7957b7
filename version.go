// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import "fmt"

// Constants defining the application version number.  The version follows
// the semantic versioning 2.0.0 spec (https://semver.org/).
const (
	versionMajor = 0
	versionMinor = 1
	versionPatch = 0

	// versionPreRelease defines the pre-release version of the
	// application.  It is only appended to the version string when it is
	// not empty.
	versionPreRelease = "pre"
)

// version returns the application version as a properly formed string per
// the semantic versioning 2.0.0 spec.
func version() string {
	version := fmt.Sprintf("%d.%d.%d", versionMajor, versionMinor,
		versionPatch)
	if versionPreRelease != "" {
		version += "-" + versionPreRelease
	}
	return version
}
