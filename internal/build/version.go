package build

import "runtime"

// Version, Commit, and Date are overridden at link time via
// -ldflags "-X .../internal/build.Version=...".
var (
	Version = "dev"
	Commit  string
	Date    string
)

// GoVersion is the toolchain used to build this binary.
var GoVersion = runtime.Version()
