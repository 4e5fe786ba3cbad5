package version

import "runtime/debug"

var version = "dev"

// Version returns the build string embedded via -ldflags or module info.
func Version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Sum != "" {
		return info.Main.Version
	}
	return version
}

// Set assigns the version when ldflags are not provided (local dev).
func Set(v string) {
	if v != "" {
		version = v
	}
}
