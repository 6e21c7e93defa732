// Package version provides application version information.
// The version can be set at build time using ldflags:
//
//	go build -ldflags "-X github.com/ramonehamilton/deckstats/internal/version.Version=v1.2.3 -X github.com/ramonehamilton/deckstats/internal/version.Commit=abc123"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the application version. It defaults to "dev" and can be
// overridden at build time using ldflags.
var Version = "dev"

// Commit is the source revision, set by ldflags or read from build info.
var Commit = ""

// GetVersion returns the current application version.
func GetVersion() string {
	return Version
}

// GetCommit returns the source revision, falling back to the VCS stamp the
// Go toolchain embeds in the binary.
func GetCommit() string {
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				if len(s.Value) > 12 {
					return s.Value[:12]
				}
				return s.Value
			}
		}
	}
	return "unknown"
}

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("deckstats %s (%s, %s %s/%s)", GetVersion(), GetCommit(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
