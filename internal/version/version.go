// Package version carries the build metadata recorded with every run.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at link time with -ldflags "-X github.com/banshee-data/trajprep/internal/version.Version=...".
var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// Revision returns GitSHA, falling back to the VCS revision stamped by the
// go toolchain when the binary was built without ldflags.
func Revision() string {
	if GitSHA != "unknown" {
		return GitSHA
	}
	return revisionFrom(debug.ReadBuildInfo())
}

func revisionFrom(info *debug.BuildInfo, ok bool) string {
	if !ok || info == nil {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return s.Value
		}
	}
	return "unknown"
}

// String formats the build metadata for the version subcommand.
func String() string {
	return fmt.Sprintf("trajprep %s (git %s, built %s)", Version, Revision(), BuildTime)
}
