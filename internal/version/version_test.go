package version

import (
	"runtime/debug"
	"testing"
)

func TestString(t *testing.T) {
	origVersion, origSHA := Version, GitSHA
	defer func() { Version, GitSHA = origVersion, origSHA }()

	Version, GitSHA = "1.2.3", "abc123"
	if got, want := String(), "trajprep 1.2.3 (git abc123, built unknown)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestRevisionFrom(t *testing.T) {
	stamped := &debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs", Value: "git"},
		{Key: "vcs.revision", Value: "0f1e2d"},
	}}
	if got := revisionFrom(stamped, true); got != "0f1e2d" {
		t.Errorf("revisionFrom(stamped) = %q, want 0f1e2d", got)
	}
	if got := revisionFrom(&debug.BuildInfo{}, true); got != "unknown" {
		t.Errorf("revisionFrom(unstamped) = %q, want unknown", got)
	}
	if got := revisionFrom(nil, false); got != "unknown" {
		t.Errorf("revisionFrom(nil) = %q, want unknown", got)
	}
}
