package version

import (
	"strings"
	"testing"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Fatal("Version should have a default value")
	}
}

func TestColored(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "1.2.3-rc.1"
	if got := Colored(false); got != "1.2.3-rc.1" {
		t.Fatalf("Colored(false) = %q", got)
	}
	got := Colored(true)
	if !strings.Contains(got, "\x1b[") || !strings.HasSuffix(got, "-rc.1") {
		t.Fatalf("Colored(true) = %q, want ANSI parts and the suffix", got)
	}

	Version = "nightly"
	if got := Colored(true); got != "nightly" {
		t.Fatalf("non-semantic version should pass through, got %q", got)
	}
}

func TestInfo(t *testing.T) {
	origCommit, origDate := GitCommit, BuildDate
	t.Cleanup(func() { GitCommit, BuildDate = origCommit, origDate })

	GitCommit, BuildDate = "", ""
	if got := Info(false); got != "dtolsp "+Version+"\n" {
		t.Fatalf("Info() = %q", got)
	}

	GitCommit, BuildDate = "abc123", "2024-01-15T10:30:00Z"
	got := Info(false)
	for _, want := range []string{"commit: abc123", "built:  2024-01-15T10:30:00Z"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Info() = %q, missing %q", got, want)
		}
	}
}
