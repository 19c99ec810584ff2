package version_test

import (
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/ludo-technologies/coroflat/internal/version"
)

func TestShort(t *testing.T) {
	if version.Short() == "" {
		t.Error("Short() should return non-empty string")
	}
	if version.Short() != version.Version {
		t.Errorf("Short() = %q, want %q", version.Short(), version.Version)
	}
}

func TestInfoFormat(t *testing.T) {
	lines := strings.Split(version.Info(), "\n")
	if len(lines) != 5 {
		t.Fatalf("Info() should contain 5 lines, got %d", len(lines))
	}

	expectedPrefixes := []string{"coroflat ", "Commit:", "Built:", "Go:", "OS/Arch:"}
	for i, prefix := range expectedPrefixes {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("line %d should start with %q, got %q", i+1, prefix, lines[i])
		}
	}
}

func TestInfoIncludesBuildMetadata(t *testing.T) {
	info := version.Info()

	expected := []string{
		fmt.Sprintf("coroflat %s", version.Version),
		fmt.Sprintf("Commit: %s", version.Commit),
		fmt.Sprintf("Built: %s", version.Date),
		fmt.Sprintf("Go: %s", runtime.Version()),
		fmt.Sprintf("OS/Arch: %s/%s", runtime.GOOS, runtime.GOARCH),
	}
	for _, want := range expected {
		if !strings.Contains(info, want) {
			t.Errorf("Info() output missing %q", want)
		}
	}
}

func TestLinkerOverrides(t *testing.T) {
	saved := []string{version.Version, version.Commit, version.Date}
	defer func() {
		version.Version, version.Commit, version.Date = saved[0], saved[1], saved[2]
	}()

	version.Version = "v0.3.0"
	version.Commit = "1a2b3c4"
	version.Date = "2026-10-19T08:00:00Z"

	if got := version.Short(); got != "v0.3.0" {
		t.Errorf("Short() = %q, want %q", got, "v0.3.0")
	}
	lines := strings.Split(version.Info(), "\n")
	if lines[0] != "coroflat v0.3.0" || lines[1] != "Commit: 1a2b3c4" || lines[2] != "Built: 2026-10-19T08:00:00Z" {
		t.Errorf("Info() did not pick up the linker values:\n%s", version.Info())
	}
}
