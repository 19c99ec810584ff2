package e2e

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// buildCoroflatBinary builds the CLI into a temporary directory
func buildCoroflatBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "coroflat")

	projectRoot, err := filepath.Abs("..")
	if err != nil {
		t.Fatalf("Failed to get project root: %v", err)
	}

	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/coroflat")
	cmd.Dir = projectRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build coroflat binary: %v\n%s", err, out)
	}

	return binaryPath
}

// createTestConfigFile creates a .coroflat.toml that directs reports to
// outputDir and declares the suspend functions
func createTestConfigFile(t *testing.T, testDir, outputDir string, suspend ...string) {
	t.Helper()

	content := fmt.Sprintf("[output]\ndirectory = %q\n", outputDir)
	if len(suspend) > 0 {
		content += "\n[suspend]\nfunctions = ["
		for i, s := range suspend {
			if i > 0 {
				content += ", "
			}
			content += fmt.Sprintf("%q", s)
		}
		content += "]\n"
	}

	configFile := filepath.Join(testDir, ".coroflat.toml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}
}

func createTestSourceFile(t *testing.T, dir, filename, content string) string {
	t.Helper()

	filePath := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", filename, err)
	}
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", filename, err)
	}
	return filePath
}
