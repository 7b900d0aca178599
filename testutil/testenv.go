// Package testutil provides shared environment helpers for E2E tests. It
// depends only on stdlib so that E2E tests (which cannot import internal/)
// can use it.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly).
// Existing env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// AllowlistEnv names the comma-separated list of SharePoint file URLs that
// E2E tests may read and overwrite.
const AllowlistEnv = "TEAMS_KDBX_ALLOWED_TEST_URLS"

// ValidateAllowlist exits the process unless the URL in urlEnvVar is set and
// listed in AllowlistEnv, so a misconfigured run never writes to a real vault.
func ValidateAllowlist(urlEnvVar string) string {
	allowlist := os.Getenv(AllowlistEnv)
	if allowlist == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", AllowlistEnv)
		fmt.Fprintln(os.Stderr, "Set it in .env or as an environment variable.")
		os.Exit(1)
	}

	testURL := os.Getenv(urlEnvVar)
	if testURL == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", urlEnvVar)
		os.Exit(1)
	}

	for _, a := range strings.Split(allowlist, ",") {
		if strings.TrimSpace(a) == testURL {
			return testURL
		}
	}

	fmt.Fprintf(os.Stderr, "FATAL: %s=%q is not in %s=%q\n", urlEnvVar, testURL, AllowlistEnv, allowlist)
	os.Exit(1)

	return ""
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}

// StoreFileName is the per-origin store inside a data directory.
const StoreFileName = "origin-store.db"

// FindTestStore locates the signed-in store under .testdata/ relative to the
// module root. Exits if it does not exist.
func FindTestStore(moduleRoot string) string {
	path := filepath.Join(moduleRoot, ".testdata", StoreFileName)

	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "FATAL: test store not found at "+path)
		fmt.Fprintln(os.Stderr, "Run: teams-kdbx --data-dir .testdata login")
		os.Exit(1)
	}

	return path
}

// CopyFile copies a file from src to dst with the given permissions.
// Exits on failure because tests cannot proceed without the file.
func CopyFile(src, dst string, perm os.FileMode) {
	data, err := os.ReadFile(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: cannot read %s: %v\n", src, err)
		os.Exit(1)
	}

	if writeErr := os.WriteFile(dst, data, perm); writeErr != nil {
		fmt.Fprintf(os.Stderr, "FATAL: writing %s: %v\n", dst, writeErr)
		os.Exit(1)
	}
}
