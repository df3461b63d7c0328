package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

func NormalizeArch(arch string) string {
	switch arch {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	default:
		return arch
	}
}

// ResolveCacheDir returns the directory holding downloaded model weights.
// An explicit override wins; otherwise the per-platform cache convention
// is used with "whisper" appended, matching where the upstream tooling
// stores its .pt files.
func ResolveCacheDir(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	return DefaultCacheDirFor(runtime.GOOS, homeDir, os.Getenv("XDG_CACHE_HOME"))
}

func DefaultCacheDirFor(goos, homeDir, xdgCacheHome string) (string, error) {
	if homeDir == "" {
		return "", errors.New("home directory is empty")
	}

	switch goos {
	case "linux":
		if xdgCacheHome != "" {
			return filepath.Join(xdgCacheHome, "whisper"), nil
		}
		return filepath.Join(homeDir, ".cache", "whisper"), nil
	case "darwin":
		return filepath.Join(homeDir, ".cache", "whisper"), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", goos)
	}
}

// DefaultLockPath is the well-known path guarding against a second
// process instance.
func DefaultLockPath() string {
	return filepath.Join(os.TempDir(), "whisperviolins.lock")
}
