// Package artifact provides checks over pre-generated fallback artifacts:
// existence, content fingerprinting, and staleness relative to the source.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Exists reports whether the artifact at rel exists under root. A missing
// file is not an error; any other stat failure is.
func Exists(root, rel string) (bool, error) {
	info, err := os.Stat(filepath.Join(root, rel))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat artifact %s: %w", rel, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("artifact path %s is a directory", rel)
	}
	return true, nil
}

// Fingerprint computes the SHA-256 content hash of the file at rel under root.
func Fingerprint(root, rel string) (string, error) {
	f, err := os.Open(filepath.Join(root, rel))
	if err != nil {
		return "", fmt.Errorf("failed to open artifact %s: %w", rel, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash artifact %s: %w", rel, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsStale reports whether the output artifact is older than its input source.
// Staleness is advisory: a stale fallback is still usable, but worth a warning.
func IsStale(root, input, output string) (bool, error) {
	inInfo, err := os.Stat(filepath.Join(root, input))
	if err != nil {
		return false, fmt.Errorf("failed to stat input %s: %w", input, err)
	}
	outInfo, err := os.Stat(filepath.Join(root, output))
	if err != nil {
		return false, fmt.Errorf("failed to stat output %s: %w", output, err)
	}
	return outInfo.ModTime().Before(inInfo.ModTime()), nil
}
