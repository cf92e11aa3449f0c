package crossforge

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lukechampine.com/blake3"
)

// stateFileName is the per-directory manifest recording what a source or
// build directory actually contains. Presence of a directory alone is never
// trusted: a changed version re-fetches, a changed flag set re-configures.
const stateFileName = ".crossforge-state.json"

type buildState struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	FlagsHash  string `json:"flags_hash,omitempty"`
	Target     string `json:"target,omitempty"`
	Prefix     string `json:"prefix,omitempty"`
	Configured bool   `json:"configured,omitempty"`
	Completed  bool   `json:"completed,omitempty"`
}

// readState returns the manifest for dir, or nil when none exists.
func readState(dir string) *buildState {
	data, err := os.ReadFile(filepath.Join(dir, stateFileName))
	if err != nil {
		return nil
	}
	var st buildState
	if err := json.Unmarshal(data, &st); err != nil {
		debugf("Ignoring corrupt state file in %s: %v\n", dir, err)
		return nil
	}
	return &st
}

// writeState persists the manifest atomically (temp file + rename).
func writeState(dir string, st *buildState) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	target := filepath.Join(dir, stateFileName)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// hashString returns the hex BLAKE3 digest of s. Used for download cache
// keys and configure flag fingerprints.
func hashString(s string) string {
	h := blake3.New(32, nil)
	h.Write([]byte(s))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// hashFlags fingerprints an argument list so a changed configure invocation
// invalidates a previously configured build directory.
func hashFlags(flags []string) string {
	return hashString(strings.Join(flags, "\x00"))
}

// hashFile returns the hex BLAKE3 digest of a file's contents.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
