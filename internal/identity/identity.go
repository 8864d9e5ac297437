// Package identity manages a peer's persistent 128-bit identity: generated
// once, stored as a plain UUID string, and reused across restarts and
// address changes.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
)

// DefaultPath returns the conventional identity file location under the
// XDG data directory (mirrors the teacher's xdg.DataFile use for its own
// node identity file).
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join("fabric", "peer.id"))
}

// LoadOrCreate reads the UUID stored at path, or generates and persists a
// fresh one if the file does not exist. The returned string is always a
// valid, lowercase, hyphenated UUID.
func LoadOrCreate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if _, perr := uuid.Parse(id); perr != nil {
			return "", fmt.Errorf("identity: corrupt identity file %s: %w", path, perr)
		}
		return id, nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("identity: read %s: %w", path, err)
	}

	id := uuid.New().String()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("identity: create data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id), 0o600); err != nil {
		return "", fmt.Errorf("identity: write %s: %w", path, err)
	}
	return id, nil
}
