package trackersvc

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Snider/Fabric/internal/ferr"
)

// diskEntry mirrors the spec's persisted shape
// `{ owner_id, owner_address: [host,port], storage: [[host,port],…] } `,
// widened per the StorageLocation doc comment to carry storage identity.
type diskEntry struct {
	OwnerID      string            `json:"owner_id"`
	OwnerAddress [2]string         `json:"owner_address"`
	Storage      []StorageLocation `json:"storage"`
}

// FilePersister writes owned_files.json atomically (write-temp-then-rename)
// after every mutation, synchronously within the caller's critical section —
// deliberately stricter than the teacher's own 5-second debounced save,
// because OwnedFileEntry mutations must be write-through (§3) rather than
// eventually persisted.
type FilePersister struct {
	path string
}

// NewFilePersister returns a Persister writing to path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Save serializes entries and atomically replaces the on-disk file.
func (p *FilePersister) Save(entries map[string]*OwnedFileEntry) error {
	out := make(map[string]diskEntry, len(entries))
	for filename, e := range entries {
		out[filename] = diskEntry{
			OwnerID:      e.OwnerID,
			OwnerAddress: [2]string{e.OwnerAddressHost, e.OwnerAddressPort},
			Storage:      e.Storage,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return ferr.Internal("marshal owned_files.json").WithCause(err)
	}

	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, ".owned_files-*.tmp")
	if err != nil {
		return ferr.Internal("create owned_files.json temp file").WithCause(err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return ferr.Internal("write owned_files.json temp file").WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return ferr.Internal("close owned_files.json temp file").WithCause(err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		os.Remove(tmpPath)
		return ferr.Internal("rename owned_files.json").WithCause(err)
	}
	return nil
}

// Load reads path and normalizes any legacy-format entries (§9): a legacy
// entry has no owner_id, only an owner address, and is rewritten to carry
// a `legacy:<port>` placeholder owner id upgraded later by a matching
// REGISTER.
func Load(path string) (map[string]*OwnedFileEntry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[string]*OwnedFileEntry), nil
	}
	if err != nil {
		return nil, ferr.Internal("read owned_files.json").WithCause(err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ferr.Internal("parse owned_files.json").WithCause(err)
	}

	entries := make(map[string]*OwnedFileEntry, len(raw))
	for filename, msg := range raw {
		var d diskEntry
		if err := json.Unmarshal(msg, &d); err != nil {
			return nil, ferr.Internal("parse owned_files.json entry " + filename).WithCause(err)
		}
		ownerID := d.OwnerID
		if ownerID == "" {
			ownerID = legacyPlaceholder(d.OwnerAddress[1])
		}
		entries[filename] = &OwnedFileEntry{
			Filename:         filename,
			OwnerID:          ownerID,
			OwnerAddressHost: d.OwnerAddress[0],
			OwnerAddressPort: d.OwnerAddress[1],
			Storage:          d.Storage,
		}
	}
	return entries, nil
}
