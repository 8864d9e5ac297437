package trackersvc

import (
	"encoding/json"
	"net"
	"sort"
	"sync"

	"github.com/Snider/Fabric/internal/ferr"
)

// StorageLocation is one storage peer holding a copy of an owned file's
// ciphertext. The persisted schema's literal `storage: [[host,port],…]`
// tuples are widened here to include the peer's stable identity alongside
// host/port: without it a restarted tracker could not confirm which peer
// acknowledged a DELETE_OWNED_FILE, since REGISTER_OWNED_FILE is keyed by
// identity, not address. Recorded as a deliberate schema deviation.
type StorageLocation struct {
	Identity string `json:"identity"`
	Host     string `json:"host"`
	Port     string `json:"port"`
}

func (s StorageLocation) Address() string { return net.JoinHostPort(s.Host, s.Port) }

// UnmarshalJSON accepts both the widened object form this tracker writes
// (`{"identity":...,"host":...,"port":...}`) and the legacy/spec tuple form
// (`[host, port]`, §6), so Load never refuses a file written by an older or
// spec-literal tracker. A tuple entry has no identity; it stays empty until
// a matching REGISTER_OWNED_FILE supplies one.
func (s *StorageLocation) UnmarshalJSON(data []byte) error {
	var tuple [2]string
	if err := json.Unmarshal(data, &tuple); err == nil {
		s.Host, s.Port = tuple[0], tuple[1]
		return nil
	}

	type alias StorageLocation
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*s = StorageLocation(obj)
	return nil
}

// OwnedFileEntry is the tracker's authoritative ownership record for one
// filename.
type OwnedFileEntry struct {
	Filename           string            `json:"-"`
	OwnerID            string            `json:"owner_id"`
	OwnerAddressHost   string            `json:"-"`
	OwnerAddressPort   string            `json:"-"`
	Storage            []StorageLocation `json:"storage"`
}

// OwnerAddress returns the entry's last known owner address as host:port.
func (e OwnedFileEntry) OwnerAddress() string {
	return net.JoinHostPort(e.OwnerAddressHost, e.OwnerAddressPort)
}

// legacyPlaceholder synthesizes the placeholder owner id used for
// pre-identity on-disk entries (§9): identity is unknown, only the port
// that was registered at the time is recoverable.
func legacyPlaceholder(port string) string { return "legacy:" + port }

// OwnedFileTable is the tracker's ownership directory, persisted via an
// injected Persister after every mutation.
type OwnedFileTable struct {
	mu        sync.RWMutex
	entries   map[string]*OwnedFileEntry // filename -> entry
	persister Persister
}

// Persister durably stores the current set of entries. trackersvc/persist.go
// supplies the atomic-file implementation; tests can inject a no-op.
type Persister interface {
	Save(entries map[string]*OwnedFileEntry) error
}

// NewOwnedFileTable returns an OwnedFileTable that persists via p after
// every mutation. initial pre-populates state loaded at startup.
func NewOwnedFileTable(p Persister, initial map[string]*OwnedFileEntry) *OwnedFileTable {
	if initial == nil {
		initial = make(map[string]*OwnedFileEntry)
	}
	return &OwnedFileTable{entries: initial, persister: p}
}

func (t *OwnedFileTable) saveLocked() error {
	if t.persister == nil {
		return nil
	}
	return t.persister.Save(t.entries)
}

// RegisterOwnedFile creates or unions a filename's ownership entry with a
// new storage location, persisting the result.
func (t *OwnedFileTable) RegisterOwnedFile(ownerID, ownerAddress, storageIdentity, storageAddress, filename string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	host, port, _ := net.SplitHostPort(ownerAddress)
	sHost, sPort, _ := net.SplitHostPort(storageAddress)

	e, ok := t.entries[filename]
	if !ok {
		e = &OwnedFileEntry{Filename: filename, OwnerID: ownerID, OwnerAddressHost: host, OwnerAddressPort: port}
		t.entries[filename] = e
	}
	for _, s := range e.Storage {
		if s.Identity == storageIdentity {
			return t.saveLocked()
		}
	}
	e.Storage = append(e.Storage, StorageLocation{Identity: storageIdentity, Host: sHost, Port: sPort})
	return t.saveLocked()
}

// FindOwnedFile returns the storage locations for filename if requesterID
// is the registered owner.
func (t *OwnedFileTable) FindOwnedFile(filename, requesterID string) ([]StorageLocation, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[filename]
	if !ok {
		return nil, ferr.UnknownFile(filename)
	}
	if e.OwnerID != requesterID {
		return nil, ferr.NotOwner()
	}
	out := make([]StorageLocation, len(e.Storage))
	copy(out, e.Storage)
	return out, nil
}

// AuthorizeDelete checks ownership and returns the storage set to notify,
// without removing the entry (removal happens once every storage peer
// confirms, via ConfirmDelete).
func (t *OwnedFileTable) AuthorizeDelete(filename, requesterID string) ([]StorageLocation, error) {
	return t.FindOwnedFile(filename, requesterID)
}

// ConfirmDelete removes storageIdentity's acknowledgement; once every
// storage location has confirmed, the entry is deleted and persisted.
func (t *OwnedFileTable) ConfirmDelete(filename, storageIdentity string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[filename]
	if !ok {
		return nil
	}
	remaining := e.Storage[:0]
	for _, s := range e.Storage {
		if s.Identity != storageIdentity {
			remaining = append(remaining, s)
		}
	}
	e.Storage = remaining
	if len(e.Storage) == 0 {
		delete(t.entries, filename)
	}
	return t.saveLocked()
}

// RefreshOwnerAddress rewrites owner_last_known_address for every entry
// owned by identity, and upgrades any legacy-placeholder entry whose port
// matches the new registrant (§9).
func (t *OwnedFileTable) RefreshOwnerAddress(identity, newAddress string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	host, port, _ := net.SplitHostPort(newAddress)
	placeholder := legacyPlaceholder(port)
	changed := false

	for _, e := range t.entries {
		if e.OwnerID == identity {
			e.OwnerAddressHost, e.OwnerAddressPort = host, port
			changed = true
			continue
		}
		if e.OwnerID == placeholder {
			e.OwnerID = identity
			e.OwnerAddressHost, e.OwnerAddressPort = host, port
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return t.saveLocked()
}

// Snapshot returns a defensive copy of every entry, sorted by filename.
func (t *OwnedFileTable) Snapshot() []OwnedFileEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]OwnedFileEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out
}
