package trackersvc

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveThenLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "owned_files.json")
	p := NewFilePersister(path)

	entries := map[string]*OwnedFileEntry{
		"doc": {
			Filename: "doc", OwnerID: "owner-1",
			OwnerAddressHost: "10.0.0.1", OwnerAddressPort: "9000",
			Storage: []StorageLocation{{Identity: "s1", Host: "10.0.0.2", Port: "9100"}},
		},
	}
	if err := p.Save(entries); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	e, ok := loaded["doc"]
	if !ok {
		t.Fatal("expected \"doc\" entry after reload")
	}
	if e.OwnerID != "owner-1" || e.OwnerAddress() != "10.0.0.1:9000" {
		t.Fatalf("reloaded entry = %+v", e)
	}
	if len(e.Storage) != 1 || e.Storage[0].Identity != "s1" {
		t.Fatalf("reloaded storage = %+v", e.Storage)
	}
}

func TestLoadMissingFileReturnsEmptyMap(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("loaded = %v, want empty", loaded)
	}
}

func TestLoadUpgradesLegacyEntryToPlaceholderOwner(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "owned_files.json")
	legacyJSON := `{"old.txt": {"owner_address": ["10.0.0.9", "9000"], "storage": []}}`
	if err := os.WriteFile(path, []byte(legacyJSON), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	e, ok := loaded["old.txt"]
	if !ok {
		t.Fatal("expected legacy entry to load")
	}
	if e.OwnerID != "legacy:9000" {
		t.Fatalf("OwnerID = %q, want legacy:9000", e.OwnerID)
	}
}
