package ownership

import (
	"context"
	"testing"

	"github.com/Snider/Fabric/internal/ferr"
)

type fakeTracker struct {
	peers []PeerCandidate
	err   error
}

func (f *fakeTracker) FindOwnedFile(ctx context.Context, filename, ownerID string) ([]PeerCandidate, error) {
	return f.peers, f.err
}
func (f *fakeTracker) AuthorizeDelete(ctx context.Context, filename, ownerID string) ([]PeerCandidate, error) {
	return f.peers, f.err
}

type fakeStorage struct {
	blobs map[string][]byte // filename -> ciphertext
	deleted map[string]bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{blobs: make(map[string][]byte), deleted: make(map[string]bool)}
}

func (f *fakeStorage) UploadToPeer(ctx context.Context, peer PeerCandidate, filename string, ciphertext []byte, ownerID, ownerAddress string) error {
	f.blobs[filename] = ciphertext
	return nil
}

func (f *fakeStorage) GetOwnedFile(ctx context.Context, peer PeerCandidate, filename, ownerID string) ([]byte, error) {
	b, ok := f.blobs[filename]
	if !ok {
		return nil, ferr.UnknownFile(filename)
	}
	return b, nil
}

func (f *fakeStorage) DeleteOwnedFile(ctx context.Context, peer PeerCandidate, filename, ownerID string) error {
	delete(f.blobs, filename)
	f.deleted[filename] = true
	return nil
}

func TestUploadThenDownloadRoundTrip(t *testing.T) {
	tracker := &fakeTracker{peers: []PeerCandidate{{Identity: "storageA", Address: "10.0.0.5:9000"}}}
	storage := newFakeStorage()
	lc := NewLifecycle(tracker, storage)

	ctx := context.Background()
	plaintext := []byte("original bytes")
	if err := lc.Upload(ctx, "doc", plaintext, "owner-1", "H1:9000", tracker.peers); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	got, err := lc.Download(ctx, "doc", "owner-1", "")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("Download = %q, want %q", got, plaintext)
	}
}

func TestDownloadSurvivesOwnerAddressMigration(t *testing.T) {
	// Reproduces the spec's owner-migration scenario: upload happens from
	// H1, the owner later rebinds to H2, and download must still recover
	// the original bytes using the address recorded at upload time.
	tracker := &fakeTracker{peers: []PeerCandidate{{Identity: "storageB", Address: "H2:9000"}}}
	storage := newFakeStorage()
	lc := NewLifecycle(tracker, storage)
	ctx := context.Background()

	plaintext := []byte("doc contents")
	if err := lc.Upload(ctx, "doc", plaintext, "owner-I", "H1:9000", tracker.peers); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	// owner has since migrated to H2; Download must not re-derive the key
	// from H2.
	got, err := lc.Download(ctx, "doc", "owner-I", "")
	if err != nil {
		t.Fatalf("Download after migration: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("Download after migration = %q, want %q", got, plaintext)
	}
}

func TestDownloadAcrossRestartRequiresExplicitAddress(t *testing.T) {
	// Reproduces the restart half of the spec's owner-migration scenario:
	// A uploads from H1, then the *process* restarts (a brand new
	// Lifecycle, with no in-memory uploadAddress map) and rebinds to H2.
	// The in-process cache can't help here; the caller must supply the
	// upload-time address itself.
	tracker := &fakeTracker{peers: []PeerCandidate{{Identity: "storageC", Address: "H2:9000"}}}
	storage := newFakeStorage()
	uploader := NewLifecycle(tracker, storage)
	ctx := context.Background()

	plaintext := []byte("still mine after restart")
	if err := uploader.Upload(ctx, "doc", plaintext, "owner-A", "H1:9000", tracker.peers); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	// Simulate the restart: a fresh Lifecycle with no memory of the
	// upload. Without an explicit address this must fail, not silently
	// derive the wrong key.
	restarted := NewLifecycle(tracker, storage)
	if _, err := restarted.Download(ctx, "doc", "owner-A", ""); err == nil {
		t.Fatal("expected a fresh Lifecycle with no cached address to fail without an explicit address")
	}

	got, err := restarted.Download(ctx, "doc", "owner-A", "H1:9000")
	if err != nil {
		t.Fatalf("Download with explicit upload-time address: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("Download after restart = %q, want %q", got, plaintext)
	}
}

func TestDeleteRemovesFromEveryStoragePeer(t *testing.T) {
	tracker := &fakeTracker{peers: []PeerCandidate{{Identity: "s1"}, {Identity: "s2"}}}
	storage := newFakeStorage()
	lc := NewLifecycle(tracker, storage)
	ctx := context.Background()

	lc.Upload(ctx, "f", []byte("x"), "owner", "addr", tracker.peers)
	if err := lc.Delete(ctx, "f", "owner"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !storage.deleted["f"] {
		t.Fatal("expected storage.DeleteOwnedFile to have been invoked")
	}
	if _, err := lc.Download(ctx, "f", "owner", ""); err == nil {
		t.Fatal("expected download of a deleted file to fail")
	}
}

func TestDownloadUnknownFileWhenTrackerHasNoPeers(t *testing.T) {
	tracker := &fakeTracker{}
	lc := NewLifecycle(tracker, newFakeStorage())
	if _, err := lc.Download(context.Background(), "missing", "owner", ""); err == nil {
		t.Fatal("expected UNKNOWN_FILE when the tracker reports no storage peers")
	}
}
