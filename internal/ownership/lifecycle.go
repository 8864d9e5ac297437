package ownership

import (
	"context"
	"sync"

	"github.com/Snider/Fabric/internal/ferr"
)

// TrackerClient is the subset of tracker RPCs the owner-side lifecycle
// needs. peersvc supplies the real wire-backed implementation; tests use a
// fake.
type TrackerClient interface {
	FindOwnedFile(ctx context.Context, filename, ownerID string) ([]PeerCandidate, error)
	AuthorizeDelete(ctx context.Context, filename, ownerID string) ([]PeerCandidate, error)
}

// StorageClient is the subset of storage-peer RPCs the owner-side
// lifecycle needs.
type StorageClient interface {
	UploadToPeer(ctx context.Context, peer PeerCandidate, filename string, ciphertext []byte, ownerID, ownerAddress string) error
	GetOwnedFile(ctx context.Context, peer PeerCandidate, filename, ownerID string) ([]byte, error)
	DeleteOwnedFile(ctx context.Context, peer PeerCandidate, filename, ownerID string) error
}

// Lifecycle drives the owner side of upload, download, and delete. It
// remembers, per filename, the address that was active at upload time: the
// key derivation depends on that address, not on the owner's current one,
// so a later address migration (tracker's owner_last_known_address moving
// to a new value) never breaks decryption of already-uploaded files.
type Lifecycle struct {
	tracker TrackerClient
	storage StorageClient

	mu            sync.Mutex
	uploadAddress map[string]string // filename -> address used at upload
}

// NewLifecycle returns a Lifecycle bound to the given tracker and storage
// clients.
func NewLifecycle(tracker TrackerClient, storage StorageClient) *Lifecycle {
	return &Lifecycle{
		tracker:       tracker,
		storage:       storage,
		uploadAddress: make(map[string]string),
	}
}

// Upload encrypts plaintext under a key derived from (address, filename)
// and pushes the ciphertext to every target storage peer.
func (l *Lifecycle) Upload(ctx context.Context, filename string, plaintext []byte, ownerID, address string, targets []PeerCandidate) error {
	if len(targets) == 0 {
		return ferr.BadRequest("no storage peers given for upload")
	}
	key := DeriveKey(address, filename)
	ciphertext := Encrypt(key, plaintext)

	l.mu.Lock()
	l.uploadAddress[filename] = address
	l.mu.Unlock()

	for _, peer := range targets {
		if err := l.storage.UploadToPeer(ctx, peer, filename, ciphertext, ownerID, address); err != nil {
			return err
		}
	}
	return nil
}

// Download locates the file via the tracker, fetches the ciphertext from
// any storage peer that confirms ownership, and reverses the upload-time
// transform locally.
//
// address is the address this owner was registered under at upload time,
// which DeriveKey needs to reproduce the original key. Pass "" to fall
// back to this Lifecycle's own in-process record of that address (set by
// an earlier Upload call on the same Lifecycle); that fallback cannot
// survive a process restart or a fresh Lifecycle, since the address is
// never persisted anywhere — callers that might run in a different
// process than the one that uploaded (the CLI's "owner download", or any
// restarted peer) must pass address explicitly.
func (l *Lifecycle) Download(ctx context.Context, filename, ownerID, address string) ([]byte, error) {
	peers, err := l.tracker.FindOwnedFile(ctx, filename, ownerID)
	if err != nil {
		return nil, err
	}
	if len(peers) == 0 {
		return nil, ferr.UnknownFile(filename)
	}

	if address == "" {
		l.mu.Lock()
		cached, knownLocally := l.uploadAddress[filename]
		l.mu.Unlock()
		if !knownLocally {
			return nil, ferr.UnknownFile(filename)
		}
		address = cached
	}

	var lastErr error
	for _, peer := range peers {
		ciphertext, err := l.storage.GetOwnedFile(ctx, peer, filename, ownerID)
		if err != nil {
			lastErr = err
			continue
		}
		key := DeriveKey(address, filename)
		return Decrypt(key, ciphertext), nil
	}
	if lastErr == nil {
		lastErr = ferr.Unreachable("no storage peer for " + filename)
	}
	return nil, lastErr
}

// Delete authorizes removal via the tracker, then asks every storage peer
// holding the file to drop it.
func (l *Lifecycle) Delete(ctx context.Context, filename, ownerID string) error {
	peers, err := l.tracker.AuthorizeDelete(ctx, filename, ownerID)
	if err != nil {
		return err
	}
	for _, peer := range peers {
		if err := l.storage.DeleteOwnedFile(ctx, peer, filename, ownerID); err != nil {
			return err
		}
	}
	l.mu.Lock()
	delete(l.uploadAddress, filename)
	l.mu.Unlock()
	return nil
}
