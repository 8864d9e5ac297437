package peersvc

import (
	"context"

	"github.com/Snider/Fabric/internal/ownedstore"
	"github.com/Snider/Fabric/internal/wire"
)

// handleUploadToPeer is the storage side of §4.11's upload flow: an owner
// pushes ciphertext for safekeeping, this peer persists it, then advertises
// the ownership record to the tracker.
func (p *Peer) handleUploadToPeer(ctx context.Context, req *wire.Envelope) *wire.Envelope {
	var body UploadToPeerRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	if err := p.Quota.AdmitStorageBytes(int64(len(body.Ciphertext))); err != nil {
		return errorResponse(req, wrapError(err))
	}
	key := ownedstore.Key{OwnerAddress: body.OwnerAddress, OwnerID: body.OwnerID, Filename: body.Filename}
	p.Owned.Put(key, body.Ciphertext)

	err := p.tracker.RegisterOwnedFile(ctx, body.OwnerID, body.OwnerAddress, p.cfg.Identity, p.cfg.Address, body.Filename)
	if err != nil {
		p.Owned.Delete(key)
		return errorResponse(req, wrapError(err))
	}
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

// handleGetOwnedFile confirms my_id is the registered owner (consulting
// the tracker) before releasing ciphertext, per §4.11.
func (p *Peer) handleGetOwnedFile(ctx context.Context, req *wire.Envelope) *wire.Envelope {
	var body GetOwnedFileRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	if _, err := p.tracker.FindOwnedFile(ctx, body.Filename, body.OwnerID); err != nil {
		return errorResponse(req, wrapError(err))
	}
	ciphertext, err := p.Owned.Get(ownedstore.Key{OwnerID: body.OwnerID, Filename: body.Filename})
	if err != nil {
		return errorResponse(req, wrapError(err))
	}
	resp, _ := wire.NewResponse(req, wire.TypeGetOwnedFile, GetOwnedFileResponse{Ciphertext: ciphertext})
	return resp
}

// handleDeleteOwnedStorage is the storage-bound DELETE_OWNED_FILE: remove
// the local blob, then confirm removal to the tracker so it can clear its
// OwnedFileEntry once every storage peer has acknowledged.
func (p *Peer) handleDeleteOwnedStorage(ctx context.Context, req *wire.Envelope) *wire.Envelope {
	var body GetOwnedFileRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	if _, err := p.tracker.AuthorizeDelete(ctx, body.Filename, body.OwnerID); err != nil {
		return errorResponse(req, wrapError(err))
	}
	key := ownedstore.Key{OwnerID: body.OwnerID, Filename: body.Filename}
	p.Owned.Delete(key)
	if err := p.tracker.ConfirmDelete(ctx, body.Filename, p.cfg.Identity); err != nil {
		return errorResponse(req, wrapError(err))
	}
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}
