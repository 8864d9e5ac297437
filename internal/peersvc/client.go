package peersvc

import (
	"context"

	"github.com/Snider/Fabric/internal/ferr"
	"github.com/Snider/Fabric/internal/ownership"
	"github.com/Snider/Fabric/internal/trackersvc"
	"github.com/Snider/Fabric/internal/wire"
	"github.com/Snider/Fabric/internal/wireclient"
)

// trackerClient is this peer's outbound connection to the tracker. It
// implements ownership.TrackerClient in addition to the peer-lifecycle
// calls (REGISTER, UPDATE_LOAD, REQUEST_BEST_PEER) used directly by Peer.
type trackerClient struct {
	trackerAddress string
}

func (c *trackerClient) call(ctx context.Context, typ wire.Type, payload, out interface{}) error {
	req, err := wire.NewRequest(typ, payload)
	if err != nil {
		return ferr.BadRequest(err.Error())
	}
	resp, err := wireclient.Call(ctx, c.trackerAddress, req)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return ferr.New(ferr.Code(resp.Error.Code), resp.Error.Message)
	}
	if out != nil {
		return resp.Decode(out)
	}
	return nil
}

func (c *trackerClient) Register(ctx context.Context, identity, address string, load float64) error {
	return c.call(ctx, wire.TypeRegister, trackersvc.RegisterRequest{Identity: identity, Address: address, InitialLoad: load}, nil)
}

func (c *trackerClient) UpdateLoad(ctx context.Context, identity string, load float64) error {
	return c.call(ctx, wire.TypeUpdateLoad, trackersvc.UpdateLoadRequest{Identity: identity, Load: load}, nil)
}

func (c *trackerClient) RequestBestPeer(ctx context.Context, requesterIdentity string, excludeSelf bool) (trackersvc.BestPeerResponse, error) {
	var out trackersvc.BestPeerResponse
	err := c.call(ctx, wire.TypeRequestBestPeer, trackersvc.RequestBestPeerRequest{RequesterIdentity: requesterIdentity, ExcludeSelf: excludeSelf}, &out)
	return out, err
}

func (c *trackerClient) RegisterFile(ctx context.Context, identity, filename string) error {
	return c.call(ctx, wire.TypeRegisterFile, trackersvc.RegisterFileRequest{Identity: identity, Filename: filename}, nil)
}

func (c *trackerClient) UnregisterFile(ctx context.Context, identity, filename string) error {
	return c.call(ctx, wire.TypeUnregisterFile, trackersvc.RegisterFileRequest{Identity: identity, Filename: filename}, nil)
}

func (c *trackerClient) FindFile(ctx context.Context, filename string) ([]string, error) {
	var out trackersvc.FindFileResponse
	err := c.call(ctx, wire.TypeFindFile, trackersvc.FindFileRequest{Filename: filename}, &out)
	return out.Addresses, err
}

// FindOwnedFile implements ownership.TrackerClient.
func (c *trackerClient) FindOwnedFile(ctx context.Context, filename, ownerID string) ([]ownership.PeerCandidate, error) {
	var out trackersvc.OwnedFileLocationsResponse
	err := c.call(ctx, wire.TypeFindOwnedFile, trackersvc.FindOwnedFileRequest{Filename: filename, RequesterID: ownerID}, &out)
	if err != nil {
		return nil, err
	}
	return locationsToCandidates(out.Locations), nil
}

// AuthorizeDelete implements ownership.TrackerClient.
func (c *trackerClient) AuthorizeDelete(ctx context.Context, filename, ownerID string) ([]ownership.PeerCandidate, error) {
	var out trackersvc.OwnedFileLocationsResponse
	err := c.call(ctx, wire.TypeDeleteOwnedFile, trackersvc.FindOwnedFileRequest{Filename: filename, RequesterID: ownerID}, &out)
	if err != nil {
		return nil, err
	}
	return locationsToCandidates(out.Locations), nil
}

func (c *trackerClient) RegisterOwnedFile(ctx context.Context, ownerID, ownerAddress, storageIdentity, storageAddress, filename string) error {
	return c.call(ctx, wire.TypeRegisterOwnedFile, trackersvc.RegisterOwnedFileRequest{
		OwnerID: ownerID, OwnerAddress: ownerAddress,
		StorageIdentity: storageIdentity, StorageAddress: storageAddress, Filename: filename,
	}, nil)
}

func (c *trackerClient) ConfirmDelete(ctx context.Context, filename, storageIdentity string) error {
	return c.call(ctx, wire.TypeConfirmOwnedDelete, trackersvc.ConfirmOwnedDeleteRequest{
		Filename: filename, StorageIdentity: storageIdentity,
	}, nil)
}

// NewOwnerLifecycle builds a standalone owner-side Lifecycle talking to the
// tracker at trackerAddress over the wire, for callers (the CLI's owner
// upload/download/delete commands) that are not themselves running a full
// Peer.
func NewOwnerLifecycle(trackerAddress string) *ownership.Lifecycle {
	return ownership.NewLifecycle(&trackerClient{trackerAddress: trackerAddress}, &storageClient{})
}

func locationsToCandidates(locs []trackersvc.StorageLocation) []ownership.PeerCandidate {
	out := make([]ownership.PeerCandidate, 0, len(locs))
	for _, l := range locs {
		out = append(out, ownership.PeerCandidate{Identity: l.Identity, Address: l.Address()})
	}
	return out
}

// storageClient implements ownership.StorageClient over the wire, used by
// this peer when it is acting as a file's *owner* talking to the storage
// peers holding its ciphertext.
type storageClient struct {
	peer *Peer
}

func (s *storageClient) UploadToPeer(ctx context.Context, peer ownership.PeerCandidate, filename string, ciphertext []byte, ownerID, ownerAddress string) error {
	req, _ := wire.NewRequest(wire.TypeUploadToPeer, UploadToPeerRequest{
		Filename: filename, Ciphertext: ciphertext, OwnerID: ownerID, OwnerAddress: ownerAddress,
	})
	resp, err := wireclient.Call(ctx, peer.Address, req)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return ferr.New(ferr.Code(resp.Error.Code), resp.Error.Message)
	}
	return nil
}

func (s *storageClient) GetOwnedFile(ctx context.Context, peer ownership.PeerCandidate, filename, ownerID string) ([]byte, error) {
	req, _ := wire.NewRequest(wire.TypeGetOwnedFile, GetOwnedFileRequest{Filename: filename, OwnerID: ownerID})
	resp, err := wireclient.Call(ctx, peer.Address, req)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, ferr.New(ferr.Code(resp.Error.Code), resp.Error.Message)
	}
	var out GetOwnedFileResponse
	if err := resp.Decode(&out); err != nil {
		return nil, ferr.Internal(err.Error())
	}
	return out.Ciphertext, nil
}

func (s *storageClient) DeleteOwnedFile(ctx context.Context, peer ownership.PeerCandidate, filename, ownerID string) error {
	req, _ := wire.NewRequest(wire.TypeDeleteOwnedStorage, GetOwnedFileRequest{Filename: filename, OwnerID: ownerID})
	resp, err := wireclient.Call(ctx, peer.Address, req)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return ferr.New(ferr.Code(resp.Error.Code), resp.Error.Message)
	}
	return nil
}
