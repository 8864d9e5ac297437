package peersvc

import (
	"context"

	"github.com/Snider/Fabric/internal/ferr"
	"github.com/Snider/Fabric/internal/ownership"
	"github.com/Snider/Fabric/internal/wire"
)

func (p *Peer) handlePutFile(ctx context.Context, req *wire.Envelope) *wire.Envelope {
	var body PutFileRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	if err := p.Quota.AdmitStorageBytes(int64(len(body.Data))); err != nil {
		return errorResponse(req, wrapError(err))
	}
	p.Files.Put(body.Filename, body.Data)
	if err := p.tracker.RegisterFile(ctx, p.cfg.Identity, body.Filename); err != nil {
		p.log.Warn("REGISTER_FILE failed", map[string]interface{}{"filename": body.Filename, "error": err.Error()})
	}
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

func (p *Peer) handleGetFile(ctx context.Context, req *wire.Envelope) *wire.Envelope {
	var body GetFileRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	data, err := p.Files.Get(body.Filename)
	if err != nil {
		data, err = p.fetchNetworkFile(ctx, body.Filename)
		if err != nil {
			return errorResponse(req, wrapError(err))
		}
	}
	out := GetFileResponse{Data: data, Size: int64(len(data))}
	if body.Length > 0 {
		out.Data = sliceRange(data, body.Offset, body.Length)
	}
	resp, _ := wire.NewResponse(req, wire.TypeGetFile, out)
	return resp
}

func sliceRange(data []byte, offset, length int64) []byte {
	if offset >= int64(len(data)) {
		return nil
	}
	end := offset + length
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return data[offset:end]
}

func (p *Peer) handleListFile(req *wire.Envelope) *wire.Envelope {
	resp, _ := wire.NewResponse(req, wire.TypeListFile, ListFileResponse{Files: p.Files.List()})
	return resp
}

func (p *Peer) handleDeleteFile(ctx context.Context, req *wire.Envelope) *wire.Envelope {
	var body DeleteFileRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	if data, err := p.Files.Get(body.Filename); err == nil {
		p.Quota.AdmitStorageBytes(-int64(len(data)))
	}
	p.Files.Delete(body.Filename)
	if err := p.tracker.UnregisterFile(ctx, p.cfg.Identity, body.Filename); err != nil {
		p.log.Warn("UNREGISTER_FILE failed", map[string]interface{}{"filename": body.Filename, "error": err.Error()})
	}
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

// fetchNetworkFile implements the multi-peer chunked fetch described in
// §4.11 for advertised, non-owned files: ask the tracker who advertises
// the file, probe one for its size, then fetch fixed-size chunks from
// the peer set in parallel with retry-on-other-peer.
func (p *Peer) fetchNetworkFile(ctx context.Context, filename string) ([]byte, error) {
	addresses, err := p.tracker.FindFile(ctx, filename)
	if err != nil {
		return nil, err
	}
	if len(addresses) == 0 {
		return nil, ferr.UnknownFile(filename)
	}
	candidates := make([]ownership.PeerCandidate, 0, len(addresses))
	for _, a := range addresses {
		candidates = append(candidates, ownership.PeerCandidate{Address: a})
	}

	probe, err := p.remoteGetFileRange(ctx, candidates[0], filename, 0, ownership.DefaultChunkSize)
	if err != nil {
		// fall through to FetchMultiPeer's own per-chunk retry across peers
		probe = GetFileResponse{}
	}
	size := probe.Size
	if size == 0 {
		for _, c := range candidates {
			r, err := p.remoteGetFileRange(ctx, c, filename, 0, ownership.DefaultChunkSize)
			if err == nil && r.Size > 0 {
				size = r.Size
				break
			}
		}
	}
	if size == 0 {
		return nil, ferr.UnknownFile(filename)
	}

	fetch := func(ctx context.Context, peer ownership.PeerCandidate, offset, length int64) ([]byte, error) {
		r, err := p.remoteGetFileRange(ctx, peer, filename, offset, length)
		if err != nil {
			return nil, err
		}
		return r.Data, nil
	}
	return ownership.FetchMultiPeer(ctx, size, candidates, ownership.DefaultChunkSize, fetch)
}

func (p *Peer) remoteGetFileRange(ctx context.Context, peer ownership.PeerCandidate, filename string, offset, length int64) (GetFileResponse, error) {
	var out GetFileResponse
	req, err := wire.NewRequest(wire.TypeGetFile, GetFileRequest{Filename: filename, Offset: offset, Length: length})
	if err != nil {
		return out, ferr.BadRequest(err.Error())
	}
	resp, err := p.wireCall(ctx, peer.Address, req)
	if err != nil {
		return out, err
	}
	if resp.IsError() {
		return out, ferr.New(ferr.Code(resp.Error.Code), resp.Error.Message)
	}
	if err := resp.Decode(&out); err != nil {
		return out, ferr.Internal(err.Error())
	}
	return out, nil
}
