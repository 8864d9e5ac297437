package peersvc

import "github.com/Snider/Fabric/internal/wire"

func (p *Peer) handleAllocMem(req *wire.Envelope) *wire.Envelope {
	var body AllocMemRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	offset, err := p.Allocator.Allocate(body.PID, body.Size)
	if err != nil {
		return errorResponse(req, wrapError(err))
	}
	resp, _ := wire.NewResponse(req, wire.TypeAllocMem, AllocMemResponse{Offset: offset})
	return resp
}

func (p *Peer) handleFreeMem(req *wire.Envelope) *wire.Envelope {
	var body FreeMemRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	p.Allocator.Deallocate(body.PID)
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

func (p *Peer) handleFragInfo(req *wire.Envelope) *wire.Envelope {
	r := p.Allocator.Fragmentation()
	resp, _ := wire.NewResponse(req, wire.TypeFragInfo, FragInfoResponse{
		FreeBytes: r.FreeBytes, LargestFreeBlock: r.LargestFreeBlock, FragmentedPercent: r.FragmentedPercent,
	})
	return resp
}
