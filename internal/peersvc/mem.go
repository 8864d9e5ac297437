package peersvc

import "github.com/Snider/Fabric/internal/wire"

func (p *Peer) handleSetMem(req *wire.Envelope) *wire.Envelope {
	var body SetMemRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	if !p.Memory.Has(body.Key) {
		if err := p.Quota.AdmitKey(1); err != nil {
			return errorResponse(req, wrapError(err))
		}
	}
	p.Memory.Set(body.Key, body.Value)
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

func (p *Peer) handleGetMem(req *wire.Envelope) *wire.Envelope {
	var body GetMemRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	v, err := p.Memory.Get(body.Key)
	if err != nil {
		return errorResponse(req, wrapError(err))
	}
	resp, _ := wire.NewResponse(req, wire.TypeGetMem, GetMemResponse{Value: v})
	return resp
}

func (p *Peer) handleDelMem(req *wire.Envelope) *wire.Envelope {
	var body DelMemRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	p.Memory.Delete(body.Key)
	p.Quota.AdmitKey(-1)
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

func (p *Peer) handleListMem(req *wire.Envelope) *wire.Envelope {
	resp, _ := wire.NewResponse(req, wire.TypeListMem, ListMemResponse{Keys: p.Memory.List()})
	return resp
}
