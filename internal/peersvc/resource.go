package peersvc

import "github.com/Snider/Fabric/internal/wire"

func (p *Peer) handleRequestResource(req *wire.Envelope) *wire.Envelope {
	var body RequestResourceRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	err := p.Arbiter.Request(body.PID, body.Resource, body.Units)
	if err != nil {
		if fe := wrapError(err); fe.Code == "EXCEEDS_AVAILABLE" {
			p.Arbiter.MarkWaiting(body.PID, body.Resource)
		}
		return errorResponse(req, wrapError(err))
	}
	p.Arbiter.ClearWaiting(body.PID, body.Resource)
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

func (p *Peer) handleReleaseResource(req *wire.Envelope) *wire.Envelope {
	var body ReleaseResourceRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	if err := p.Arbiter.Release(body.PID, body.Resource, body.Units); err != nil {
		return errorResponse(req, wrapError(err))
	}
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

func (p *Peer) handleCheckDeadlock(req *wire.Envelope) *wire.Envelope {
	cycle := p.Arbiter.CheckDeadlock()
	resp, _ := wire.NewResponse(req, wire.TypeCheckDeadlock, CheckDeadlockResponse{Cycle: cycle})
	return resp
}
