package peersvc

import (
	"context"
	"time"

	"github.com/Snider/Fabric/internal/ipc"
	"github.com/Snider/Fabric/internal/wire"
)

func (p *Peer) handleSendMsg(ctx context.Context, req *wire.Envelope) *wire.Envelope {
	var body SendMsgRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	q, err := p.IPC.Queue(body.Queue)
	if err != nil {
		return errorResponse(req, wrapError(err))
	}
	if err := q.Send(ctx, ipc.Message{To: body.To, Body: body.Body}); err != nil {
		return errorResponse(req, wrapError(err))
	}
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

func (p *Peer) handleRecvMsg(ctx context.Context, req *wire.Envelope) *wire.Envelope {
	var body RecvMsgRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	q, err := p.IPC.Queue(body.Queue)
	if err != nil {
		return errorResponse(req, wrapError(err))
	}
	msg, err := q.Receive(ctx, body.PID, time.Duration(body.TimeoutMS)*time.Millisecond)
	if err != nil {
		return errorResponse(req, wrapError(err))
	}
	resp, _ := wire.NewResponse(req, wire.TypeRecvMsg, RecvMsgResponse{Body: msg.Body})
	return resp
}

func (p *Peer) handleCreateQueue(req *wire.Envelope) *wire.Envelope {
	var body CreateQueueRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	p.IPC.CreateQueue(body.Name, body.Capacity)
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

func (p *Peer) handleCreateSem(req *wire.Envelope) *wire.Envelope {
	var body CreateSemRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	p.IPC.CreateSemaphore(body.Name, body.Initial)
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

func (p *Peer) handleWaitSem(req *wire.Envelope) *wire.Envelope {
	var body SemRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	sem, err := p.IPC.Semaphore(body.Name)
	if err != nil {
		return errorResponse(req, wrapError(err))
	}
	sem.Wait()
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

func (p *Peer) handleSignalSem(req *wire.Envelope) *wire.Envelope {
	var body SemRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	sem, err := p.IPC.Semaphore(body.Name)
	if err != nil {
		return errorResponse(req, wrapError(err))
	}
	sem.Signal()
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}
