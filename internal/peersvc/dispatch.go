package peersvc

import (
	"context"

	"github.com/Snider/Fabric/internal/ferr"
	"github.com/Snider/Fabric/internal/wire"
	"github.com/Snider/Fabric/internal/wireclient"
)

// Dispatch routes one request envelope to the matching peer operation,
// per §6's wire type table.
func (p *Peer) Dispatch(ctx context.Context, req *wire.Envelope) *wire.Envelope {
	switch req.Type {
	case wire.TypeCPUTask:
		return p.handleCPUTask(ctx, req)
	case wire.TypeBatchTask:
		return p.handleBatchTask(ctx, req)
	case wire.TypeCancelTask:
		return p.handleCancelTask(req)

	case wire.TypeSetMem:
		return p.handleSetMem(req)
	case wire.TypeGetMem:
		return p.handleGetMem(req)
	case wire.TypeDelMem:
		return p.handleDelMem(req)
	case wire.TypeListMem:
		return p.handleListMem(req)

	case wire.TypePutFile:
		return p.handlePutFile(ctx, req)
	case wire.TypeGetFile:
		return p.handleGetFile(ctx, req)
	case wire.TypeListFile:
		return p.handleListFile(req)
	case wire.TypeDeleteFile:
		return p.handleDeleteFile(ctx, req)

	case wire.TypeUploadToPeer:
		return p.handleUploadToPeer(ctx, req)
	case wire.TypeGetOwnedFile:
		return p.handleGetOwnedFile(ctx, req)
	case wire.TypeDeleteOwnedStorage:
		return p.handleDeleteOwnedStorage(ctx, req)

	case wire.TypeCreateProcess:
		return p.handleCreateProcess(req)
	case wire.TypeTerminateProcess:
		return p.handleTerminateProcess(req)
	case wire.TypeProcessTree:
		return p.handleProcessTree(req)

	case wire.TypeRequestResource:
		return p.handleRequestResource(req)
	case wire.TypeReleaseResource:
		return p.handleReleaseResource(req)
	case wire.TypeCheckDeadlock:
		return p.handleCheckDeadlock(req)

	case wire.TypeAllocMem:
		return p.handleAllocMem(req)
	case wire.TypeFreeMem:
		return p.handleFreeMem(req)
	case wire.TypeFragInfo:
		return p.handleFragInfo(req)

	case wire.TypeSendMsg:
		return p.handleSendMsg(ctx, req)
	case wire.TypeRecvMsg:
		return p.handleRecvMsg(ctx, req)
	case wire.TypeCreateQueue:
		return p.handleCreateQueue(req)
	case wire.TypeCreateSem:
		return p.handleCreateSem(req)
	case wire.TypeWaitSem:
		return p.handleWaitSem(req)
	case wire.TypeSignalSem:
		return p.handleSignalSem(req)

	case wire.TypeStatus:
		return p.handleStatus(req)

	default:
		return wire.NewErrorResponse(req, string(ferr.CodeBadRequest), "unknown peer message type: "+string(req.Type))
	}
}

func errorResponse(req *wire.Envelope, err *ferr.FabricError) *wire.Envelope {
	return wire.NewErrorResponse(req, string(err.Code), err.Message)
}

// wireCall is a thin indirection over wireclient.Call kept as a method so
// tests can stub it out without a real TCP round trip.
func (p *Peer) wireCall(ctx context.Context, address string, req *wire.Envelope) (*wire.Envelope, error) {
	return wireclient.Call(ctx, address, req)
}
