package peersvc

import (
	"time"

	"github.com/Snider/Fabric/internal/wire"
)

// handleStatus assembles the composite status endpoint's payload. Each
// subsystem contributes its own lock-guarded snapshot; no two subsystem
// locks are ever held at once here (§5).
func (p *Peer) handleStatus(req *wire.Envelope) *wire.Envelope {
	queues, sems := p.IPC.Names()
	out := StatusResponse{
		Scheduler: p.Scheduler.Snapshot(),
		Cache:     p.Cache.Snapshot(),
		History:   p.History.ComputeStats(),
		Quota:     p.Quota.Snapshot(time.Now()),
		Processes: len(p.Processes.Tree()),
		IPCQueues: queues,
		IPCSems:   sems,
	}
	resp, _ := wire.NewResponse(req, wire.TypeStatus, out)
	return resp
}
