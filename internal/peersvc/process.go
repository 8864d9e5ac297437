package peersvc

import (
	"github.com/Snider/Fabric/internal/proctable"
	"github.com/Snider/Fabric/internal/wire"
)

func (p *Peer) handleCreateProcess(req *wire.Envelope) *wire.Envelope {
	var body CreateProcessRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	pid, err := p.Processes.Create(body.TaskRef, body.Parent, body.Group, body.HasGroup)
	if err != nil {
		return errorResponse(req, wrapError(err))
	}
	// The wire protocol never carries a per-process declared maximum need,
	// so every process is registered with the arbiter at each resource's
	// full configured total (see Config.Resources).
	p.Arbiter.RegisterProcess(pid, p.cfg.Resources)
	resp, _ := wire.NewResponse(req, wire.TypeCreateProcess, CreateProcessResponse{PID: pid})
	return resp
}

func (p *Peer) handleTerminateProcess(req *wire.Envelope) *wire.Envelope {
	var body TerminateProcessRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	if err := p.Processes.Terminate(body.PID); err != nil {
		return errorResponse(req, wrapError(err))
	}
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

func (p *Peer) handleProcessTree(req *wire.Envelope) *wire.Envelope {
	tree := buildProcessForest(p.Processes.Tree())
	resp, _ := wire.NewResponse(req, wire.TypeProcessTree, ProcessTreeResponse{Tree: tree})
	return resp
}

// buildProcessForest reassembles the flat snapshot proctable.Table.Tree
// returns into the nested ProcessNode shape the wire response carries.
func buildProcessForest(procs []proctable.Process) []ProcessNode {
	byParent := make(map[uint64][]proctable.Process)
	for _, pr := range procs {
		byParent[pr.Parent] = append(byParent[pr.Parent], pr)
	}
	var build func(parent uint64) []ProcessNode
	build = func(parent uint64) []ProcessNode {
		children := byParent[parent]
		if len(children) == 0 {
			return nil
		}
		nodes := make([]ProcessNode, 0, len(children))
		for _, c := range children {
			nodes = append(nodes, ProcessNode{
				PID: c.PID, State: string(c.State), Children: build(c.PID),
			})
		}
		return nodes
	}
	return build(0)
}
