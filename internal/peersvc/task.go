package peersvc

import (
	"context"
	"time"

	"github.com/Snider/Fabric/internal/fabcache"
	"github.com/Snider/Fabric/internal/ferr"
	"github.com/Snider/Fabric/internal/proctable"
	"github.com/Snider/Fabric/internal/scheduler"
	"github.com/Snider/Fabric/internal/wire"
	"github.com/Snider/Fabric/internal/wireclient"
)

func (p *Peer) handleCPUTask(ctx context.Context, req *wire.Envelope) *wire.Envelope {
	var body CPUTaskRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	out, err := p.submitCPUTask(ctx, body)
	if err != nil {
		return errorResponse(req, wrapError(err))
	}
	resp, _ := wire.NewResponse(req, wire.TypeCPUResult, out)
	return resp
}

// handleBatchTask runs each task through the same admission pipeline as
// CPU_TASK, in input order; the scheduler's single dispatch worker already
// serializes actual execution, so preserving submission order here costs
// nothing and keeps BATCH_TASK's results[] aligned with tasks[].
func (p *Peer) handleBatchTask(ctx context.Context, req *wire.Envelope) *wire.Envelope {
	var body BatchTaskRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	results := make([]CPUResultResponse, len(body.Tasks))
	for i, t := range body.Tasks {
		out, err := p.submitCPUTask(ctx, t)
		if err != nil {
			fe := wrapError(err)
			out = CPUResultResponse{TaskID: t.TaskID, Status: string(scheduler.StatusFailed), Error: fe.Error()}
		}
		results[i] = out
	}
	resp, _ := wire.NewResponse(req, wire.TypeOK, BatchTaskResponse{Results: results})
	return resp
}

func (p *Peer) handleCancelTask(req *wire.Envelope) *wire.Envelope {
	var body CancelTaskRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, wrapError(err))
	}
	if err := p.Scheduler.Cancel(body.TaskID); err != nil {
		return errorResponse(req, wrapError(err))
	}
	resp, _ := wire.NewResponse(req, wire.TypeOK, CancelTaskResponse{Status: "CANCELLED"})
	return resp
}

// submitCPUTask is the admission pipeline of §4.9: a confidential task, or
// one not requesting dispatch, always runs here; otherwise it is forwarded
// to a tracker-selected peer.
func (p *Peer) submitCPUTask(ctx context.Context, body CPUTaskRequest) (CPUResultResponse, error) {
	if !body.Confidential && body.Dispatch {
		return p.dispatchRemote(ctx, body)
	}
	return p.executeLocally(ctx, body, fabcache.RoleExecutor)
}

// executeLocally implements quota admission, cache lookup, scheduler
// enqueue, and the on-completion cache-store / history-append / retry
// sequence described in §4.9. The cache is consulted and updated even for
// confidential tasks (§4.11's "Confidential path" note); only the tracker
// consultation is skipped for those.
func (p *Peer) executeLocally(ctx context.Context, body CPUTaskRequest, role fabcache.Role) (CPUResultResponse, error) {
	if err := p.Quota.AdmitCPUTask(time.Now()); err != nil {
		return CPUResultResponse{}, err
	}
	fp, err := fabcache.Compute(body.Program, body.Function, body.Args)
	if err != nil {
		return CPUResultResponse{}, ferr.BadRequest(err.Error())
	}
	if cached, ok := p.Cache.Get(fp); ok {
		p.recordHistory(fabcache.HistoryEntry{
			ID: body.TaskID, Type: body.Function, Status: fabcache.StatusSuccess, Role: role,
			StartedAt: time.Now(), CacheHit: true,
		})
		return CPUResultResponse{
			TaskID: body.TaskID, Status: string(scheduler.StatusCompleted), Result: cached, CacheHit: true,
		}, nil
	}

	argsSlice, _ := body.Args.([]interface{})
	task := &scheduler.Task{
		ID:               body.TaskID,
		Priority:         body.Priority,
		EstimatedRuntime: time.Duration(body.EstimatedRuntimeMS) * time.Millisecond,
		Timeout:          time.Duration(body.TimeoutMS) * time.Millisecond,
		MaxRetries:       body.MaxRetries,
		RetriesLeft:      body.MaxRetries,
		Run: func(runCtx context.Context, t *scheduler.Task) ([]byte, error) {
			pid, err := p.Processes.Create(t.ID, 0, 0, false)
			if err != nil {
				return nil, err
			}
			p.Processes.SetState(pid, proctable.StateRunning)
			defer p.Processes.Terminate(pid)

			fn, err := lookupFunction(body.Function)
			if err != nil {
				return nil, ferr.TaskFailed(err)
			}
			return fn(argsSlice)
		},
	}

	p.Scheduler.Submit(task)
	if err := waitForTask(ctx, task); err != nil {
		return CPUResultResponse{}, err
	}

	for (task.Status == scheduler.StatusFailed || task.Status == scheduler.StatusTimedOut) && task.RetriesLeft > 0 {
		task.RetriesLeft--
		p.Scheduler.Resubmit(task)
		if err := waitForTask(ctx, task); err != nil {
			return CPUResultResponse{}, err
		}
	}

	entry := fabcache.HistoryEntry{ID: task.ID, Type: body.Function, Role: role, StartedAt: task.Started, Duration: task.Turnaround()}
	out := CPUResultResponse{TaskID: task.ID, Status: string(task.Status)}
	switch task.Status {
	case scheduler.StatusCompleted:
		entry.Status = fabcache.StatusSuccess
		out.Result = task.Result
		p.Cache.Put(fp, task.Result)
	case scheduler.StatusTimedOut:
		entry.Status = fabcache.StatusTimedOut
		if task.Err != nil {
			out.Error = task.Err.Error()
			entry.Error = task.Err.Error()
		}
	case scheduler.StatusCancelled:
		entry.Status = fabcache.StatusCancelled
		out.Error = "cancelled while queued"
		entry.Error = out.Error
	default:
		entry.Status = fabcache.StatusFailed
		if task.Err != nil {
			out.Error = task.Err.Error()
			entry.Error = task.Err.Error()
		}
	}
	p.recordHistory(entry)
	return out, nil
}

func waitForTask(ctx context.Context, t *scheduler.Task) error {
	select {
	case <-t.Done():
		return nil
	case <-ctx.Done():
		return ferr.Internal("request cancelled while awaiting task completion: " + ctx.Err().Error())
	}
}

// dispatchRemote implements §4.9's remote dispatch path: ask the tracker
// for a best peer excluding self, forward the task, and on failure retry
// via the tracker up to max_retries times, preferring a peer address not
// already tried this submission.
func (p *Peer) dispatchRemote(ctx context.Context, body CPUTaskRequest) (CPUResultResponse, error) {
	maxAttempts := body.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	tried := make(map[string]bool, maxAttempts)
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		best, err := p.tracker.RequestBestPeer(ctx, p.cfg.Identity, true)
		if err != nil || best.Address == "" {
			if err != nil {
				lastErr = err
			} else {
				lastErr = ferr.Unreachable("no peer available for dispatch")
			}
			continue
		}
		if tried[best.Address] {
			continue
		}
		tried[best.Address] = true

		req, _ := wire.NewRequest(wire.TypeCPUTask, body)
		resp, err := wireclient.CallWithRetry(ctx, best.Address, req, wireclient.DefaultRetryConfig())
		if err != nil {
			lastErr = err
			continue
		}
		if resp.IsError() {
			lastErr = ferr.New(ferr.Code(resp.Error.Code), resp.Error.Message)
			continue
		}
		var out CPUResultResponse
		if err := resp.Decode(&out); err != nil {
			lastErr = ferr.Internal(err.Error())
			continue
		}
		p.recordHistory(fabcache.HistoryEntry{
			ID: body.TaskID, Type: body.Function, Status: fabcache.Status(out.Status),
			Role: fabcache.RoleRequester, StartedAt: time.Now(), CacheHit: out.CacheHit,
		})
		return out, nil
	}
	if lastErr == nil {
		lastErr = ferr.Unreachable("dispatch exhausted all retries")
	}
	return CPUResultResponse{}, lastErr
}
