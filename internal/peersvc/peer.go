// Package peersvc implements the peer server and dispatch pipeline (C12):
// the TCP listener, the message routing table, the admission path for
// compute submissions, and the heartbeat worker that keeps the tracker's
// PeerRecord current.
package peersvc

import (
	"context"
	"time"

	"github.com/Snider/Fabric/internal/allocator"
	"github.com/Snider/Fabric/internal/arbiter"
	"github.com/Snider/Fabric/internal/fablog"
	"github.com/Snider/Fabric/internal/fabcache"
	"github.com/Snider/Fabric/internal/ferr"
	"github.com/Snider/Fabric/internal/filestore"
	"github.com/Snider/Fabric/internal/histdb"
	"github.com/Snider/Fabric/internal/ipc"
	"github.com/Snider/Fabric/internal/memstore"
	"github.com/Snider/Fabric/internal/ownedstore"
	"github.com/Snider/Fabric/internal/ownership"
	"github.com/Snider/Fabric/internal/proctable"
	"github.com/Snider/Fabric/internal/quota"
	"github.com/Snider/Fabric/internal/scheduler"
	"github.com/Snider/Fabric/internal/supervisor"
)

// DefaultHeartbeatInterval is the spec's stated default UPDATE_LOAD period.
const DefaultHeartbeatInterval = 10 * time.Second

// Config describes one peer's identity and wiring.
type Config struct {
	Identity          string
	Address           string // this peer's own host:port, as registered with the tracker
	TrackerAddress    string
	HeartbeatInterval time.Duration
	Discipline        scheduler.Discipline
	Quota             quota.Limits
	CacheCapacity     int
	CacheTTL          time.Duration
	HistoryCapacity   int

	// Resources declares this peer's arbitrable resource pool (name→total
	// units), e.g. {"cpu_slots": 4, "memory_units": 1024}. The wire
	// protocol's REQUEST_RESOURCE never carries a per-process declared
	// maximum need (only pid, resource, units), so every process admitted
	// via CREATE_PROCESS is registered with the arbiter with its maximum
	// need set to each resource's full total — a documented simplification
	// of the banker's-algorithm precondition given what the protocol
	// actually exposes.
	Resources map[string]int64
}

// Peer aggregates every subsystem a single fabric node runs.
type Peer struct {
	cfg Config
	log *fablog.Logger

	Memory    *memstore.Store
	Files     *filestore.Store
	Owned     *ownedstore.Store
	Processes *proctable.Table
	Arbiter   *arbiter.Arbiter
	Allocator *allocator.Allocator
	IPC       *ipc.Registry
	Cache     *fabcache.Cache
	History   *fabcache.History
	Quota     *quota.Ledger
	Scheduler *scheduler.Scheduler
	Lifecycle *ownership.Lifecycle

	// HistoryMirror, when set by the caller after New, additionally
	// persists every completed task to a queryable sqlite store (C9's
	// optional across-restart history). A nil *histdb.Store is safe to
	// call into and simply no-ops, so this is left unset by default.
	HistoryMirror *histdb.Store

	tracker *trackerClient
	sup     *supervisor.Supervisor
}

// recordHistory appends to the in-memory ring buffer and, if configured,
// mirrors the same entry into the sqlite history store.
func (p *Peer) recordHistory(e fabcache.HistoryEntry) {
	p.History.Append(e)
	p.HistoryMirror.Append(histdb.Entry{
		ID: e.ID, Type: e.Type, Status: string(e.Status), Role: string(e.Role),
		StartedAt: e.StartedAt, Duration: e.Duration, Error: e.Error,
	})
}

// New constructs a Peer with every subsystem initialized and wired.
func New(cfg Config, log *fablog.Logger) *Peer {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if log == nil {
		log = fablog.GetGlobal()
	}
	log = log.WithComponent(fablog.ComponentPeer)

	sched := scheduler.New(cfg.Discipline, log)
	trackerC := &trackerClient{trackerAddress: cfg.TrackerAddress}

	p := &Peer{
		cfg:       cfg,
		log:       log,
		Memory:    memstore.New(),
		Files:     filestore.New(),
		Owned:     ownedstore.New(),
		Processes: proctable.New(),
		Arbiter:   arbiter.New(),
		Allocator: allocator.New(allocator.DefaultArenaBytes, allocator.FirstFit),
		IPC:       ipc.NewRegistry(),
		Cache:     fabcache.New(cfg.CacheCapacity, cfg.CacheTTL),
		History:   fabcache.NewHistory(cfg.HistoryCapacity),
		Quota:     quota.New(cfg.Quota),
		Scheduler: sched,
		tracker:   trackerC,
		sup:       supervisor.New(log),
	}
	p.Lifecycle = ownership.NewLifecycle(trackerC, &storageClient{peer: p})
	for name, total := range cfg.Resources {
		p.Arbiter.RegisterResource(name, "generic", total)
	}

	p.sup.Register("scheduler-dispatch", p.Scheduler.Run)
	p.sup.Register("heartbeat", p.runHeartbeat)
	return p
}

// Start begins the scheduler dispatch worker and heartbeat loop, and
// performs the initial tracker REGISTER.
func (p *Peer) Start(ctx context.Context) error {
	if err := p.register(ctx); err != nil {
		return err
	}
	p.sup.Start()
	return nil
}

// Stop halts all background workers.
func (p *Peer) Stop() { p.sup.Stop() }

func (p *Peer) register(ctx context.Context) error {
	return p.tracker.Register(ctx, p.cfg.Identity, p.cfg.Address, p.currentLoad())
}

// currentLoad is queue length plus a flat 0.5 weight while the queue is
// non-empty. The scheduler exposes no direct "currently running" counter
// (its single dispatch worker means at most one task runs at a time), and
// the weight is not tied to one: a task running while the queue is empty
// adds no weight. The host's actual CPU utilization is folded in as a
// fractional term so a peer whose queue is short but whose machine is
// otherwise pegged still reports itself as loaded.
func (p *Peer) currentLoad() float64 {
	snap := p.Scheduler.Snapshot()
	const runningWeight = 0.5
	load := float64(snap.QueueLength)
	if snap.QueueLength > 0 {
		load += runningWeight
	}
	return load + hostCPULoad()
}

func (p *Peer) runHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.tracker.UpdateLoad(ctx, p.cfg.Identity, p.currentLoad()); err != nil {
				p.log.Warn("heartbeat UPDATE_LOAD failed", fablog.Fields{"error": err.Error()})
			}
		}
	}
}

// Rebind re-registers under a new address without rotating identity, per
// §4.12 ("on address change the peer re-REGISTERs; it must not rotate
// identity").
func (p *Peer) Rebind(ctx context.Context, newAddress string) error {
	p.cfg.Address = newAddress
	return p.register(ctx)
}

func wrapError(err error) *ferr.FabricError {
	if fe, ok := err.(*ferr.FabricError); ok {
		return fe
	}
	return ferr.Internal(err.Error())
}
