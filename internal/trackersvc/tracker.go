// Package trackersvc implements the coordination service (C13): the peer
// directory, file advertisement index, and persisted ownership registry,
// plus the wire dispatch table that fronts them.
package trackersvc

import (
	"context"
	"net"
	"time"

	"github.com/Snider/Fabric/internal/fablog"
	"github.com/Snider/Fabric/internal/ferr"
	"github.com/Snider/Fabric/internal/supervisor"
	"github.com/Snider/Fabric/internal/wire"
)

// Config controls a Tracker's timers.
type Config struct {
	PeerTimeout   time.Duration
	JanitorPeriod time.Duration // default: PeerTimeout
	StatePath     string        // owned_files.json location
}

// DefaultConfig mirrors the spec's stated defaults.
func DefaultConfig(statePath string) Config {
	return Config{PeerTimeout: DefaultPeerTimeout, JanitorPeriod: DefaultPeerTimeout, StatePath: statePath}
}

// Tracker aggregates the peer directory, file advertisement index, and
// ownership registry, and dispatches wire envelopes against them.
type Tracker struct {
	log *fablog.Logger
	cfg Config

	Peers    *PeerTable
	FilesAd  *FileAdTable
	Owned    *OwnedFileTable
	sup      *supervisor.Supervisor
}

// New constructs a Tracker, loading any persisted ownership state from
// cfg.StatePath.
func New(cfg Config, log *fablog.Logger) (*Tracker, error) {
	if cfg.PeerTimeout <= 0 {
		cfg.PeerTimeout = DefaultPeerTimeout
	}
	if cfg.JanitorPeriod <= 0 {
		cfg.JanitorPeriod = cfg.PeerTimeout
	}
	if log == nil {
		log = fablog.GetGlobal()
	}
	log = log.WithComponent(fablog.ComponentTracker)

	var persister Persister
	var initial map[string]*OwnedFileEntry
	if cfg.StatePath != "" {
		persister = NewFilePersister(cfg.StatePath)
		loaded, err := Load(cfg.StatePath)
		if err != nil {
			return nil, err
		}
		initial = loaded
	}

	t := &Tracker{
		log:     log,
		cfg:     cfg,
		Peers:   NewPeerTable(cfg.PeerTimeout),
		FilesAd: NewFileAdTable(),
		Owned:   NewOwnedFileTable(persister, initial),
		sup:     supervisor.New(log),
	}
	t.sup.Register("janitor", t.runJanitor)
	return t, nil
}

// Start begins the background janitor.
func (t *Tracker) Start() { t.sup.Start() }

// Stop halts the background janitor.
func (t *Tracker) Stop() { t.sup.Stop() }

func (t *Tracker) runJanitor(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.JanitorPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, id := range t.Peers.EvictStale(now) {
				t.FilesAd.RemovePeer(id)
				t.log.Info("evicted stale peer", fablog.Fields{"identity": id})
			}
		}
	}
}

// --- request payloads exchanged over the wire ---

type RegisterRequest struct {
	Identity    string  `json:"identity"`
	Address     string  `json:"address"`
	InitialLoad float64 `json:"initial_load"`
}

type UpdateLoadRequest struct {
	Identity string  `json:"identity"`
	Load     float64 `json:"load"`
}

type RequestBestPeerRequest struct {
	RequesterIdentity string `json:"requester_identity"`
	ExcludeSelf       bool   `json:"exclude_self"`
}

type BestPeerResponse struct {
	Identity string `json:"identity"`
	Address  string `json:"address"`
}

type RegisterFileRequest struct {
	Identity string `json:"identity"`
	Filename string `json:"filename"`
}

type FindFileRequest struct {
	Filename string `json:"filename"`
}

type FindFileResponse struct {
	Addresses []string `json:"addresses"`
}

type RegisterOwnedFileRequest struct {
	OwnerID         string `json:"owner_id"`
	OwnerAddress    string `json:"owner_address"`
	StorageIdentity string `json:"storage_identity"`
	StorageAddress  string `json:"storage_address"`
	Filename        string `json:"filename"`
}

type FindOwnedFileRequest struct {
	Filename    string `json:"filename"`
	RequesterID string `json:"requester_id"`
}

type OwnedFileLocationsResponse struct {
	Locations []StorageLocation `json:"locations"`
}

type ConfirmOwnedDeleteRequest struct {
	Filename        string `json:"filename"`
	StorageIdentity string `json:"storage_identity"`
}

// Dispatch routes one request envelope to the matching tracker operation.
func (t *Tracker) Dispatch(ctx context.Context, req *wire.Envelope) *wire.Envelope {
	now := time.Now()
	switch req.Type {
	case wire.TypeRegister:
		return t.handleRegister(req, now)
	case wire.TypeUnregister:
		return t.handleUnregister(req)
	case wire.TypeUpdateLoad:
		return t.handleUpdateLoad(req, now)
	case wire.TypeRequestBestPeer:
		return t.handleRequestBestPeer(req, now)
	case wire.TypeRegisterFile:
		return t.handleRegisterFile(req)
	case wire.TypeUnregisterFile:
		return t.handleUnregisterFile(req)
	case wire.TypeFindFile:
		return t.handleFindFile(req)
	case wire.TypeRegisterOwnedFile:
		return t.handleRegisterOwnedFile(req)
	case wire.TypeFindOwnedFile:
		return t.handleFindOwnedFile(req)
	case wire.TypeDeleteOwnedFile:
		return t.handleDeleteOwnedFile(req)
	case wire.TypeConfirmOwnedDelete:
		return t.handleConfirmOwnedDelete(req)
	default:
		return wire.NewErrorResponse(req, string(ferr.CodeBadRequest), "unknown tracker message type: "+string(req.Type))
	}
}

func errorResponse(req *wire.Envelope, err error) *wire.Envelope {
	if fe, ok := err.(*ferr.FabricError); ok {
		return wire.NewErrorResponse(req, string(fe.Code), fe.Message)
	}
	return wire.NewErrorResponse(req, string(ferr.CodeInternal), err.Error())
}

func (t *Tracker) handleRegister(req *wire.Envelope, now time.Time) *wire.Envelope {
	var body RegisterRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, ferr.BadRequest(err.Error()))
	}
	if body.Identity == "" || body.Address == "" {
		return errorResponse(req, ferr.BadRequest("identity and address are required"))
	}
	if _, _, err := net.SplitHostPort(body.Address); err != nil {
		return errorResponse(req, ferr.BadRequest("address must be host:port"))
	}

	_, changed := t.Peers.Register(body.Identity, body.Address, body.InitialLoad, now)
	if changed {
		if err := t.Owned.RefreshOwnerAddress(body.Identity, body.Address); err != nil {
			return errorResponse(req, err)
		}
	}
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

func (t *Tracker) handleUnregister(req *wire.Envelope) *wire.Envelope {
	var body struct {
		Identity string `json:"identity"`
	}
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, ferr.BadRequest(err.Error()))
	}
	t.Peers.Unregister(body.Identity)
	t.FilesAd.RemovePeer(body.Identity)
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

func (t *Tracker) handleUpdateLoad(req *wire.Envelope, now time.Time) *wire.Envelope {
	var body UpdateLoadRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, ferr.BadRequest(err.Error()))
	}
	if err := t.Peers.UpdateLoad(body.Identity, body.Load, now); err != nil {
		return errorResponse(req, err)
	}
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

func (t *Tracker) handleRequestBestPeer(req *wire.Envelope, now time.Time) *wire.Envelope {
	var body RequestBestPeerRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, ferr.BadRequest(err.Error()))
	}
	exclude := ""
	if body.ExcludeSelf {
		exclude = body.RequesterIdentity
	}
	best, ok := t.Peers.BestPeer(exclude, now)
	if !ok {
		return errorResponse(req, ferr.Unreachable("no eligible peer"))
	}
	resp, _ := wire.NewResponse(req, wire.TypeOK, BestPeerResponse{Identity: best.Identity, Address: best.Address})
	return resp
}

func (t *Tracker) handleRegisterFile(req *wire.Envelope) *wire.Envelope {
	var body RegisterFileRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, ferr.BadRequest(err.Error()))
	}
	t.FilesAd.Register(body.Filename, body.Identity)
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

func (t *Tracker) handleUnregisterFile(req *wire.Envelope) *wire.Envelope {
	var body RegisterFileRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, ferr.BadRequest(err.Error()))
	}
	t.FilesAd.Unregister(body.Filename, body.Identity)
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

func (t *Tracker) handleFindFile(req *wire.Envelope) *wire.Envelope {
	var body FindFileRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, ferr.BadRequest(err.Error()))
	}
	identities := t.FilesAd.Find(body.Filename)
	addresses := make([]string, 0, len(identities))
	for _, id := range identities {
		if p, ok := t.Peers.Get(id); ok {
			addresses = append(addresses, p.Address)
		}
	}
	resp, _ := wire.NewResponse(req, wire.TypeOK, FindFileResponse{Addresses: addresses})
	return resp
}

func (t *Tracker) handleRegisterOwnedFile(req *wire.Envelope) *wire.Envelope {
	var body RegisterOwnedFileRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, ferr.BadRequest(err.Error()))
	}
	if err := t.Owned.RegisterOwnedFile(body.OwnerID, body.OwnerAddress, body.StorageIdentity, body.StorageAddress, body.Filename); err != nil {
		return errorResponse(req, err)
	}
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}

func (t *Tracker) handleFindOwnedFile(req *wire.Envelope) *wire.Envelope {
	var body FindOwnedFileRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, ferr.BadRequest(err.Error()))
	}
	locs, err := t.Owned.FindOwnedFile(body.Filename, body.RequesterID)
	if err != nil {
		return errorResponse(req, err)
	}
	resp, _ := wire.NewResponse(req, wire.TypeOK, OwnedFileLocationsResponse{Locations: locs})
	return resp
}

func (t *Tracker) handleDeleteOwnedFile(req *wire.Envelope) *wire.Envelope {
	var body FindOwnedFileRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, ferr.BadRequest(err.Error()))
	}
	locs, err := t.Owned.AuthorizeDelete(body.Filename, body.RequesterID)
	if err != nil {
		return errorResponse(req, err)
	}
	resp, _ := wire.NewResponse(req, wire.TypeOK, OwnedFileLocationsResponse{Locations: locs})
	return resp
}

func (t *Tracker) handleConfirmOwnedDelete(req *wire.Envelope) *wire.Envelope {
	var body ConfirmOwnedDeleteRequest
	if err := req.Decode(&body); err != nil {
		return errorResponse(req, ferr.BadRequest(err.Error()))
	}
	if err := t.Owned.ConfirmDelete(body.Filename, body.StorageIdentity); err != nil {
		return errorResponse(req, err)
	}
	resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
	return resp
}
