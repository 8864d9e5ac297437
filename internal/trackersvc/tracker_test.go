package trackersvc

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Snider/Fabric/internal/wire"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "owned_files.json"))
	tr, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func TestDispatchRegisterThenRequestBestPeer(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	req, _ := wire.NewRequest(wire.TypeRegister, RegisterRequest{Identity: "p1", Address: "10.0.0.1:9000", InitialLoad: 0})
	resp := tr.Dispatch(ctx, req)
	if resp.IsError() {
		t.Fatalf("REGISTER failed: %+v", resp.Error)
	}

	req2, _ := wire.NewRequest(wire.TypeRequestBestPeer, RequestBestPeerRequest{})
	resp2 := tr.Dispatch(ctx, req2)
	if resp2.IsError() {
		t.Fatalf("REQUEST_BEST_PEER failed: %+v", resp2.Error)
	}
	var best BestPeerResponse
	resp2.Decode(&best)
	if best.Identity != "p1" {
		t.Fatalf("best peer = %+v, want p1", best)
	}
}

func TestDispatchFindOwnedFileRejectsNonOwner(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	regReq, _ := wire.NewRequest(wire.TypeRegisterOwnedFile, RegisterOwnedFileRequest{
		OwnerID: "owner1", OwnerAddress: "H1:9000",
		StorageIdentity: "s1", StorageAddress: "S1:1", Filename: "doc",
	})
	if resp := tr.Dispatch(ctx, regReq); resp.IsError() {
		t.Fatalf("REGISTER_OWNED_FILE failed: %+v", resp.Error)
	}

	findReq, _ := wire.NewRequest(wire.TypeFindOwnedFile, FindOwnedFileRequest{Filename: "doc", RequesterID: "owner1"})
	resp := tr.Dispatch(ctx, findReq)
	if resp.IsError() {
		t.Fatalf("FIND_OWNED_FILE (owner) failed: %+v", resp.Error)
	}

	badReq, _ := wire.NewRequest(wire.TypeFindOwnedFile, FindOwnedFileRequest{Filename: "doc", RequesterID: "intruder"})
	resp2 := tr.Dispatch(ctx, badReq)
	if !resp2.IsError() || resp2.Error.Code != "NOT_OWNER" {
		t.Fatalf("expected NOT_OWNER for a non-owning requester, got %+v", resp2.Error)
	}
}

func TestDispatchUnknownMessageType(t *testing.T) {
	tr := newTestTracker(t)
	req, _ := wire.NewRequest(wire.Type("NOT_A_REAL_TYPE"), nil)
	resp := tr.Dispatch(context.Background(), req)
	if !resp.IsError() {
		t.Fatal("expected an error response for an unrouted message type")
	}
}

func TestRegisterRefreshesOwnedFileAddress(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	reg1, _ := wire.NewRequest(wire.TypeRegister, RegisterRequest{Identity: "owner1", Address: "H1:9000"})
	tr.Dispatch(ctx, reg1)

	regOwned, _ := wire.NewRequest(wire.TypeRegisterOwnedFile, RegisterOwnedFileRequest{
		OwnerID: "owner1", OwnerAddress: "H1:9000", StorageIdentity: "s1", StorageAddress: "S1:1", Filename: "doc",
	})
	tr.Dispatch(ctx, regOwned)

	reg2, _ := wire.NewRequest(wire.TypeRegister, RegisterRequest{Identity: "owner1", Address: "H2:9000"})
	if resp := tr.Dispatch(ctx, reg2); resp.IsError() {
		t.Fatalf("re-REGISTER failed: %+v", resp.Error)
	}

	snap := tr.Owned.Snapshot()
	if len(snap) != 1 || snap[0].OwnerAddress() != "H2:9000" {
		t.Fatalf("OwnedFileEntry address = %+v, want H2:9000", snap)
	}
}
