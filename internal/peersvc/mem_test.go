package peersvc

import (
	"testing"

	"github.com/Snider/Fabric/internal/quota"
	"github.com/Snider/Fabric/internal/wire"
)

func TestMemSetGetDeleteRoundTrip(t *testing.T) {
	p := newTestPeer(t, "")

	resp := callDispatch(t, p, wire.TypeSetMem, SetMemRequest{Key: "k", Value: []byte("v")})
	if resp.IsError() {
		t.Fatalf("SET_MEM: %+v", resp.Error)
	}

	resp = callDispatch(t, p, wire.TypeGetMem, GetMemRequest{Key: "k"})
	if resp.IsError() {
		t.Fatalf("GET_MEM: %+v", resp.Error)
	}
	var got GetMemResponse
	resp.Decode(&got)
	if string(got.Value) != "v" {
		t.Fatalf("value = %q, want %q", got.Value, "v")
	}

	resp = callDispatch(t, p, wire.TypeDelMem, DelMemRequest{Key: "k"})
	if resp.IsError() {
		t.Fatalf("DEL_MEM: %+v", resp.Error)
	}

	resp = callDispatch(t, p, wire.TypeGetMem, GetMemRequest{Key: "k"})
	if !resp.IsError() || resp.Error.Code != "UNKNOWN_KEY" {
		t.Fatalf("expected UNKNOWN_KEY after delete, got %+v", resp.Error)
	}
}

func TestMemSetOverwriteDoesNotDoubleCountKeyQuota(t *testing.T) {
	p := newTestPeer(t, "")
	p.Quota = quota.New(quota.Limits{MaxMemoryKeys: 1, Window: quota.DefaultWindow})

	resp := callDispatch(t, p, wire.TypeSetMem, SetMemRequest{Key: "k", Value: []byte("v1")})
	if resp.IsError() {
		t.Fatalf("first SET_MEM: %+v", resp.Error)
	}

	// Overwriting the same key must not consume a second unit of the
	// one-key quota.
	resp = callDispatch(t, p, wire.TypeSetMem, SetMemRequest{Key: "k", Value: []byte("v2")})
	if resp.IsError() {
		t.Fatalf("overwrite SET_MEM should not double-count the quota: %+v", resp.Error)
	}

	resp = callDispatch(t, p, wire.TypeGetMem, GetMemRequest{Key: "k"})
	var got GetMemResponse
	resp.Decode(&got)
	if string(got.Value) != "v2" {
		t.Fatalf("value = %q, want %q", got.Value, "v2")
	}
}

func TestMemListReportsKeys(t *testing.T) {
	p := newTestPeer(t, "")
	callDispatch(t, p, wire.TypeSetMem, SetMemRequest{Key: "a", Value: []byte("1")})
	callDispatch(t, p, wire.TypeSetMem, SetMemRequest{Key: "b", Value: []byte("2")})

	resp := callDispatch(t, p, wire.TypeListMem, nil)
	var out ListMemResponse
	resp.Decode(&out)
	if len(out.Keys) != 2 {
		t.Fatalf("keys = %v, want 2 entries", out.Keys)
	}
}
