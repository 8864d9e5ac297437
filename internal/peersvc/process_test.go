package peersvc

import (
	"testing"

	"github.com/Snider/Fabric/internal/wire"
)

func TestCreateTerminateProcessTree(t *testing.T) {
	p := newTestPeer(t, "")

	resp := callDispatch(t, p, wire.TypeCreateProcess, CreateProcessRequest{TaskRef: "root"})
	if resp.IsError() {
		t.Fatalf("CREATE_PROCESS: %+v", resp.Error)
	}
	var root CreateProcessResponse
	resp.Decode(&root)

	resp = callDispatch(t, p, wire.TypeCreateProcess, CreateProcessRequest{TaskRef: "child", Parent: root.PID})
	if resp.IsError() {
		t.Fatalf("CREATE_PROCESS (child): %+v", resp.Error)
	}
	var child CreateProcessResponse
	resp.Decode(&child)

	resp = callDispatch(t, p, wire.TypeProcessTree, nil)
	var tree ProcessTreeResponse
	resp.Decode(&tree)
	if len(tree.Tree) != 1 || tree.Tree[0].PID != root.PID {
		t.Fatalf("tree = %+v, want single root %d", tree.Tree, root.PID)
	}
	if len(tree.Tree[0].Children) != 1 || tree.Tree[0].Children[0].PID != child.PID {
		t.Fatalf("root's children = %+v, want single child %d", tree.Tree[0].Children, child.PID)
	}

	resp = callDispatch(t, p, wire.TypeTerminateProcess, TerminateProcessRequest{PID: root.PID})
	if resp.IsError() {
		t.Fatalf("TERMINATE_PROCESS: %+v", resp.Error)
	}

	resp = callDispatch(t, p, wire.TypeTerminateProcess, TerminateProcessRequest{PID: 999})
	if !resp.IsError() {
		t.Fatalf("expected UNKNOWN_PID terminating a nonexistent pid")
	}
}
