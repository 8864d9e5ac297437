package proctable

import "testing"

func TestCreateAssignsIncreasingPIDs(t *testing.T) {
	tbl := New()
	p1, err := tbl.Create("t1", 0, 0, false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	p2, _ := tbl.Create("t2", 0, 0, false)
	if p2 <= p1 {
		t.Fatalf("expected increasing pids, got %d then %d", p1, p2)
	}
}

func TestCreateWithUnknownParentFails(t *testing.T) {
	tbl := New()
	if _, err := tbl.Create("t1", 999, 0, false); err == nil {
		t.Fatal("expected UNKNOWN_PID for nonexistent parent")
	}
}

func TestTerminatePostOrderCascadesToChildren(t *testing.T) {
	tbl := New()
	root, _ := tbl.Create("root", 0, 0, false)
	child, _ := tbl.Create("child", root, 0, false)
	grandchild, _ := tbl.Create("grandchild", child, 0, false)

	if err := tbl.Terminate(root); err != nil {
		t.Fatalf("Terminate: %v", err)
	}

	for _, pid := range []uint64{root, child, grandchild} {
		p, err := tbl.Get(pid)
		if err != nil {
			t.Fatalf("Get(%d): %v", pid, err)
		}
		if p.State != StateTerminated {
			t.Fatalf("pid %d state = %s, want TERMINATED", pid, p.State)
		}
	}
}

func TestTerminateGroupTerminatesOnlyGroupRoots(t *testing.T) {
	tbl := New()
	a, _ := tbl.Create("a", 0, 7, true)
	b, _ := tbl.Create("b", a, 7, true)
	other, _ := tbl.Create("other", 0, 9, true)

	if err := tbl.TerminateGroup(7); err != nil {
		t.Fatalf("TerminateGroup: %v", err)
	}

	pa, _ := tbl.Get(a)
	pb, _ := tbl.Get(b)
	po, _ := tbl.Get(other)
	if pa.State != StateTerminated || pb.State != StateTerminated {
		t.Fatalf("group 7 members not terminated: a=%s b=%s", pa.State, pb.State)
	}
	if po.State == StateTerminated {
		t.Fatal("process in a different group should not be terminated")
	}
}

func TestGetUnknownPID(t *testing.T) {
	tbl := New()
	if _, err := tbl.Get(12345); err == nil {
		t.Fatal("expected UNKNOWN_PID")
	}
}

func TestTreeSortedByPID(t *testing.T) {
	tbl := New()
	tbl.Create("a", 0, 0, false)
	tbl.Create("b", 0, 0, false)
	tree := tbl.Tree()
	for i := 1; i < len(tree); i++ {
		if tree[i-1].PID >= tree[i].PID {
			t.Fatalf("Tree() not sorted: %+v", tree)
		}
	}
}
