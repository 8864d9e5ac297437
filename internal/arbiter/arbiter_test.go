package arbiter

import (
	"testing"

	"github.com/Snider/Fabric/internal/ferr"
)

// TestBankerSafetyDenialScenario reproduces the spec's concrete scenario:
// resource R with 10 units; P1 max=7 holds 5; P2 max=4 holds 2; P3 max=9
// holds 2. P3 requesting 2 more exceeds availability; requesting 1 more is
// available but unsafe.
func TestBankerSafetyDenialScenario(t *testing.T) {
	a := New()
	a.RegisterResource("R", "generic", 10)
	a.RegisterProcess(1, map[string]int64{"R": 7})
	a.RegisterProcess(2, map[string]int64{"R": 4})
	a.RegisterProcess(3, map[string]int64{"R": 9})

	mustGrant(t, a, 1, "R", 5)
	mustGrant(t, a, 2, "R", 2)
	mustGrant(t, a, 3, "R", 2)

	// available = 10 - (5+2+2) = 1
	err := a.Request(3, "R", 2)
	fe, ok := ferr.As(err)
	if !ok || fe.Code != ferr.CodeExceedsAvailable {
		t.Fatalf("expected EXCEEDS_AVAILABLE, got %v", err)
	}

	// available = 1; requesting 1 succeeds the available check but leaves
	// need vector (2,2,6) with no safe ordering → UNSAFE.
	err = a.Request(3, "R", 1)
	fe, ok = ferr.As(err)
	if !ok || fe.Code != ferr.CodeUnsafe {
		t.Fatalf("expected UNSAFE, got %v", err)
	}

	// No state change: P3 should still hold exactly 2.
	if got := a.availableLocked("R"); got != 1 {
		t.Fatalf("available after denied requests = %d, want 1 (no state change)", got)
	}
}

func mustGrant(t *testing.T, a *Arbiter, pid uint64, name string, units int64) {
	t.Helper()
	if err := a.Request(pid, name, units); err != nil {
		t.Fatalf("Request(%d, %s, %d) unexpectedly failed: %v", pid, name, units, err)
	}
}

func TestRequestExceedsNeed(t *testing.T) {
	a := New()
	a.RegisterResource("R", "generic", 10)
	a.RegisterProcess(1, map[string]int64{"R": 3})

	err := a.Request(1, "R", 4)
	fe, ok := ferr.As(err)
	if !ok || fe.Code != ferr.CodeExceedsNeed {
		t.Fatalf("expected EXCEEDS_NEED, got %v", err)
	}
}

func TestZeroUnitRequestIsNoop(t *testing.T) {
	a := New()
	a.RegisterResource("R", "generic", 10)
	a.RegisterProcess(1, map[string]int64{"R": 3})
	if err := a.Request(1, "R", 0); err != nil {
		t.Fatalf("zero-unit request should be a no-op, got %v", err)
	}
}

func TestUnknownResourceAndProcess(t *testing.T) {
	a := New()
	a.RegisterResource("R", "generic", 10)
	if err := a.Request(1, "R", 1); err == nil {
		t.Fatal("expected UNKNOWN_PID for unregistered process")
	}
	a.RegisterProcess(1, map[string]int64{"R": 5})
	if err := a.Request(1, "Q", 1); err == nil {
		t.Fatal("expected UNKNOWN_RESOURCE")
	}
}

func TestReleaseThenRequestAgain(t *testing.T) {
	a := New()
	a.RegisterResource("R", "generic", 5)
	a.RegisterProcess(1, map[string]int64{"R": 5})

	mustGrant(t, a, 1, "R", 5)
	if err := a.Release(1, "R", 5); err != nil {
		t.Fatalf("Release: %v", err)
	}
	mustGrant(t, a, 1, "R", 5)
}

func TestCheckDeadlockDetectsCycle(t *testing.T) {
	a := New()
	a.RegisterResource("R1", "generic", 1)
	a.RegisterResource("R2", "generic", 1)
	a.RegisterProcess(1, map[string]int64{"R1": 1, "R2": 1})
	a.RegisterProcess(2, map[string]int64{"R1": 1, "R2": 1})

	mustGrant(t, a, 1, "R1", 1)
	mustGrant(t, a, 2, "R2", 1)

	// P1 now wants R2 (held by P2); P2 wants R1 (held by P1): classic cycle.
	if err := a.Request(1, "R2", 1); err == nil {
		t.Fatal("expected P1's request for R2 to be denied (held by P2)")
	}
	a.MarkWaiting(1, "R2")
	if err := a.Request(2, "R1", 1); err == nil {
		t.Fatal("expected P2's request for R1 to be denied (held by P1)")
	}
	a.MarkWaiting(2, "R1")

	cycle := a.CheckDeadlock()
	if len(cycle) != 2 || cycle[0] != 1 || cycle[1] != 2 {
		t.Fatalf("CheckDeadlock() = %v, want [1 2]", cycle)
	}
}

func TestCheckDeadlockNoCycleWhenResourcesAvailable(t *testing.T) {
	a := New()
	a.RegisterResource("R", "generic", 10)
	a.RegisterProcess(1, map[string]int64{"R": 5})
	a.RegisterProcess(2, map[string]int64{"R": 5})
	mustGrant(t, a, 1, "R", 2)

	if cycle := a.CheckDeadlock(); len(cycle) != 0 {
		t.Fatalf("expected no cycle, got %v", cycle)
	}
}
