package quota

import (
	"testing"
	"time"
)

func TestAdmitCPUTaskWithinLimit(t *testing.T) {
	l := New(Limits{MaxCPUTasks: 2, Window: time.Hour})
	now := time.Unix(1000, 0)

	if err := l.AdmitCPUTask(now); err != nil {
		t.Fatalf("1st submission: %v", err)
	}
	if err := l.AdmitCPUTask(now); err != nil {
		t.Fatalf("2nd submission: %v", err)
	}
	if err := l.AdmitCPUTask(now); err == nil {
		t.Fatal("expected QUOTA_EXCEEDED on 3rd submission")
	}
}

func TestAdmitCPUTaskWindowSlides(t *testing.T) {
	l := New(Limits{MaxCPUTasks: 1, Window: time.Second})
	t0 := time.Unix(1000, 0)

	if err := l.AdmitCPUTask(t0); err != nil {
		t.Fatalf("1st submission: %v", err)
	}
	if err := l.AdmitCPUTask(t0.Add(500 * time.Millisecond)); err == nil {
		t.Fatal("expected QUOTA_EXCEEDED inside the window")
	}
	if err := l.AdmitCPUTask(t0.Add(2 * time.Second)); err != nil {
		t.Fatalf("expected admission after window elapsed: %v", err)
	}
}

func TestAdmitKeyEnforcesLimit(t *testing.T) {
	l := New(Limits{MaxMemoryKeys: 2})
	if err := l.AdmitKey(1); err != nil {
		t.Fatalf("AdmitKey(1): %v", err)
	}
	if err := l.AdmitKey(1); err != nil {
		t.Fatalf("AdmitKey(1): %v", err)
	}
	if err := l.AdmitKey(1); err == nil {
		t.Fatal("expected QUOTA_EXCEEDED on 3rd key")
	}

	if err := l.AdmitKey(-1); err != nil {
		t.Fatalf("AdmitKey(-1): %v", err)
	}
	if err := l.AdmitKey(1); err != nil {
		t.Fatalf("AdmitKey(1) after delete should now fit: %v", err)
	}
}

func TestAdmitStorageBytesEnforcesLimit(t *testing.T) {
	l := New(Limits{MaxStorageBytes: 100})
	if err := l.AdmitStorageBytes(60); err != nil {
		t.Fatalf("AdmitStorageBytes(60): %v", err)
	}
	if err := l.AdmitStorageBytes(50); err == nil {
		t.Fatal("expected QUOTA_EXCEEDED exceeding max_storage_bytes")
	}
	if err := l.AdmitStorageBytes(-60); err != nil {
		t.Fatalf("AdmitStorageBytes(-60): %v", err)
	}
	snap := l.Snapshot(time.Now())
	if snap.StorageBytes != 0 {
		t.Fatalf("StorageBytes = %d, want 0", snap.StorageBytes)
	}
}

func TestZeroLimitMeansUnlimited(t *testing.T) {
	l := New(Limits{})
	for i := 0; i < 50; i++ {
		if err := l.AdmitCPUTask(time.Now()); err != nil {
			t.Fatalf("unexpected QUOTA_EXCEEDED with zero limit: %v", err)
		}
	}
}

func TestSnapshotReportsConsumption(t *testing.T) {
	l := New(Limits{MaxCPUTasks: 5, Window: time.Hour})
	now := time.Unix(2000, 0)
	l.AdmitCPUTask(now)
	l.AdmitKey(3)
	l.AdmitStorageBytes(42)

	snap := l.Snapshot(now)
	if snap.CPUTasksInWindow != 1 || snap.MemoryKeys != 3 || snap.StorageBytes != 42 {
		t.Fatalf("Snapshot = %+v", snap)
	}
}
