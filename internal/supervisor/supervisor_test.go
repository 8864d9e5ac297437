package supervisor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegisteredTasksRunAndStop(t *testing.T) {
	s := New(nil)
	var ticks int64

	s.Register("ticker", func(ctx context.Context) {
		t := time.NewTicker(time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				atomic.AddInt64(&ticks, 1)
			}
		}
	})

	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	if atomic.LoadInt64(&ticks) == 0 {
		t.Fatal("expected at least one tick before stop")
	}
}

func TestPanicInTaskDoesNotCrashSupervisor(t *testing.T) {
	s := New(nil)
	done := make(chan struct{})

	s.Register("panicky", func(ctx context.Context) {
		defer close(done)
		panic("boom")
	})

	s.Start()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("panicking task never ran")
	}
	s.Stop() // must not hang or re-panic
}
