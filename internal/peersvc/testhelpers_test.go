package peersvc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/Snider/Fabric/internal/quota"
	"github.com/Snider/Fabric/internal/scheduler"
	"github.com/Snider/Fabric/internal/trackersvc"
	"github.com/Snider/Fabric/internal/wire"
)

// startTestTracker spins a real tracker behind a TCP listener for the
// duration of the test, serving requests until t's cleanup fires.
func startTestTracker(t *testing.T) string {
	t.Helper()
	tr, err := trackersvc.New(trackersvc.DefaultConfig(""), nil)
	if err != nil {
		t.Fatalf("trackersvc.New: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				req, err := wire.ReadEnvelope(conn, 0)
				if err != nil {
					return
				}
				resp := tr.Dispatch(ctx, req)
				wire.WriteEnvelope(conn, resp)
			}()
		}
	}()
	t.Cleanup(func() {
		cancel()
		ln.Close()
	})
	return ln.Addr().String()
}

func newTestPeer(t *testing.T, trackerAddr string) *Peer {
	t.Helper()
	if trackerAddr == "" {
		trackerAddr = "127.0.0.1:1" // refused immediately; tests that don't need a tracker tolerate this
	}
	cfg := Config{
		Identity:       "peer-" + t.Name(),
		Address:        "127.0.0.1:0",
		TrackerAddress: trackerAddr,
		Discipline:     scheduler.FCFS,
		Quota:          quota.DefaultLimits(),
		Resources:      map[string]int64{"cpu_slots": 4},
	}
	p := New(cfg, nil)
	return p
}

func callDispatch(t *testing.T, p *Peer, typ wire.Type, payload interface{}) *wire.Envelope {
	t.Helper()
	req, err := wire.NewRequest(typ, payload)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return p.Dispatch(ctx, req)
}
