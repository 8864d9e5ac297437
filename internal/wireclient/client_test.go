package wireclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/Snider/Fabric/internal/wire"
)

func serveOnce(t *testing.T, ln net.Listener, handler func(*wire.Envelope) *wire.Envelope) {
	t.Helper()
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	req, err := wire.ReadEnvelope(conn, 0)
	if err != nil {
		t.Errorf("server ReadEnvelope: %v", err)
		return
	}
	resp := handler(req)
	if err := wire.WriteEnvelope(conn, resp); err != nil {
		t.Errorf("server WriteEnvelope: %v", err)
	}
}

func TestCallRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	go serveOnce(t, ln, func(req *wire.Envelope) *wire.Envelope {
		resp, _ := wire.NewResponse(req, wire.TypeOK, map[string]string{"echo": "hi"})
		return resp
	})

	req, _ := wire.NewRequest(wire.TypeStatus, nil)
	resp, err := Call(context.Background(), ln.Addr().String(), req)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.ID != req.ID || resp.Type != wire.TypeOK {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestCallUnreachableAddress(t *testing.T) {
	req, _ := wire.NewRequest(wire.TypeStatus, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := Call(ctx, "127.0.0.1:1", req); err == nil {
		t.Fatal("expected an error dialing a closed port")
	}
}

func TestCallWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	go func() {
		// The first connection is dropped without a reply, so the first
		// attempt fails and only the retry reaches serveOnce.
		if conn, err := ln.Accept(); err == nil {
			conn.Close()
		}
		serveOnce(t, ln, func(req *wire.Envelope) *wire.Envelope {
			resp, _ := wire.NewResponse(req, wire.TypeOK, nil)
			return resp
		})
	}()

	req, _ := wire.NewRequest(wire.TypeStatus, nil)
	cfg := RetryConfig{MaxAttempts: 2, BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond}
	resp, err := CallWithRetry(context.Background(), ln.Addr().String(), req, cfg)
	if err != nil {
		t.Fatalf("CallWithRetry: %v", err)
	}
	if resp.Type != wire.TypeOK {
		t.Fatalf("resp.Type = %v", resp.Type)
	}
}

func TestCallWithRetryExhaustsAttempts(t *testing.T) {
	req, _ := wire.NewRequest(wire.TypeStatus, nil)
	cfg := RetryConfig{MaxAttempts: 2, BaseDelay: 5 * time.Millisecond, MaxDelay: 10 * time.Millisecond}
	if _, err := CallWithRetry(context.Background(), "127.0.0.1:1", req, cfg); err == nil {
		t.Fatal("expected failure after exhausting retries against a closed port")
	}
}
