// Package wireclient implements the outbound side of the wire protocol:
// dial, send one request, read its response, close. Every RPC is a fresh
// connection per §4.1 ("every request yields exactly one response on the
// same connection; responses never cross connections").
package wireclient

import (
	"context"
	"math/rand"
	"net"
	"time"

	"github.com/Snider/Fabric/internal/ferr"
	"github.com/Snider/Fabric/internal/wire"
)

// DefaultDialTimeout bounds connection establishment.
const DefaultDialTimeout = 5 * time.Second

// Call dials address, writes req, reads and returns the response.
func Call(ctx context.Context, address string, req *wire.Envelope) (*wire.Envelope, error) {
	var d net.Dialer
	d.Timeout = DefaultDialTimeout
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, ferr.Unreachable(address).WithCause(err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := wire.WriteEnvelope(conn, req); err != nil {
		return nil, ferr.Unreachable(address).WithCause(err)
	}
	resp, err := wire.ReadEnvelope(conn, 0)
	if err != nil {
		return nil, ferr.Unreachable(address).WithCause(err)
	}
	return resp, nil
}

// RetryConfig controls CallWithRetry's backoff.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig is a modest exponential backoff with jitter, used when
// forwarding a dispatched submission to a destination peer (§5: "retry with
// backoff and jitter").
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// CallWithRetry retries Call with exponential backoff and full jitter until
// MaxAttempts is exhausted or ctx is done.
func CallWithRetry(ctx context.Context, address string, req *wire.Envelope, cfg RetryConfig) (*wire.Envelope, error) {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultRetryConfig()
	}
	var lastErr error
	delay := cfg.BaseDelay
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		resp, err := Call(ctx, address, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts-1 {
			break
		}
		jittered := time.Duration(rand.Int63n(int64(delay)))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(jittered):
		}
		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return nil, lastErr
}
