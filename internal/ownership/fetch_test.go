package ownership

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestRankByLatencyOrdersNearestFirst(t *testing.T) {
	candidates := []PeerCandidate{
		{Identity: "slow", Address: "a", PingMS: 200},
		{Identity: "fast", Address: "b", PingMS: 5},
		{Identity: "medium", Address: "c", PingMS: 50},
	}
	ranked, err := RankByLatency(candidates)
	if err != nil {
		t.Fatalf("RankByLatency: %v", err)
	}
	if len(ranked) != 3 || ranked[0].Identity != "fast" || ranked[2].Identity != "slow" {
		t.Fatalf("ranked = %+v, want fast first and slow last", ranked)
	}
}

func TestFetchMultiPeerConcatenatesChunksInOrder(t *testing.T) {
	peers := []PeerCandidate{{Identity: "p1", PingMS: 1}}
	size := int64(2*DefaultChunkSize + 10)

	fetch := func(ctx context.Context, peer PeerCandidate, offset, length int64) ([]byte, error) {
		buf := make([]byte, length)
		for i := range buf {
			buf[i] = byte((offset + int64(i)) % 251)
		}
		return buf, nil
	}

	got, err := FetchMultiPeer(context.Background(), size, peers, DefaultChunkSize, fetch)
	if err != nil {
		t.Fatalf("FetchMultiPeer: %v", err)
	}
	if int64(len(got)) != size {
		t.Fatalf("len(got) = %d, want %d", len(got), size)
	}
	for i := range got {
		want := byte(int64(i) % 251)
		if got[i] != want {
			t.Fatalf("byte %d = %d, want %d", i, got[i], want)
		}
	}
}

func TestFetchMultiPeerRetriesOnOtherPeer(t *testing.T) {
	peers := []PeerCandidate{
		{Identity: "bad", PingMS: 1},
		{Identity: "good", PingMS: 2},
	}
	var badAttempts int64
	fetch := func(ctx context.Context, peer PeerCandidate, offset, length int64) ([]byte, error) {
		if peer.Identity == "bad" {
			atomic.AddInt64(&badAttempts, 1)
			return nil, errTransient{}
		}
		return make([]byte, length), nil
	}

	got, err := FetchMultiPeer(context.Background(), 100, peers, 1<<30, fetch)
	if err != nil {
		t.Fatalf("FetchMultiPeer: %v", err)
	}
	if len(got) != 100 {
		t.Fatalf("len(got) = %d, want 100", len(got))
	}
	if atomic.LoadInt64(&badAttempts) == 0 {
		t.Fatal("expected the bad peer to be tried before falling back")
	}
}

func TestFetchMultiPeerFailsWhenNoPeerHasChunk(t *testing.T) {
	peers := []PeerCandidate{{Identity: "only", PingMS: 1}}
	fetch := func(ctx context.Context, peer PeerCandidate, offset, length int64) ([]byte, error) {
		return nil, errTransient{}
	}
	if _, err := FetchMultiPeer(context.Background(), 10, peers, 1<<30, fetch); err == nil {
		t.Fatal("expected the fetch to fail when every peer fails")
	}
}

type errTransient struct{}

func (errTransient) Error() string { return "transient failure" }
