package ownership

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Snider/Fabric/internal/ferr"
)

// DefaultChunkSize is the spec's default fixed chunk size for multi-peer
// fetch.
const DefaultChunkSize = 1 << 20 // 1 MiB

// ChunkFetcher fetches one byte range of a file from a single peer.
type ChunkFetcher func(ctx context.Context, peer PeerCandidate, offset, length int64) ([]byte, error)

type chunkSpec struct {
	index  int
	offset int64
	length int64
}

// FetchMultiPeer divides [0, size) into fixed chunks and fetches them in
// parallel across the ranked peer set, retrying a chunk against the next
// peer when the current one fails. If any chunk exhausts every peer, the
// whole fetch fails.
func FetchMultiPeer(ctx context.Context, size int64, peers []PeerCandidate, chunkSize int64, fetch ChunkFetcher) ([]byte, error) {
	if len(peers) == 0 {
		return nil, ferr.Unreachable("no peers advertise this file")
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	ranked, err := RankByLatency(peers)
	if err != nil {
		return nil, err
	}

	chunks := planChunks(size, chunkSize)
	out := make([][]byte, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range chunks {
		c := c
		g.Go(func() error {
			data, err := fetchWithRetry(gctx, c, ranked, fetch)
			if err != nil {
				return err
			}
			out[c.index] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]byte, 0, size)
	for _, b := range out {
		result = append(result, b...)
	}
	return result, nil
}

func fetchWithRetry(ctx context.Context, c chunkSpec, ranked []PeerCandidate, fetch ChunkFetcher) ([]byte, error) {
	var lastErr error
	for _, peer := range ranked {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		data, err := fetch(ctx, peer, c.offset, c.length)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ferr.Unreachable("no peers available for chunk")
	}
	return nil, ferr.Unreachable("chunk unobtainable from any peer: " + lastErr.Error())
}

func planChunks(size, chunkSize int64) []chunkSpec {
	var chunks []chunkSpec
	var offset int64
	idx := 0
	for offset < size {
		length := chunkSize
		if remaining := size - offset; remaining < length {
			length = remaining
		}
		chunks = append(chunks, chunkSpec{index: idx, offset: offset, length: length})
		offset += length
		idx++
	}
	return chunks
}
