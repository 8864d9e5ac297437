package ownership

import (
	"sort"

	poindexter "github.com/Snider/Poindexter"
)

// PeerCandidate is one storage peer known to advertise a file, along with
// the latency probe used to rank it.
type PeerCandidate struct {
	Identity string
	Address  string
	PingMS   float64
}

// RankByLatency orders candidates nearest-first using a Poindexter KD-tree
// over the single latency dimension, matching the teacher's own
// nearest-peer selection idiom generalized from its four-factor point to
// this package's one (ping only; the fabric has no hop/geo/score metrics).
func RankByLatency(candidates []PeerCandidate) ([]PeerCandidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	points := make([]poindexter.KDPoint[int], 0, len(candidates))
	for i, c := range candidates {
		points = append(points, poindexter.KDPoint[int]{
			ID:     c.Identity,
			Coords: []float64{c.PingMS},
			Value:  i,
		})
	}

	tree, err := poindexter.NewKDTree(points, poindexter.WithMetric(poindexter.EuclideanDistance{}))
	if err != nil {
		return fallbackSortByPing(candidates), nil
	}

	results, err := tree.KNearest([]float64{0}, len(candidates))
	if err != nil {
		return fallbackSortByPing(candidates), nil
	}

	ranked := make([]PeerCandidate, 0, len(results))
	for _, r := range results {
		ranked = append(ranked, candidates[r.Value])
	}
	return ranked, nil
}

func fallbackSortByPing(candidates []PeerCandidate) []PeerCandidate {
	out := make([]PeerCandidate, len(candidates))
	copy(out, candidates)
	sort.Slice(out, func(i, j int) bool { return out[i].PingMS < out[j].PingMS })
	return out
}
