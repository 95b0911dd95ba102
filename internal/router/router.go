package router

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/dreamware/torua/internal/logging"
	"github.com/dreamware/torua/internal/registry"
)

// FanOut calls Search on every stub concurrently, merges the resulting
// hits, sorts them by ascending rank (lower is a better match), and caps
// the result at req.Max rows (no cap if req.Max <= 0). A stub that fails
// is logged and treated as an empty result for that shard rather than
// failing the whole fan-out — one unreachable cold shard should not hide
// every other shard's matches.
func FanOut(ctx context.Context, stubs []registry.RPCStub, req registry.SearchRequest) (registry.SearchResponse, error) {
	if len(stubs) == 0 {
		return registry.SearchResponse{}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	responses := make([]registry.SearchResponse, len(stubs))
	for i, stub := range stubs {
		i, stub := i, stub
		g.Go(func() error {
			resp, err := stub.Search(gctx, req)
			if err != nil {
				logging.WithComponent("router").Warn().Err(err).
					Int("stub", i).
					Msg("fan-out search failed, treating as empty result")
				return nil
			}
			responses[i] = resp
			return nil
		})
	}
	_ = g.Wait() // no g.Go closure above returns a non-nil error

	var merged registry.SearchResponse
	for _, resp := range responses {
		merged.Hits = append(merged.Hits, resp.Hits...)
	}
	sort.SliceStable(merged.Hits, func(i, j int) bool {
		return merged.Hits[i].Rank < merged.Hits[j].Rank
	})
	if req.Max > 0 && len(merged.Hits) > req.Max {
		merged.Hits = merged.Hits[:req.Max]
	}
	return merged, nil
}
