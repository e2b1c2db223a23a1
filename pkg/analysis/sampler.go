package analysis

import (
	"context"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gilchrisn/graph-insight/pkg/graph"
)

// SampleOptions tunes the sampling estimators.
type SampleOptions struct {
	// Workers is the number of concurrent BFS walkers.
	Workers int
	// RandomSeed drives seed selection.
	RandomSeed int64
	// OnSeed is called after each BFS with the seed and the number of nodes
	// it reached, itself excluded. It may be called from several goroutines.
	OnSeed func(seed, reached int)
}

// SampleOption configures a sampling run.
type SampleOption func(*SampleOptions)

// DefaultSampleOptions uses one worker per CPU and a time-based seed.
func DefaultSampleOptions() SampleOptions {
	return SampleOptions{
		Workers:    runtime.NumCPU(),
		RandomSeed: time.Now().UnixNano(),
		OnSeed:     func(int, int) {},
	}
}

// WithWorkers bounds the number of concurrent walkers. Values below 1 are
// ignored.
func WithWorkers(n int) SampleOption {
	return func(o *SampleOptions) {
		if n > 0 {
			o.Workers = n
		}
	}
}

// WithRandomSeed makes seed selection reproducible.
func WithRandomSeed(seed int64) SampleOption {
	return func(o *SampleOptions) { o.RandomSeed = seed }
}

// WithSeedCallback installs a hook run after every BFS.
func WithSeedCallback(fn func(seed, reached int)) SampleOption {
	return func(o *SampleOptions) {
		if fn != nil {
			o.OnSeed = fn
		}
	}
}

func buildOptions(opts []SampleOption) SampleOptions {
	o := DefaultSampleOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SampleNodes draws k distinct node ids uniformly without replacement, or
// returns every id when k is at least the node count. The result is in
// selection order.
func SampleNodes(g *graph.Graph, k int, rng *rand.Rand) []int {
	ids := g.NodeIDs()
	n := len(ids)
	if k >= n {
		return ids
	}
	if k <= 0 {
		return nil
	}

	// Floyd's algorithm: k draws, no rejection loop
	chosen := make(map[int]struct{}, k)
	out := make([]int, 0, k)
	for j := n - k; j < n; j++ {
		t := rng.Intn(j + 1)
		if _, dup := chosen[t]; dup {
			t = j
		}
		chosen[t] = struct{}{}
		out = append(out, ids[t])
	}
	return out
}

// PathSample is the outcome of a sampled shortest-path estimate.
type PathSample struct {
	Seeds       int     `json:"seeds"`
	Pairs       int64   `json:"pairs"` // reachable (seed, node) pairs at positive distance
	Mean        float64 `json:"mean"`
	MaxDistance int     `json:"max_distance"` // longest shortest path seen
}

// SamplePaths runs a BFS from sampleSize distinct random seeds and
// aggregates every strictly positive distance found. Seeds are spread over
// Workers goroutines, each with its own buffers. ctx is checked before each
// seed.
func SamplePaths(ctx context.Context, g *graph.Graph, sampleSize int, opts ...SampleOption) (PathSample, error) {
	if g == nil {
		return PathSample{}, ErrGraphNil
	}
	o := buildOptions(opts)
	seeds := SampleNodes(g, sampleSize, rand.New(rand.NewSource(o.RandomSeed)))
	if len(seeds) == 0 {
		return PathSample{}, nil
	}

	workers := min(o.Workers, len(seeds))
	type partial struct {
		sum, pairs int64
		max        int
	}
	partials := make([]partial, workers)

	eg, ctx := errgroup.WithContext(ctx)
	for wi := 0; wi < workers; wi++ {
		eg.Go(func() error {
			w := newWalker(g, false)
			p := &partials[wi]
			for i := wi; i < len(seeds); i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				w.run(seeds[i], -1, -1)
				// touched[0] is the seed itself
				for _, s := range w.touched[1:] {
					d := int(w.dist[s])
					p.sum += int64(d)
					p.pairs++
					if d > p.max {
						p.max = d
					}
				}
				o.OnSeed(seeds[i], len(w.touched)-1)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return PathSample{}, err
	}

	out := PathSample{Seeds: len(seeds)}
	var sum int64
	for _, p := range partials {
		sum += p.sum
		out.Pairs += p.pairs
		out.MaxDistance = max(out.MaxDistance, p.max)
	}
	if out.Pairs > 0 {
		out.Mean = float64(sum) / float64(out.Pairs)
	}
	return out, nil
}

// AverageShortestPath estimates the mean hop distance between connected
// nodes from sampleSize random seeds. It returns 0 when the sample reaches
// nothing.
func AverageShortestPath(ctx context.Context, g *graph.Graph, sampleSize int, opts ...SampleOption) (float64, error) {
	sample, err := SamplePaths(ctx, g, sampleSize, opts...)
	if err != nil {
		return 0, err
	}
	return sample.Mean, nil
}
