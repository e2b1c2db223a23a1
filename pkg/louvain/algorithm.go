package louvain

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gilchrisn/graph-insight/pkg/graph"
)

// Observer receives measurements while the engine runs.
type Observer interface {
	ObserveLevel(level, moves int, modularity float64)
	ObserveRun(result *Result, elapsed time.Duration)
}

type runOptions struct {
	observer Observer
	tracker  *MoveTracker
	logger   *zerolog.Logger
}

// Option customises a single Run.
type Option func(*runOptions)

// WithObserver reports level and run measurements to o.
func WithObserver(o Observer) Option {
	return func(ro *runOptions) { ro.observer = o }
}

// WithMoveTracker records every committed move on t. It takes precedence
// over the analysis.track_moves setting.
func WithMoveTracker(t *MoveTracker) Option {
	return func(ro *runOptions) { ro.tracker = t }
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l zerolog.Logger) Option {
	return func(ro *runOptions) { ro.logger = &l }
}

// candidate is the best community found for one node.
type candidate struct {
	target int
	kInOld float64 // two-way weight to the other members of the current community
	kInNew float64 // two-way weight to the members of target
	delta  float64 // W·ΔQ of moving rather than staying
}

// optimizer runs phase 1 on one level. It is the only writer of comm.
type optimizer struct {
	lg      *levelGraph
	comm    *Community
	level   int
	minGain float64
	passes  int

	rng   *rand.Rand
	nb    *neighborhood
	order []int

	parallel  bool
	workers   int
	chunkSize int
	pool      []*neighborhood

	progress bool
	tracker  *MoveTracker
	moveNum  int
	logger   zerolog.Logger
}

func newOptimizer(lg *levelGraph, comm *Community, level int, config *Config, rng *rand.Rand, logger zerolog.Logger, tracker *MoveTracker) *optimizer {
	o := &optimizer{
		lg:        lg,
		comm:      comm,
		level:     level,
		minGain:   config.MinModularityGain() * lg.total,
		passes:    config.MaxIterations(),
		rng:       rng,
		nb:        newNeighborhood(lg.span),
		order:     append([]int(nil), lg.nodes...),
		parallel:  config.Parallel(),
		workers:   config.NumWorkers(),
		chunkSize: config.ChunkSize(),
		progress:  config.EnableProgress(),
		tracker:   tracker,
		logger:    logger,
	}
	if o.passes < 1 {
		o.passes = 1
	}
	if o.workers < 1 {
		o.workers = 1
	}
	if o.chunkSize < 1 {
		o.chunkSize = 1
	}
	if o.parallel && o.workers > 1 {
		o.pool = make([]*neighborhood, o.workers)
		for i := range o.pool {
			o.pool[i] = newNeighborhood(lg.span)
		}
	} else {
		o.parallel = false
	}
	return o
}

// best evaluates every community adjacent to s. Staying wins ties; among
// other communities the smaller id wins.
func (o *optimizer) best(nb *neighborhood, s int) (candidate, bool) {
	own := o.comm.NodeToCommunity[s]
	k := o.lg.degree(s)
	kInOld := nb.weight[own]
	stay := gain(kInOld, k, o.comm.Degree[own]-k, o.lg.total)

	best := candidate{target: own, kInOld: kInOld}
	bestGain := stay
	found := false
	for _, c := range nb.comms {
		if c == own {
			continue
		}
		g := gain(nb.weight[c], k, o.comm.Degree[c], o.lg.total)
		if !found || g > bestGain || (g == bestGain && c < best.target) {
			best.target, best.kInNew, bestGain = c, nb.weight[c], g
			found = true
		}
	}
	if !found {
		return candidate{}, false
	}
	best.delta = bestGain - stay
	if best.delta <= o.minGain {
		return candidate{}, false
	}
	return best, true
}

func (o *optimizer) commit(s int, c candidate) {
	from := o.comm.NodeToCommunity[s]
	o.comm.move(o.lg, s, c.target, c.kInOld, c.kInNew, o.nb.self)
	o.moveNum++
	if o.tracker != nil {
		o.tracker.LogMove(o.moveNum, o.level, o.lg.base+s, from, c.target, c.delta/o.lg.total, o.comm.Modularity())
	}
}

// run repeats passes until one moves nothing or the pass cap is hit.
func (o *optimizer) run(ctx context.Context) (moves, passes int, capHit bool, err error) {
	if o.lg.total == 0 {
		return 0, 0, false, nil
	}
	for passes < o.passes {
		if err := ctx.Err(); err != nil {
			return moves, passes, false, err
		}
		o.rng.Shuffle(len(o.order), func(i, j int) { o.order[i], o.order[j] = o.order[j], o.order[i] })

		var passMoves int
		if o.parallel {
			passMoves, err = o.parallelPass(ctx)
			if err != nil {
				return moves, passes, false, err
			}
		} else {
			passMoves = o.sequentialPass()
		}
		passes++
		moves += passMoves

		if o.progress && passes%10 == 1 {
			o.logger.Debug().
				Int("level", o.level).
				Int("pass", passes).
				Int("moves", passMoves).
				Float64("modularity", o.comm.Modularity()).
				Msg("Local optimization progress")
		}
		if passMoves == 0 {
			return moves, passes, false, nil
		}
	}
	return moves, passes, true, nil
}

func (o *optimizer) sequentialPass() int {
	moves := 0
	for _, s := range o.order {
		o.nb.collect(o.lg, o.comm, s)
		if c, ok := o.best(o.nb, s); ok {
			o.commit(s, c)
			moves++
		}
	}
	return moves
}

// parallelPass lets workers propose moves for a chunk against a frozen
// state, then commits the proposals one by one. Each proposal is evaluated
// again against the current state before it is applied.
func (o *optimizer) parallelPass(ctx context.Context) (int, error) {
	moves := 0
	proposals := make([]int, o.chunkSize)
	for lo := 0; lo < len(o.order); lo += o.chunkSize {
		chunk := o.order[lo:min(lo+o.chunkSize, len(o.order))]
		if err := o.propose(ctx, chunk, proposals[:len(chunk)]); err != nil {
			return moves, err
		}
		for i, s := range chunk {
			if proposals[i] < 0 {
				continue
			}
			o.nb.collect(o.lg, o.comm, s)
			if c, ok := o.best(o.nb, s); ok {
				o.commit(s, c)
				moves++
			}
		}
	}
	return moves, nil
}

func (o *optimizer) propose(ctx context.Context, chunk, proposals []int) error {
	g, _ := errgroup.WithContext(ctx)
	per := (len(chunk) + o.workers - 1) / o.workers
	for w := 0; w < o.workers; w++ {
		lo := w * per
		if lo >= len(chunk) {
			break
		}
		hi := min(lo+per, len(chunk))
		nb := o.pool[w]
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				s := chunk[i]
				nb.collect(o.lg, o.comm, s)
				if c, ok := o.best(nb, s); ok {
					proposals[i] = c.target
				} else {
					proposals[i] = -1
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// renumber maps every node of the level to a dense community id, in order of
// first appearance over ascending slots. It returns the map and the count.
func renumber(lg *levelGraph, comm *Community) ([]int, int) {
	dense := make([]int, lg.span)
	for i := range dense {
		dense[i] = -1
	}
	superOf := make([]int, lg.span)
	for i := range superOf {
		superOf[i] = -1
	}
	k := 0
	for _, s := range lg.nodes {
		c := comm.NodeToCommunity[s]
		if dense[c] < 0 {
			dense[c] = k
			k++
		}
		superOf[s] = dense[c]
	}
	return superOf, k
}

// AggregateGraph builds the coarsened graph: one node per community, the
// summed weight between two communities as an edge, and the weight inside a
// community as a self-loop. Total edge weight is preserved. superOf is the
// output of renumber; the level graph is left untouched.
func AggregateGraph(g *graph.Graph, superOf []int, numSuper int) *graph.Graph {
	base := g.Base()

	// members of each super node, bucketed by counting sort
	offsets := make([]int, numSuper+1)
	for _, sup := range superOf {
		if sup >= 0 {
			offsets[sup+1]++
		}
	}
	for i := 1; i <= numSuper; i++ {
		offsets[i] += offsets[i-1]
	}
	members := make([]int, offsets[numSuper])
	fill := append([]int(nil), offsets[:numSuper]...)
	for s, sup := range superOf {
		if sup >= 0 {
			members[fill[sup]] = s
			fill[sup]++
		}
	}

	coarse := graph.NewWithNodes(numSuper)
	weight := make([]float64, numSuper)
	touched := make([]int, 0)
	for sup := 0; sup < numSuper; sup++ {
		for _, s := range members[offsets[sup]:offsets[sup+1]] {
			for _, e := range g.Neighbors(base + s) {
				t := superOf[e.To-base]
				if weight[t] == 0 {
					touched = append(touched, t)
				}
				weight[t] += e.Weight
			}
		}
		edges := make([]graph.Edge, 0, len(touched))
		for _, t := range touched {
			edges = append(edges, graph.Edge{To: t, Weight: weight[t]})
			weight[t] = 0
		}
		touched = touched[:0]
		coarse.AddWeightedEdges(sup, edges)
	}
	return coarse
}

// Run executes the complete Louvain algorithm
func Run(ctx context.Context, g *graph.Graph, config *Config, opts ...Option) (*Result, error) {
	if g == nil {
		return nil, errors.New("louvain: nil graph")
	}
	if config == nil {
		config = NewConfig()
	}
	ro := runOptions{}
	for _, opt := range opts {
		opt(&ro)
	}
	logger := config.CreateLogger()
	if ro.logger != nil {
		logger = *ro.logger
	}
	if ro.tracker == nil && config.EnableMoveTracking() {
		tracker, err := NewMoveTracker(config.TrackingOutputFile(), "louvain")
		if err != nil {
			return nil, fmt.Errorf("move tracker: %w", err)
		}
		defer tracker.Close()
		ro.tracker = tracker
	}

	startTime := time.Now()
	logger.Info().
		Int("nodes", g.NumNodes()).
		Int("edges", g.NumEdges()).
		Float64("total_weight", g.TotalWeight()).
		Msg("Starting Louvain algorithm")

	if config.CheckInvariants() {
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("invalid graph: %w", err)
		}
	}

	result := &Result{
		Levels:     make([]LevelInfo, 0),
		Statistics: Statistics{LevelStats: make([]LevelStats, 0)},
	}

	lg := newLevelGraph(g)
	if lg.total == 0 {
		assign := make([]int, lg.span)
		for i := range assign {
			assign[i] = -1
		}
		for _, s := range lg.nodes {
			assign[s] = s
		}
		result.Partition = NewPartition(lg.base, assign)
		result.NumCommunities = result.Partition.NumCommunities()
		result.Converged = true
		result.StopReason = StopEmptyGraph
		result.Warning = ErrEmptyGraph
		result.Statistics.RuntimeMS = time.Since(startTime).Milliseconds()
		logger.Warn().Int("nodes", g.NumNodes()).Msg(ErrEmptyGraph.Error())
		if ro.observer != nil {
			ro.observer.ObserveRun(result, time.Since(startTime))
		}
		return result, nil
	}

	// assign[slot of the input] = node of the current level
	assign := make([]int, lg.span)
	for i := range assign {
		assign[i] = -1
	}
	for _, s := range lg.nodes {
		assign[s] = s
	}

	rng := rand.New(rand.NewSource(config.RandomSeed()))
	maxLevels := max(config.MaxLevels(), 1)
	tolerance := config.Tolerance()

	result.BaselineModularity = NewCommunity(lg).Modularity()
	modularity := result.BaselineModularity
	capHit := false
	stop := StopMaxLevels

	for level := 0; level < maxLevels; level++ {
		levelStart := time.Now()
		comm := NewCommunity(lg)
		initialMod := comm.Modularity()

		logger.Info().
			Int("level", level).
			Int("nodes", len(lg.nodes)).
			Float64("initial_modularity", initialMod).
			Msg("Starting level")

		opt := newOptimizer(lg, comm, level, config, rng, logger, ro.tracker)
		moves, passes, levelCapHit, err := opt.run(ctx)
		if err != nil {
			return nil, fmt.Errorf("local optimization failed at level %d: %w", level, err)
		}
		if config.CheckInvariants() {
			if err := comm.Validate(lg); err != nil {
				return nil, fmt.Errorf("community accounting broken at level %d: %w", level, err)
			}
		}
		capHit = capHit || levelCapHit

		finalMod := comm.Modularity()
		superOf, numSuper := renumber(lg, comm)
		for i, node := range assign {
			if node >= 0 {
				assign[i] = superOf[node]
			}
		}
		modularity = finalMod
		levelTime := time.Since(levelStart)

		result.Levels = append(result.Levels, LevelInfo{
			Level:          level,
			NumNodes:       len(lg.nodes),
			NumCommunities: numSuper,
			NumMoves:       moves,
			Passes:         passes,
			PassCapHit:     levelCapHit,
			SuperNodeOf:    superOf,
		})
		result.Statistics.LevelStats = append(result.Statistics.LevelStats, LevelStats{
			Level:             level,
			Passes:            passes,
			Moves:             moves,
			InitialModularity: initialMod,
			FinalModularity:   finalMod,
			RuntimeMS:         levelTime.Milliseconds(),
		})
		result.Statistics.TotalPasses += passes
		result.Statistics.TotalMoves += moves
		if ro.observer != nil {
			ro.observer.ObserveLevel(level, moves, finalMod)
		}

		logger.Info().
			Int("level", level).
			Int("moves", moves).
			Int("passes", passes).
			Int("communities", numSuper).
			Float64("modularity", finalMod).
			Dur("elapsed", levelTime).
			Msg("Level completed")

		if moves == 0 {
			stop = StopNoMoves
			break
		}
		if numSuper == 1 {
			stop = StopSingleCommunity
			break
		}
		if finalMod-initialMod < tolerance {
			stop = StopTolerance
			break
		}
		if level == maxLevels-1 {
			break
		}

		coarse := AggregateGraph(lg.g, superOf, numSuper)
		logger.Debug().
			Int("original_nodes", len(lg.nodes)).
			Int("super_nodes", numSuper).
			Float64("compression_ratio", float64(numSuper)/float64(len(lg.nodes))).
			Msg("Graph aggregation completed")
		lg = newLevelGraph(coarse)
	}

	result.Partition = NewPartition(g.Base(), assign)
	result.NumLevels = len(result.Levels)
	result.NumCommunities = result.Partition.NumCommunities()
	result.Modularity = modularity
	result.StopReason = stop
	result.Converged = stop != StopMaxLevels && !capHit
	result.Statistics.RuntimeMS = time.Since(startTime).Milliseconds()
	result.Statistics.MemoryPeakMB = getMemoryUsage()

	if ro.observer != nil {
		ro.observer.ObserveRun(result, time.Since(startTime))
	}

	event := logger.Info()
	if !result.Converged {
		event = logger.Warn()
	}
	event.
		Int("levels", result.NumLevels).
		Int("communities", result.NumCommunities).
		Float64("final_modularity", result.Modularity).
		Str("stop_reason", string(result.StopReason)).
		Bool("converged", result.Converged).
		Int64("runtime_ms", result.Statistics.RuntimeMS).
		Msg("Louvain algorithm completed")

	return result, nil
}

// RunLouvain runs the engine with default settings, the given level cap and
// tolerance, and a quiet logger.
func RunLouvain(g *graph.Graph, maxLevels int, tolerance float64) (Partition, error) {
	config := NewConfig()
	config.Set("algorithm.max_levels", maxLevels)
	config.Set("algorithm.tolerance", tolerance)
	config.Set("logging.level", "warn")

	result, err := Run(context.Background(), g, config)
	if err != nil {
		return Partition{}, err
	}
	return result.Partition, nil
}

// getMemoryUsage returns current memory usage in MB
func getMemoryUsage() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.Alloc / 1024 / 1024)
}

// HierarchyPath returns the node that id became at every level: [0] is id
// itself, [k] the super node at level k, and the last entry the final
// community. It returns nil for ids the partition does not cover.
func (r *Result) HierarchyPath(id int) []int {
	if _, ok := r.Partition.Of(id); !ok {
		return nil
	}
	path := []int{id}
	node := id - r.Partition.base
	for _, level := range r.Levels {
		if node < 0 || node >= len(level.SuperNodeOf) {
			break
		}
		node = level.SuperNodeOf[node]
		path = append(path, node)
	}
	return path
}
