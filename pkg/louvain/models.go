package louvain

import (
	"errors"
	"sort"
)

// ErrEmptyGraph is reported in Result.Warning when the graph has no edge
// weight; every node is then returned as its own community.
var ErrEmptyGraph = errors.New("louvain: graph has no edges, no communities detectable")

// StopReason records why the level loop ended.
type StopReason string

const (
	StopNoMoves         StopReason = "no_moves"
	StopTolerance       StopReason = "tolerance"
	StopSingleCommunity StopReason = "single_community"
	StopMaxLevels       StopReason = "max_levels"
	StopEmptyGraph      StopReason = "empty_graph"
)

// Result represents the algorithm output
type Result struct {
	Partition          Partition   `json:"-"`
	Levels             []LevelInfo `json:"levels"`
	Modularity         float64     `json:"modularity"`
	BaselineModularity float64     `json:"baseline_modularity"` // all-singleton partition of the input
	NumLevels          int         `json:"num_levels"`
	NumCommunities     int         `json:"num_communities"`
	Converged          bool        `json:"converged"`
	StopReason         StopReason  `json:"stop_reason"`
	Warning            error       `json:"-"`
	Statistics         Statistics  `json:"statistics"`
}

// LevelInfo contains information about each hierarchical level
type LevelInfo struct {
	Level          int   `json:"level"`
	NumNodes       int   `json:"num_nodes"`
	NumCommunities int   `json:"num_communities"`
	NumMoves       int   `json:"num_moves"`
	Passes         int   `json:"passes"`
	PassCapHit     bool  `json:"pass_cap_hit"`
	SuperNodeOf    []int `json:"-"` // node of this level -> node of the next level
}

// Statistics contains algorithm performance metrics
type Statistics struct {
	TotalPasses  int          `json:"total_passes"`
	TotalMoves   int          `json:"total_moves"`
	RuntimeMS    int64        `json:"runtime_ms"`
	MemoryPeakMB int64        `json:"memory_peak_mb"`
	LevelStats   []LevelStats `json:"level_stats"`
}

// LevelStats contains per-level statistics
type LevelStats struct {
	Level             int     `json:"level"`
	Passes            int     `json:"passes"`
	Moves             int     `json:"moves"`
	InitialModularity float64 `json:"initial_modularity"`
	FinalModularity   float64 `json:"final_modularity"`
	RuntimeMS         int64   `json:"runtime_ms"`
}

// Partition maps original node ids to community ids. Community ids are dense,
// 0..NumCommunities()-1.
type Partition struct {
	base        int
	communities []int // communities[id-base], -1 for ids that are not nodes
	count       int
}

// NewPartition builds a partition over ids base..base+len(communities)-1.
// Negative entries mark ids that are not nodes. Community ids are renumbered
// densely in order of first appearance.
func NewPartition(base int, communities []int) Partition {
	p := Partition{base: base, communities: make([]int, len(communities))}
	renum := make(map[int]int)
	for i, c := range communities {
		if c < 0 {
			p.communities[i] = -1
			continue
		}
		id, ok := renum[c]
		if !ok {
			id = len(renum)
			renum[c] = id
		}
		p.communities[i] = id
	}
	p.count = len(renum)
	return p
}

// Of returns the community of id.
func (p Partition) Of(id int) (int, bool) {
	i := id - p.base
	if i < 0 || i >= len(p.communities) || p.communities[i] < 0 {
		return 0, false
	}
	return p.communities[i], true
}

// NumCommunities returns the number of distinct communities.
func (p Partition) NumCommunities() int { return p.count }

// Len returns the number of assigned nodes.
func (p Partition) Len() int {
	n := 0
	for _, c := range p.communities {
		if c >= 0 {
			n++
		}
	}
	return n
}

// ForEach calls fn for every assigned node in ascending id order.
func (p Partition) ForEach(fn func(id, community int)) {
	for i, c := range p.communities {
		if c >= 0 {
			fn(p.base+i, c)
		}
	}
}

// Map materialises the partition as node id -> community id.
func (p Partition) Map() map[int]int {
	m := make(map[int]int, p.Len())
	p.ForEach(func(id, c int) { m[id] = c })
	return m
}

// Members returns the node ids of every community, each list ascending.
func (p Partition) Members() [][]int {
	members := make([][]int, p.count)
	p.ForEach(func(id, c int) { members[c] = append(members[c], id) })
	return members
}

// CommunitySizes counts the members of every community.
func CommunitySizes(p Partition) map[int]int {
	sizes := make(map[int]int, p.count)
	p.ForEach(func(_, c int) { sizes[c]++ })
	return sizes
}

// CommunitySize pairs a community id with its member count.
type CommunitySize struct {
	Community int `json:"community"`
	Size      int `json:"size"`
}

// RelevantCommunities returns communities with more than minSize members,
// largest first, ties by smaller community id.
func RelevantCommunities(sizes map[int]int, minSize int) []CommunitySize {
	out := make([]CommunitySize, 0, len(sizes))
	for c, n := range sizes {
		if n > minSize {
			out = append(out, CommunitySize{Community: c, Size: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].Community < out[j].Community
	})
	return out
}
