package louvain

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrPartitionMismatch is returned when two partitions do not cover the
// same nodes.
var ErrPartitionMismatch = errors.New("louvain: partitions cover different nodes")

// SizeStats summarises community sizes.
type SizeStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Max   int     `json:"max"`
	Min   int     `json:"min"`
	Std   float64 `json:"std"`
}

// CommunitySizeStats describes the size distribution of p.
func CommunitySizeStats(p Partition) SizeStats {
	sizes := CommunitySizes(p)
	if len(sizes) == 0 {
		return SizeStats{}
	}
	xs := make([]float64, 0, len(sizes))
	s := SizeStats{Count: len(sizes), Min: math.MaxInt}
	for _, n := range sizes {
		xs = append(xs, float64(n))
		s.Max = max(s.Max, n)
		s.Min = min(s.Min, n)
	}
	s.Mean, s.Std = stat.PopMeanStdDev(xs, nil)
	return s
}

// NMI is the normalized mutual information of two partitions of the same
// nodes, mutual information divided by the mean of the two entropies (log
// base 2). Identical partitions score 1. Two single-community partitions
// also score 1.
func NMI(a, b Partition) (float64, error) {
	if a.Len() != b.Len() {
		return 0, ErrPartitionMismatch
	}
	n := a.Len()
	if n == 0 {
		return 0, nil
	}

	type pair struct{ ca, cb int }
	joint := make(map[pair]int)
	countA := make([]int, a.NumCommunities())
	countB := make([]int, b.NumCommunities())
	mismatch := false
	a.ForEach(func(id, ca int) {
		cb, ok := b.Of(id)
		if !ok {
			mismatch = true
			return
		}
		joint[pair{ca, cb}]++
		countA[ca]++
		countB[cb]++
	})
	if mismatch {
		return 0, ErrPartitionMismatch
	}

	total := float64(n)
	mi := 0.0
	for p, nij := range joint {
		x := float64(nij)
		mi += x / total * math.Log2(x*total/(float64(countA[p.ca])*float64(countB[p.cb])))
	}

	avg := (entropy(countA, total) + entropy(countB, total)) / 2
	if avg == 0 {
		return 1, nil
	}
	return mi / avg, nil
}

func entropy(counts []int, total float64) float64 {
	h := 0.0
	for _, c := range counts {
		if c > 0 {
			p := float64(c) / total
			h -= p * math.Log2(p)
		}
	}
	return h
}
