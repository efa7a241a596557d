package nnue

import (
	"github.com/hailam/xqeval/internal/board"
	"github.com/hailam/xqeval/internal/nnue/features"
)

// Accumulator stores the transformed features of one position, one half per
// perspective, plus the PSQT sums.
type Accumulator struct {
	Values   [board.ColorNB][]int16
	PSQT     [board.ColorNB]int32
	Computed [board.ColorNB]bool
}

func newAccumulator(halfDims int) Accumulator {
	return Accumulator{
		Values: [board.ColorNB][]int16{
			make([]int16, halfDims),
			make([]int16, halfDims),
		},
	}
}

// stackEntry pairs an accumulator with the change record that led to it.
type stackEntry struct {
	acc   Accumulator
	dirty board.DirtyPiece
}

// StackStats counts how accumulators were brought up to date.
type StackStats struct {
	Refreshes int
	Updates   int
}

// AccumulatorStack keeps one accumulator per ply. Entries are computed
// lazily: a push only records the change, and Update walks back to the
// nearest computed entry when that is cheaper than a refresh.
type AccumulatorStack struct {
	entries []stackEntry
	top     int
	stats   StackStats
}

// NewAccumulatorStack creates a stack for networks of the given hidden size.
func NewAccumulatorStack(halfDims int) *AccumulatorStack {
	s := &AccumulatorStack{entries: make([]stackEntry, MaxPly+1)}
	for i := range s.entries {
		s.entries[i].acc = newAccumulator(halfDims)
	}
	return s
}

// Push records a move made on the position.
func (s *AccumulatorStack) Push(dp board.DirtyPiece) {
	if s.top >= MaxPly {
		panic("nnue: accumulator stack overflow")
	}
	s.top++
	e := &s.entries[s.top]
	e.dirty = dp
	e.acc.Computed = [board.ColorNB]bool{}
}

// Pop drops the last recorded move.
func (s *AccumulatorStack) Pop() {
	if s.top > 0 {
		s.top--
	}
}

// Reset empties the stack. The root is computed on the next Update.
func (s *AccumulatorStack) Reset() {
	s.top = 0
	s.entries[0].acc.Computed = [board.ColorNB]bool{}
	s.entries[0].dirty = board.DirtyPiece{}
}

// Depth returns the number of recorded moves.
func (s *AccumulatorStack) Depth() int {
	return s.top
}

// Stats returns the refresh and update counters.
func (s *AccumulatorStack) Stats() StackStats {
	return s.stats
}

// Update brings the top accumulator in line with pos and returns it.
func (s *AccumulatorStack) Update(pos *board.Position, net *Network) *Accumulator {
	for _, p := range [2]board.Color{board.White, board.Black} {
		s.updatePerspective(pos, net, p)
	}
	return &s.entries[s.top].acc
}

func (s *AccumulatorStack) updatePerspective(pos *board.Position, net *Network, p board.Color) {
	if s.entries[s.top].acc.Computed[p] {
		return
	}

	// Walk back while replaying stays cheaper than a refresh
	i := s.top
	gain := features.RefreshCost(pos)
	for i > 0 && !s.entries[i].acc.Computed[p] {
		dp := &s.entries[i].dirty
		gain -= features.UpdateCost(dp) + 1
		if features.RequiresRefresh(dp) || gain < 0 {
			break
		}
		i--
	}

	if !s.entries[i].acc.Computed[p] {
		s.refresh(pos, net, p)
		return
	}

	bucket := features.PositionBucket(pos, p)
	for j := i + 1; j <= s.top; j++ {
		s.apply(&s.entries[j-1].acc, &s.entries[j], net, p, bucket)
	}
}

// refresh recomputes the top accumulator from scratch.
func (s *AccumulatorStack) refresh(pos *board.Position, net *Network, p board.Color) {
	acc := &s.entries[s.top].acc
	var active features.IndexList
	features.AppendActiveIndices(p, pos, &active)
	accumulate(acc, net, p, active.Slice())
	s.stats.Refreshes++
}

// accumulate sets acc[p] to bias plus the weights of the active features.
func accumulate(acc *Accumulator, net *Network, p board.Color, active []int) {
	vals := acc.Values[p]
	copy(vals, net.FTBias)
	acc.PSQT[p] = 0
	for _, idx := range active {
		row := net.featureRow(idx)
		for i := range vals {
			vals[i] += row[i]
		}
		acc.PSQT[p] += net.PSQTWeights[idx]
	}
	acc.Computed[p] = true
}

// apply derives e's accumulator from prev using e's change record.
func (s *AccumulatorStack) apply(prev *Accumulator, e *stackEntry, net *Network, p board.Color, bucket int) {
	var removed, added features.IndexList
	features.AppendChangedIndices(p, bucket, &e.dirty, &removed, &added)

	vals := e.acc.Values[p]
	copy(vals, prev.Values[p])
	psqt := prev.PSQT[p]

	for _, idx := range removed.Slice() {
		row := net.featureRow(idx)
		for i := range vals {
			vals[i] -= row[i]
		}
		psqt -= net.PSQTWeights[idx]
	}
	for _, idx := range added.Slice() {
		row := net.featureRow(idx)
		for i := range vals {
			vals[i] += row[i]
		}
		psqt += net.PSQTWeights[idx]
	}

	e.acc.PSQT[p] = psqt
	e.acc.Computed[p] = true
	s.stats.Updates++
}
