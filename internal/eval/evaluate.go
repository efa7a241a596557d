package eval

import (
	"fmt"
	"strings"

	"github.com/hailam/xqeval/internal/board"
	"github.com/hailam/xqeval/internal/nnue"
)

// Network is the raw network evaluator the blender sits on.
type Network interface {
	// Evaluate returns the raw value and complexity for the side to move.
	Evaluate(pos *board.Position) (value, complexity int)
	// Trace returns a textual per-feature breakdown.
	Trace(pos *board.Position) string
	// Reset drops incremental state for a new root position.
	Reset()
}

// ThreadState is the per-thread scratch the search mutates. It is never
// shared between threads.
type ThreadState struct {
	BestValue int
	Optimism  [board.ColorNB]int
}

// Evaluator produces blended scores for one search thread.
type Evaluator struct {
	net    Network
	coeffs *Coefficients
	cache  *Cache

	State ThreadState
}

// NewEvaluator creates an evaluator. cache may be nil.
func NewEvaluator(net Network, coeffs *Coefficients, cache *Cache) *Evaluator {
	return &Evaluator{net: net, coeffs: coeffs, cache: cache}
}

// raw returns the network output, consulting the shared cache first.
func (e *Evaluator) raw(pos *board.Position) (value, complexity int) {
	if e.cache != nil {
		if out, ok := e.cache.Get(pos.Hash); ok {
			return out.Value, out.Complexity
		}
	}
	value, complexity = e.net.Evaluate(pos)
	if e.cache != nil {
		e.cache.Set(pos.Hash, RawOutput{Value: value, Complexity: complexity})
	}
	return value, complexity
}

// Evaluate returns the static evaluation of pos from the side to move's
// point of view. If complexity is non-nil it receives the blended complexity.
func (e *Evaluator) Evaluate(pos *board.Position, complexity *int) int {
	value, netComplexity := e.raw(pos)
	return Blend(e.coeffs, Inputs{
		NetValue:      value,
		NetComplexity: netComplexity,
		MaterialDiff:  pos.MaterialDiff(),
		MaterialSum:   pos.MaterialSum(),
		Optimism:      e.State.Optimism[pos.SideToMove],
		Rule60:        pos.Rule60Count(),
	}, complexity)
}

// InCheckTrace is the whole trace of a position whose side to move is in check.
const InCheckTrace = "Final evaluation: none (in check)"

// toPawns converts a value to pawns for display.
func toPawns(v int) float64 {
	return float64(v) / nnue.NormalizeToPawnValue
}

// Trace returns a human-readable breakdown of the evaluation of pos. Values
// are from White's point of view. It resets the thread state and the
// network's incremental state, so call it outside of search only.
func (e *Evaluator) Trace(pos *board.Position) string {
	if pos.InCheck() {
		return InCheckTrace
	}

	var sb strings.Builder

	e.State.BestValue = ValueZero
	e.State.Optimism[board.White] = ValueZero
	e.State.Optimism[board.Black] = ValueZero
	e.net.Reset()

	sb.WriteString("\n" + e.net.Trace(pos) + "\n")

	v, _ := e.net.Evaluate(pos)
	if pos.SideToMove == board.Black {
		v = -v
	}
	fmt.Fprintf(&sb, "NNUE evaluation        %+.2f (white side)\n", toPawns(v))

	v = e.Evaluate(pos, nil)
	if pos.SideToMove == board.Black {
		v = -v
	}
	fmt.Fprintf(&sb, "Final evaluation       %+.2f (white side) [with scaled NNUE, optimism, ...]\n", toPawns(v))

	return sb.String()
}
