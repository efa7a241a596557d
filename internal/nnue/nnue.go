// Package nnue implements the reference NNUE evaluator for xiangqi: a
// HalfKA_hm feature transformer with PSQT buckets, a clipped ReLU and a
// single linear output, plus the lifecycle manager that loads networks.
package nnue

import (
	"github.com/hailam/xqeval/internal/board"
	"github.com/hailam/xqeval/internal/nnue/features"
)

// Network architecture constants
const (
	// Input features per perspective
	InputDimensions = features.Dimensions

	// Default hidden size per perspective, the real one is read from the file
	DefaultHalfDimensions = 128

	// Quantization constants
	ClampMax    = 127
	OutputScale = 16
)

// MaxPly bounds the accumulator stack depth.
const MaxPly = 246

// ClampedReLU clamps value to [0, 127] for quantized inference.
func ClampedReLU(x int16) int32 {
	if x < 0 {
		return 0
	}
	if x > ClampMax {
		return ClampMax
	}
	return int32(x)
}

// Evaluator evaluates positions with one network and one accumulator stack.
// It is owned by a single search thread.
type Evaluator struct {
	net   *Network
	stack *AccumulatorStack
}

// NewEvaluator creates an evaluator over net.
func NewEvaluator(net *Network) *Evaluator {
	return &Evaluator{
		net:   net,
		stack: NewAccumulatorStack(net.HalfDimensions),
	}
}

// Network returns the evaluator's network.
func (e *Evaluator) Network() *Network {
	return e.net
}

// Evaluate returns the raw network value and complexity of pos from the side
// to move's point of view. The stack must mirror the moves played on pos.
func (e *Evaluator) Evaluate(pos *board.Position) (value, complexity int) {
	acc := e.stack.Update(pos, e.net)
	psqt, positional := e.net.Forward(acc, pos.SideToMove)
	return (psqt + positional) / OutputScale, abs(psqt-positional) / OutputScale
}

// EvaluateFresh resets the stack to pos and evaluates it.
func (e *Evaluator) EvaluateFresh(pos *board.Position) (value, complexity int) {
	e.stack.Reset()
	return e.Evaluate(pos)
}

// Push records a move already made on the position (call after MakeMove).
func (e *Evaluator) Push(dp board.DirtyPiece) {
	e.stack.Push(dp)
}

// Pop drops the last move (call after UnmakeMove).
func (e *Evaluator) Pop() {
	e.stack.Pop()
}

// Reset clears the stack for a new root position.
func (e *Evaluator) Reset() {
	e.stack.Reset()
}

// Stats returns the stack's refresh and update counters.
func (e *Evaluator) Stats() StackStats {
	return e.stack.Stats()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
