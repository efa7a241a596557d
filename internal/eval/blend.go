// Package eval blends the raw network output with material, optimism and the
// rule60 counter into the score the search consumes.
package eval

import (
	"errors"

	"golang.org/x/exp/constraints"

	"github.com/hailam/xqeval/internal/nnue"
)

// Score bounds
const (
	ValueZero = 0
	ValueMate = 32000
	MaxPly    = nnue.MaxPly

	ValueMateInMaxPly  = ValueMate - MaxPly
	ValueMatedInMaxPly = -ValueMateInMaxPly
)

var (
	ErrUnknownTunable = errors.New("unknown tunable")
	ErrOutOfRange     = errors.New("tunable out of range")
)

// Inputs are the signals the blender combines. Values are from the side to
// move's point of view.
type Inputs struct {
	NetValue      int
	NetComplexity int
	MaterialDiff  int
	MaterialSum   int
	Optimism      int
	Rule60        int
}

func abs[T constraints.Signed](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

func clamp[T constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Blend combines the inputs into a score strictly inside the mate bounds.
// If complexity is non-nil it receives the blended complexity.
func Blend(c *Coefficients, in Inputs, complexity *int) int {
	// Network uncertainty plus disagreement with plain material
	cx := (c.NetComplexityWeight*in.NetComplexity +
		(c.DisagreementWeight+in.Optimism)*abs(in.MaterialDiff-in.NetValue)) / 1024
	if complexity != nil {
		*complexity = cx
	}

	scale := c.ScaleBase + c.ScaleMaterial*in.MaterialSum/4096
	optimism := in.Optimism * (c.OptimismComplexity + cx) / 256

	v := (in.NetValue*scale + optimism*(scale-c.OptimismScaleOffset)) / 1024

	// Damp down linearly as the rule60 counter rises
	v = v * (c.Rule60Base - in.Rule60) / c.Rule60Divisor

	return clamp(v, ValueMatedInMaxPly+1, ValueMateInMaxPly-1)
}
