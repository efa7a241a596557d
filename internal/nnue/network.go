package nnue

import (
	"github.com/hailam/xqeval/internal/board"
	"github.com/hailam/xqeval/internal/nnue/features"
)

// Network holds the NNUE weights.
type Network struct {
	// Hidden size per perspective
	HalfDimensions int

	// Free-form description stored in the file header
	Description string

	// Feature transformer: InputDimensions -> HalfDimensions (per perspective)
	// FTWeights is row-major, one row of HalfDimensions per feature.
	FTWeights []int16
	FTBias    []int16

	// PSQT shortcut: one material-like weight per feature
	PSQTWeights []int32

	// Output layer: 2*HalfDimensions -> 1, side to move first
	OutputWeights []int8
	OutputBias    int32
}

// NewNetwork creates a network with zero weights.
func NewNetwork(halfDims int) *Network {
	return &Network{
		HalfDimensions: halfDims,
		FTWeights:      make([]int16, InputDimensions*halfDims),
		FTBias:         make([]int16, halfDims),
		PSQTWeights:    make([]int32, InputDimensions),
		OutputWeights:  make([]int8, 2*halfDims),
	}
}

// featureRow returns the transformer weights of one feature.
func (n *Network) featureRow(idx int) []int16 {
	return n.FTWeights[idx*n.HalfDimensions : (idx+1)*n.HalfDimensions]
}

// Forward runs the output layer over a computed accumulator. Both results
// are in internal units, divide by OutputScale for centipawn-like values.
func (n *Network) Forward(acc *Accumulator, sideToMove board.Color) (psqt, positional int) {
	stm, nstm := sideToMove, sideToMove.Other()

	psqt = int(acc.PSQT[stm]-acc.PSQT[nstm]) / 2

	sum := n.OutputBias
	h := n.HalfDimensions
	for i := 0; i < h; i++ {
		sum += ClampedReLU(acc.Values[stm][i]) * int32(n.OutputWeights[i])
		sum += ClampedReLU(acc.Values[nstm][i]) * int32(n.OutputWeights[h+i])
	}
	return psqt, int(sum)
}

// InitRandom initializes weights with small random values (for testing only).
// PSQT weights follow piece values so that the output tracks material.
func (n *Network) InitRandom(seed int64) {
	// Use a simple LCG for reproducibility
	state := uint64(seed)
	next := func() int16 {
		state = state*6364136223846793005 + 1442695040888963407
		return int16((state>>48)&0xFF) - 128
	}

	for i := range n.FTWeights {
		n.FTWeights[i] = next() >> 4 // -8 to 7
	}
	for i := range n.FTBias {
		n.FTBias[i] = next()>>2 + 32
	}

	for idx := range n.PSQTWeights {
		n.PSQTWeights[idx] = int32(next() >> 2)
	}

	for i := range n.OutputWeights {
		n.OutputWeights[i] = int8(next() >> 3)
	}
	n.OutputBias = int32(next())
}

// SetPieceValues overwrites the PSQT weights with plain piece values, scaled
// to internal units: positive for the perspective's own pieces, negative for
// the other side's. A network with zero output weights then evaluates to the
// material difference.
func (n *Network) SetPieceValues() {
	for _, persp := range [2]board.Color{board.White, board.Black} {
		for pc := board.WhiteRook; pc < board.PieceNB; pc++ {
			if pc.Type() == board.NoPieceType {
				continue
			}
			v := int32(pc.Value() * OutputScale)
			if pc.Color() != persp {
				v = -v
			}
			for sq := board.Square(0); sq < board.NoSquare; sq++ {
				if !board.CanStand(pc, sq) {
					continue
				}
				for id := 0; id < features.KingBucketNB; id++ {
					n.PSQTWeights[features.MakeIndex(persp, sq, pc, id)] = v
					n.PSQTWeights[features.MakeIndex(persp, sq, pc, id|features.MirrorFlag)] = v
				}
			}
		}
	}
}
