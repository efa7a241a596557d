package nnue

import (
	"fmt"
	"strings"

	"github.com/hailam/xqeval/internal/board"
	"github.com/hailam/xqeval/internal/nnue/features"
)

// NormalizeToPawnValue converts internal values to pawns in diagnostics.
const NormalizeToPawnValue = 144

// staticValue evaluates pos on a scratch accumulator from White's point of
// view, in internal units. It leaves the stack untouched.
func staticValue(pos *board.Position, net *Network) (psqt, positional int) {
	acc := newAccumulator(net.HalfDimensions)
	for _, p := range [2]board.Color{board.White, board.Black} {
		var active features.IndexList
		features.AppendActiveIndices(p, pos, &active)
		accumulate(&acc, net, p, active.Slice())
	}
	psqt, positional = net.Forward(&acc, pos.SideToMove)
	if pos.SideToMove == board.Black {
		psqt, positional = -psqt, -positional
	}
	return psqt, positional
}

func formatPawns(v int) string {
	return fmt.Sprintf("%+.2f", float64(v)/OutputScale/NormalizeToPawnValue)
}

// Trace returns a board of per-piece contributions, each the drop in
// evaluation when the piece is removed, followed by the split between the
// PSQT and positional parts. Values are from White's point of view.
func (e *Evaluator) Trace(pos *board.Position) string {
	var sb strings.Builder

	psqt, positional := staticValue(pos, e.net)
	base := psqt + positional

	const sep = "+-------+-------+-------+-------+-------+-------+-------+-------+-------+\n"

	sb.WriteString(" NNUE derived piece values:\n")
	sb.WriteString(sep)
	for rank := board.RankNB - 1; rank >= 0; rank-- {
		var names, values strings.Builder
		names.WriteByte('|')
		values.WriteByte('|')
		for file := 0; file < board.FileNB; file++ {
			sq := board.NewSquare(file, rank)
			pc := pos.PieceAt(sq)
			if pc == board.NoPiece {
				names.WriteString("       |")
				values.WriteString("       |")
				continue
			}
			fmt.Fprintf(&names, "   %s   |", pc)
			if pc.Type() == board.King {
				values.WriteString("       |")
				continue
			}
			without := pos.Copy()
			without.RemovePiece(sq)
			p, q := staticValue(without, e.net)
			fmt.Fprintf(&values, " %5s |", formatPawns(base-p-q))
		}
		sb.WriteString(names.String() + "\n")
		sb.WriteString(values.String() + "\n")
		sb.WriteString(sep)
	}

	sb.WriteString("\n NNUE network contributions (")
	sb.WriteString(pos.SideToMove.String())
	sb.WriteString(" to move)\n")
	sb.WriteString("+------------+------------+------------+------------+\n")
	sb.WriteString("|   Bucket   |  Material  | Positional |   Total    |\n")
	sb.WriteString("|            |   (PSQT)   |  (Layers)  |            |\n")
	sb.WriteString("+------------+------------+------------+------------+\n")
	bucket := features.PositionBucket(pos, pos.SideToMove) & 63
	fmt.Fprintf(&sb, "|  %6d    |  %8s  |  %8s  |  %8s  |\n",
		bucket, formatPawns(psqt), formatPawns(positional), formatPawns(base))
	sb.WriteString("+------------+------------+------------+------------+\n")

	return sb.String()
}
