// Package features implements the HalfKA_hm input feature set for xiangqi:
// the position of every piece, including both kings, relative to a king
// bucket derived from the two king squares. Positions are mirrored so that
// the own king stays on the left half of its palace.
package features

import "github.com/hailam/xqeval/internal/board"

// Name of the feature set.
const Name = "HalfKA_hm(Friend)"

// HashValue is embedded in network files built for this feature set.
const HashValue uint32 = 0xd17b100a

// MaxActiveDimensions is the maximum number of simultaneously active features.
const MaxActiveDimensions = 32

// IndexList is a fixed-capacity list of feature indices.
type IndexList struct {
	Values [MaxActiveDimensions]int
	Size   int
}

// Push adds an index to the list.
func (l *IndexList) Push(idx int) {
	l.Values[l.Size] = idx
	l.Size++
}

// Clear resets the list.
func (l *IndexList) Clear() {
	l.Size = 0
}

// Slice returns the pushed indices.
func (l *IndexList) Slice() []int {
	return l.Values[:l.Size]
}

// perspectiveBit is 1 for Black, 0 for White.
func perspectiveBit(perspective board.Color) int {
	return int(perspective)
}

// KingBucket returns the bucket for the given king squares seen from
// perspective. Both kings go through the perspective remap, which puts the
// own king in the lower palace and the other king in the upper one.
func KingBucket(whiteKsq, blackKsq board.Square, perspective board.Color) int {
	m := &IndexMap[2*perspectiveBit(perspective)]
	return KingBuckets[KingMaps[m[whiteKsq]]+KingMaps[m[blackKsq]]]
}

// PositionBucket returns the king bucket of pos for perspective.
func PositionBucket(pos *board.Position, perspective board.Color) int {
	return KingBucket(pos.KingSq(board.White), pos.KingSq(board.Black), perspective)
}

// MakeIndex returns the feature index of piece pc on sq for the given bucket
// and perspective. Inputs must describe a reachable placement.
func MakeIndex(perspective board.Color, sq board.Square, pc board.Piece, bucket int) int {
	variant := 4*(bucket>>6) + 2*perspectiveBit(perspective)
	if pc.Type().IsDiagonalMover() {
		variant++
	}
	return IndexMap[variant][sq] + PieceSquareIndex[perspective][pc] + PSNB*(bucket&63)
}

// AppendActiveIndices appends the indices of all active features, scanning
// occupied squares in ascending order.
func AppendActiveIndices(perspective board.Color, pos *board.Position, active *IndexList) {
	bucket := PositionBucket(pos, perspective)
	bb := pos.Pieces()
	for !bb.IsEmpty() {
		sq := bb.PopLSB()
		active.Push(MakeIndex(perspective, sq, pos.PieceAt(sq), bucket))
	}
}

// AppendChangedIndices appends the indices of features changed by dp.
// The bucket must be the one both positions share.
func AppendChangedIndices(perspective board.Color, bucket int, dp *board.DirtyPiece, removed, added *IndexList) {
	for i := 0; i < dp.Num; i++ {
		if dp.From[i] != board.NoSquare {
			removed.Push(MakeIndex(perspective, dp.From[i], dp.Piece[i], bucket))
		}
		if dp.To[i] != board.NoSquare {
			added.Push(MakeIndex(perspective, dp.To[i], dp.Piece[i], bucket))
		}
	}
}

// UpdateCost estimates the work of applying dp incrementally.
func UpdateCost(dp *board.DirtyPiece) int {
	return dp.Num
}

// RefreshCost estimates the work of a full refresh of pos.
func RefreshCost(pos *board.Position) int {
	return pos.Count()
}

// RequiresRefresh reports whether dp moved a king. Both buckets depend on
// both king squares, so any king move invalidates them.
func RequiresRefresh(dp *board.DirtyPiece) bool {
	return dp.Num > 0 && dp.Piece[0].Type() == board.King
}
