package board

import "fmt"

// Move encodes a xiangqi move in 14 bits:
// bits 0-6:  from square (0-89)
// bits 7-13: to square (0-89)
type Move uint16

// NoMove represents an invalid or null move.
const NoMove Move = 0

// NewMove creates a move.
func NewMove(from, to Square) Move {
	return Move(from) | Move(to)<<7
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x7F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> 7) & 0x7F)
}

// IsCapture returns true if this move captures a piece.
func (m Move) IsCapture(pos *Position) bool {
	return !pos.IsEmpty(m.To())
}

// String returns coordinate notation (e.g. "h2e2").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	return m.From().String() + m.To().String()
}

// ParseMove parses a coordinate-notation move string.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) != 4 {
		return NoMove, fmt.Errorf("invalid move string: %s", s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}

	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	if pos.PieceAt(from) == NoPiece {
		return NoMove, fmt.Errorf("no piece at %s", from)
	}

	return NewMove(from, to), nil
}

// MaxDirtyPieces is the maximum number of pieces changed by one move:
// the mover and a captured piece.
const MaxDirtyPieces = 2

// DirtyPiece records the pieces whose square changed during the last ply.
// From == NoSquare marks an added piece, To == NoSquare a removed one.
// Entry 0 is always the moving piece.
type DirtyPiece struct {
	Num   int
	Piece [MaxDirtyPieces]Piece
	From  [MaxDirtyPieces]Square
	To    [MaxDirtyPieces]Square
}

// Add appends an entry. Callers never exceed MaxDirtyPieces.
func (dp *DirtyPiece) Add(pc Piece, from, to Square) {
	dp.Piece[dp.Num] = pc
	dp.From[dp.Num] = from
	dp.To[dp.Num] = to
	dp.Num++
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [256]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// UndoInfo stores information needed to undo a move, plus the change
// record the evaluator consumes.
type UndoInfo struct {
	Captured Piece
	Rule60   int
	Hash     uint64
	Dirty    DirtyPiece
}
