package board

import (
	"errors"
	"fmt"
	"strings"
)

// Position represents a complete xiangqi position.
type Position struct {
	// Mailbox of pieces, NoPiece on empty squares
	Board [SquareNB]Piece

	// Occupancy (cached for iteration)
	Occupied    [ColorNB]Bitboard
	AllOccupied Bitboard

	// Game state
	SideToMove Color
	Rule60     int // Plies since the last capture
	GamePly    int

	// Zobrist hash for caches and repetition tables
	Hash uint64

	// King positions (cached for check detection and king buckets)
	KingSquare [ColorNB]Square

	material   [ColorNB]int
	pieceCount [PieceNB]int
}

var (
	ErrMissingKing   = errors.New("each side must have exactly one king")
	ErrIllegalSquare = errors.New("piece on unreachable square")
	ErrTooManyPieces = errors.New("too many pieces of one kind")
)

// maxPieceCount is the number of pieces of each type a side starts with.
var maxPieceCount = [PieceTypeNB]int{Rook: 2, Advisor: 2, Cannon: 2, Pawn: 5, Knight: 2, Bishop: 2, King: 1}

// NewPosition creates the starting position.
func NewPosition() *Position {
	pos, _ := ParseFEN(StartFEN)
	return pos
}

// NewEmptyPosition creates a position with no pieces.
func NewEmptyPosition() *Position {
	p := &Position{}
	p.Clear()
	return p
}

// Copy creates a deep copy of the position.
func (p *Position) Copy() *Position {
	newPos := *p
	return &newPos
}

// Clear resets the position to an empty board.
func (p *Position) Clear() {
	*p = Position{}
	p.KingSquare[White] = NoSquare
	p.KingSquare[Black] = NoSquare
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	return p.Board[sq]
}

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.Board[sq] == NoPiece
}

// Pieces returns the occupancy of both colors.
func (p *Position) Pieces() Bitboard {
	return p.AllOccupied
}

// KingSq returns the king square of color c.
func (p *Position) KingSq(c Color) Square {
	return p.KingSquare[c]
}

// Count returns the total number of pieces on the board.
func (p *Position) Count() int {
	return p.AllOccupied.PopCount()
}

// CountOf returns the number of pieces of the given kind.
func (p *Position) CountOf(pc Piece) int {
	return p.pieceCount[pc]
}

// MaterialDiff returns side-to-move material minus opponent material.
func (p *Position) MaterialDiff() int {
	us := p.SideToMove
	return p.material[us] - p.material[us.Other()]
}

// MaterialSum returns the material of both sides.
func (p *Position) MaterialSum() int {
	return p.material[White] + p.material[Black]
}

// Material returns the material of one side.
func (p *Position) Material(c Color) int {
	return p.material[c]
}

// Rule60Count returns the plies since the last capture.
func (p *Position) Rule60Count() int {
	return p.Rule60
}

// PutPiece places a piece on an empty square, keeping the hash in sync.
func (p *Position) PutPiece(pc Piece, sq Square) {
	p.setPiece(pc, sq)
	p.Hash ^= zobristPiece[pc][sq]
}

// RemovePiece clears a square, keeping the hash in sync.
func (p *Position) RemovePiece(sq Square) Piece {
	pc := p.removePiece(sq)
	if pc != NoPiece {
		p.Hash ^= zobristPiece[pc][sq]
	}
	return pc
}

// setPiece places a piece on a square (does not update hash).
func (p *Position) setPiece(pc Piece, sq Square) {
	if pc == NoPiece {
		return
	}
	c := pc.Color()
	p.Board[sq] = pc
	p.Occupied[c] = p.Occupied[c].Set(sq)
	p.AllOccupied = p.AllOccupied.Set(sq)
	p.material[c] += pc.Value()
	p.pieceCount[pc]++

	if pc.Type() == King {
		p.KingSquare[c] = sq
	}
}

// removePiece removes a piece from a square (does not update hash).
func (p *Position) removePiece(sq Square) Piece {
	pc := p.Board[sq]
	if pc == NoPiece {
		return NoPiece
	}
	c := pc.Color()
	p.Board[sq] = NoPiece
	p.Occupied[c] = p.Occupied[c].Clear(sq)
	p.AllOccupied = p.AllOccupied.Clear(sq)
	p.material[c] -= pc.Value()
	p.pieceCount[pc]--
	return pc
}

// movePiece moves a piece to an empty square (does not update hash).
func (p *Position) movePiece(from, to Square) {
	pc := p.removePiece(from)
	p.setPiece(pc, to)
}

// Flipped returns the color-swapped position seen from the other side:
// every piece changes color and moves to its rank-flipped square.
func (p *Position) Flipped() *Position {
	q := NewEmptyPosition()
	for sq := Square(0); sq < NoSquare; sq++ {
		if pc := p.Board[sq]; pc != NoPiece {
			q.setPiece(pc.SwapColor(), sq.FlipRank())
		}
	}
	q.SideToMove = p.SideToMove.Other()
	q.Rule60 = p.Rule60
	q.GamePly = p.GamePly
	q.Hash = q.ComputeHash()
	return q
}

// Mirrored returns the position reflected across the central file.
func (p *Position) Mirrored() *Position {
	q := NewEmptyPosition()
	for sq := Square(0); sq < NoSquare; sq++ {
		if pc := p.Board[sq]; pc != NoPiece {
			q.setPiece(pc, sq.MirrorFile())
		}
	}
	q.SideToMove = p.SideToMove
	q.Rule60 = p.Rule60
	q.GamePly = p.GamePly
	q.Hash = q.ComputeHash()
	return q
}

// ComputeHash computes the Zobrist hash from scratch.
func (p *Position) ComputeHash() uint64 {
	var h uint64
	for sq := Square(0); sq < NoSquare; sq++ {
		if pc := p.Board[sq]; pc != NoPiece {
			h ^= zobristPiece[pc][sq]
		}
	}
	if p.SideToMove == Black {
		h ^= zobristSideToMove
	}
	return h
}

// Validate checks that the position only contains reachable placements.
func (p *Position) Validate() error {
	for c := White; c <= Black; c++ {
		if p.pieceCount[NewPiece(King, c)] != 1 {
			return ErrMissingKing
		}
		for pt := Rook; pt < King; pt++ {
			if n := p.pieceCount[NewPiece(pt, c)]; n > maxPieceCount[pt] {
				return fmt.Errorf("%w: %d %s %ss", ErrTooManyPieces, n, c, pt)
			}
		}
	}

	for sq := Square(0); sq < NoSquare; sq++ {
		pc := p.Board[sq]
		if pc == NoPiece {
			continue
		}
		if !CanStand(pc, sq) {
			return fmt.Errorf("%w: %s on %s", ErrIllegalSquare, pc, sq)
		}
	}

	return nil
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	for rank := RankNB - 1; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d  ", rank)
		for file := 0; file < FileNB; file++ {
			pc := p.PieceAt(NewSquare(file, rank))
			if pc == NoPiece {
				sb.WriteString(". ")
			} else {
				sb.WriteString(pc.String() + " ")
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n   a b c d e f g h i\n\n")
	fmt.Fprintf(&sb, "Fen: %s\n", p.ToFEN())
	fmt.Fprintf(&sb, "Side to move: %s\n", p.SideToMove)
	fmt.Fprintf(&sb, "Rule60: %d\n", p.Rule60)
	fmt.Fprintf(&sb, "Hash: %016x\n", p.Hash)
	return sb.String()
}

var (
	advisorSquares [ColorNB]Bitboard
	bishopSquares  [ColorNB]Bitboard
)

func init() {
	advisor := [][2]int{{3, 0}, {5, 0}, {4, 1}, {3, 2}, {5, 2}}
	bishop := [][2]int{{2, 0}, {6, 0}, {0, 2}, {4, 2}, {8, 2}, {2, 4}, {6, 4}}
	for _, fr := range advisor {
		sq := NewSquare(fr[0], fr[1])
		advisorSquares[White] = advisorSquares[White].Set(sq)
		advisorSquares[Black] = advisorSquares[Black].Set(sq.FlipRank())
	}
	for _, fr := range bishop {
		sq := NewSquare(fr[0], fr[1])
		bishopSquares[White] = bishopSquares[White].Set(sq)
		bishopSquares[Black] = bishopSquares[Black].Set(sq.FlipRank())
	}
}

// IsAdvisorSquare reports whether an advisor of color c can stand on sq.
func IsAdvisorSquare(c Color, sq Square) bool {
	return advisorSquares[c].IsSet(sq)
}

// IsBishopSquare reports whether a bishop of color c can stand on sq.
func IsBishopSquare(c Color, sq Square) bool {
	return bishopSquares[c].IsSet(sq)
}

// DiagonalMoverSquares returns every square an advisor or bishop of
// either color can reach.
func DiagonalMoverSquares() Bitboard {
	return advisorSquares[White].Or(advisorSquares[Black]).
		Or(bishopSquares[White]).Or(bishopSquares[Black])
}

// CanStand reports whether pc can ever stand on sq.
func CanStand(pc Piece, sq Square) bool {
	c := pc.Color()
	switch pc.Type() {
	case King:
		return InPalace(c, sq)
	case Advisor:
		return IsAdvisorSquare(c, sq)
	case Bishop:
		return IsBishopSquare(c, sq)
	case Pawn:
		return sq.RelativeRank(c) >= 3
	}
	return true
}
