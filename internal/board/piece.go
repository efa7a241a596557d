package board

// Color represents the color of a piece or player. White moves first
// (the red side on a physical board).
type Color uint8

const (
	White Color = iota
	Black
	NoColor Color = 2
)

// ColorNB is the number of real colors.
const ColorNB = 2

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

// String returns the color name.
func (c Color) String() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return "NoColor"
	}
}

// PieceType represents the type of a xiangqi piece.
type PieceType uint8

const (
	NoPieceType PieceType = iota
	Rook
	Advisor
	Cannon
	Pawn
	Knight
	Bishop
	King
)

// PieceTypeNB bounds the piece type encoding.
const PieceTypeNB = 8

// String returns the piece type name.
func (pt PieceType) String() string {
	switch pt {
	case Rook:
		return "Rook"
	case Advisor:
		return "Advisor"
	case Cannon:
		return "Cannon"
	case Pawn:
		return "Pawn"
	case Knight:
		return "Knight"
	case Bishop:
		return "Bishop"
	case King:
		return "King"
	default:
		return "None"
	}
}

// IsDiagonalMover reports whether pieces of this type only move diagonally.
// Advisors and bishops share an input plane in the network.
func (pt PieceType) IsDiagonalMover() bool {
	return pt == Advisor || pt == Bishop
}

// PieceValue is the material value of each piece type in internal units.
var PieceValue = [PieceTypeNB]int{0, 1305, 219, 773, 144, 720, 190, 0}

// Piece combines PieceType and Color: color<<3 | type.
type Piece uint8

const (
	NoPiece Piece = 0

	WhiteRook    Piece = Piece(Rook)
	WhiteAdvisor Piece = Piece(Advisor)
	WhiteCannon  Piece = Piece(Cannon)
	WhitePawn    Piece = Piece(Pawn)
	WhiteKnight  Piece = Piece(Knight)
	WhiteBishop  Piece = Piece(Bishop)
	WhiteKing    Piece = Piece(King)

	BlackRook    Piece = Piece(Rook) + 8
	BlackAdvisor Piece = Piece(Advisor) + 8
	BlackCannon  Piece = Piece(Cannon) + 8
	BlackPawn    Piece = Piece(Pawn) + 8
	BlackKnight  Piece = Piece(Knight) + 8
	BlackBishop  Piece = Piece(Bishop) + 8
	BlackKing    Piece = Piece(King) + 8
)

// PieceNB bounds the piece encoding.
const PieceNB = 16

// NewPiece creates a Piece from PieceType and Color.
func NewPiece(pt PieceType, c Color) Piece {
	if pt == NoPieceType || pt >= PieceTypeNB || c >= NoColor {
		return NoPiece
	}
	return Piece(c)<<3 | Piece(pt)
}

// Type returns the PieceType of the piece.
func (p Piece) Type() PieceType {
	return PieceType(p & 7)
}

// Color returns the Color of the piece.
func (p Piece) Color() Color {
	if p == NoPiece {
		return NoColor
	}
	return Color(p >> 3)
}

// SwapColor returns the same piece type owned by the other side.
func (p Piece) SwapColor() Piece {
	if p == NoPiece {
		return NoPiece
	}
	return p ^ 8
}

// Value returns the material value of the piece.
func (p Piece) Value() int {
	return PieceValue[p.Type()]
}

const pieceChars = " RACPNBK racpnbk"

// String returns the FEN character for the piece.
// Uppercase for White, lowercase for Black.
func (p Piece) String() string {
	if p >= PieceNB || p.Type() == NoPieceType {
		return " "
	}
	return string(pieceChars[p])
}

// PieceFromChar converts a FEN character to a Piece. 'H'/'E' are accepted as
// aliases for knight and bishop.
func PieceFromChar(c byte) Piece {
	switch c {
	case 'R':
		return WhiteRook
	case 'A':
		return WhiteAdvisor
	case 'C':
		return WhiteCannon
	case 'P':
		return WhitePawn
	case 'N', 'H':
		return WhiteKnight
	case 'B', 'E':
		return WhiteBishop
	case 'K':
		return WhiteKing
	case 'r':
		return BlackRook
	case 'a':
		return BlackAdvisor
	case 'c':
		return BlackCannon
	case 'p':
		return BlackPawn
	case 'n', 'h':
		return BlackKnight
	case 'b', 'e':
		return BlackBishop
	case 'k':
		return BlackKing
	default:
		return NoPiece
	}
}
