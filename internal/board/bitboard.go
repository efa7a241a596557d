package board

import (
	"math/bits"
	"strings"
)

// Bitboard is a 128-bit set of squares. Squares 0-63 live in Lo,
// squares 64-89 in the low bits of Hi.
type Bitboard struct {
	Lo, Hi uint64
}

// Empty is the empty set.
var Empty = Bitboard{}

// SquareBB returns a bitboard with only the given square set.
func SquareBB(sq Square) Bitboard {
	if sq < 64 {
		return Bitboard{Lo: 1 << sq}
	}
	return Bitboard{Hi: 1 << (sq - 64)}
}

// IsEmpty returns true if no square is set.
func (b Bitboard) IsEmpty() bool {
	return b.Lo == 0 && b.Hi == 0
}

// IsSet returns true if the bit at the given square is set.
func (b Bitboard) IsSet(sq Square) bool {
	return !b.And(SquareBB(sq)).IsEmpty()
}

// Set returns b with sq added.
func (b Bitboard) Set(sq Square) Bitboard {
	return b.Or(SquareBB(sq))
}

// Clear returns b with sq removed.
func (b Bitboard) Clear(sq Square) Bitboard {
	s := SquareBB(sq)
	return Bitboard{Lo: b.Lo &^ s.Lo, Hi: b.Hi &^ s.Hi}
}

// And returns the intersection of two bitboards.
func (b Bitboard) And(o Bitboard) Bitboard {
	return Bitboard{Lo: b.Lo & o.Lo, Hi: b.Hi & o.Hi}
}

// Or returns the union of two bitboards.
func (b Bitboard) Or(o Bitboard) Bitboard {
	return Bitboard{Lo: b.Lo | o.Lo, Hi: b.Hi | o.Hi}
}

// Xor returns the symmetric difference of two bitboards.
func (b Bitboard) Xor(o Bitboard) Bitboard {
	return Bitboard{Lo: b.Lo ^ o.Lo, Hi: b.Hi ^ o.Hi}
}

// PopCount returns the number of set squares.
func (b Bitboard) PopCount() int {
	return bits.OnesCount64(b.Lo) + bits.OnesCount64(b.Hi)
}

// LSB returns the lowest set square, or NoSquare if empty.
func (b Bitboard) LSB() Square {
	if b.Lo != 0 {
		return Square(bits.TrailingZeros64(b.Lo))
	}
	if b.Hi != 0 {
		return Square(64 + bits.TrailingZeros64(b.Hi))
	}
	return NoSquare
}

// PopLSB removes and returns the lowest set square.
func (b *Bitboard) PopLSB() Square {
	if b.Lo != 0 {
		sq := Square(bits.TrailingZeros64(b.Lo))
		b.Lo &= b.Lo - 1
		return sq
	}
	if b.Hi != 0 {
		sq := Square(64 + bits.TrailingZeros64(b.Hi))
		b.Hi &= b.Hi - 1
		return sq
	}
	return NoSquare
}

// String returns a visual representation of the bitboard, rank 9 on top.
func (b Bitboard) String() string {
	var sb strings.Builder
	for rank := RankNB - 1; rank >= 0; rank-- {
		for file := 0; file < FileNB; file++ {
			if b.IsSet(NewSquare(file, rank)) {
				sb.WriteString("X ")
			} else {
				sb.WriteString(". ")
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
