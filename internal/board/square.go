// Package board implements the xiangqi board representation consumed by the
// evaluator: squares, pieces, positions, move generation and check detection.
package board

import "fmt"

// Board geometry.
const (
	FileNB   = 9
	RankNB   = 10
	SquareNB = FileNB * RankNB
)

// Square is a board coordinate in [0, SquareNB).
// Mapping: sq = rank*9 + file, rank 0 is White's back rank, file 0 is the a-file.
type Square uint8

// NoSquare marks an absent square, e.g. the source of an added piece.
const NoSquare Square = SquareNB

// Named corner and palace squares.
const (
	A0 Square = 0
	I0 Square = 8
	E0 Square = 4
	E9 Square = 85
	A9 Square = 81
	I9 Square = 89
)

// NewSquare creates a square from file and rank (0-indexed).
func NewSquare(file, rank int) Square {
	return Square(rank*FileNB + file)
}

// File returns the file (0-8, where 0=a).
func (sq Square) File() int {
	return int(sq) % FileNB
}

// Rank returns the rank (0-9, where 0 is White's back rank).
func (sq Square) Rank() int {
	return int(sq) / FileNB
}

// IsValid returns true if the square is on the board.
func (sq Square) IsValid() bool {
	return sq < NoSquare
}

// FlipRank returns the square seen from the other side of the board.
func (sq Square) FlipRank() Square {
	return NewSquare(sq.File(), RankNB-1-sq.Rank())
}

// MirrorFile returns the square reflected across the central e-file.
func (sq Square) MirrorFile() Square {
	return NewSquare(FileNB-1-sq.File(), sq.Rank())
}

// RelativeRank returns the rank from a given color's point of view.
func (sq Square) RelativeRank(c Color) int {
	if c == White {
		return sq.Rank()
	}
	return RankNB - 1 - sq.Rank()
}

// String returns coordinate notation (e.g. "e0").
func (sq Square) String() string {
	if sq >= NoSquare {
		return "-"
	}
	return fmt.Sprintf("%c%c", 'a'+sq.File(), '0'+sq.Rank())
}

// ParseSquare parses coordinate notation (e.g. "h2") into a Square.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square: %s", s)
	}

	file := int(s[0] - 'a')
	rank := int(s[1] - '0')

	if file < 0 || file >= FileNB || rank < 0 || rank >= RankNB {
		return NoSquare, fmt.Errorf("invalid square: %s", s)
	}

	return NewSquare(file, rank), nil
}

// onBoard reports whether (file, rank) lies on the board.
func onBoard(file, rank int) bool {
	return file >= 0 && file < FileNB && rank >= 0 && rank < RankNB
}

// InPalace reports whether sq lies in the 3x3 palace of color c.
func InPalace(c Color, sq Square) bool {
	f := sq.File()
	if f < 3 || f > 5 {
		return false
	}
	r := sq.RelativeRank(c)
	return r <= 2
}

// CrossedRiver reports whether a piece of color c on sq is on the enemy half.
func CrossedRiver(c Color, sq Square) bool {
	return sq.RelativeRank(c) >= 5
}
