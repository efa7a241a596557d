package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNR w - - 0 1"

// ErrInvalidFEN is wrapped by every FEN parsing error.
var ErrInvalidFEN = errors.New("invalid FEN")

// ParseFEN parses a FEN string and returns a Position.
// Fields: placement, side to move, two unused fields, rule60 plies, move number.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 fields, got %d", ErrInvalidFEN, len(parts))
	}

	pos := NewEmptyPosition()

	// Parse piece placement (field 0)
	if err := parsePiecePlacement(pos, parts[0]); err != nil {
		return nil, err
	}

	// Parse side to move (field 1)
	switch parts[1] {
	case "w", "r":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fmt.Errorf("%w: invalid side to move: %s", ErrInvalidFEN, parts[1])
	}

	// Parse rule60 counter (field 4, optional)
	if len(parts) > 4 {
		n, err := strconv.Atoi(parts[4])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: invalid rule60 counter: %s", ErrInvalidFEN, parts[4])
		}
		pos.Rule60 = n
	}

	// Parse full-move number (field 5, optional)
	if len(parts) > 5 {
		n, err := strconv.Atoi(parts[5])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: invalid move number: %s", ErrInvalidFEN, parts[5])
		}
		pos.GamePly = 2*(n-1) + int(pos.SideToMove)
	}

	if err := pos.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}

	pos.Hash = pos.ComputeHash()

	return pos, nil
}

// parsePiecePlacement parses the piece placement section of a FEN string.
// Ranks are listed from 9 down to 0.
func parsePiecePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != RankNB {
		return fmt.Errorf("%w: need %d ranks, got %d", ErrInvalidFEN, RankNB, len(ranks))
	}

	for i, rankStr := range ranks {
		rank := RankNB - 1 - i
		file := 0

		for j := 0; j < len(rankStr); j++ {
			c := rankStr[j]
			if c >= '1' && c <= '9' {
				file += int(c - '0')
				continue
			}

			pc := PieceFromChar(c)
			if pc == NoPiece {
				return fmt.Errorf("%w: invalid piece character: %c", ErrInvalidFEN, c)
			}
			if file >= FileNB {
				return fmt.Errorf("%w: rank %d overflows", ErrInvalidFEN, rank)
			}
			pos.setPiece(pc, NewSquare(file, rank))
			file++
		}

		if file != FileNB {
			return fmt.Errorf("%w: rank %d has %d files", ErrInvalidFEN, rank, file)
		}
	}

	return nil
}

// ToFEN returns the FEN string for the position.
func (p *Position) ToFEN() string {
	var sb strings.Builder

	for rank := RankNB - 1; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < FileNB; file++ {
			pc := p.PieceAt(NewSquare(file, rank))
			if pc == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteString(pc.String())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	if p.SideToMove == White {
		sb.WriteString(" w")
	} else {
		sb.WriteString(" b")
	}

	fmt.Fprintf(&sb, " - - %d %d", p.Rule60, p.GamePly/2+1)

	return sb.String()
}
