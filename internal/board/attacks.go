package board

// Direction vectors as (file delta, rank delta).
var (
	orthogonal = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonal   = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	knightJump = [8][2]int{{1, 2}, {-1, 2}, {1, -2}, {-1, -2}, {2, 1}, {2, -1}, {-2, 1}, {-2, -1}}
)

// pawnPush returns the rank delta of a pawn advance.
func pawnPush(c Color) int {
	if c == White {
		return 1
	}
	return -1
}

// knightLeg returns the square that blocks a knight standing on (f, r)
// from jumping by (df, dr).
func knightLeg(f, r, df, dr int) Square {
	if dr == 2 || dr == -2 {
		return NewSquare(f, r+dr/2)
	}
	return NewSquare(f+df/2, r)
}

// Attackers returns the pieces of color by that attack sq. A king facing sq
// on an open file counts as an attacker, which makes the facing-kings rule
// fall out of ordinary check detection.
func (p *Position) Attackers(sq Square, by Color) Bitboard {
	var attackers Bitboard
	f, r := sq.File(), sq.Rank()

	// Rook, cannon and facing king along the four rays
	for _, d := range orthogonal {
		screens := 0
		for nf, nr := f+d[0], r+d[1]; onBoard(nf, nr); nf, nr = nf+d[0], nr+d[1] {
			s := NewSquare(nf, nr)
			pc := p.Board[s]
			if pc == NoPiece {
				continue
			}
			if pc.Color() == by {
				switch {
				case screens == 0 && pc.Type() == Rook:
					attackers = attackers.Set(s)
				case screens == 0 && pc.Type() == King && d[0] == 0:
					attackers = attackers.Set(s)
				case screens == 1 && pc.Type() == Cannon:
					attackers = attackers.Set(s)
				}
			}
			screens++
			if screens > 1 {
				break
			}
		}
	}

	// Knights: reverse jumps, the leg is measured from the knight
	for _, j := range knightJump {
		nf, nr := f-j[0], r-j[1]
		if !onBoard(nf, nr) {
			continue
		}
		s := NewSquare(nf, nr)
		if p.Board[s] != NewPiece(Knight, by) {
			continue
		}
		if p.IsEmpty(knightLeg(nf, nr, j[0], j[1])) {
			attackers = attackers.Set(s)
		}
	}

	// Pawns: from behind, and from the side once across the river
	pawn := NewPiece(Pawn, by)
	if pr := r - pawnPush(by); onBoard(f, pr) && p.Board[NewSquare(f, pr)] == pawn {
		attackers = attackers.Set(NewSquare(f, pr))
	}
	for _, df := range [2]int{-1, 1} {
		if !onBoard(f+df, r) {
			continue
		}
		s := NewSquare(f+df, r)
		if p.Board[s] == pawn && CrossedRiver(by, s) {
			attackers = attackers.Set(s)
		}
	}

	return attackers
}

// IsAttacked returns true if sq is attacked by color by.
func (p *Position) IsAttacked(sq Square, by Color) bool {
	return !p.Attackers(sq, by).IsEmpty()
}

// Checkers returns the pieces giving check to the side to move.
func (p *Position) Checkers() Bitboard {
	us := p.SideToMove
	ksq := p.KingSquare[us]
	if ksq == NoSquare {
		return Empty
	}
	return p.Attackers(ksq, us.Other())
}

// InCheck returns true if the side to move is in check.
func (p *Position) InCheck() bool {
	return !p.Checkers().IsEmpty()
}
