package board

// GenerateLegalMoves generates all legal moves for the position.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := NewMoveList()
	p.generateAllMoves(ml)
	return p.filterLegalMoves(ml)
}

// GeneratePseudoLegalMoves generates all pseudo-legal moves (may leave king in check).
func (p *Position) GeneratePseudoLegalMoves() *MoveList {
	ml := NewMoveList()
	p.generateAllMoves(ml)
	return ml
}

// generateAllMoves generates all pseudo-legal moves.
func (p *Position) generateAllMoves(ml *MoveList) {
	us := p.SideToMove
	own := p.Occupied[us]
	for !own.IsEmpty() {
		from := own.PopLSB()
		switch p.Board[from].Type() {
		case Rook:
			p.generateSliderMoves(ml, from, false)
		case Cannon:
			p.generateSliderMoves(ml, from, true)
		case Knight:
			p.generateKnightMoves(ml, from)
		case Bishop:
			p.generateBishopMoves(ml, from)
		case Advisor:
			p.generateAdvisorMoves(ml, from)
		case King:
			p.generateKingMoves(ml, from)
		case Pawn:
			p.generatePawnMoves(ml, from)
		}
	}
}

// addIfTarget adds from->to unless to holds a friendly piece.
func (p *Position) addIfTarget(ml *MoveList, from, to Square) {
	pc := p.Board[to]
	if pc == NoPiece || pc.Color() != p.SideToMove {
		ml.Add(NewMove(from, to))
	}
}

// generateSliderMoves generates rook moves, or cannon moves when jump is set.
func (p *Position) generateSliderMoves(ml *MoveList, from Square, jump bool) {
	us := p.SideToMove
	f, r := from.File(), from.Rank()
	for _, d := range orthogonal {
		screened := false
		for nf, nr := f+d[0], r+d[1]; onBoard(nf, nr); nf, nr = nf+d[0], nr+d[1] {
			to := NewSquare(nf, nr)
			pc := p.Board[to]
			if !screened {
				if pc == NoPiece {
					ml.Add(NewMove(from, to))
					continue
				}
				if !jump {
					if pc.Color() != us {
						ml.Add(NewMove(from, to))
					}
					break
				}
				screened = true
				continue
			}
			if pc != NoPiece {
				if pc.Color() != us {
					ml.Add(NewMove(from, to))
				}
				break
			}
		}
	}
}

func (p *Position) generateKnightMoves(ml *MoveList, from Square) {
	f, r := from.File(), from.Rank()
	for _, j := range knightJump {
		nf, nr := f+j[0], r+j[1]
		if !onBoard(nf, nr) || !p.IsEmpty(knightLeg(f, r, j[0], j[1])) {
			continue
		}
		p.addIfTarget(ml, from, NewSquare(nf, nr))
	}
}

func (p *Position) generateBishopMoves(ml *MoveList, from Square) {
	us := p.SideToMove
	f, r := from.File(), from.Rank()
	for _, d := range diagonal {
		nf, nr := f+2*d[0], r+2*d[1]
		if !onBoard(nf, nr) {
			continue
		}
		to := NewSquare(nf, nr)
		if CrossedRiver(us, to) || !p.IsEmpty(NewSquare(f+d[0], r+d[1])) {
			continue
		}
		p.addIfTarget(ml, from, to)
	}
}

func (p *Position) generateAdvisorMoves(ml *MoveList, from Square) {
	us := p.SideToMove
	f, r := from.File(), from.Rank()
	for _, d := range diagonal {
		nf, nr := f+d[0], r+d[1]
		if !onBoard(nf, nr) {
			continue
		}
		if to := NewSquare(nf, nr); InPalace(us, to) {
			p.addIfTarget(ml, from, to)
		}
	}
}

func (p *Position) generateKingMoves(ml *MoveList, from Square) {
	us := p.SideToMove
	f, r := from.File(), from.Rank()
	for _, d := range orthogonal {
		nf, nr := f+d[0], r+d[1]
		if !onBoard(nf, nr) {
			continue
		}
		if to := NewSquare(nf, nr); InPalace(us, to) {
			p.addIfTarget(ml, from, to)
		}
	}
}

func (p *Position) generatePawnMoves(ml *MoveList, from Square) {
	us := p.SideToMove
	f, r := from.File(), from.Rank()
	if nr := r + pawnPush(us); onBoard(f, nr) {
		p.addIfTarget(ml, from, NewSquare(f, nr))
	}
	if !CrossedRiver(us, from) {
		return
	}
	for _, df := range [2]int{-1, 1} {
		if onBoard(f+df, r) {
			p.addIfTarget(ml, from, NewSquare(f+df, r))
		}
	}
}

// filterLegalMoves keeps moves that do not leave the own king attacked.
func (p *Position) filterLegalMoves(ml *MoveList) *MoveList {
	legal := NewMoveList()
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		if p.IsLegal(m) {
			legal.Add(m)
		}
	}
	return legal
}

// IsLegal checks a pseudo-legal move by playing it.
func (p *Position) IsLegal(m Move) bool {
	us := p.SideToMove
	undo := p.MakeMove(m)
	legal := !p.IsAttacked(p.KingSquare[us], us.Other())
	p.UnmakeMove(m, undo)
	return legal
}

// MakeMove plays a move and returns the information needed to undo it.
// undo.Dirty is the change record for incremental feature updates.
func (p *Position) MakeMove(m Move) UndoInfo {
	from, to := m.From(), m.To()
	pc := p.Board[from]

	undo := UndoInfo{
		Rule60: p.Rule60,
		Hash:   p.Hash,
	}
	undo.Dirty.Add(pc, from, to)

	if captured := p.removePiece(to); captured != NoPiece {
		undo.Captured = captured
		undo.Dirty.Add(captured, to, NoSquare)
		p.Hash ^= zobristPiece[captured][to]
		p.Rule60 = 0
	} else {
		p.Rule60++
	}

	p.movePiece(from, to)
	p.Hash ^= zobristPiece[pc][from] ^ zobristPiece[pc][to]

	p.SideToMove = p.SideToMove.Other()
	p.Hash ^= zobristSideToMove
	p.GamePly++

	return undo
}

// UnmakeMove undoes a move made by MakeMove.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	from, to := m.From(), m.To()

	p.movePiece(to, from)
	if undo.Captured != NoPiece {
		p.setPiece(undo.Captured, to)
	}

	p.SideToMove = p.SideToMove.Other()
	p.Rule60 = undo.Rule60
	p.Hash = undo.Hash
	p.GamePly--
}

// HasLegalMoves returns true if the side to move has any legal move.
func (p *Position) HasLegalMoves() bool {
	return p.GenerateLegalMoves().Len() > 0
}
