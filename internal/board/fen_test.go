package board

import (
	"errors"
	"testing"
)

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"r1bakabr1/9/1cn4c1/p1p1p3p/6p2/2P6/P3P1P1P/1C2C1N2/9/RNBAKAB1R b - - 3 5",
		"3k5/4P4/9/9/9/9/9/9/9/5K3 w - - 40 61",
	}
	for _, fen := range fens {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		if got := pos.ToFEN(); got != fen {
			t.Errorf("ToFEN() = %q, want %q", got, fen)
		}
	}
}

func TestParseFENRejects(t *testing.T) {
	bad := []string{
		"",
		"rnbakabnr/9/1c5c1 w",
		"rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNR x",
		"rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABN1R w",
		"rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBA1ABNR w",
		"rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/KNBARABNR w",
		// 37 pieces would overflow the active feature list
		"RRRRRRRRR/RRRRRRRRR/RRRRkRRRR/RRRRRRRRR/9/9/9/4K4/9/9 w - - 0 1",
		"rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1CC3CC1/9/RNBAKABNR w",
		"rnbakabnr/9/1c5c1/p1p1p1p1p/9/P8/P1P1P1P1P/1C5C1/9/RNBAKABNR w",
	}
	for _, fen := range bad {
		if _, err := ParseFEN(fen); !errors.Is(err, ErrInvalidFEN) {
			t.Errorf("ParseFEN(%q) error = %v, want ErrInvalidFEN", fen, err)
		}
	}
}

func TestMaterial(t *testing.T) {
	pos := NewPosition()
	if pos.MaterialDiff() != 0 {
		t.Errorf("start MaterialDiff = %d, want 0", pos.MaterialDiff())
	}

	perSide := 2*PieceValue[Rook] + 2*PieceValue[Advisor] + 2*PieceValue[Cannon] +
		5*PieceValue[Pawn] + 2*PieceValue[Knight] + 2*PieceValue[Bishop]
	if pos.MaterialSum() != 2*perSide {
		t.Errorf("start MaterialSum = %d, want %d", pos.MaterialSum(), 2*perSide)
	}
	if pos.Count() != 32 {
		t.Errorf("start Count = %d, want 32", pos.Count())
	}

	// Cannon takes the knight: h2 -> h9
	m, err := ParseMove("h2h9", pos)
	if err != nil {
		t.Fatal(err)
	}
	undo := pos.MakeMove(m)
	if undo.Captured != BlackKnight {
		t.Fatalf("captured = %v, want black knight", undo.Captured)
	}
	// Black to move, down a knight
	if got := pos.MaterialDiff(); got != -PieceValue[Knight] {
		t.Errorf("MaterialDiff after capture = %d, want %d", got, -PieceValue[Knight])
	}
	if pos.Rule60Count() != 0 {
		t.Errorf("Rule60 after capture = %d, want 0", pos.Rule60Count())
	}
	if undo.Dirty.Num != 2 || undo.Dirty.Piece[0] != WhiteCannon || undo.Dirty.To[1] != NoSquare {
		t.Errorf("unexpected dirty record %+v", undo.Dirty)
	}
}

func TestFlippedAndMirrored(t *testing.T) {
	pos, err := ParseFEN("r1bakabr1/9/1cn4c1/p1p1p3p/6p2/2P6/P3P1P1P/1C2C1N2/9/RNBAKAB1R b - - 3 5")
	if err != nil {
		t.Fatal(err)
	}

	f := pos.Flipped()
	if err := f.Validate(); err != nil {
		t.Fatalf("flipped position invalid: %v", err)
	}
	if f.SideToMove != White {
		t.Errorf("flipped side to move = %v, want White", f.SideToMove)
	}
	if f.MaterialDiff() != pos.MaterialDiff() {
		t.Errorf("flipped MaterialDiff = %d, want %d", f.MaterialDiff(), pos.MaterialDiff())
	}
	if back := f.Flipped(); back.ToFEN() != pos.ToFEN() {
		t.Errorf("double flip = %q, want %q", back.ToFEN(), pos.ToFEN())
	}

	m := pos.Mirrored()
	if err := m.Validate(); err != nil {
		t.Fatalf("mirrored position invalid: %v", err)
	}
	if back := m.Mirrored(); back.Hash != pos.Hash {
		t.Errorf("double mirror hash %016x, want %016x", back.Hash, pos.Hash)
	}
}
