package board

import (
	"testing"
)

func TestCheckDetection(t *testing.T) {
	tests := []struct {
		name    string
		fen     string
		inCheck bool
	}{
		{"start", StartFEN, false},
		{"rook on open file", "4k4/9/9/9/9/9/9/9/4R4/3K5 b - - 0 1", true},
		{"cannon with screen", "4k4/9/9/4P4/9/9/9/4C4/9/3K5 b - - 0 1", true},
		{"cannon without screen", "4k4/9/9/9/9/9/9/4C4/9/3K5 b - - 0 1", false},
		{"knight with free leg", "4k4/9/3N5/9/9/9/9/9/9/3K5 b - - 0 1", true},
		{"knight with blocked leg", "4k4/5r3/5N3/9/9/9/9/9/9/3K5 b - - 0 1", false},
		{"pawn in front", "4k4/4P4/9/9/9/9/9/9/9/3K5 b - - 0 1", true},
		{"pawn beside after river", "3k5/4P4/9/9/9/9/9/9/9/5K3 b - - 0 1", false},
		{"pawn beside on rank", "4kP3/9/9/9/9/9/9/9/9/3K5 b - - 0 1", true},
		{"facing kings", "4k4/9/9/9/9/9/9/9/9/4K4 w - - 0 1", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseFEN(tc.fen)
			if err != nil {
				t.Fatalf("ParseFEN(%q): %v", tc.fen, err)
			}
			if got := pos.InCheck(); got != tc.inCheck {
				t.Errorf("InCheck() = %v, want %v\n%s", got, tc.inCheck, pos)
			}
		})
	}
}

func TestCheckmate(t *testing.T) {
	// Two rooks on ranks 9 and 8 mate the black king in its palace.
	pos, err := ParseFEN("3Rk4/R8/9/9/9/9/9/9/9/3K5 b - - 0 1")
	if err != nil {
		t.Fatal("Error parsing FEN:", err)
	}

	if !pos.InCheck() {
		t.Fatal("Expected black to be in check")
	}
	if pos.HasLegalMoves() {
		t.Errorf("Expected no legal moves, got %v", pos.GenerateLegalMoves().Slice())
	}
}

func TestFlyingGeneralFiltersMoves(t *testing.T) {
	// The white advisor is the only piece between the kings; moving it off
	// the e-file would expose the kings to each other.
	pos, err := ParseFEN("4k4/9/9/9/9/9/9/9/4A4/3AK4 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	e1, _ := ParseSquare("e1")
	moves := pos.GenerateLegalMoves()
	for _, m := range moves.Slice() {
		if m.From() == e1 {
			t.Errorf("advisor move %s should be illegal", m)
		}
	}
}
