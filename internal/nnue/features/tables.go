package features

import "github.com/hailam/xqeval/internal/board"

// Piece-square planes. Convention: W - us, B - them. Viewed from the other
// side W and B are reversed. Advisors and bishops share one plane per side,
// their squares never overlap.
const (
	PSNone     = 0
	PSWRook    = 0
	PSBRook    = 1 * board.SquareNB
	PSWCannon  = 2 * board.SquareNB
	PSBCannon  = 3 * board.SquareNB
	PSWPawn    = 4 * board.SquareNB
	PSBPawn    = 5 * board.SquareNB
	PSWKnight  = 6 * board.SquareNB
	PSBKnight  = 7 * board.SquareNB
	PSWAdvisor = 8 * board.SquareNB
	PSBAdvisor = PSWAdvisor + DiagonalSquareNB
	PSWKing    = PSBAdvisor + DiagonalSquareNB
	PSBKing    = PSWKing + board.SquareNB
	PSNB       = PSBKing + board.SquareNB // 948
)

// DiagonalSquareNB is the number of squares an advisor or bishop of either
// color can ever stand on.
const DiagonalSquareNB = 24

// KingBucketNB is the number of king buckets. The mirror flag lives in
// bit 6 of the bucket value and is not counted here.
const KingBucketNB = 15

// MirrorFlag marks buckets whose squares are reflected across the e-file.
const MirrorFlag = 1 << 6

// Dimensions is the number of feature dimensions, one PSNB block per bucket.
const Dimensions = KingBucketNB * PSNB // 14220

// Index map variants: 4*mirror + 2*(perspective==Black) + isDiagonalMover.
const indexMapVariants = 8

var (
	// IndexMap remaps a square for a variant. Diagonal variants return a
	// compact index in [0, DiagonalSquareNB).
	IndexMap [indexMapVariants][board.SquareNB]int

	// KingMaps maps a perspective-remapped king square to its zone code:
	// row*3+col in the lower palace, 9*(row*3+col) in the upper one.
	KingMaps [board.SquareNB]int

	// KingBuckets maps the sum of two zone codes to a bucket value.
	KingBuckets [81]int

	// PieceSquareIndex maps a piece to its plane offset for each perspective.
	PieceSquareIndex [board.ColorNB][board.PieceNB]int
)

func init() {
	initIndexMap()
	initKingMaps()
	initKingBuckets()
	initPieceSquareIndex()
}

func initIndexMap() {
	diagonal := board.DiagonalMoverSquares()
	var compact [board.SquareNB]int
	n := 0
	for b := diagonal; !b.IsEmpty(); n++ {
		compact[b.PopLSB()] = n
	}

	for v := 0; v < indexMapVariants; v++ {
		mirror, black, diag := v&4 != 0, v&2 != 0, v&1 != 0
		for sq := board.Square(0); sq < board.NoSquare; sq++ {
			s := sq
			if black {
				s = s.FlipRank()
			}
			if mirror {
				s = s.MirrorFile()
			}
			if diag {
				IndexMap[v][sq] = compact[s]
			} else {
				IndexMap[v][sq] = int(s)
			}
		}
	}
}

func initKingMaps() {
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			KingMaps[board.NewSquare(3+col, row)] = row*3 + col
			KingMaps[board.NewSquare(3+col, board.RankNB-3+row)] = 9 * (row*3 + col)
		}
	}
}

// initKingBuckets assigns ids so that positions reflected across the e-file
// share a bucket. The own king is mirrored onto the left half; when it sits
// on the centre file the other king decides.
func initKingBuckets() {
	ids := make(map[[3]int]int)
	next := 0
	for ownRow := 0; ownRow < 3; ownRow++ {
		for ownCol := 0; ownCol < 2; ownCol++ {
			for otherCol := 0; otherCol < 3; otherCol++ {
				if ownCol == 1 && otherCol == 2 {
					continue
				}
				ids[[3]int{ownRow, ownCol, otherCol}] = next
				next++
			}
		}
	}

	for own := 0; own < 9; own++ {
		for other := 0; other < 9; other++ {
			row, col, otherCol := own/3, own%3, other%3
			mirror := col == 2 || (col == 1 && otherCol == 2)
			if mirror {
				col, otherCol = 2-col, 2-otherCol
			}
			bucket := ids[[3]int{row, col, otherCol}]
			if mirror {
				bucket |= MirrorFlag
			}
			KingBuckets[own+9*other] = bucket
		}
	}
}

func initPieceSquareIndex() {
	us := [board.PieceTypeNB]int{
		board.Rook:    PSWRook,
		board.Advisor: PSWAdvisor,
		board.Cannon:  PSWCannon,
		board.Pawn:    PSWPawn,
		board.Knight:  PSWKnight,
		board.Bishop:  PSWAdvisor,
		board.King:    PSWKing,
	}
	them := [board.PieceTypeNB]int{
		board.Rook:    PSBRook,
		board.Advisor: PSBAdvisor,
		board.Cannon:  PSBCannon,
		board.Pawn:    PSBPawn,
		board.Knight:  PSBKnight,
		board.Bishop:  PSBAdvisor,
		board.King:    PSBKing,
	}
	for pt := board.Rook; pt <= board.King; pt++ {
		PieceSquareIndex[board.White][board.NewPiece(pt, board.White)] = us[pt]
		PieceSquareIndex[board.White][board.NewPiece(pt, board.Black)] = them[pt]
		PieceSquareIndex[board.Black][board.NewPiece(pt, board.Black)] = us[pt]
		PieceSquareIndex[board.Black][board.NewPiece(pt, board.White)] = them[pt]
	}
}
