package features

import (
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/hailam/xqeval/internal/board"
)

var perspectives = [2]board.Color{board.White, board.Black}

func activeSet(pos *board.Position, perspective board.Color) []int {
	var l IndexList
	AppendActiveIndices(perspective, pos, &l)
	out := slices.Clone(l.Slice())
	slices.Sort(out)
	return out
}

func palaceSquares(c board.Color) []board.Square {
	var out []board.Square
	for sq := board.Square(0); sq < board.NoSquare; sq++ {
		if board.InPalace(c, sq) {
			out = append(out, sq)
		}
	}
	return out
}

func allPieces() []board.Piece {
	var out []board.Piece
	for _, c := range perspectives {
		for pt := board.Rook; pt <= board.King; pt++ {
			out = append(out, board.NewPiece(pt, c))
		}
	}
	return out
}

func TestTableSizes(t *testing.T) {
	if PSNB != 948 {
		t.Errorf("PSNB = %d, want 948", PSNB)
	}
	if Dimensions != 14220 {
		t.Errorf("Dimensions = %d, want 14220", Dimensions)
	}

	ids := make(map[int]bool)
	for _, v := range KingBuckets {
		ids[v&63] = true
	}
	if len(ids) != KingBucketNB {
		t.Errorf("distinct bucket ids = %d, want %d", len(ids), KingBucketNB)
	}
	for id := range ids {
		if id < 0 || id >= KingBucketNB {
			t.Errorf("bucket id %d out of range", id)
		}
	}
}

// Every (white king, black king, perspective) triple maps to the same bucket
// as the color-swapped position seen from the other side.
func TestKingBucketSymmetry(t *testing.T) {
	for _, wk := range palaceSquares(board.White) {
		for _, bk := range palaceSquares(board.Black) {
			for _, p := range perspectives {
				got := KingBucket(wk, bk, p)
				swapped := KingBucket(bk.FlipRank(), wk.FlipRank(), p.Other())
				if got != swapped {
					t.Errorf("KingBucket(%s, %s, %s) = %d, swapped = %d", wk, bk, p, got, swapped)
				}
			}
		}
	}
}

func TestKingBucketMirror(t *testing.T) {
	for _, wk := range palaceSquares(board.White) {
		for _, bk := range palaceSquares(board.Black) {
			for _, p := range perspectives {
				a := KingBucket(wk, bk, p)
				b := KingBucket(wk.MirrorFile(), bk.MirrorFile(), p)
				if a&63 != b&63 {
					t.Errorf("mirrored kings %s %s (%s): bucket ids %d and %d", wk, bk, p, a&63, b&63)
				}
			}
		}
	}
}

func TestMirroredPositionSharesFeatures(t *testing.T) {
	// Kings on d0 and f9
	pos, err := board.ParseFEN("rnba1kbnr/4a4/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/4A4/RNBK1ABNR w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	mirrored := pos.Mirrored()
	for _, p := range perspectives {
		if !slices.Equal(activeSet(pos, p), activeSet(mirrored, p)) {
			t.Errorf("perspective %s: mirrored position has different features", p)
		}
	}
}

// Within one bucket and perspective no two reachable placements share an
// index, and every index is in range.
func TestMakeIndexRangeAndInjective(t *testing.T) {
	for _, p := range perspectives {
		buckets := make(map[int]bool)
		for _, wk := range palaceSquares(board.White) {
			for _, bk := range palaceSquares(board.Black) {
				buckets[KingBucket(wk, bk, p)] = true
			}
		}

		for bucket := range buckets {
			seen := make(map[int]string)
			for _, pc := range allPieces() {
				for sq := board.Square(0); sq < board.NoSquare; sq++ {
					if !board.CanStand(pc, sq) {
						continue
					}
					idx := MakeIndex(p, sq, pc, bucket)
					if idx < 0 || idx >= Dimensions {
						t.Fatalf("MakeIndex(%s, %s, %s, %d) = %d out of range", p, sq, pc, bucket, idx)
					}
					key := pc.String() + sq.String()
					if prev, ok := seen[idx]; ok {
						t.Fatalf("bucket %d perspective %s: %s and %s share index %d", bucket, p, prev, key, idx)
					}
					seen[idx] = key
				}
			}
		}
	}
}

func TestActiveIndicesStartPosition(t *testing.T) {
	pos := board.NewPosition()
	for _, p := range perspectives {
		var l IndexList
		AppendActiveIndices(p, pos, &l)
		if l.Size != 32 {
			t.Errorf("perspective %s: %d active features, want 32", p, l.Size)
		}
	}

	// The start position is symmetric, so both perspectives agree.
	if !slices.Equal(activeSet(pos, board.White), activeSet(pos, board.Black)) {
		t.Error("start position features differ between perspectives")
	}
}

func applyDeltas(set map[int]int, removed, added *IndexList) {
	for _, idx := range removed.Slice() {
		set[idx]--
		if set[idx] == 0 {
			delete(set, idx)
		}
	}
	for _, idx := range added.Slice() {
		set[idx]++
	}
}

func sortedKeys(set map[int]int) []int {
	var out []int
	for idx, n := range set {
		for i := 0; i < n; i++ {
			out = append(out, idx)
		}
	}
	slices.Sort(out)
	return out
}

// Incremental updates over random games without king moves must reproduce
// full enumeration after every ply.
func TestIncrementalMatchesFull(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for game := 0; game < 40; game++ {
		pos := board.NewPosition()

		var sets [2]map[int]int
		for _, p := range perspectives {
			sets[p] = make(map[int]int)
			var empty, added IndexList
			AppendActiveIndices(p, pos, &added)
			applyDeltas(sets[p], &empty, &added)
		}

		for ply := 0; ply < 120; ply++ {
			var candidates []board.Move
			for _, m := range pos.GenerateLegalMoves().Slice() {
				if pos.PieceAt(m.From()).Type() != board.King {
					candidates = append(candidates, m)
				}
			}
			if len(candidates) == 0 {
				break
			}
			m := candidates[rng.IntN(len(candidates))]

			buckets := [2]int{PositionBucket(pos, board.White), PositionBucket(pos, board.Black)}
			undo := pos.MakeMove(m)
			if RequiresRefresh(&undo.Dirty) {
				t.Fatalf("game %d ply %d: non-king move %s requires refresh", game, ply, m)
			}

			for _, p := range perspectives {
				if got := PositionBucket(pos, p); got != buckets[p] {
					t.Fatalf("bucket changed on non-king move %s", m)
				}
				var removed, added IndexList
				AppendChangedIndices(p, buckets[p], &undo.Dirty, &removed, &added)
				applyDeltas(sets[p], &removed, &added)

				if want, got := activeSet(pos, p), sortedKeys(sets[p]); !slices.Equal(want, got) {
					t.Fatalf("game %d ply %d move %s perspective %s:\nincremental %v\nfull        %v",
						game, ply, m, p, got, want)
				}
			}
		}
	}
}

func TestKingMoveRequiresRefresh(t *testing.T) {
	pos := board.NewPosition()
	before := PositionBucket(pos, board.White)

	m, err := board.ParseMove("e0e1", pos)
	if err != nil {
		t.Fatal(err)
	}
	undo := pos.MakeMove(m)

	if !RequiresRefresh(&undo.Dirty) {
		t.Error("king move does not require refresh")
	}
	if after := PositionBucket(pos, board.White); after == before {
		t.Errorf("bucket unchanged after king move: %d", after)
	}
	if UpdateCost(&undo.Dirty) != 1 {
		t.Errorf("UpdateCost = %d, want 1", UpdateCost(&undo.Dirty))
	}
	if RefreshCost(pos) != 32 {
		t.Errorf("RefreshCost = %d, want 32", RefreshCost(pos))
	}

	pos.UnmakeMove(m, undo)
	capture, _ := board.ParseMove("h2h9", pos)
	undo = pos.MakeMove(capture)
	if RequiresRefresh(&undo.Dirty) {
		t.Error("cannon capture requires refresh")
	}
	if UpdateCost(&undo.Dirty) != 2 {
		t.Errorf("UpdateCost after capture = %d, want 2", UpdateCost(&undo.Dirty))
	}
}

func TestConcurrentEnumeration(t *testing.T) {
	pos := board.NewPosition()
	want := activeSet(pos, board.White)

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := pos.Copy()
			for j := 0; j < 100; j++ {
				if !slices.Equal(activeSet(local, board.White), want) {
					errs <- "mismatch"
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}
