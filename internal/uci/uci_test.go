package uci

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hailam/xqeval/internal/board"
	"github.com/hailam/xqeval/internal/nnue"
	"github.com/hailam/xqeval/internal/storage"
)

// writeMaterialNetwork stores a network that evaluates to the material
// balance and returns its directory.
func writeMaterialNetwork(t *testing.T) string {
	t.Helper()
	net := nnue.NewNetwork(16)
	net.Description = "material only"
	net.SetPieceValues()

	var buf bytes.Buffer
	if err := net.Write(&buf); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, nnue.DefaultEvalFile), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

type session struct {
	u        *UCI
	manager  *nnue.Manager
	out      *bytes.Buffer
	exitCode int
}

func newSession(t *testing.T, script string, dirs ...string) *session {
	t.Helper()
	s := &session{out: &bytes.Buffer{}, exitCode: -1}
	s.manager = nnue.NewManager(s.out, zerolog.Nop())
	s.manager.Dirs = dirs
	s.manager.Exit = func(code int) { s.exitCode = code }
	s.u = New(strings.NewReader(script), s.out, s.manager, zerolog.Nop())
	t.Cleanup(s.u.Close)
	return s
}

func TestUCIHandshake(t *testing.T) {
	s := newSession(t, "uci\nisready\nquit\n", writeMaterialNetwork(t))
	if err := s.u.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := s.out.String()
	for _, want := range []string{
		"id name xqeval\n",
		"option name EvalFile type string default xiangqi-nn.nnue\n",
		"option name ScaleBase type spin default 668 min 0 max 1336\n",
		"option name Rule60Divisor type spin default 120 min 1 max 240\n",
		"option name EvalCache type spin default 65536 min 0 max 16777216\n",
		"uciok\n",
		"readyok\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEvalCommand(t *testing.T) {
	s := newSession(t, "position startpos moves h2e2 h9g7\neval\nquit\n", writeMaterialNetwork(t))
	if err := s.u.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := s.out.String()
	for _, want := range []string{
		"info string NNUE evaluation using xiangqi-nn.nnue enabled\n",
		" NNUE derived piece values:\n",
		"NNUE evaluation        +0.00 (white side)\n",
		"Final evaluation       +0.00 (white side)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if s.u.Position().SideToMove != board.White || s.u.Position().GamePly != 2 {
		t.Errorf("unexpected position after moves:\n%s", s.u.Position())
	}
}

func TestEvalWithoutNetwork(t *testing.T) {
	s := newSession(t, "eval\nd\n", t.TempDir())
	err := s.u.Run(context.Background())
	if !errors.Is(err, nnue.ErrNotLoaded) {
		t.Fatalf("Run error = %v, want ErrNotLoaded", err)
	}
	if s.exitCode != 1 {
		t.Errorf("exit code = %d, want 1", s.exitCode)
	}

	out := s.out.String()
	if n := strings.Count(out, "info string ERROR: "); n != 4 {
		t.Errorf("got %d error lines, want 4:\n%s", n, out)
	}
	if strings.Contains(out, "Fen: ") {
		t.Error("commands after the failed check were processed")
	}
}

func TestPositionCommand(t *testing.T) {
	const fen = "4k4/9/9/9/9/9/9/9/4R4/3K5 b - - 0 1"
	script := "position fen " + fen + "\n" +
		"position startpos moves h2e2 a0a5\n" +
		"d\n"
	s := newSession(t, script)
	if err := s.u.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := s.out.String()
	if !strings.Contains(out, "info string Invalid move: a0a5\n") {
		t.Errorf("illegal move not reported:\n%s", out)
	}
	// The rejected command leaves the previous position in place.
	if !strings.Contains(out, "Fen: "+fen+"\n") {
		t.Errorf("position changed by rejected command:\n%s", out)
	}
}

func TestOverfullFENKeepsEngineAlive(t *testing.T) {
	script := "position fen RRRRRRRRR/RRRRRRRRR/RRRRkRRRR/RRRRRRRRR/9/9/9/4K4/9/9 w - - 0 1\n" +
		"eval\nquit\n"
	s := newSession(t, script, writeMaterialNetwork(t))
	if err := s.u.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := s.out.String()
	if !strings.Contains(out, "info string Invalid FEN: ") {
		t.Errorf("overfull FEN accepted:\n%s", out)
	}
	if !strings.Contains(out, "NNUE evaluation        +0.00 (white side)\n") {
		t.Errorf("start position not evaluated:\n%s", out)
	}
	if s.u.Position().ToFEN() != board.StartFEN {
		t.Errorf("position = %s, want start position", s.u.Position().ToFEN())
	}
}

func TestSetOptionTunables(t *testing.T) {
	store, err := storage.NewMemoryStorage()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	script := "setoption name ScaleBase value 700\n" +
		"setoption name scalebase value 5000\n" +
		"setoption name Rule60Divisor value many\n" +
		"setoption name Hash value 16\n" +
		"setoption name TuningSet value sharp\n" +
		"setoption name OptimismComplexity value 300\n"
	s := newSession(t, script)
	if err := s.u.SetStorage(store); err != nil {
		t.Fatal(err)
	}
	if err := s.u.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	c := s.u.Coefficients()
	if c.ScaleBase != 700 || c.OptimismComplexity != 300 {
		t.Errorf("coefficients = %+v", c)
	}

	out := s.out.String()
	for _, want := range []string{
		"out of range",
		"info string Invalid value for Rule60Divisor: many\n",
		"No such option: Hash\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	def, err := store.LoadTuning(storage.DefaultTuningSet)
	if err != nil {
		t.Fatal(err)
	}
	if def.ScaleBase != 700 || def.OptimismComplexity == 300 {
		t.Errorf("default tuning set = %+v", def)
	}
	sharp, err := store.LoadTuning("sharp")
	if err != nil {
		t.Fatal(err)
	}
	if sharp != c {
		t.Errorf("sharp tuning set = %+v, want %+v", sharp, c)
	}

	settings, err := store.LoadSettings()
	if err != nil {
		t.Fatal(err)
	}
	if settings.TuningSet != "sharp" {
		t.Errorf("saved tuning set = %q", settings.TuningSet)
	}

	// A fresh session restores the selected set.
	next := newSession(t, "")
	if err := next.u.SetStorage(store); err != nil {
		t.Fatal(err)
	}
	if next.u.Coefficients() != c {
		t.Errorf("restored coefficients = %+v, want %+v", next.u.Coefficients(), c)
	}
}

func TestNetworkRecorded(t *testing.T) {
	store, err := storage.NewMemoryStorage()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	dir := writeMaterialNetwork(t)
	s := newSession(t, "setoption name EvalFile value "+nnue.DefaultEvalFile+"\nquit\n", dir)
	if err := s.u.SetStorage(store); err != nil {
		t.Fatal(err)
	}
	if err := s.u.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if s.manager.Loads() != 1 {
		t.Errorf("Loads = %d, want 1", s.manager.Loads())
	}
	rec, err := store.LoadNetworkRecord(s.manager.Digest())
	if err != nil || rec == nil {
		t.Fatalf("LoadNetworkRecord = %v, %v", rec, err)
	}
	if rec.Name != nnue.DefaultEvalFile || rec.HalfDims != 16 || rec.Description != "material only" || rec.LoadCount != 1 {
		t.Errorf("record = %+v", rec)
	}

	settings, err := store.LoadSettings()
	if err != nil {
		t.Fatal(err)
	}
	if settings.EvalFile != nnue.DefaultEvalFile {
		t.Errorf("saved eval file = %q", settings.EvalFile)
	}
}

func TestEvalCacheOption(t *testing.T) {
	store, err := storage.NewMemoryStorage()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	script := "setoption name EvalCache value 1024\n" +
		"setoption name EvalCache value -5\n" +
		"setoption name EvalCache value lots\n" +
		"position startpos\neval\nquit\n"
	s := newSession(t, script, writeMaterialNetwork(t))
	if err := s.u.SetStorage(store); err != nil {
		t.Fatal(err)
	}
	if s.u.CacheSize() != storage.DefaultCacheSize {
		t.Errorf("initial cache size = %d, want %d", s.u.CacheSize(), storage.DefaultCacheSize)
	}
	if err := s.u.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if s.u.CacheSize() != 1024 {
		t.Errorf("cache size = %d, want 1024", s.u.CacheSize())
	}
	out := s.out.String()
	for _, want := range []string{
		"info string Invalid value for EvalCache: -5\n",
		"info string Invalid value for EvalCache: lots\n",
		"Final evaluation       +0.00 (white side)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	settings, err := store.LoadSettings()
	if err != nil {
		t.Fatal(err)
	}
	if settings.CacheSize != 1024 {
		t.Errorf("saved cache size = %d, want 1024", settings.CacheSize)
	}

	next := newSession(t, "")
	if err := next.u.SetStorage(store); err != nil {
		t.Fatal(err)
	}
	if next.u.CacheSize() != 1024 {
		t.Errorf("restored cache size = %d, want 1024", next.u.CacheSize())
	}
	if err := next.u.SetCacheSize(0); err != nil || next.u.CacheSize() != 0 {
		t.Errorf("SetCacheSize(0) = %v, size %d", err, next.u.CacheSize())
	}
}
