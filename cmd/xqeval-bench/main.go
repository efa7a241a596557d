// Command xqeval-bench plays random games on several threads and evaluates
// every position, reporting throughput, score statistics and how often the
// accumulators were refreshed instead of updated.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/profile"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/hailam/xqeval/internal/board"
	"github.com/hailam/xqeval/internal/eval"
	"github.com/hailam/xqeval/internal/nnue"
)

var (
	threads    = flag.Int("threads", 4, "worker threads")
	games      = flag.Int("games", 64, "random games per thread")
	plies      = flag.Int("plies", 120, "maximum plies per game")
	seed       = flag.Uint64("seed", 1, "random seed")
	evalFile   = flag.String("evalfile", "", "network file (default: generate a random network)")
	halfDims   = flag.Int("halfdims", nnue.DefaultHalfDimensions, "hidden size of a generated network")
	writeNet   = flag.String("write", "", "save the network to this file, zstd-compressed if it ends in .zst")
	fenFile    = flag.String("fens", "", "file with one root FEN per line (default: start position)")
	tuningFile = flag.String("tuning", "", "YAML file with blend coefficients")
	cacheSize  = flag.Int64("cache", 0, "shared evaluation cache entries, 0 disables")
	cpuprofile = flag.String("cpuprofile", "", "write a cpu profile to this directory")
)

// result is one worker's tally.
type result struct {
	scores []float64
	stats  nnue.StackStats
}

func main() {
	flag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *cpuprofile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*cpuprofile), profile.Quiet).Stop()
	}

	if err := run(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("bench failed")
	}
}

func run(ctx context.Context) error {
	net, err := loadNetwork(ctx)
	if err != nil {
		return err
	}
	if *writeNet != "" {
		if err := saveNetwork(net, *writeNet); err != nil {
			return err
		}
	}

	coeffs := eval.DefaultCoefficients()
	if *tuningFile != "" {
		f, err := os.Open(*tuningFile)
		if err != nil {
			return err
		}
		coeffs, err = eval.LoadCoefficients(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", *tuningFile, err)
		}
	}

	roots, err := loadRoots()
	if err != nil {
		return err
	}

	var cache *eval.Cache
	if *cacheSize > 0 {
		if cache, err = eval.NewCache(*cacheSize); err != nil {
			return err
		}
		defer cache.Close()
	}

	log.Info().
		Int("threads", *threads).
		Int("games", *games).
		Int("half_dims", net.HalfDimensions).
		Int("roots", len(roots)).
		Msg("starting bench")

	var evals atomic.Int64
	results := make([]result, *threads)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for t := 0; t < *threads; t++ {
		g.Go(func() error {
			res, err := worker(ctx, t, net, &coeffs, cache, roots, &evals)
			results[t] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	var all []float64
	var stats nnue.StackStats
	for _, r := range results {
		all = append(all, r.scores...)
		stats.Refreshes += r.stats.Refreshes
		stats.Updates += r.stats.Updates
	}
	mean, std := stat.MeanStdDev(all, nil)

	n := evals.Load()
	fmt.Printf("Evaluations:   %s\n", humanize.Comma(n))
	fmt.Printf("Time:          %v\n", elapsed.Round(time.Millisecond))
	if elapsed > 0 {
		fmt.Printf("Evals/second:  %s\n", humanize.Comma(int64(float64(n)/elapsed.Seconds())))
	}
	fmt.Printf("Score mean:    %.1f\n", mean)
	fmt.Printf("Score stddev:  %.1f\n", std)
	fmt.Printf("Refreshes:     %s\n", humanize.Comma(int64(stats.Refreshes)))
	fmt.Printf("Updates:       %s\n", humanize.Comma(int64(stats.Updates)))
	return nil
}

// worker plays random games from the roots, evaluating after every move
// with the accumulator stack following the game.
func worker(ctx context.Context, id int, net *nnue.Network, coeffs *eval.Coefficients,
	cache *eval.Cache, roots []*board.Position, evals *atomic.Int64) (result, error) {

	rng := rand.New(rand.NewPCG(*seed, uint64(id)))
	netEval := nnue.NewEvaluator(net)
	evaluator := eval.NewEvaluator(netEval, coeffs, cache)

	var res result
	depth := min(*plies, nnue.MaxPly)

	for game := 0; game < *games; game++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		pos := roots[rng.IntN(len(roots))].Copy()
		netEval.Reset()
		evaluator.State = eval.ThreadState{}

		for ply := 0; ply < depth; ply++ {
			moves := pos.GenerateLegalMoves()
			if moves.Len() == 0 {
				break
			}
			m := moves.Get(rng.IntN(moves.Len()))
			undo := pos.MakeMove(m)
			netEval.Push(undo.Dirty)

			score := evaluator.Evaluate(pos, nil)
			res.scores = append(res.scores, float64(score))
			evals.Add(1)
		}
	}

	res.stats = netEval.Stats()
	log.Debug().Int("thread", id).Int("evals", len(res.scores)).Msg("worker done")
	return res, nil
}

// loadNetwork loads -evalfile through the manager, or generates a network.
func loadNetwork(ctx context.Context) (*nnue.Network, error) {
	if *evalFile == "" {
		net := nnue.NewNetwork(*halfDims)
		net.Description = fmt.Sprintf("random network, seed %d", *seed)
		net.InitRandom(int64(*seed))
		net.SetPieceValues()
		return net, nil
	}

	manager := nnue.NewManager(os.Stderr, log.Logger)
	manager.Exit = func(int) {}
	manager.SetEvalFile(*evalFile)
	manager.Init(ctx)
	if err := manager.Verify(); err != nil {
		return nil, err
	}
	return manager.Network(), nil
}

// saveNetwork writes net to path, compressing when the name asks for it.
func saveNetwork(net *nnue.Network, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".zst") {
		return net.Write(f)
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if err := net.Write(enc); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	log.Info().Str("file", path).Msg("network saved")
	return nil
}

// loadRoots reads the root positions, one FEN per line.
func loadRoots() ([]*board.Position, error) {
	if *fenFile == "" {
		return []*board.Position{board.NewPosition()}, nil
	}

	f, err := os.Open(*fenFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var roots []*board.Position
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		fen := strings.TrimSpace(scanner.Text())
		if fen == "" || strings.HasPrefix(fen, "#") {
			continue
		}
		pos, err := board.ParseFEN(fen)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", *fenFile, line, err)
		}
		roots = append(roots, pos)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("%s: no positions", *fenFile)
	}
	return roots, nil
}
