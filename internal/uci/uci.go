package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/hailam/xqeval/internal/board"
	"github.com/hailam/xqeval/internal/eval"
	"github.com/hailam/xqeval/internal/nnue"
	"github.com/hailam/xqeval/internal/storage"
)

// maxCacheSize bounds the EvalCache option, in entries.
const maxCacheSize = 1 << 24

// UCI implements the line protocol around the evaluator.
type UCI struct {
	in  io.Reader
	out io.Writer
	log zerolog.Logger

	manager   *nnue.Manager
	store     *storage.Storage
	cache     *eval.Cache
	cacheSize int64

	coeffs    eval.Coefficients
	tuningSet string

	position *board.Position

	// Evaluators for the active network, rebuilt when it changes
	net       *nnue.Network
	nnueEval  *nnue.Evaluator
	evaluator *eval.Evaluator
}

// New creates a protocol handler reading commands from in and writing
// responses to out. out should be the writer the manager reports to.
func New(in io.Reader, out io.Writer, manager *nnue.Manager, logger zerolog.Logger) *UCI {
	return &UCI{
		in:        in,
		out:       out,
		log:       logger.With().Str("component", "uci").Logger(),
		manager:   manager,
		coeffs:    eval.DefaultCoefficients(),
		tuningSet: storage.DefaultTuningSet,
		position:  board.NewPosition(),
	}
}

// SetStorage attaches persistent settings and restores the saved network
// name and tuning set.
func (u *UCI) SetStorage(s *storage.Storage) error {
	u.store = s

	settings, err := s.LoadSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if settings.EvalFile != "" {
		u.manager.SetEvalFile(settings.EvalFile)
	}
	if err := u.SetCacheSize(settings.CacheSize); err != nil {
		return err
	}
	if settings.TuningSet != "" {
		c, err := s.LoadTuning(settings.TuningSet)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			u.log.Debug().Str("tuning_set", settings.TuningSet).Msg("tuning set not stored, using defaults")
		case err != nil:
			return err
		default:
			u.coeffs = c
		}
		u.tuningSet = settings.TuningSet
	}
	return nil
}

// SetCoefficients replaces the blend coefficients.
func (u *UCI) SetCoefficients(c eval.Coefficients) error {
	if err := c.Validate(); err != nil {
		return err
	}
	u.coeffs = c
	u.clearCache()
	return nil
}

// Coefficients returns the current blend coefficients.
func (u *UCI) Coefficients() eval.Coefficients {
	return u.coeffs
}

// SetCacheSize replaces the raw-output cache with one of n entries.
// Zero disables caching.
func (u *UCI) SetCacheSize(n int64) error {
	if n < 0 || n > maxCacheSize {
		return fmt.Errorf("cache size %d not in [0, %d]", n, maxCacheSize)
	}
	var cache *eval.Cache
	if n > 0 {
		var err error
		if cache, err = eval.NewCache(n); err != nil {
			return err
		}
	}
	if u.cache != nil {
		u.cache.Close()
	}
	u.cache = cache
	u.cacheSize = n
	u.evaluator = nil
	return nil
}

// CacheSize returns the cache size in entries, 0 if caching is off.
func (u *UCI) CacheSize() int64 {
	return u.cacheSize
}

// Close releases the cache.
func (u *UCI) Close() {
	if u.cache != nil {
		u.cache.Close()
		u.cache = nil
	}
}

// Position returns the current position.
func (u *UCI) Position() *board.Position {
	return u.position
}

// Run loads the configured network and serves commands until quit or end
// of input. It returns an error only when the network check fails.
func (u *UCI) Run(ctx context.Context) error {
	u.initNetwork(ctx)

	scanner := bufio.NewScanner(u.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			fmt.Fprintln(u.out, "readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "setoption":
			u.handleSetOption(ctx, args)
		case "eval":
			if err := u.handleEval(); err != nil {
				return err
			}
		case "quit":
			return nil
		// Debug commands
		case "d":
			fmt.Fprint(u.out, u.position.String())
		case "perft":
			u.handlePerft(args)
		default:
			fmt.Fprintf(u.out, "Unknown command: '%s'.\n", line)
		}
	}
	return scanner.Err()
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	fmt.Fprintln(u.out, "id name xqeval")
	fmt.Fprintln(u.out, "id author the xqeval developers")
	fmt.Fprintln(u.out)
	fmt.Fprintf(u.out, "option name EvalFile type string default %s\n", u.manager.Default)
	fmt.Fprintf(u.out, "option name TuningSet type string default %s\n", storage.DefaultTuningSet)
	fmt.Fprintf(u.out, "option name EvalCache type spin default %d min 0 max %d\n", storage.DefaultCacheSize, maxCacheSize)
	for _, t := range eval.Tunables {
		fmt.Fprintf(u.out, "option name %s type spin default %d min %d max %d\n", t.Name, t.Default, t.Min, t.Max)
	}
	fmt.Fprintln(u.out, "uciok")
}

// handleNewGame resets the position and per-game evaluation state.
func (u *UCI) handleNewGame() {
	u.position = board.NewPosition()
	u.clearCache()
	if u.evaluator != nil {
		u.evaluator.State = eval.ThreadState{}
	}
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves h2e2 h9g7
//   - position fen <fen>
//   - position fen <fen> moves h2e2
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	fenEnd, moveStart := len(args), len(args)
	for i, arg := range args {
		if arg == "moves" {
			fenEnd, moveStart = i, i+1
			break
		}
	}

	var pos *board.Position
	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		var err error
		pos, err = board.ParseFEN(strings.Join(args[1:fenEnd], " "))
		if err != nil {
			fmt.Fprintf(u.out, "info string Invalid FEN: %v\n", err)
			return
		}
	default:
		return
	}

	for _, moveStr := range args[moveStart:] {
		m, err := board.ParseMove(moveStr, pos)
		if err != nil || !pos.GenerateLegalMoves().Contains(m) {
			fmt.Fprintf(u.out, "info string Invalid move: %s\n", moveStr)
			return
		}
		pos.MakeMove(m)
	}

	u.position = pos
	if u.nnueEval != nil {
		u.nnueEval.Reset()
	}
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(ctx context.Context, args []string) {
	// Format: setoption name <name> value <value>
	var name, value string
	readingName := false
	readingValue := false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName = true
			readingValue = false
		case "value":
			readingName = false
			readingValue = true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += arg
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	switch strings.ToLower(name) {
	case "evalfile":
		u.manager.SetEvalFile(value)
		u.initNetwork(ctx)
		u.saveSettings()
	case "tuningset":
		u.selectTuningSet(value)
	case "evalcache":
		n, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			err = u.SetCacheSize(n)
		}
		if err != nil {
			fmt.Fprintf(u.out, "info string Invalid value for EvalCache: %s\n", value)
			return
		}
		u.saveSettings()
	default:
		u.setTunable(name, value)
	}
}

// setTunable updates one blend coefficient by its option name.
func (u *UCI) setTunable(name, value string) {
	for _, t := range eval.Tunables {
		if !strings.EqualFold(t.Name, name) {
			continue
		}
		v, err := strconv.Atoi(value)
		if err != nil {
			fmt.Fprintf(u.out, "info string Invalid value for %s: %s\n", t.Name, value)
			return
		}
		if err := u.coeffs.Set(t.Name, v); err != nil {
			fmt.Fprintf(u.out, "info string %v\n", err)
			return
		}
		u.clearCache()
		u.saveTuning()
		return
	}
	fmt.Fprintf(u.out, "No such option: %s\n", name)
}

// selectTuningSet switches to a stored coefficient set. An unknown name
// starts a new set from the current coefficients.
func (u *UCI) selectTuningSet(name string) {
	if name == "" {
		name = storage.DefaultTuningSet
	}
	u.tuningSet = name
	if u.store == nil {
		return
	}

	c, err := u.store.LoadTuning(name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		u.saveTuning()
	case err != nil:
		fmt.Fprintf(u.out, "info string Failed to load tuning set %s: %v\n", name, err)
		return
	default:
		u.coeffs = c
		u.clearCache()
	}
	u.saveSettings()
}

// handleEval checks the network and prints the evaluation breakdown of the
// current position.
func (u *UCI) handleEval() error {
	if err := u.manager.Verify(); err != nil {
		return err
	}
	fmt.Fprintln(u.out, u.currentEvaluator().Trace(u.position))
	return nil
}

// handlePerft runs a perft test.
func (u *UCI) handlePerft(args []string) {
	depth := 3
	if len(args) > 0 {
		depth, _ = strconv.Atoi(args[0])
	}

	start := time.Now()
	nodes := board.Perft(u.position, depth)
	elapsed := time.Since(start)

	fmt.Fprintf(u.out, "Nodes: %d\n", nodes)
	fmt.Fprintf(u.out, "Time: %v\n", elapsed)
	if elapsed > 0 {
		nps := float64(nodes) / elapsed.Seconds()
		fmt.Fprintf(u.out, "NPS: %s\n", humanize.Comma(int64(nps)))
	}
}

// initNetwork asks the manager to load the configured network and records
// a newly activated one.
func (u *UCI) initNetwork(ctx context.Context) {
	u.manager.Init(ctx)

	net := u.manager.Network()
	if net == nil || net == u.net {
		return
	}
	u.net = net
	u.nnueEval = nil
	u.evaluator = nil
	u.clearCache()

	if u.store != nil {
		if err := u.store.RecordNetwork(u.manager.ActiveName(), u.manager.Digest(), net.HalfDimensions, net.Description); err != nil {
			u.log.Warn().Err(err).Msg("failed to record network")
		}
	}
}

// currentEvaluator returns the evaluator for the active network.
func (u *UCI) currentEvaluator() *eval.Evaluator {
	if u.nnueEval == nil {
		u.nnueEval = nnue.NewEvaluator(u.net)
	}
	if u.evaluator == nil {
		u.evaluator = eval.NewEvaluator(u.nnueEval, &u.coeffs, u.cache)
	}
	return u.evaluator
}

func (u *UCI) clearCache() {
	if u.cache != nil {
		u.cache.Clear()
	}
}

func (u *UCI) saveSettings() {
	if u.store == nil {
		return
	}
	settings, err := u.store.LoadSettings()
	if err != nil {
		u.log.Warn().Err(err).Msg("failed to load settings")
		return
	}
	settings.EvalFile = u.manager.EvalFile()
	settings.TuningSet = u.tuningSet
	settings.CacheSize = u.cacheSize
	if err := u.store.SaveSettings(settings); err != nil {
		u.log.Warn().Err(err).Msg("failed to save settings")
	}
}

func (u *UCI) saveTuning() {
	if u.store == nil {
		return
	}
	if err := u.store.SaveTuning(u.tuningSet, &u.coeffs); err != nil {
		u.log.Warn().Err(err).Str("tuning_set", u.tuningSet).Msg("failed to save tuning set")
	}
}
