package main

import (
	"context"
	"flag"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/profile"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/hailam/xqeval/internal/eval"
	"github.com/hailam/xqeval/internal/nnue"
	"github.com/hailam/xqeval/internal/storage"
	"github.com/hailam/xqeval/internal/uci"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write a cpu profile to this directory")
	evalFile   = flag.String("evalfile", "", "network file, overrides the saved EvalFile")
	tuningFile = flag.String("tuning", "", "YAML file with blend coefficients")
	dbDir      = flag.String("db", "", "settings database directory (default: platform data dir)")
	noStore    = flag.Bool("nostore", false, "do not persist settings")
	cacheSize  = flag.Int64("cache", storage.DefaultCacheSize, "evaluation cache entries, 0 disables (default: the saved EvalCache)")
	traceFile  = flag.String("trace", "", "write network load spans to this file as JSON")
	verbose    = flag.Bool("v", false, "debug logging")
)

func main() {
	flag.Parse()

	// Logs go to stderr, stdout carries the protocol
	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(profilePath), profile.Quiet).Stop()
		logger.Info().Str("dir", profilePath).Msg("cpu profiling enabled")
	}

	if *traceFile != "" {
		shutdown, err := installTracing(*traceFile)
		if err != nil {
			logger.Fatal().Err(err).Str("file", *traceFile).Msg("could not start tracing")
		}
		defer shutdown()
	}

	manager := nnue.NewManager(os.Stdout, logger)
	dirs, err := storage.NetworkDirs()
	if err != nil {
		logger.Warn().Err(err).Msg("network data directory unavailable")
	}
	manager.Dirs = append(manager.Dirs, dirs...)

	protocol := uci.New(os.Stdin, os.Stdout, manager, logger)
	defer protocol.Close()

	stored := false
	if !*noStore {
		store, err := openStorage()
		if err != nil {
			logger.Warn().Err(err).Msg("settings will not be persisted")
		} else {
			defer store.Close()
			stored = true
			if err := protocol.SetStorage(store); err != nil {
				logger.Warn().Err(err).Msg("could not restore settings")
			}
		}
	}

	if *tuningFile != "" {
		if err := loadTuning(protocol, *tuningFile); err != nil {
			logger.Fatal().Err(err).Str("file", *tuningFile).Msg("could not load tuning file")
		}
	}
	if *evalFile != "" {
		manager.SetEvalFile(*evalFile)
	}

	// The saved EvalCache wins unless -cache was given.
	if !stored || flagSet("cache") {
		if err := protocol.SetCacheSize(*cacheSize); err != nil {
			logger.Fatal().Err(err).Msg("could not create eval cache")
		}
	}
	logger.Debug().Int64("entries", protocol.CacheSize()).Msg("eval cache")

	if err := protocol.Run(context.Background()); err != nil {
		logger.Error().Err(err).Msg("engine stopped")
		os.Exit(1)
	}
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// installTracing makes a batching TracerProvider writing to path the global
// one. The returned func flushes it and closes the file.
func installTracing(path string) (func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		f.Close()
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)

	return func() {
		tp.Shutdown(context.Background())
		f.Close()
	}, nil
}

// openStorage opens the settings database from -db or the data directory.
func openStorage() (*storage.Storage, error) {
	if *dbDir == "" {
		return storage.NewStorage()
	}
	return storage.Open(badger.DefaultOptions(*dbDir))
}

// loadTuning applies a YAML coefficient file on top of the defaults.
func loadTuning(protocol *uci.UCI, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	c, err := eval.LoadCoefficients(f)
	if err != nil {
		return err
	}
	return protocol.SetCoefficients(c)
}
