package nnue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultEvalFile is the network name used when EvalFile is empty.
const DefaultEvalFile = "xiangqi-nn.nnue"

const tracerName = "github.com/hailam/xqeval/internal/nnue"

// NoNetwork is the active name before any network is loaded.
const NoNetwork = "None"

var (
	ErrNotCompressed = errors.New("not a compressed network")
	ErrNotLoaded     = errors.New("network not loaded")
)

var (
	zipMagic  = []byte("PK\x03\x04")
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Manager owns the active network. It is configured and initialized from a
// single goroutine; search threads only read Network() afterwards.
type Manager struct {
	// Dirs are tried in order; "" means the working directory.
	Dirs []string

	// Default is used when no EvalFile is configured.
	Default string

	// Exit terminates the process when Verify fails.
	Exit func(code int)

	out    io.Writer
	log    zerolog.Logger
	tracer trace.Tracer

	evalFile string
	active   string
	net      *Network
	digest   uint64
	loads    int
}

// NewManager creates a manager that writes protocol diagnostics to out.
func NewManager(out io.Writer, logger zerolog.Logger) *Manager {
	return &Manager{
		Dirs:    []string{"", BinaryDirectory()},
		Default: DefaultEvalFile,
		Exit:    os.Exit,
		out:     out,
		log:     logger.With().Str("component", "nnue").Logger(),
		tracer:  otel.Tracer(tracerName),
		active:  NoNetwork,
	}
}

// SetTracerProvider sends load spans to tp instead of the global provider.
func (m *Manager) SetTracerProvider(tp trace.TracerProvider) {
	m.tracer = tp.Tracer(tracerName)
}

// BinaryDirectory returns the directory holding the running executable,
// or "" if it cannot be determined.
func BinaryDirectory() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}

// SetEvalFile sets the configured network name. Empty selects the default.
func (m *Manager) SetEvalFile(name string) {
	m.evalFile = name
}

// EvalFile returns the configured network name with the default applied.
func (m *Manager) EvalFile() string {
	if m.evalFile == "" {
		return m.Default
	}
	return m.evalFile
}

// ActiveName returns the name of the loaded network, NoNetwork if none.
func (m *Manager) ActiveName() string {
	return m.active
}

// Network returns the loaded network, nil if none.
func (m *Manager) Network() *Network {
	return m.net
}

// Digest returns the xxhash of the loaded network file.
func (m *Manager) Digest() uint64 {
	return m.digest
}

// Loads returns the number of successful loads.
func (m *Manager) Loads() int {
	return m.loads
}

// Init loads the configured network unless it is already active. Failures
// are logged and surface through Verify.
func (m *Manager) Init(ctx context.Context) {
	name := m.EvalFile()
	for _, dir := range m.Dirs {
		if m.active == name {
			return
		}
		path := name
		if dir != "" {
			if filepath.IsAbs(name) {
				continue
			}
			path = filepath.Join(dir, name)
		}

		net, digest, err := m.load(ctx, path)
		if err != nil {
			m.log.Debug().Err(err).Str("path", path).Msg("network not loaded")
			continue
		}
		m.net = net
		m.digest = digest
		m.active = name
		m.loads++
	}
}

// load reads path as a raw network, then through the decompression adapter.
func (m *Manager) load(ctx context.Context, path string) (*Network, uint64, error) {
	_, span := m.tracer.Start(ctx, "nnue.Manager.load",
		trace.WithAttributes(attribute.String("path", path)),
	)
	defer span.End()

	data, err := os.ReadFile(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, 0, err
	}

	net, err := ReadNetwork(bytes.NewReader(data))
	if err != nil {
		raw, derr := decompress(data)
		if derr != nil {
			err = errors.Join(err, derr)
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid network")
			return nil, 0, err
		}
		if net, err = ReadNetwork(bytes.NewReader(raw)); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid compressed network")
			return nil, 0, err
		}
	}

	digest := xxhash.Sum64(data)
	span.SetAttributes(
		attribute.Int("bytes", len(data)),
		attribute.Int("half_dimensions", net.HalfDimensions),
	)
	m.log.Info().
		Str("path", path).
		Str("size", humanize.Bytes(uint64(len(data)))).
		Str("digest", fmt.Sprintf("%016x", digest)).
		Int("half_dims", net.HalfDimensions).
		Str("description", net.Description).
		Msg("network loaded")
	return net, digest, nil
}

// decompress unpacks a zip archive (first entry) or a zstd frame.
func decompress(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("open zip: %w", err)
		}
		if len(zr.File) == 0 {
			return nil, fmt.Errorf("empty zip archive")
		}
		rc, err := zr.File[0].Open()
		if err != nil {
			return nil, fmt.Errorf("open zip entry: %w", err)
		}
		defer rc.Close()
		return io.ReadAll(rc)

	case bytes.HasPrefix(data, zstdMagic):
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	}
	return nil, ErrNotCompressed
}

// Verify checks that the configured network is the active one. On mismatch
// it prints the failure and terminates through Exit.
func (m *Manager) Verify() error {
	name := m.EvalFile()
	if m.active != name {
		m.infoString("ERROR: Network evaluation parameters compatible with the engine must be available.")
		m.infoString("ERROR: The network file " + name + " was not loaded successfully.")
		m.infoString("ERROR: The UCI option EvalFile might need to specify the full path, including the directory name, to the network file.")
		m.infoString("ERROR: The engine will be terminated now.")
		m.log.Error().Str("eval_file", name).Msg("network verification failed")
		m.Exit(1)
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	m.infoString("NNUE evaluation using " + name + " enabled")
	return nil
}

// infoString writes one protocol diagnostic line and flushes it.
func (m *Manager) infoString(msg string) {
	fmt.Fprintf(m.out, "info string %s\n", msg)
	if f, ok := m.out.(interface{ Flush() error }); ok {
		f.Flush()
	}
}
