package nnue

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hailam/xqeval/internal/nnue/features"
)

// Weight file format constants
const (
	Version = 0x7AF32F20

	// MaxHalfDimensions guards allocations against corrupt headers
	MaxHalfDimensions = 4096

	maxDescriptionLen = 1 << 16
)

var (
	ErrVersionMismatch   = errors.New("unsupported network version")
	ErrHashMismatch      = errors.New("network hash mismatch")
	ErrDimensionMismatch = errors.New("network dimension mismatch")
	ErrTrailingData      = errors.New("unexpected data after network")
)

// FileHeader is the fixed part of the weight file header. The description
// string sits between Hash and HalfDimensions.
type FileHeader struct {
	Version        uint32
	Hash           uint32
	Description    string
	HalfDimensions uint32
	FeatureDims    uint32
}

// NetworkHash returns the hash stored for a network with the given hidden size.
func NetworkHash(halfDims int) uint32 {
	return features.HashValue ^ uint32(2*halfDims)
}

// readLE reads a value from a stream in little-endian order.
func readLE[T any](r io.Reader) (T, error) {
	var v T
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

// readLESlice fills out with little-endian values.
func readLESlice[T any](r io.Reader, out []T) error {
	return binary.Read(r, binary.LittleEndian, out)
}

// writeLE writes a value or slice in little-endian order.
func writeLE[T any](w io.Writer, v T) error {
	return binary.Write(w, binary.LittleEndian, v)
}

// ReadHeader reads and validates the file header.
func ReadHeader(r io.Reader) (FileHeader, error) {
	var h FileHeader
	var err error

	if h.Version, err = readLE[uint32](r); err != nil {
		return h, fmt.Errorf("failed to read version: %w", err)
	}
	if h.Version != Version {
		return h, fmt.Errorf("%w: expected %x, got %x", ErrVersionMismatch, Version, h.Version)
	}
	if h.Hash, err = readLE[uint32](r); err != nil {
		return h, fmt.Errorf("failed to read hash: %w", err)
	}

	size, err := readLE[uint32](r)
	if err != nil {
		return h, fmt.Errorf("failed to read description size: %w", err)
	}
	if size > maxDescriptionLen {
		return h, fmt.Errorf("description too long: %d bytes", size)
	}
	desc := make([]byte, size)
	if _, err := io.ReadFull(r, desc); err != nil {
		return h, fmt.Errorf("failed to read description: %w", err)
	}
	h.Description = string(desc)

	if h.HalfDimensions, err = readLE[uint32](r); err != nil {
		return h, fmt.Errorf("failed to read half dimensions: %w", err)
	}
	if h.FeatureDims, err = readLE[uint32](r); err != nil {
		return h, fmt.Errorf("failed to read feature dimensions: %w", err)
	}

	if h.HalfDimensions == 0 || h.HalfDimensions > MaxHalfDimensions {
		return h, fmt.Errorf("%w: half dimensions %d", ErrDimensionMismatch, h.HalfDimensions)
	}
	if h.FeatureDims != InputDimensions {
		return h, fmt.Errorf("%w: expected %d features, got %d", ErrDimensionMismatch, InputDimensions, h.FeatureDims)
	}
	if want := NetworkHash(int(h.HalfDimensions)); h.Hash != want {
		return h, fmt.Errorf("%w: expected %x, got %x", ErrHashMismatch, want, h.Hash)
	}
	return h, nil
}

// ReadNetwork loads a network from r. The stream must end right after the
// output layer.
// File format:
//   - Header: Version, Hash, description size + bytes, HalfDimensions, FeatureDims
//   - FTBias: HalfDimensions * int16
//   - FTWeights: FeatureDims * HalfDimensions * int16
//   - PSQTWeights: FeatureDims * int32
//   - OutputBias: int32
//   - OutputWeights: 2*HalfDimensions * int8
func ReadNetwork(r io.Reader) (*Network, error) {
	br := bufio.NewReader(r)

	h, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}

	n := NewNetwork(int(h.HalfDimensions))
	n.Description = h.Description

	if err := readLESlice(br, n.FTBias); err != nil {
		return nil, fmt.Errorf("failed to read transformer bias: %w", err)
	}
	if err := readLESlice(br, n.FTWeights); err != nil {
		return nil, fmt.Errorf("failed to read transformer weights: %w", err)
	}
	if err := readLESlice(br, n.PSQTWeights); err != nil {
		return nil, fmt.Errorf("failed to read PSQT weights: %w", err)
	}
	if n.OutputBias, err = readLE[int32](br); err != nil {
		return nil, fmt.Errorf("failed to read output bias: %w", err)
	}
	if err := readLESlice(br, n.OutputWeights); err != nil {
		return nil, fmt.Errorf("failed to read output weights: %w", err)
	}

	if _, err := br.ReadByte(); err != io.EOF {
		return nil, ErrTrailingData
	}
	return n, nil
}

// Write saves the network to w in the format ReadNetwork expects.
func (n *Network) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fields := []any{
		uint32(Version),
		NetworkHash(n.HalfDimensions),
		uint32(len(n.Description)),
		[]byte(n.Description),
		uint32(n.HalfDimensions),
		uint32(InputDimensions),
		n.FTBias,
		n.FTWeights,
		n.PSQTWeights,
		n.OutputBias,
		n.OutputWeights,
	}
	for _, f := range fields {
		if err := writeLE(bw, f); err != nil {
			return fmt.Errorf("failed to write network: %w", err)
		}
	}
	return bw.Flush()
}
