package mds

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/lukasn42/move-datastructure/internal/colcodec"
	"github.com/lukasn42/move-datastructure/pkg/intervals"
	"github.com/lukasn42/move-datastructure/pkg/safeconv"
)

const (
	// CompressedMagic opens every compressed move datastructure.
	CompressedMagic = "MDSZ"
	// compressedVersion is the current compressed layout.
	compressedVersion byte = 1
	// maxThreshold rejects thresholds no build could have used.
	maxThreshold = 1 << 20
)

// EncodeCompressed writes s as a header followed by three LZ4 columns: the
// delta-coded input starts, the output starts and the index. The header
// holds the magic, the layout version, the integer width, and n, k and the
// threshold as uvarints.
func EncodeCompressed[T intervals.Position](w io.Writer, s *Structure[T]) error {
	k := s.K()

	starts := make([]T, k)
	outputs := make([]T, k)

	for x := range k {
		starts[x] = s.dPair[x].P
		outputs[x] = s.dPair[x].Q
	}

	colcodec.DeltaEncode(starts)

	header := make([]byte, 0, len(CompressedMagic)+2+3*binary.MaxVarintLen64)
	header = append(header, CompressedMagic...)
	header = append(header, compressedVersion, byte(colcodec.Width[T]()))
	header = binary.AppendUvarint(header, uint64(s.n))
	header = binary.AppendUvarint(header, uint64(k))
	header = binary.AppendUvarint(header, uint64(max(s.a, 0)))

	_, err := w.Write(header)
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, col := range []struct {
		name string
		data []T
	}{
		{"input starts", starts},
		{"output starts", outputs},
		{"index", s.dIndex},
	} {
		err = writeColumn(w, col.data)
		if err != nil {
			return fmt.Errorf("write %s: %w", col.name, err)
		}
	}

	return nil
}

// DecodeCompressed reads a structure written by EncodeCompressed and
// verifies it, including the balance invariant when the threshold is set.
func DecodeCompressed[T intervals.Position](r io.Reader) (*Structure[T], error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(CompressedMagic)+2)

	_, err := io.ReadFull(br, magic)
	if err != nil {
		return nil, truncated(err)
	}

	if !bytes.Equal(magic[:len(CompressedMagic)], []byte(CompressedMagic)) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}

	if version := magic[len(CompressedMagic)]; version != compressedVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, version)
	}

	if width := int(magic[len(CompressedMagic)+1]); width != colcodec.Width[T]() {
		return nil, fmt.Errorf("%w: stored %d bytes, reading %d", ErrWidthMismatch, width, colcodec.Width[T]())
	}

	n, k, a, err := readShape[T](br)
	if err != nil {
		return nil, err
	}

	starts, err := readColumn[T](br, k)
	if err != nil {
		return nil, fmt.Errorf("read input starts: %w", err)
	}

	colcodec.DeltaDecode(starts)

	outputs, err := readColumn[T](br, k)
	if err != nil {
		return nil, fmt.Errorf("read output starts: %w", err)
	}

	index, err := readColumn[T](br, k)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	if _, peekErr := br.Peek(1); !errors.Is(peekErr, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data", ErrCorrupt)
	}

	s := newStructure(n, k, a)
	for x := range k {
		s.dPair[x] = intervals.Pair[T]{P: starts[x], Q: outputs[x]}
	}

	s.dPair[k] = intervals.Pair[T]{P: n, Q: n}
	copy(s.dIndex, index)

	err = s.Verify()
	if err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}

	return s, nil
}

func readShape[T intervals.Position](br *bufio.Reader) (n T, k, a int, err error) {
	rawN, err := readUvarint(br)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("read n: %w", err)
	}

	rawK, err := readUvarint(br)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("read k: %w", err)
	}

	rawA, err := readUvarint(br)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("read threshold: %w", err)
	}

	switch {
	case !safeconv.FitsIn[T](rawN):
		return 0, 0, 0, fmt.Errorf("%w: n=%d", ErrCorrupt, rawN)
	case rawK == 0 || rawK > rawN || rawK >= uint64(safeconv.MaxInt):
		return 0, 0, 0, fmt.Errorf("%w: k=%d n=%d", ErrCorrupt, rawK, rawN)
	case rawA > uint64(maxThreshold):
		return 0, 0, 0, fmt.Errorf("%w: threshold %d", ErrCorrupt, rawA)
	}

	return T(rawN), int(rawK), int(rawA), nil
}

func writeColumn[T intervals.Position](w io.Writer, data []T) error {
	block, err := colcodec.Compress(data)
	if err != nil {
		return err
	}

	_, err = w.Write(binary.AppendUvarint(nil, uint64(len(block))))
	if err != nil {
		return err
	}

	_, err = w.Write(block)

	return err
}

func readColumn[T intervals.Position](br *bufio.Reader, count int) ([]T, error) {
	size, err := readUvarint(br)
	if err != nil {
		return nil, err
	}

	if size == 0 || size >= uint64(safeconv.MaxInt) || !colcodec.MayHold[T](int(size), count) {
		return nil, fmt.Errorf("%w: %d byte block for %d values", ErrCorrupt, size, count)
	}

	var block bytes.Buffer

	_, err = io.CopyN(&block, br, int64(size))
	if err != nil {
		return nil, truncated(err)
	}

	data := make([]T, count)

	err = colcodec.Decompress(block.Bytes(), data)
	if err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}

	return data, nil
}

func readUvarint(br *bufio.Reader) (uint64, error) {
	v, err := binary.ReadUvarint(br)
	if err == nil {
		return v, nil
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, truncated(err)
	}

	return 0, errors.Join(ErrCorrupt, err)
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.Join(ErrTruncated, err)
	}

	return err
}
