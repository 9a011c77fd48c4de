package mds

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/lukasn42/move-datastructure/internal/colcodec"
	"github.com/lukasn42/move-datastructure/pkg/intervals"
	"github.com/lukasn42/move-datastructure/pkg/safeconv"
)

// Serialization errors.
var (
	ErrTruncated     = errors.New("truncated move datastructure")
	ErrCorrupt       = errors.New("corrupt move datastructure")
	ErrWidthMismatch = errors.New("integer width mismatch")
	ErrUnknownFormat = errors.New("unknown structure format")
)

// ioChunkWords is the number of words buffered per write or read.
const ioChunkWords = 1 << 12

// WriteTo writes the structure in the raw layout
// [n][k][k+1 pairs (p, q)][k index entries], every word little-endian with
// the width of T.
func (s *Structure[T]) WriteTo(w io.Writer) (int64, error) {
	ww := newWordWriter[T](w)

	ww.put(s.n)
	ww.put(safeconv.MustIntTo[T](len(s.dIndex)))

	for _, pair := range s.dPair {
		ww.put(pair.P)
		ww.put(pair.Q)
	}

	for _, x := range s.dIndex {
		ww.put(x)
	}

	err := ww.flush()

	return ww.written, err
}

// ReadStructure reads a structure written by WriteTo. The stream must end
// after the structure. The result is verified; its threshold is unknown.
func ReadStructure[T intervals.Position](r io.Reader) (*Structure[T], error) {
	wr := newWordReader[T](r)

	n, err := wr.get()
	if err != nil {
		return nil, fmt.Errorf("read n: %w", err)
	}

	rawK, err := wr.get()
	if err != nil {
		return nil, fmt.Errorf("read k: %w", err)
	}

	if rawK == 0 || rawK > n || uint64(rawK) >= uint64(safeconv.MaxInt) {
		return nil, fmt.Errorf("%w: k=%d n=%d", ErrCorrupt, rawK, n)
	}

	k := safeconv.MustToInt(rawK)

	// Grow with the data actually read so a corrupt k cannot force a huge
	// allocation up front.
	s := &Structure[T]{
		n:      n,
		dPair:  make([]intervals.Pair[T], 0, min(k+1, ioChunkWords)),
		dIndex: make([]T, 0, min(k, ioChunkWords)),
	}

	for range k + 1 {
		var pair intervals.Pair[T]

		pair.P, err = wr.get()
		if err == nil {
			pair.Q, err = wr.get()
		}

		if err != nil {
			return nil, fmt.Errorf("read pairs: %w", err)
		}

		s.dPair = append(s.dPair, pair)
	}

	for range k {
		x, getErr := wr.get()
		if getErr != nil {
			return nil, fmt.Errorf("read index: %w", getErr)
		}

		s.dIndex = append(s.dIndex, x)
	}

	if !wr.atEOF() {
		return nil, fmt.Errorf("%w: trailing data", ErrCorrupt)
	}

	err = s.Verify()
	if err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}

	return s, nil
}

type wordWriter[T intervals.Position] struct {
	w       io.Writer
	buf     []byte
	width   int
	written int64
	err     error
}

func newWordWriter[T intervals.Position](w io.Writer) *wordWriter[T] {
	width := colcodec.Width[T]()

	return &wordWriter[T]{
		w:     w,
		buf:   make([]byte, 0, ioChunkWords*width),
		width: width,
	}
}

func (ww *wordWriter[T]) put(v T) {
	if ww.err != nil {
		return
	}

	if len(ww.buf)+ww.width > cap(ww.buf) {
		ww.err = ww.flush()
	}

	if ww.width == 4 {
		ww.buf = binary.LittleEndian.AppendUint32(ww.buf, uint32(v))
	} else {
		ww.buf = binary.LittleEndian.AppendUint64(ww.buf, uint64(v))
	}
}

func (ww *wordWriter[T]) flush() error {
	if ww.err != nil {
		return ww.err
	}

	written, err := ww.w.Write(ww.buf)
	ww.written += int64(written)
	ww.buf = ww.buf[:0]

	if err != nil {
		return fmt.Errorf("write move datastructure: %w", err)
	}

	return nil
}

type wordReader[T intervals.Position] struct {
	r     *bufio.Reader
	word  []byte
	width int
}

func newWordReader[T intervals.Position](r io.Reader) *wordReader[T] {
	width := colcodec.Width[T]()

	return &wordReader[T]{
		r:     bufio.NewReaderSize(r, ioChunkWords*width),
		word:  make([]byte, width),
		width: width,
	}
}

func (wr *wordReader[T]) get() (T, error) {
	_, err := io.ReadFull(wr.r, wr.word)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, errors.Join(ErrTruncated, err)
	}

	if err != nil {
		return 0, err
	}

	if wr.width == 4 {
		return T(binary.LittleEndian.Uint32(wr.word)), nil
	}

	return T(binary.LittleEndian.Uint64(wr.word)), nil
}

func (wr *wordReader[T]) atEOF() bool {
	_, err := wr.r.Peek(1)

	return errors.Is(err, io.EOF)
}
