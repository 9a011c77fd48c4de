package mds

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lukasn42/move-datastructure/pkg/intervals"
)

// Read loads a structure in either format and reports which one it was.
// Compressed input is recognized by its magic; anything else is read raw.
func Read[T intervals.Position](r io.Reader) (*Structure[T], string, error) {
	br := bufio.NewReader(r)

	head, err := br.Peek(len(CompressedMagic))
	if err == nil && string(head) == CompressedMagic {
		s, decodeErr := DecodeCompressed[T](br)

		return s, FormatCompressed, decodeErr
	}

	s, err := ReadStructure[T](br)

	return s, FormatRaw, err
}

// Write stores s in format.
func Write[T intervals.Position](w io.Writer, s *Structure[T], format string) error {
	switch format {
	case FormatRaw:
		_, err := s.WriteTo(w)

		return err
	case FormatCompressed:
		return EncodeCompressed(w, s)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ReadFile loads the structure stored at path.
func ReadFile[T intervals.Position](path string) (*Structure[T], string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open structure: %w", err)
	}
	defer file.Close()

	s, format, err := Read[T](file)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}

	return s, format, nil
}

// WriteFile stores s at path in format.
func WriteFile[T intervals.Position](path string, s *Structure[T], format string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create structure: %w", err)
	}

	defer func() {
		closeErr := file.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("close structure: %w", closeErr)
		}
	}()

	bw := bufio.NewWriter(file)

	err = Write(bw, s, format)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	err = bw.Flush()
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// StoredWidth returns the integer width recorded in the compressed
// structure at path, or zero for a raw structure, which does not record it.
func StoredWidth(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open structure: %w", err)
	}
	defer file.Close()

	head := make([]byte, len(CompressedMagic)+2)

	_, err = io.ReadFull(file, head)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("read structure header: %w", err)
	}

	if string(head[:len(CompressedMagic)]) != CompressedMagic {
		return 0, nil
	}

	return int(head[len(CompressedMagic)+1]), nil
}
