package persist

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Validator checks a decoded document before it is loaded into its type.
// The document is the generic form the codec produces for `any`.
type Validator func(doc any) error

// Persister handles I/O for a specific state type using a Codec.
type Persister[T any] struct {
	basename  string
	codec     Codec
	validator Validator
}

// NewPersister creates a persister with the given basename and codec.
func NewPersister[T any](basename string, codec Codec) *Persister[T] {
	return &Persister[T]{
		basename: basename,
		codec:    codec,
	}
}

// WithValidator returns a copy of p that validates documents on Load.
func (p *Persister[T]) WithValidator(v Validator) *Persister[T] {
	cp := *p
	cp.validator = v

	return &cp
}

// Path returns the file the persister uses in dir.
func (p *Persister[T]) Path(dir string) string {
	return filepath.Join(dir, p.basename+p.codec.Extension())
}

// Save writes state to the given directory.
func (p *Persister[T]) Save(dir string, state *T) error {
	return SaveState(dir, p.basename, p.codec, state)
}

// Load restores state from the given directory.
func (p *Persister[T]) Load(dir string) (*T, error) {
	if p.validator == nil {
		var state T

		err := LoadState(dir, p.basename, p.codec, &state)
		if err != nil {
			return nil, err
		}

		return &state, nil
	}

	raw, err := os.ReadFile(p.Path(dir))
	if err != nil {
		return nil, fmt.Errorf("open state file: %w", err)
	}

	var doc any

	err = p.codec.Decode(bytes.NewReader(raw), &doc)
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}

	err = p.validator(doc)
	if err != nil {
		return nil, err
	}

	var state T

	err = p.codec.Decode(bytes.NewReader(raw), &state)
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}

	return &state, nil
}
