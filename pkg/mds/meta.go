package mds

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/lukasn42/move-datastructure/pkg/balance"
	"github.com/lukasn42/move-datastructure/pkg/intervals"
	"github.com/lukasn42/move-datastructure/pkg/persist"
	"github.com/lukasn42/move-datastructure/pkg/version"
)

// Structure file formats.
const (
	FormatRaw        = "raw"
	FormatCompressed = "compressed"
)

// metadataSuffix is appended to a structure path, before the codec
// extension, to name its sidecar.
const metadataSuffix = ".meta"

// ErrInvalidMetadata is returned when a sidecar fails schema validation or
// does not describe the structure it accompanies.
var ErrInvalidMetadata = errors.New("invalid metadata")

//go:embed metadata.schema.json
var metadataSchema []byte

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(metadataSchema))
})

// Metadata describes a saved structure and the build that produced it.
type Metadata struct {
	ID           string        `json:"id"            yaml:"id"`
	Version      string        `json:"version"       yaml:"version"`
	Width        int           `json:"width"         yaml:"width"`
	Format       string        `json:"format"        yaml:"format"`
	N            uint64        `json:"n"             yaml:"n"`
	K            int           `json:"k"             yaml:"k"`
	InputK       int           `json:"input_k"       yaml:"input_k"`
	A            int           `json:"a"             yaml:"a"`
	B            int           `json:"b"             yaml:"b"`
	Threads      int           `json:"threads"       yaml:"threads"`
	BuildSeconds float64       `json:"build_seconds" yaml:"build_seconds"`
	Stats        balance.Stats `json:"stats"         yaml:"stats"`
	Created      time.Time     `json:"created"       yaml:"created"`
}

// NewMetadata describes a structure built with report and saved in format.
func NewMetadata(report *Report, format string) *Metadata {
	return &Metadata{
		ID:           report.ID,
		Version:      version.Version,
		Width:        report.Width,
		Format:       format,
		N:            report.N,
		K:            report.K,
		InputK:       report.InputK,
		A:            report.A,
		B:            report.B,
		Threads:      report.Threads,
		BuildSeconds: report.Duration.Seconds(),
		Stats:        report.Stats,
		Created:      report.Started.UTC(),
	}
}

// Describes checks that the metadata belongs to s.
func Describes[T intervals.Position](m *Metadata, s *Structure[T]) error {
	switch {
	case m.N != uint64(s.N()):
		return fmt.Errorf("%w: n is %d, structure has %d", ErrInvalidMetadata, m.N, s.N())
	case m.K != s.K():
		return fmt.Errorf("%w: k is %d, structure has %d", ErrInvalidMetadata, m.K, s.K())
	}

	return nil
}

// ValidateMetadata checks a decoded sidecar document against the embedded
// schema.
func ValidateMetadata(doc any) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile metadata schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		msgs = append(msgs, verr.Field()+": "+verr.Description())
	}

	return fmt.Errorf("%w: %s", ErrInvalidMetadata, strings.Join(msgs, "; "))
}

// MetadataPath returns the sidecar path of the structure at path.
func MetadataPath(path string, codec persist.Codec) string {
	return path + metadataSuffix + codec.Extension()
}

func metadataPersister(path string, codec persist.Codec) (string, *persist.Persister[Metadata]) {
	return filepath.Dir(path),
		persist.NewPersister[Metadata](filepath.Base(path)+metadataSuffix, codec).WithValidator(ValidateMetadata)
}

// SaveMetadata writes m as the sidecar of the structure at path.
func SaveMetadata(path string, codec persist.Codec, m *Metadata) error {
	dir, p := metadataPersister(path, codec)

	return p.Save(dir, m)
}

// LoadMetadata reads and validates the sidecar of the structure at path.
func LoadMetadata(path string, codec persist.Codec) (*Metadata, error) {
	dir, p := metadataPersister(path, codec)

	return p.Load(dir)
}

// FindMetadata loads the first sidecar of the structure at path, trying
// JSON before YAML. It returns nil without error when there is none.
func FindMetadata(path string) (*Metadata, persist.Codec, error) {
	for _, codec := range []persist.Codec{persist.NewJSONCodec(), persist.NewYAMLCodec()} {
		_, err := os.Stat(MetadataPath(path, codec))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}

		m, err := LoadMetadata(path, codec)
		if err != nil {
			return nil, nil, err
		}

		return m, codec, nil
	}

	return nil, nil, nil
}
