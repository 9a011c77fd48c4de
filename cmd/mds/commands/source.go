package commands

import (
	"github.com/lukasn42/move-datastructure/pkg/mds"
)

// source is a stored structure together with its optional sidecar.
type source struct {
	path  string
	width int
	meta  *mds.Metadata
}

// openSource resolves the integer width of the structure at path: the
// compressed header records it, raw files fall back to the sidecar and
// then to the configured width.
func (a *app) openSource(path string) (*source, error) {
	meta, _, err := mds.FindMetadata(path)
	if err != nil {
		return nil, err
	}

	width, err := mds.StoredWidth(path)
	if err != nil {
		return nil, err
	}

	switch {
	case width != 0:
	case meta != nil:
		width = meta.Width
	default:
		width = a.cfg.Build.Width
	}

	a.logger().Debug("opened structure", "path", path, "width", width, "metadata", meta != nil)

	return &source{path: path, width: width, meta: meta}, nil
}

// wide reports whether the structure uses 64-bit positions.
func (src *source) wide() bool {
	return src.width == 8
}

// threshold returns the balancing threshold to check against: the one the
// structure carries, else the sidecar's.
func (src *source) threshold(stored int) int {
	if stored == 0 && src.meta != nil {
		return src.meta.A
	}

	return stored
}
