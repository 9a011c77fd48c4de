package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lukasn42/move-datastructure/pkg/intervals"
	"github.com/lukasn42/move-datastructure/pkg/mds"
)

// ErrVerifyFailed is returned when a structure or its sidecar is invalid.
var ErrVerifyFailed = errors.New("verification failed")

func newVerifyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <structure>...",
		Short: "Check stored structures and their metadata",
		Long: `Re-check every structural invariant of the given structures, the
balance threshold included when it is known, and compare each against
its metadata sidecar if one exists.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.wrap(nil, func(cmd *cobra.Command, args []string) error {
			failed := 0

			for _, path := range args {
				err := verifyPath(a, cmd.OutOrStdout(), path)
				if err != nil {
					a.logger().Debug("verification failed", "path", path, "error", err)

					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d structures", ErrVerifyFailed, failed, len(args))
			}

			return nil
		}),
	}
}

func verifyPath(a *app, w io.Writer, path string) error {
	src, err := a.openSource(path)
	if err == nil {
		if src.wide() {
			err = verifySource[uint64](w, src)
		} else {
			err = verifySource[uint32](w, src)
		}
	}

	if err != nil {
		color.New(color.FgRed).Fprintf(w, "%s: FAILED\n", path)
		color.New(color.FgRed).Fprintf(w, "  - %v\n", err)

		return err
	}

	return nil
}

func verifySource[T intervals.Position](w io.Writer, src *source) error {
	s, format, err := mds.ReadFile[T](src.path)
	if err != nil {
		return err
	}

	threshold := src.threshold(s.A())

	err = s.VerifyThreshold(threshold)
	if err != nil {
		return err
	}

	if src.meta != nil {
		err = mds.Describes(src.meta, s)
		if err != nil {
			return err
		}

		if src.meta.Format != format {
			return fmt.Errorf("%w: sidecar says %s, file is %s", mds.ErrInvalidMetadata, src.meta.Format, format)
		}
	}

	color.New(color.FgGreen).Fprintf(w, "%s: OK\n", src.path)
	fmt.Fprintf(w, "  %s, %d-byte positions, n=%d, k=%d, threshold %s\n",
		format, src.width, s.N(), s.K(), thresholdLabel(threshold))

	if src.meta == nil {
		color.New(color.FgYellow).Fprintf(w, "  no metadata sidecar\n")
	}

	return nil
}
