package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lukasn42/move-datastructure/pkg/intervals"
	"github.com/lukasn42/move-datastructure/pkg/mds"
)

// ErrPositionOutOfRange is returned for a start position not below n.
var ErrPositionOutOfRange = errors.New("position out of range")

type moveCommand struct {
	app *app

	pos   uint64
	steps int
}

func newMoveCommand(a *app) *cobra.Command {
	mc := &moveCommand{app: a}

	cmd := &cobra.Command{
		Use:   "move <structure>",
		Short: "Follow a position through repeated moves",
		Long: `Apply the permutation a structure represents to a position, steps
times, printing the step, the position and its input interval per line.`,
		Args: cobra.ExactArgs(1),
		RunE: a.wrap(nil, mc.run),
	}

	cmd.Flags().Uint64Var(&mc.pos, "pos", 0, "Start position")
	cmd.Flags().IntVar(&mc.steps, "steps", 1, "Number of moves")

	return cmd
}

func (mc *moveCommand) run(cmd *cobra.Command, args []string) error {
	src, err := mc.app.openSource(args[0])
	if err != nil {
		return err
	}

	if src.wide() {
		return moveIn[uint64](cmd.OutOrStdout(), src, mc.pos, mc.steps)
	}

	return moveIn[uint32](cmd.OutOrStdout(), src, mc.pos, mc.steps)
}

func moveIn[T intervals.Position](w io.Writer, src *source, pos uint64, steps int) error {
	s, _, err := mds.ReadFile[T](src.path)
	if err != nil {
		return err
	}

	if pos >= uint64(s.N()) {
		return fmt.Errorf("%w: %d, n is %d", ErrPositionOutOfRange, pos, s.N())
	}

	i := T(pos)
	x := s.FindInterval(i)

	_, err = fmt.Fprintf(w, "%d\t%d\t%d\n", 0, i, x)
	if err != nil {
		return err
	}

	for step := 1; step <= steps; step++ {
		i, x = s.Move(i, x)

		_, err = fmt.Fprintf(w, "%d\t%d\t%d\n", step, i, x)
		if err != nil {
			return err
		}
	}

	return nil
}
