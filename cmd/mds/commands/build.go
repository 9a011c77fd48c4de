package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lukasn42/move-datastructure/pkg/config"
	"github.com/lukasn42/move-datastructure/pkg/intervals"
	"github.com/lukasn42/move-datastructure/pkg/mds"
	"github.com/lukasn42/move-datastructure/pkg/observability"
	"github.com/lukasn42/move-datastructure/pkg/persist"
)

// Input kinds accepted by the build command.
const (
	inputPairs = "pairs"
	inputBWT   = "bwt"
)

const (
	metadataNone = "none"
	stdinPath    = "-"
)

var (
	// ErrUnknownInput is returned for an unsupported --from value.
	ErrUnknownInput = errors.New("unknown input kind")
	// ErrNoOutput is returned when build is run without an output path.
	ErrNoOutput = errors.New("no output path, use -o")
)

type buildCommand struct {
	app *app

	from   string
	output string

	a        int
	b        int
	threads  int
	width    int
	format   string
	metadata string
}

func newBuildCommand(a *app) *cobra.Command {
	bc := &buildCommand{app: a}

	cmd := &cobra.Command{
		Use:   "build <input>",
		Short: "Build a move datastructure",
		Long: `Build a balanced move datastructure and store it.

The input is either a pair listing (the first line holds n, every further
line one "p q" pair) or a BWT whose LF mapping is balanced. "-" reads stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: a.wrap(bc.overrides, bc.run),
	}

	cmd.Flags().StringVar(&bc.from, "from", inputPairs, "Input kind: pairs, bwt")
	cmd.Flags().StringVarP(&bc.output, "output", "o", "", "Path of the structure to write")
	cmd.Flags().IntVar(&bc.a, "a", config.DefaultA, "Balancing threshold a")
	cmd.Flags().IntVar(&bc.b, "b", config.DefaultB, "Cut position b")
	cmd.Flags().IntVar(&bc.threads, "threads", 0, "Parallel sections (default: GOMAXPROCS)")
	cmd.Flags().IntVar(&bc.width, "width", config.DefaultWidth, "Integer width in bytes: 4, 8")
	cmd.Flags().StringVar(&bc.format, "format", config.DefaultFormat, "Structure format: raw, compressed")
	cmd.Flags().StringVar(&bc.metadata, "metadata", config.DefaultMetadata, "Metadata sidecar: json, yaml, none")

	return cmd
}

func (bc *buildCommand) overrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("a") {
		cfg.Build.A = bc.a
	}

	if flags.Changed("b") {
		cfg.Build.B = bc.b
	}

	if flags.Changed("threads") {
		cfg.Build.Threads = bc.threads
	}

	if flags.Changed("width") {
		cfg.Build.Width = bc.width
	}

	if flags.Changed("format") {
		cfg.Build.Format = bc.format
	}

	if flags.Changed("metadata") {
		cfg.Build.Metadata = bc.metadata
	}
}

func (bc *buildCommand) run(cmd *cobra.Command, args []string) error {
	if bc.output == "" {
		return ErrNoOutput
	}

	if bc.from != inputPairs && bc.from != inputBWT {
		return fmt.Errorf("%w: %q", ErrUnknownInput, bc.from)
	}

	if bc.app.cfg.Build.Width == 8 {
		return buildStructure[uint64](cmd, bc, args[0])
	}

	return buildStructure[uint32](cmd, bc, args[0])
}

func buildStructure[T intervals.Position](cmd *cobra.Command, bc *buildCommand, input string) error {
	a := bc.app
	cfg := a.cfg.Build

	seq, err := readInput[T](cmd, input, bc.from)
	if err != nil {
		return err
	}

	opts := []mds.Option{
		mds.WithParams(cfg.A, cfg.B),
		mds.WithThreads(cfg.Threads),
		mds.WithLogger(a.logger()),
		mds.WithHooks(observability.NewRecordingHooks(a.logger(), a.metrics)),
	}

	if a.tracer() != nil {
		opts = append(opts, mds.WithTracer(a.tracer()))
	}

	if a.metrics != nil {
		opts = append(opts, mds.WithMetrics(a.metrics))
	}

	s, report, err := mds.Build(commandContext(cmd), seq, opts...)
	if err != nil {
		return err
	}

	err = mds.WriteFile(bc.output, s, cfg.Format)
	if err != nil {
		return err
	}

	if cfg.Metadata != metadataNone {
		err = saveMetadata(bc.output, cfg.Metadata, mds.NewMetadata(report, cfg.Format))
		if err != nil {
			return err
		}
	}

	if a.quiet {
		return nil
	}

	return printBuildSummary(cmd.OutOrStdout(), bc.output, report)
}

func readInput[T intervals.Position](cmd *cobra.Command, input, from string) (intervals.Sequence[T], error) {
	var r io.Reader = cmd.InOrStdin()

	if input != stdinPath {
		file, err := os.Open(input)
		if err != nil {
			return intervals.Sequence[T]{}, fmt.Errorf("open input: %w", err)
		}
		defer file.Close()

		r = file
	}

	if from == inputPairs {
		seq, err := intervals.ReadPairs[T](r)
		if err != nil {
			return intervals.Sequence[T]{}, fmt.Errorf("read pairs: %w", err)
		}

		return seq, nil
	}

	bwt, err := io.ReadAll(r)
	if err != nil {
		return intervals.Sequence[T]{}, fmt.Errorf("read bwt: %w", err)
	}

	seq, err := intervals.FromBWT[T](bwt)
	if err != nil {
		return intervals.Sequence[T]{}, fmt.Errorf("derive lf intervals: %w", err)
	}

	return seq, nil
}

func saveMetadata(path, format string, m *mds.Metadata) error {
	codec, err := persist.CodecFor(format)
	if err != nil {
		return err
	}

	err = mds.SaveMetadata(path, codec, m)
	if err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}

	return nil
}

func printBuildSummary(w io.Writer, path string, report *mds.Report) error {
	size := "?"

	info, err := os.Stat(path)
	if err == nil {
		size = humanize.IBytes(uint64(info.Size()))
	}

	_, err = fmt.Fprintf(w, "%s: %s positions, %s intervals from %s, (%d,%d), %s in %s\n",
		path,
		humanize.Comma(int64(report.N)),
		humanize.Comma(int64(report.K)),
		humanize.Comma(int64(report.InputK)),
		report.A, report.B,
		size,
		report.Duration.Round(time.Microsecond),
	)

	return err
}
