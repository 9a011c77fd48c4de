package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/lukasn42/move-datastructure/pkg/intervals"
	"github.com/lukasn42/move-datastructure/pkg/mds"
	"github.com/lukasn42/move-datastructure/pkg/persist"
)

// Stats output formats.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

const (
	defaultSamples = 100_000
	chartWidth     = "900px"
	chartHeight    = "420px"
)

// ErrUnknownOutput is returned for an unsupported --output value.
var ErrUnknownOutput = errors.New("unknown output format")

type statsCommand struct {
	app *app

	output  string
	samples int
	plot    string
}

// statsReport is what stats prints in the structured formats.
type statsReport struct {
	Path     string        `json:"path"               yaml:"path"`
	Format   string        `json:"format"             yaml:"format"`
	Width    int           `json:"width"              yaml:"width"`
	Bytes    int64         `json:"bytes"              yaml:"bytes"`
	N        uint64        `json:"n"                  yaml:"n"`
	K        int           `json:"k"                  yaml:"k"`
	A        int           `json:"a"                  yaml:"a"`
	Profile  mds.Profile   `json:"profile"            yaml:"profile"`
	Metadata *mds.Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func newStatsCommand(a *app) *cobra.Command {
	sc := &statsCommand{app: a}

	cmd := &cobra.Command{
		Use:   "stats <structure>",
		Short: "Report interval and move statistics",
		Long: `Report the size of a structure, how many input starts its output
intervals hold and how many intervals sampled moves skip.`,
		Args: cobra.ExactArgs(1),
		RunE: a.wrap(nil, sc.run),
	}

	cmd.Flags().StringVarP(&sc.output, "output", "o", outputTable, "Output format: table, json, yaml")
	cmd.Flags().IntVar(&sc.samples, "samples", defaultSamples, "Positions to move for the step histogram (0 = all)")
	cmd.Flags().StringVar(&sc.plot, "plot", "", "Also write HTML histograms to this path")

	return cmd
}

func (sc *statsCommand) run(cmd *cobra.Command, args []string) error {
	if sc.output != outputTable && sc.output != outputJSON && sc.output != outputYAML {
		return fmt.Errorf("%w: %q", ErrUnknownOutput, sc.output)
	}

	src, err := sc.app.openSource(args[0])
	if err != nil {
		return err
	}

	var report *statsReport
	if src.wide() {
		report, err = collectStats[uint64](src, sc.samples)
	} else {
		report, err = collectStats[uint32](src, sc.samples)
	}

	if err != nil {
		return err
	}

	if sc.plot != "" {
		err = writePlot(sc.plot, report)
		if err != nil {
			return err
		}
	}

	return printStats(cmd.OutOrStdout(), sc.output, report)
}

func collectStats[T intervals.Position](src *source, samples int) (*statsReport, error) {
	s, format, err := mds.ReadFile[T](src.path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(src.path)
	if err != nil {
		return nil, fmt.Errorf("stat structure: %w", err)
	}

	return &statsReport{
		Path:     src.path,
		Format:   format,
		Width:    src.width,
		Bytes:    info.Size(),
		N:        uint64(s.N()),
		K:        s.K(),
		A:        src.threshold(s.A()),
		Profile:  s.Profile(samples),
		Metadata: src.meta,
	}, nil
}

func printStats(w io.Writer, output string, report *statsReport) error {
	switch output {
	case outputJSON:
		return persist.NewJSONCodec().Encode(w, report)
	case outputYAML:
		return persist.NewYAMLCodec().Encode(w, report)
	}

	p := report.Profile

	summary := table.NewWriter()
	summary.SetStyle(table.StyleLight)
	summary.SetTitle("%s", report.Path)
	summary.AppendRows([]table.Row{
		{"format", report.Format},
		{"width", fmt.Sprintf("%d bytes", report.Width)},
		{"size", humanize.IBytes(uint64(report.Bytes))},
		{"positions", humanize.Comma(int64(report.N))},
		{"intervals", humanize.Comma(int64(report.K))},
		{"threshold", thresholdLabel(report.A)},
		{"mean length", strconv.FormatFloat(p.MeanLength, 'f', 2, 64)},
		{"max in-degree", p.MaxInDegree},
		{"sampled moves", humanize.Comma(int64(p.Sampled))},
		{"max steps", p.MaxSteps},
		{"mean steps", strconv.FormatFloat(p.MeanSteps, 'f', 3, 64)},
	})

	if report.Metadata != nil {
		summary.AppendSeparator()
		summary.AppendRows([]table.Row{
			{"build id", report.Metadata.ID},
			{"created", humanize.Time(report.Metadata.Created)},
			{"threads", report.Metadata.Threads},
			{"input intervals", humanize.Comma(int64(report.Metadata.InputK))},
		})
	}

	_, err := fmt.Fprintln(w, summary.Render())
	if err != nil {
		return err
	}

	hist := table.NewWriter()
	hist.SetStyle(table.StyleLight)
	hist.AppendHeader(table.Row{"value", "intervals with in-degree", "moves with steps"})

	for v := range max(len(p.InDegree), len(p.Steps)) {
		hist.AppendRow(table.Row{v, bucket(p.InDegree, v), bucket(p.Steps, v)})
	}

	hist.AppendFooter(table.Row{"total", humanize.Comma(int64(report.K)), humanize.Comma(int64(p.Sampled))})

	_, err = fmt.Fprintln(w, hist.Render())

	return err
}

func thresholdLabel(a int) string {
	if a == 0 {
		return "unknown"
	}

	return strconv.Itoa(a)
}

func bucket(hist []int, v int) int {
	if v < len(hist) {
		return hist[v]
	}

	return 0
}

func writePlot(path string, report *statsReport) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot: %w", err)
	}

	defer func() {
		closeErr := file.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("close plot: %w", closeErr)
		}
	}()

	page := components.NewPage()
	page.PageTitle = "Move datastructure " + report.Path
	page.AddCharts(
		histogramChart("Input starts per output interval", "in-degree", "intervals", report.Profile.InDegree),
		histogramChart("Intervals skipped per move", "steps", "moves", report.Profile.Steps),
	)

	err = page.Render(file)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}

func histogramChart(title, xName, yName string, hist []int) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: xName}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)

	labels := make([]string, len(hist))
	data := make([]opts.BarData, len(hist))

	for v, count := range hist {
		labels[v] = strconv.Itoa(v)
		data[v] = opts.BarData{Value: count}
	}

	bar.SetXAxis(labels).AddSeries(yName, data)

	return bar
}
