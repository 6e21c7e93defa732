package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deckstats/internal/config"
	"github.com/ramonehamilton/deckstats/internal/dataset"
	"github.com/ramonehamilton/deckstats/internal/export"
	"github.com/ramonehamilton/deckstats/internal/pipeline"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <set>",
	Short: "Compute one summary row per deck",
	Long: `Load a dataset's card metadata and game data, compute a summary row
per deck and write the table to a file.

Card metadata comes from the in-memory cache, the dataset's cards.csv, the
local archive or Scryfall, in that order. Game data is read from the
converted columnar copy when present and not older than games.csv,
otherwise from games.csv.

With --watch the summary is recomputed every time cards.csv or games.csv
changes, until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

var summarizeFlags struct {
	maxDecks  int
	workers   int
	format    string
	out       string
	outDir    string
	overwrite bool
	report    bool
	noPersist bool
	watch     bool
	debounce  time.Duration
	stats     bool
}

func init() {
	f := summarizeCmd.Flags()
	f.IntVarP(&summarizeFlags.maxDecks, "max-decks", "m", 0, "summarize at most N decks, in first-appearance order (default from config)")
	f.IntVarP(&summarizeFlags.workers, "workers", "w", 0, "decks summarized in parallel (default from config)")
	f.StringVarP(&summarizeFlags.format, "format", "f", "", "output format: csv, json, columnar, columnar-snappy, parquet (default from config)")
	f.StringVarP(&summarizeFlags.out, "out", "o", "", "output file (default <output dir>/<set>_summary.<ext>)")
	f.StringVar(&summarizeFlags.outDir, "out-dir", "", "output directory (overrides output.dir)")
	f.BoolVar(&summarizeFlags.overwrite, "overwrite", false, "replace an existing output file")
	f.BoolVar(&summarizeFlags.report, "report", false, "also write an HTML chart report")
	f.BoolVar(&summarizeFlags.noPersist, "no-persist", false, "do not record the run in the database")
	f.BoolVar(&summarizeFlags.watch, "watch", false, "recompute whenever the dataset's CSV files change")
	f.DurationVar(&summarizeFlags.debounce, "debounce", 500*time.Millisecond, "quiet period before a watched change triggers a run")
	f.BoolVar(&summarizeFlags.stats, "stats", false, "print stage timings when done")

	rootCmd.AddCommand(summarizeCmd)
}

// runRequest merges summarize flags over the output config.
func runRequest(cmd *cobra.Command, cfg *config.Config, id string) (pipeline.RunRequest, error) {
	out := cfg.Output
	flags := cmd.Flags()

	if flags.Changed("max-decks") {
		out.MaxDecks = summarizeFlags.maxDecks
	}
	if flags.Changed("workers") {
		out.Workers = summarizeFlags.workers
	}
	if flags.Changed("format") {
		out.Format = summarizeFlags.format
	}
	if flags.Changed("out-dir") {
		out.Dir = summarizeFlags.outDir
	}
	if flags.Changed("report") {
		out.Report = summarizeFlags.report
	}
	if summarizeFlags.noPersist {
		out.Persist = false
	}
	if out.MaxDecks < 0 {
		return pipeline.RunRequest{}, fmt.Errorf("--max-decks must not be negative")
	}

	format, err := export.ParseFormat(out.Format)
	if err != nil {
		return pipeline.RunRequest{}, err
	}

	req := pipeline.RunRequest{
		Dataset:        id,
		MaxDecks:       out.MaxDecks,
		Workers:        out.Workers,
		Format:         format,
		OutputPath:     summarizeFlags.out,
		OutputDir:      out.Dir,
		Overwrite:      summarizeFlags.overwrite,
		FloatPrecision: out.FloatPrecision,
		Persist:        out.Persist,
	}
	if out.Report {
		req.ReportPath = filepath.Join(out.Dir, dataset.NormalizeID(id)+"_report.html")
	}
	return req, nil
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := runRequest(cmd, a.cfg, args[0])
	if err != nil {
		return err
	}
	runner := a.runner()
	w := cmd.OutOrStdout()

	if summarizeFlags.watch {
		fmt.Fprintf(w, "Watching %s (Ctrl+C to stop)\n", a.store.Layout().Dir(args[0]))
		err := runner.Watch(ctx, req, a.store, summarizeFlags.debounce, func(res *pipeline.RunResult) {
			printResult(w, res)
		})
		if errors.Is(err, ctx.Err()) {
			return nil
		}
		return err
	}

	res, err := runner.Run(ctx, req)
	if err != nil {
		return err
	}
	printResult(w, res)
	if summarizeFlags.stats {
		return runner.Metrics().GetStats().WriteSummary(w)
	}
	return nil
}

func printResult(w io.Writer, res *pipeline.RunResult) {
	t := res.Table
	fmt.Fprintf(w, "%s: %d decks, %d card types -> %s\n", t.Dataset, t.Len(), len(t.Types), res.OutputPath)
	if n := len(t.UnknownCards); n > 0 {
		fmt.Fprintf(w, "  %d cards had no metadata and were left out of the statistics\n", n)
	}
	if res.ReportPath != "" {
		fmt.Fprintf(w, "  report: %s\n", res.ReportPath)
	}
	if res.Run != nil {
		fmt.Fprintf(w, "  run id: %s\n", res.Run.ID)
	}
}
