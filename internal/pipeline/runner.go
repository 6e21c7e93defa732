// Package pipeline runs a full summary: load a dataset, compute deck
// summaries, write them out and record the run.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/deckstats/internal/charts"
	"github.com/ramonehamilton/deckstats/internal/dataset"
	"github.com/ramonehamilton/deckstats/internal/deckstats"
	"github.com/ramonehamilton/deckstats/internal/export"
	"github.com/ramonehamilton/deckstats/internal/metrics"
	"github.com/ramonehamilton/deckstats/internal/models"
	"github.com/ramonehamilton/deckstats/internal/tablefile"
	dbmodels "github.com/ramonehamilton/deckstats/internal/storage/models"
)

// Loader resolves a dataset identifier to its tables.
type Loader interface {
	LoadCardMetadata(ctx context.Context, id string) (*models.CardTable, error)
	LoadGameTable(ctx context.Context, id string) (*models.GameTable, error)
}

// Recorder persists completed runs.
type Recorder interface {
	RecordRun(ctx context.Context, table *models.DeckSummaryTable, maxDecks int, outputPath, outputFormat string) (*dbmodels.SummaryRun, error)
}

// RunRequest describes one summary run.
type RunRequest struct {
	Dataset  string
	MaxDecks int
	Workers  int

	Format         export.Format
	OutputPath     string // empty: <OutputDir>/<dataset>_summary<ext>
	OutputDir      string
	Overwrite      bool
	FloatPrecision int

	// ReportPath, when set, also writes an HTML chart report there.
	ReportPath string

	// Persist records the run through the Recorder, if one is configured.
	Persist bool
}

// RunResult is what a successful run produced.
type RunResult struct {
	Table      *models.DeckSummaryTable
	OutputPath string
	ReportPath string
	Run        *dbmodels.SummaryRun
	Duration   time.Duration
}

// Runner executes summary runs.
type Runner struct {
	loader   Loader
	recorder Recorder
	metrics  *metrics.PipelineMetrics
}

// NewRunner creates a Runner. recorder may be nil; m may be nil, in which
// case a private collector is used.
func NewRunner(loader Loader, recorder Recorder, m *metrics.PipelineMetrics) *Runner {
	if m == nil {
		m = metrics.NewPipelineMetrics()
	}
	return &Runner{loader: loader, recorder: recorder, metrics: m}
}

// Metrics returns the runner's metrics collector.
func (r *Runner) Metrics() *metrics.PipelineMetrics {
	return r.metrics
}

// Compute loads the dataset and computes its summary table without writing
// anything.
func (r *Runner) Compute(ctx context.Context, id string, opts deckstats.Options) (*models.DeckSummaryTable, *models.GameTable, error) {
	var (
		cards *models.CardTable
		games *models.GameTable
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer r.metrics.Time(metrics.StageLoadCards)()
		var err error
		cards, err = r.loader.LoadCardMetadata(gctx, id)
		return err
	})
	g.Go(func() error {
		defer r.metrics.Time(metrics.StageLoadGames)()
		var err error
		games, err = r.loader.LoadGameTable(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	stop := r.metrics.Time(metrics.StageCompute)
	table, err := deckstats.ComputeDeckSummaries(games, cards, opts)
	stop()
	if err != nil {
		return nil, nil, err
	}
	table.Dataset = dataset.NormalizeID(id)
	return table, games, nil
}

// Run executes a full summary run. Output files are only moved into place
// after the summary computes, the report renders and the run is recorded, so
// a failed run leaves no new files behind.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if req.Dataset == "" {
		return nil, fmt.Errorf("dataset is required")
	}
	format := req.Format
	if format == "" {
		format = export.FormatCSV
	}

	start := time.Now()
	r.metrics.RunsStarted.Add(1)

	result, err := r.run(ctx, req, format)
	if err != nil {
		r.metrics.RunsFailed.Add(1)
		return nil, err
	}

	result.Duration = time.Since(start)
	r.metrics.Record(metrics.StageTotal, result.Duration)
	log.Printf("[Pipeline] %s: %d decks summarized in %v", result.Table.Dataset, result.Table.Len(), result.Duration.Round(time.Millisecond))
	return result, nil
}

func (r *Runner) run(ctx context.Context, req RunRequest, format export.Format) (*RunResult, error) {
	table, games, err := r.Compute(ctx, req.Dataset, deckstats.Options{MaxDecks: req.MaxDecks, Workers: req.Workers})
	if err != nil {
		return nil, err
	}
	r.metrics.GamesProcessed.Add(uint64(games.Len()))
	r.metrics.DecksSummarized.Add(uint64(table.Len()))
	r.metrics.UnknownCards.Add(uint64(len(table.UnknownCards)))

	result := &RunResult{Table: table, OutputPath: req.OutputPath}
	if result.OutputPath == "" {
		result.OutputPath = export.DefaultPath(req.OutputDir, table.Dataset, format)
	}

	// Every output is staged first. Nothing replaces a file on disk until the
	// report renders and the run is recorded.
	stop := r.metrics.Time(metrics.StageExport)
	summary, err := export.NewExporter(export.Options{
		Format:         format,
		FilePath:       result.OutputPath,
		Overwrite:      req.Overwrite,
		FloatPrecision: req.FloatPrecision,
	}).Stage(table)
	stop()
	if err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	defer summary.Discard()

	var report *tablefile.Staged
	if req.ReportPath != "" {
		stop := r.metrics.Time(metrics.StageReport)
		report, err = charts.StageDeckReport(req.ReportPath, table, charts.DefaultReportOptions())
		stop()
		if err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
		defer report.Discard()
	}

	if req.Persist && r.recorder != nil {
		stop := r.metrics.Time(metrics.StagePersist)
		run, err := r.recorder.RecordRun(ctx, table, req.MaxDecks, result.OutputPath, string(format))
		stop()
		if err != nil {
			return nil, err
		}
		result.Run = run
	}

	// A rename failing here leaves a recorded run without its file.
	if err := summary.Commit(); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	log.Printf("[Pipeline] Wrote %s", result.OutputPath)

	if report != nil {
		if err := report.Commit(); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
		result.ReportPath = req.ReportPath
		log.Printf("[Pipeline] Wrote report %s", req.ReportPath)
	}

	return result, nil
}
