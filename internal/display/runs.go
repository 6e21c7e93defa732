package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ramonehamilton/deckstats/internal/models"
	dbmodels "github.com/ramonehamilton/deckstats/internal/storage/models"
)

// DisplayRuns writes one line per recorded summary run.
func DisplayRuns(w io.Writer, runs []*dbmodels.SummaryRun) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No summary runs recorded.")
		return err
	}

	fmt.Fprintf(w, "%-36s %-8s %-19s %6s %6s  %s\n", "ID", "Dataset", "Created", "Decks", "Types", "Output")
	fmt.Fprintf(w, "%s\n", strings.Repeat("─", 100))
	for _, run := range runs {
		if _, err := fmt.Fprintf(w, "%-36s %-8s %-19s %6d %6d  %s\n",
			run.ID,
			run.Dataset,
			run.CreatedAt.Local().Format(time.DateTime),
			run.DeckCount,
			len(run.CardTypes),
			run.OutputPath,
		); err != nil {
			return err
		}
	}
	return nil
}

// DisplayRun writes a run header followed by its first limit rows.
// limit <= 0 shows every row.
func DisplayRun(w io.Writer, run *dbmodels.SummaryRun, table *models.DeckSummaryTable, limit int) error {
	fmt.Fprintf(w, "\nRun %s\n", run.ID)
	fmt.Fprintf(w, "├─ Dataset: %s\n", run.Dataset)
	fmt.Fprintf(w, "├─ Created: %s\n", run.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "├─ Decks:   %d", run.DeckCount)
	if run.MaxDecks > 0 {
		fmt.Fprintf(w, " (max %d)", run.MaxDecks)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "├─ Types:   %s\n", strings.Join(run.CardTypes, ", "))
	if len(run.UnknownCards) > 0 {
		fmt.Fprintf(w, "├─ Unknown: %d cards\n", len(run.UnknownCards))
	}
	fmt.Fprintf(w, "└─ Output:  %s (%s)\n\n", run.OutputPath, run.OutputFormat)

	return DisplaySummary(w, table, limit)
}

// DisplaySummary writes summary rows as a fixed-width table.
func DisplaySummary(w io.Writer, table *models.DeckSummaryTable, limit int) error {
	rows := table.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	fmt.Fprintf(w, "%-20s %4s %4s %6s %6s %-8s", "Deck", "W", "L", "Curve", "Bombs", "Colors")
	for _, t := range table.Types {
		fmt.Fprintf(w, " %8s", truncateString(strings.ToLower(t), 8))
	}
	fmt.Fprintln(w)

	for _, r := range rows {
		fmt.Fprintf(w, "%-20s %4d %4d %6.2f %6.2f %-8s",
			truncateString(r.DeckID, 20),
			r.Wins,
			r.Losses,
			r.AvgManaCurve,
			r.BombDensity,
			strings.Join(r.ColorIdentity, ""),
		)
		for _, t := range table.Types {
			fmt.Fprintf(w, " %8d", r.TypeCounts[t])
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	if hidden := table.Len() - len(rows); hidden > 0 {
		_, err := fmt.Fprintf(w, "... %d more decks\n", hidden)
		return err
	}
	return nil
}
