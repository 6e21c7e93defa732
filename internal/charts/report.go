package charts

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/components"

	"github.com/ramonehamilton/deckstats/internal/models"
	"github.com/ramonehamilton/deckstats/internal/tablefile"
)

// DefaultTopDecks is how many decks the win rate chart shows.
const DefaultTopDecks = 25

// ReportOptions configures a deck report.
type ReportOptions struct {
	Chart ChartConfig

	// TopDecks limits the win rate chart to the decks with the most games.
	// Zero selects DefaultTopDecks.
	TopDecks int

	// MinGames hides decks with fewer games from the scatter chart.
	MinGames int
}

// DefaultReportOptions returns options for a standard report.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{
		Chart:    DefaultChartConfig(),
		TopDecks: DefaultTopDecks,
		MinGames: 1,
	}
}

// WinRates returns (deck, win rate %) points for the decks with the most
// games, most played first. Ties keep table order.
func WinRates(table *models.DeckSummaryTable, top int) []DataPoint {
	idx := make([]int, len(table.Rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return table.Rows[idx[a]].Games() > table.Rows[idx[b]].Games()
	})
	if top > 0 && len(idx) > top {
		idx = idx[:top]
	}

	points := make([]DataPoint, len(idx))
	for i, j := range idx {
		row := table.Rows[j]
		points[i] = DataPoint{Label: row.DeckID, Value: row.WinRate() * 100}
	}
	return points
}

// CurveVsWinRate returns one point per deck with at least minGames games:
// x is the average mana curve and y the win rate in percent.
func CurveVsWinRate(table *models.DeckSummaryTable, minGames int) []Point {
	var points []Point
	for _, row := range table.Rows {
		if row.Games() < minGames || row.Games() == 0 {
			continue
		}
		points = append(points, Point{Name: row.DeckID, X: row.AvgManaCurve, Y: row.WinRate() * 100})
	}
	return points
}

// TypeTotals sums each vocabulary type's count across all decks, in
// vocabulary order.
func TypeTotals(table *models.DeckSummaryTable) []DataPoint {
	points := make([]DataPoint, len(table.Types))
	for i, typ := range table.Types {
		var total int
		for _, row := range table.Rows {
			total += row.TypeCounts[typ]
		}
		points[i] = DataPoint{Label: typ, Value: float64(total)}
	}
	return points
}

// ColorShares counts decks per color identity, e.g. "WU" or "Colorless",
// sorted by count descending then name.
func ColorShares(table *models.DeckSummaryTable) []DataPoint {
	counts := make(map[string]int)
	for _, row := range table.Rows {
		key := strings.Join(row.ColorIdentity, "")
		if key == "" {
			key = "Colorless"
		}
		counts[key]++
	}

	points := make([]DataPoint, 0, len(counts))
	for k, v := range counts {
		points = append(points, DataPoint{Label: k, Value: float64(v)})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Value != points[j].Value {
			return points[i].Value > points[j].Value
		}
		return points[i].Label < points[j].Label
	})
	return points
}

// RenderDeckReport writes an HTML page with the win rate, curve, type and
// color charts for a summary table.
func RenderDeckReport(w io.Writer, table *models.DeckSummaryTable, opts ReportOptions) error {
	if table == nil {
		return fmt.Errorf("no table to chart")
	}
	top := opts.TopDecks
	if top <= 0 {
		top = DefaultTopDecks
	}
	dataset := strings.ToUpper(table.Dataset)

	winCfg := opts.Chart
	winCfg.Title = fmt.Sprintf("%s win rate by deck", dataset)
	winCfg.Subtitle = fmt.Sprintf("Top %d decks by games played", top)
	winCfg.YAxisLabel = "Win %"

	curveCfg := opts.Chart
	curveCfg.Title = "Average mana curve vs win rate"
	curveCfg.XAxisLabel = "Avg mana value"
	curveCfg.YAxisLabel = "Win %"

	typeCfg := opts.Chart
	typeCfg.Title = "Card types across all decks"
	typeCfg.YAxisLabel = "Cards"

	colorCfg := opts.Chart
	colorCfg.Title = "Decks by color identity"
	colorCfg.YAxisLabel = "Decks"

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s deck report", dataset)
	page.AddCharts(
		NewBarChart("Win rate", WinRates(table, top), winCfg),
		NewScatterChart("Decks", CurveVsWinRate(table, opts.MinGames), curveCfg),
		NewBarChart("Cards", TypeTotals(table), typeCfg),
		NewBarChart("Decks", ColorShares(table), colorCfg),
	)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// WriteDeckReport renders the report to path atomically.
func WriteDeckReport(path string, table *models.DeckSummaryTable, opts ReportOptions) error {
	return RenderToFile(path, func(w io.Writer) error {
		return RenderDeckReport(w, table, opts)
	})
}

// StageDeckReport renders the report into a temporary file next to path
// without replacing path. The caller must Commit or Discard the result.
func StageDeckReport(path string, table *models.DeckSummaryTable, opts ReportOptions) (*tablefile.Staged, error) {
	return tablefile.Stage(path, func(w io.Writer) error {
		return RenderDeckReport(w, table, opts)
	})
}
