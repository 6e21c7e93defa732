package dataset

import (
	"strconv"
	"strings"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
	"github.com/ramonehamilton/deckstats/internal/models"
	"github.com/ramonehamilton/deckstats/internal/tablefile"
)

// Frame metadata keys written with converted game tables.
const (
	metaDataset      = "dataset"
	metaDeckIDColumn = "deck_id_column"
	metaHasOutcome   = "has_outcome"
)

// GamesToFrame lays a game table out as columns: the deck identifier, the
// outcome (when present) and one uint8 deck_<card> column per card.
func GamesToFrame(games *models.GameTable) *tablefile.Frame {
	frame := tablefile.NewFrame()
	frame.Meta[metaDataset] = games.Dataset()
	frame.Meta[metaDeckIDColumn] = games.DeckIDColumn()
	frame.Meta[metaHasOutcome] = strconv.FormatBool(games.HasOutcome())

	frame.MustAdd(tablefile.StringColumn(games.DeckIDColumn(), games.DeckIDs()))
	if games.HasOutcome() {
		frame.MustAdd(tablefile.BoolColumn(models.OutcomeColumn, games.Outcomes()))
	}
	for _, name := range games.CardNames() {
		frame.MustAdd(tablefile.Uint8Column(models.DeckColumnPrefix+name, games.CardCounts(name)))
	}
	return frame
}

// GamesFromFrame rebuilds a game table from a frame produced by GamesToFrame.
func GamesFromFrame(frame *tablefile.Frame, dataset string) (*models.GameTable, error) {
	deckIDColumn := frame.Meta[metaDeckIDColumn]
	if deckIDColumn == "" {
		deckIDColumn = models.DefaultDeckIDColumn
	}

	ids, ok := frame.Column(deckIDColumn)
	if !ok {
		return nil, dataerr.MissingColumn("columnar game table", deckIDColumn)
	}
	if ids.Kind != tablefile.KindString {
		return nil, dataerr.Integrity(dataset, "column %q is %s, want string", deckIDColumn, ids.Kind)
	}

	var won []bool
	hasOutcome := false
	if col, ok := frame.Column(models.OutcomeColumn); ok {
		if col.Kind != tablefile.KindBool {
			return nil, dataerr.Integrity(dataset, "column %q is %s, want bool", models.OutcomeColumn, col.Kind)
		}
		won = col.Bools
		hasOutcome = true
	}

	var (
		names  []string
		counts [][]uint8
	)
	for _, col := range frame.Columns() {
		// The deck-id column may itself carry the deck_ prefix.
		if col.Name == deckIDColumn || !strings.HasPrefix(col.Name, models.DeckColumnPrefix) {
			continue
		}
		var c []uint8
		switch col.Kind {
		case tablefile.KindUint8:
			c = nonNil(col.Uint8s)
		case tablefile.KindInt64:
			// Parquet files written by other tools usually store counts as int64.
			c = make([]uint8, len(col.Int64s))
			for i, n := range col.Int64s {
				c[i] = models.ClampCount(int(n))
			}
		default:
			return nil, dataerr.Integrity(dataset, "column %q is %s, want uint8", col.Name, col.Kind)
		}
		names = append(names, strings.TrimPrefix(col.Name, models.DeckColumnPrefix))
		counts = append(counts, c)
	}

	deckIDs := ids.Strings
	if deckIDs == nil {
		deckIDs = []string{}
	}
	return models.NewGameTableFromColumns(dataset, deckIDColumn, hasOutcome, deckIDs, won, names, counts)
}

func nonNil(v []uint8) []uint8 {
	if v == nil {
		return []uint8{}
	}
	return v
}

// gameColumns returns the columns GamesFromFrame needs out of a columnar
// file's schema, so a projection read skips anything else stored there.
func gameColumns(info *tablefile.Info) []string {
	deckIDColumn := info.Meta[metaDeckIDColumn]
	if deckIDColumn == "" {
		deckIDColumn = models.DefaultDeckIDColumn
	}

	var cols []string
	for _, name := range info.Names {
		if name == deckIDColumn || name == models.OutcomeColumn || strings.HasPrefix(name, models.DeckColumnPrefix) {
			cols = append(cols, name)
		}
	}
	return cols
}
