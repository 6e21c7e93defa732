package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
	"github.com/ramonehamilton/deckstats/internal/models"
	"github.com/ramonehamilton/deckstats/internal/tablefile"
)

// Frame metadata keys.
const (
	metaDataset      = "dataset"
	metaTypes        = "types"
	metaUnknownCards = "unknown_cards"
)

// SummaryFrame converts a summary table into a frame whose columns follow
// the table's output header.
func SummaryFrame(t *models.DeckSummaryTable) (*tablefile.Frame, error) {
	n := len(t.Rows)
	var (
		deckIDs = make([]string, n)
		wins    = make([]int64, n)
		losses  = make([]int64, n)
		curve   = make([]float64, n)
		bombs   = make([]float64, n)
		colors  = make([][]string, n)
		counts  = make([][]int64, len(t.Types))
	)
	for j := range counts {
		counts[j] = make([]int64, n)
	}

	for i, row := range t.Rows {
		deckIDs[i] = row.DeckID
		wins[i] = int64(row.Wins)
		losses[i] = int64(row.Losses)
		curve[i] = row.AvgManaCurve
		bombs[i] = row.BombDensity
		colors[i] = row.ColorIdentity
		for j, typ := range t.Types {
			counts[j][i] = int64(row.TypeCounts[typ])
		}
	}

	frame := tablefile.NewFrame()
	frame.Meta[metaDataset] = t.Dataset
	types, err := json.Marshal(nonNil(t.Types))
	if err != nil {
		return nil, err
	}
	frame.Meta[metaTypes] = string(types)
	if len(t.UnknownCards) > 0 {
		unknown, err := json.Marshal(t.UnknownCards)
		if err != nil {
			return nil, err
		}
		frame.Meta[metaUnknownCards] = string(unknown)
	}

	cols := []*tablefile.Column{
		tablefile.StringColumn("deck_id", deckIDs),
		tablefile.Int64Column("wins", wins),
		tablefile.Int64Column("losses", losses),
		tablefile.Float64Column("avg_mana_curve", curve),
		tablefile.Float64Column("bomb_density", bombs),
		tablefile.StringListColumn("color_identity", colors),
	}
	for j, typ := range t.Types {
		cols = append(cols, tablefile.Int64Column(models.TypeColumn(typ), counts[j]))
	}
	for _, c := range cols {
		if err := frame.Add(c); err != nil {
			return nil, dataerr.Integrity(t.Dataset, "%v", err)
		}
	}
	return frame, nil
}

// ReadSummary loads a summary table previously written as csv, columnar or
// parquet.
func ReadSummary(path string) (*models.DeckSummaryTable, error) {
	format, ok := tablefile.FormatForPath(path)
	if !ok {
		return nil, fmt.Errorf("cannot infer table format of %s", path)
	}

	var (
		frame *tablefile.Frame
		err   error
	)
	if format.Columnar() {
		frame, err = tablefile.ReadTable(path)
	} else {
		frame, err = tablefile.ReadCSVFile(path)
	}
	if err != nil {
		return nil, err
	}
	return SummaryFromFrame(frame)
}

// SummaryFromFrame rebuilds a summary table from a typed (columnar) or
// all-string (CSV) frame.
func SummaryFromFrame(frame *tablefile.Frame) (*models.DeckSummaryTable, error) {
	for _, name := range models.SummaryBaseColumns {
		if _, ok := frame.Column(name); !ok {
			return nil, dataerr.MissingColumn("summary table", name)
		}
	}

	t := &models.DeckSummaryTable{Dataset: frame.Meta[metaDataset]}
	if raw := frame.Meta[metaTypes]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &t.Types); err != nil {
			return nil, fmt.Errorf("invalid types metadata: %w", err)
		}
	}
	if raw := frame.Meta[metaUnknownCards]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &t.UnknownCards); err != nil {
			return nil, fmt.Errorf("invalid unknown_cards metadata: %w", err)
		}
	}

	// CSV carries no metadata; the vocabulary is recovered in column order
	// from the lowercase num_ names.
	typeCols := frame.NamesWithPrefix(models.TypeColumnPrefix)
	if t.Types == nil {
		t.Types = make([]string, 0, len(typeCols))
		for _, name := range typeCols {
			t.Types = append(t.Types, strings.TrimPrefix(name, models.TypeColumnPrefix))
		}
	}
	if len(t.Types) != len(typeCols) {
		return nil, dataerr.Integrity(t.Dataset, "%d types but %d count columns", len(t.Types), len(typeCols))
	}

	col := func(name string) *tablefile.Column {
		c, _ := frame.Column(name)
		return c
	}

	t.Rows = make([]models.DeckSummary, frame.Rows())
	for i := range t.Rows {
		row := &t.Rows[i]
		var err error
		if row.DeckID, err = stringCell(col("deck_id"), i); err != nil {
			return nil, err
		}
		if row.Wins, err = intCell(col("wins"), i); err != nil {
			return nil, err
		}
		if row.Losses, err = intCell(col("losses"), i); err != nil {
			return nil, err
		}
		if row.AvgManaCurve, err = floatCell(col("avg_mana_curve"), i); err != nil {
			return nil, err
		}
		if row.BombDensity, err = floatCell(col("bomb_density"), i); err != nil {
			return nil, err
		}
		if row.ColorIdentity, err = listCell(col("color_identity"), i); err != nil {
			return nil, err
		}
		row.TypeCounts = make(map[string]int, len(t.Types))
		for j, typ := range t.Types {
			n, err := intCell(col(typeCols[j]), i)
			if err != nil {
				return nil, err
			}
			row.TypeCounts[typ] = n
		}
	}
	return t, nil
}

func cellError(c *tablefile.Column, row int, err error) error {
	return dataerr.Integrity("", "column %q row %d: %v", c.Name, row, err)
}

func stringCell(c *tablefile.Column, row int) (string, error) {
	if c.Kind != tablefile.KindString {
		return "", cellError(c, row, fmt.Errorf("unexpected kind %s", c.Kind))
	}
	return c.Strings[row], nil
}

func intCell(c *tablefile.Column, row int) (int, error) {
	switch c.Kind {
	case tablefile.KindInt64:
		return int(c.Int64s[row]), nil
	case tablefile.KindString:
		n, err := strconv.Atoi(c.Strings[row])
		if err != nil {
			return 0, cellError(c, row, err)
		}
		return n, nil
	default:
		return 0, cellError(c, row, fmt.Errorf("unexpected kind %s", c.Kind))
	}
}

func floatCell(c *tablefile.Column, row int) (float64, error) {
	switch c.Kind {
	case tablefile.KindFloat64:
		return c.Float64s[row], nil
	case tablefile.KindString:
		f, err := strconv.ParseFloat(c.Strings[row], 64)
		if err != nil {
			return 0, cellError(c, row, err)
		}
		return f, nil
	default:
		return 0, cellError(c, row, fmt.Errorf("unexpected kind %s", c.Kind))
	}
}

func listCell(c *tablefile.Column, row int) ([]string, error) {
	switch c.Kind {
	case tablefile.KindStringList:
		return nonNil(c.Lists[row]), nil
	case tablefile.KindString:
		var v []string
		if err := json.Unmarshal([]byte(c.Strings[row]), &v); err != nil {
			return nil, cellError(c, row, err)
		}
		return nonNil(v), nil
	default:
		return nil, cellError(c, row, fmt.Errorf("unexpected kind %s", c.Kind))
	}
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
