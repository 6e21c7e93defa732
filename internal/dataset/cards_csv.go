package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
	"github.com/ramonehamilton/deckstats/internal/models"
	"github.com/ramonehamilton/deckstats/internal/tablefile"
)

// Card metadata CSV columns.
const (
	colName          = "name"
	colManaValue     = "mana_value"
	colCMC           = "cmc"
	colTypeLine      = "type_line"
	colRarity        = "rarity"
	colColorIdentity = "color_identity"
)

// ReadCardsCSV loads a card metadata CSV. The mana value may be given as
// mana_value or cmc; rarity and color_identity are optional.
func ReadCardsCSV(path, dataset string) (*models.CardTable, error) {
	frame, err := tablefile.ReadCSVFile(path)
	if err != nil {
		return nil, err
	}
	return CardsFromFrame(frame, dataset, path)
}

// CardsFromFrame converts a frame of string columns to a card table. table
// names the source in errors.
func CardsFromFrame(frame *tablefile.Frame, dataset, table string) (*models.CardTable, error) {
	names, ok := frame.Column(colName)
	if !ok {
		return nil, dataerr.MissingColumn(table, colName)
	}
	typeLines, ok := frame.Column(colTypeLine)
	if !ok {
		return nil, dataerr.MissingColumn(table, colTypeLine)
	}
	mana, ok := frame.Column(colManaValue)
	if !ok {
		if mana, ok = frame.Column(colCMC); !ok {
			return nil, dataerr.MissingColumn(table, colManaValue)
		}
	}
	rarities, hasRarity := frame.Column(colRarity)
	colors, hasColors := frame.Column(colColorIdentity)

	records := make([]models.CardRecord, frame.Rows())
	for i := range records {
		mv, err := parseManaValue(mana.Strings[i])
		if err != nil {
			return nil, dataerr.Integrity(dataset, "card %q: %v", names.Strings[i], err)
		}

		rec := models.CardRecord{
			Name:      names.Strings[i],
			ManaValue: mv,
			TypeLine:  typeLines.Strings[i],
		}
		if hasRarity {
			rec.Rarity = models.Rarity(strings.ToLower(strings.TrimSpace(rarities.Strings[i])))
		}
		if hasColors {
			rec.ColorIdentity = ParseColorList(colors.Strings[i])
		}
		records[i] = rec
	}

	return models.NewCardTable(dataset, records)
}

func parseManaValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid mana value %q", s)
	}
	if math.IsNaN(v) {
		return 0, nil
	}
	return v, nil
}

// ParseColorList parses a color identity cell. It accepts a JSON array
// (["W","U"]), a Python list repr (['W', 'U']), or symbols separated by
// commas, semicolons or spaces. The result is deduplicated and WUBRG-sorted.
func ParseColorList(s string) []string {
	s = strings.TrimSpace(s)
	colors := []string{}
	if s == "" || s == "[]" {
		return colors
	}

	var parsed []string
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			parsed = nil
			s = strings.Trim(s, "[]")
		}
	}
	if parsed == nil {
		parsed = strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || r == ';' || r == ' '
		})
	}

	seen := make(map[string]struct{}, len(parsed))
	for _, c := range parsed {
		c = strings.ToUpper(strings.Trim(c, `'" `))
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		colors = append(colors, c)
	}
	models.SortColors(colors)
	return colors
}

// CardsToFrame converts card records to the metadata CSV column layout.
func CardsToFrame(cards []models.CardRecord) *tablefile.Frame {
	n := len(cards)
	names := make([]string, n)
	mana := make([]float64, n)
	types := make([]string, n)
	rarities := make([]string, n)
	colors := make([][]string, n)

	for i, c := range cards {
		names[i] = c.Name
		mana[i] = c.ManaValue
		types[i] = c.TypeLine
		rarities[i] = string(c.Rarity)
		colors[i] = c.ColorIdentity
	}

	frame := tablefile.NewFrame()
	frame.MustAdd(tablefile.StringColumn(colName, names)).
		MustAdd(tablefile.Float64Column(colManaValue, mana)).
		MustAdd(tablefile.StringColumn(colTypeLine, types)).
		MustAdd(tablefile.StringColumn(colRarity, rarities)).
		MustAdd(tablefile.StringListColumn(colColorIdentity, colors))
	return frame
}

// WriteCardsCSV writes card records as a metadata CSV.
func WriteCardsCSV(path string, cards []models.CardRecord) error {
	return tablefile.WriteCSV(path, CardsToFrame(cards), tablefile.CSVOptions{FloatPrecision: -1})
}
