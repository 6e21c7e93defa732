package models

import "strings"

// Fixed summary columns, in output order. The num_<type> columns follow.
var SummaryBaseColumns = []string{
	"deck_id",
	"wins",
	"losses",
	"avg_mana_curve",
	"bomb_density",
	"color_identity",
}

// TypeColumnPrefix prefixes the per-type count columns.
const TypeColumnPrefix = "num_"

// TypeColumn returns the output column name for a card type, e.g.
// "num_creature" for "Creature".
func TypeColumn(cardType string) string {
	return TypeColumnPrefix + strings.ToLower(cardType)
}

// DeckSummary is one output row.
type DeckSummary struct {
	DeckID        string         `json:"deck_id"`
	Wins          int            `json:"wins"`
	Losses        int            `json:"losses"`
	AvgManaCurve  float64        `json:"avg_mana_curve"`
	BombDensity   float64        `json:"bomb_density"`
	ColorIdentity []string       `json:"color_identity"`
	TypeCounts    map[string]int `json:"type_counts"` // vocabulary type -> count
}

// Games returns the number of games recorded for the deck.
func (s DeckSummary) Games() int {
	return s.Wins + s.Losses
}

// WinRate returns wins/games as a fraction, or 0 for a deck with no games.
func (s DeckSummary) WinRate() float64 {
	if s.Games() == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Games())
}

// DeckSummaryTable is the pipeline output. Types is the sorted card-type
// vocabulary; every row has a TypeCounts entry for each of them.
type DeckSummaryTable struct {
	Dataset      string        `json:"dataset"`
	Types        []string      `json:"types"`
	Rows         []DeckSummary `json:"rows"`
	UnknownCards []string      `json:"unknown_cards,omitempty"`
}

// Columns returns the full output header.
func (t *DeckSummaryTable) Columns() []string {
	cols := make([]string, 0, len(SummaryBaseColumns)+len(t.Types))
	cols = append(cols, SummaryBaseColumns...)
	for _, typ := range t.Types {
		cols = append(cols, TypeColumn(typ))
	}
	return cols
}

// Len returns the number of rows.
func (t *DeckSummaryTable) Len() int {
	return len(t.Rows)
}
