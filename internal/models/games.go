package models

import (
	"math"
	"sort"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
)

const (
	// DeckColumnPrefix marks the per-card deck composition columns of a
	// 17Lands game_data file, e.g. "deck_Lightning Bolt".
	DeckColumnPrefix = "deck_"

	// OutcomeColumn is the per-game outcome flag.
	OutcomeColumn = "won"

	// DefaultDeckIDColumn groups game rows into decks.
	DefaultDeckIDColumn = "draft_id"
)

// GameRecord is one row of game telemetry in sparse form.
type GameRecord struct {
	DeckID string
	Won    bool
	Deck   map[string]int // card name -> copies in the deck
}

// GameTable is the per-game table held column-wise. Deck composition is kept
// as one count vector per card name rather than as literal columns.
type GameTable struct {
	dataset      string
	deckIDColumn string
	hasOutcome   bool

	deckIDs []string
	won     []bool

	cardNames []string
	counts    [][]uint8 // counts[card][row]
	cardIndex map[string]int
}

// DeckGroup is the set of row indices sharing a deck identifier.
type DeckGroup struct {
	DeckID string
	Rows   []int
}

// GameTableBuilder appends rows to a GameTable with a fixed card column set.
type GameTableBuilder struct {
	table *GameTable
}

// NewGameTableBuilder starts a table with the given card columns. hasOutcome
// records whether the source carried an outcome column at all.
func NewGameTableBuilder(dataset, deckIDColumn string, hasOutcome bool, cardNames []string) *GameTableBuilder {
	if deckIDColumn == "" {
		deckIDColumn = DefaultDeckIDColumn
	}

	t := &GameTable{
		dataset:      dataset,
		deckIDColumn: deckIDColumn,
		hasOutcome:   hasOutcome,
		cardNames:    append([]string(nil), cardNames...),
		counts:       make([][]uint8, len(cardNames)),
		cardIndex:    make(map[string]int, len(cardNames)),
	}
	for i, name := range t.cardNames {
		t.cardIndex[name] = i
	}

	return &GameTableBuilder{table: t}
}

// AddRow appends one game. counts is aligned with the builder's card names;
// a shorter slice leaves the remaining cards at zero.
func (b *GameTableBuilder) AddRow(deckID string, won bool, counts []uint8) {
	t := b.table
	t.deckIDs = append(t.deckIDs, deckID)
	t.won = append(t.won, won)
	for i := range t.cardNames {
		var c uint8
		if i < len(counts) {
			c = counts[i]
		}
		t.counts[i] = append(t.counts[i], c)
	}
}

// Build returns the finished table. The builder must not be used afterwards.
func (b *GameTableBuilder) Build() *GameTable {
	t := b.table
	b.table = nil
	return t
}

// NewGameTable builds a table from sparse records. The card column set is the
// sorted union of every record's deck keys; counts above 255 are clamped.
func NewGameTable(dataset string, records []GameRecord) *GameTable {
	seen := make(map[string]struct{})
	for _, r := range records {
		for name := range r.Deck {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	b := NewGameTableBuilder(dataset, DefaultDeckIDColumn, true, names)
	row := make([]uint8, len(names))
	for _, r := range records {
		for i, name := range names {
			row[i] = ClampCount(r.Deck[name])
		}
		b.AddRow(r.DeckID, r.Won, row)
	}
	return b.Build()
}

// ClampCount converts a copy count to the stored uint8 representation.
func ClampCount(n int) uint8 {
	switch {
	case n <= 0:
		return 0
	case n > math.MaxUint8:
		return math.MaxUint8
	default:
		return uint8(n)
	}
}

// Dataset returns the dataset identifier.
func (t *GameTable) Dataset() string { return t.dataset }

// DeckIDColumn returns the name of the grouping column the table was read with.
func (t *GameTable) DeckIDColumn() string { return t.deckIDColumn }

// HasOutcome reports whether the source had a "won" column.
func (t *GameTable) HasOutcome() bool { return t.hasOutcome }

// Len returns the number of game rows.
func (t *GameTable) Len() int { return len(t.deckIDs) }

// DeckID returns the deck identifier of row i.
func (t *GameTable) DeckID(i int) string { return t.deckIDs[i] }

// Won returns the outcome of row i.
func (t *GameTable) Won(i int) bool { return t.won[i] }

// DeckIDs returns the deck identifier column. Callers must not modify it.
func (t *GameTable) DeckIDs() []string { return t.deckIDs }

// Outcomes returns the outcome column. Callers must not modify it.
func (t *GameTable) Outcomes() []bool { return t.won }

// CardNames returns the card names that have a composition column.
func (t *GameTable) CardNames() []string { return t.cardNames }

// CardCounts returns the per-row counts for a card, or nil if the card has
// no composition column.
func (t *GameTable) CardCounts(name string) []uint8 {
	i, ok := t.cardIndex[name]
	if !ok {
		return nil
	}
	return t.counts[i]
}

// Count returns the copies of a card in row i.
func (t *GameTable) Count(name string, row int) int {
	col := t.CardCounts(name)
	if col == nil {
		return 0
	}
	return int(col[row])
}

// Record returns row i in sparse form, including only non-zero counts.
func (t *GameTable) Record(i int) GameRecord {
	r := GameRecord{
		DeckID: t.deckIDs[i],
		Won:    t.won[i],
		Deck:   make(map[string]int),
	}
	for c, name := range t.cardNames {
		if n := t.counts[c][i]; n > 0 {
			r.Deck[name] = int(n)
		}
	}
	return r
}

// DeckGroups groups rows by deck identifier in first-seen order.
func (t *GameTable) DeckGroups() []DeckGroup {
	var groups []DeckGroup
	index := make(map[string]int)

	for i, id := range t.deckIDs {
		g, ok := index[id]
		if !ok {
			g = len(groups)
			index[id] = g
			groups = append(groups, DeckGroup{DeckID: id})
		}
		groups[g].Rows = append(groups[g].Rows, i)
	}

	return groups
}

// NewGameTableFromColumns assembles a table from already column-shaped data,
// as produced by a columnar file. All columns must have the same length; won
// is ignored when hasOutcome is false.
func NewGameTableFromColumns(dataset, deckIDColumn string, hasOutcome bool, deckIDs []string, won []bool, cardNames []string, counts [][]uint8) (*GameTable, error) {
	if !hasOutcome || (won == nil && len(deckIDs) == 0) {
		won = make([]bool, len(deckIDs))
	}
	if len(won) != len(deckIDs) {
		return nil, dataerr.Integrity(dataset, "outcome column has %d rows, deck id column has %d", len(won), len(deckIDs))
	}
	if len(counts) != len(cardNames) {
		return nil, dataerr.Integrity(dataset, "%d count columns for %d card names", len(counts), len(cardNames))
	}

	b := NewGameTableBuilder(dataset, deckIDColumn, hasOutcome, cardNames)
	t := b.Build()
	t.deckIDs = deckIDs
	t.won = won
	for i, col := range counts {
		if len(col) != len(deckIDs) {
			return nil, dataerr.Integrity(dataset, "deck column %q has %d rows, expected %d", cardNames[i], len(col), len(deckIDs))
		}
		t.counts[i] = col
	}
	return t, nil
}
