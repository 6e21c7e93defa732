// Package models defines the in-memory tables the deck pipeline works on:
// card metadata, per-game telemetry and the per-deck summary output.
package models

import (
	"sort"
	"strings"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
)

// Rarity is a card's printed rarity as reported by Scryfall.
type Rarity string

const (
	RarityCommon   Rarity = "common"
	RarityUncommon Rarity = "uncommon"
	RarityRare     Rarity = "rare"
	RarityMythic   Rarity = "mythic"
	RaritySpecial  Rarity = "special"
	RarityBonus    Rarity = "bonus"
)

// landToken marks a type line as a land for mana curve purposes.
const landToken = "Land"

// CardRecord is one row of card metadata.
type CardRecord struct {
	Name          string   `json:"name"`
	ManaValue     float64  `json:"mana_value"`
	TypeLine      string   `json:"type_line"`
	Rarity        Rarity   `json:"rarity"`
	ColorIdentity []string `json:"color_identity"`
}

// PrimaryType returns the first whitespace-delimited token of the type line,
// e.g. "Creature" for "Creature — Bird". Empty when the type line is blank.
func (c CardRecord) PrimaryType() string {
	fields := strings.Fields(c.TypeLine)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// IsLand reports whether the type line contains "Land" (case-sensitive).
func (c CardRecord) IsLand() bool {
	return strings.Contains(c.TypeLine, landToken)
}

// IsBomb reports whether the card is rare or mythic.
func (c CardRecord) IsBomb() bool {
	return c.Rarity == RarityRare || c.Rarity == RarityMythic
}

// HasType reports whether the type line contains the given type token.
func (c CardRecord) HasType(cardType string) bool {
	return strings.Contains(c.TypeLine, cardType)
}

// CardTable is the immutable card metadata for one dataset, indexed by name.
type CardTable struct {
	dataset string
	cards   []CardRecord
	index   map[string]int
}

// NewCardTable builds a CardTable. Card names must be non-empty and unique
// and mana values non-negative; violations are DataIntegrityErrors.
func NewCardTable(dataset string, cards []CardRecord) (*CardTable, error) {
	t := &CardTable{
		dataset: dataset,
		cards:   make([]CardRecord, len(cards)),
		index:   make(map[string]int, len(cards)),
	}

	for i, card := range cards {
		if card.Name == "" {
			return nil, dataerr.Integrity(dataset, "card at row %d has an empty name", i)
		}
		if _, exists := t.index[card.Name]; exists {
			return nil, dataerr.Integrity(dataset, "duplicate card name %q", card.Name)
		}
		if card.ManaValue < 0 {
			return nil, dataerr.Integrity(dataset, "card %q has negative mana value %v", card.Name, card.ManaValue)
		}

		card.ColorIdentity = append([]string(nil), card.ColorIdentity...)
		t.cards[i] = card
		t.index[card.Name] = i
	}

	return t, nil
}

// Dataset returns the dataset identifier the table was loaded for.
func (t *CardTable) Dataset() string {
	return t.dataset
}

// Len returns the number of cards.
func (t *CardTable) Len() int {
	return len(t.cards)
}

// Cards returns the records in load order. Callers must not modify the slice.
func (t *CardTable) Cards() []CardRecord {
	return t.cards
}

// Lookup returns the card with the given name.
func (t *CardTable) Lookup(name string) (CardRecord, bool) {
	i, ok := t.index[name]
	if !ok {
		return CardRecord{}, false
	}
	return t.cards[i], true
}

// Contains reports whether a card with the given name exists.
func (t *CardTable) Contains(name string) bool {
	_, ok := t.index[name]
	return ok
}

// colorOrder is the canonical WUBRG ordering.
var colorOrder = map[string]int{"W": 0, "U": 1, "B": 2, "R": 3, "G": 4}

// SortColors sorts color symbols in WUBRG order in place. Unknown symbols
// are placed after the five colors in lexicographic order.
func SortColors(colors []string) {
	sort.Slice(colors, func(i, j int) bool {
		ri, iKnown := colorOrder[colors[i]]
		rj, jKnown := colorOrder[colors[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown:
			return true
		case jKnown:
			return false
		default:
			return colors[i] < colors[j]
		}
	})
}
