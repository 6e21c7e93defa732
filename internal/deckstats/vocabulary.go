// Package deckstats turns a 17Lands-style game table and a card metadata
// table into one summary row per deck.
//
// The pipeline runs in three stages: the card-type vocabulary is extracted
// from the metadata, each deck's card list is reconstructed from the deck
// composition columns, and the per-deck statistics are aggregated.
package deckstats

import (
	"sort"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
	"github.com/ramonehamilton/deckstats/internal/models"
)

// ExtractVocabulary returns the sorted set of primary card types (the first
// word of each type line). A card with a blank type line is a
// DataIntegrityError since it would corrupt the output schema.
func ExtractVocabulary(cards *models.CardTable) ([]string, error) {
	seen := make(map[string]struct{})
	for _, card := range cards.Cards() {
		primary := card.PrimaryType()
		if primary == "" {
			return nil, dataerr.Integrity(cards.Dataset(), "card %q has an empty type_line", card.Name)
		}
		seen[primary] = struct{}{}
	}

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)

	// num_<type> is lowercased, so "Land" and "land" would share a column.
	columns := make(map[string]string, len(types))
	for _, t := range types {
		col := models.TypeColumn(t)
		if other, dup := columns[col]; dup {
			return nil, dataerr.Integrity(cards.Dataset(), "card types %q and %q map to the same column %q", other, t, col)
		}
		columns[col] = t
	}

	return types, nil
}
