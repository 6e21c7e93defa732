package deckstats

import (
	"github.com/ramonehamilton/deckstats/internal/models"
)

// DeckList is a reconstructed deck. Cards are listed once each regardless of
// copy count; Unknown holds cards with no metadata entry.
type DeckList struct {
	DeckID  string
	Known   []string
	Unknown []string
}

// Size returns the number of distinct cards, known or not.
func (d DeckList) Size() int {
	return len(d.Known) + len(d.Unknown)
}

// ReconstructDeck lists the cards whose summed count over the group's rows is
// positive. Order follows the game table's card columns.
func ReconstructDeck(games *models.GameTable, group models.DeckGroup, cards *models.CardTable) DeckList {
	deck := DeckList{DeckID: group.DeckID}

	for _, name := range games.CardNames() {
		counts := games.CardCounts(name)

		total := 0
		for _, row := range group.Rows {
			total += int(counts[row])
			if total > 0 {
				break
			}
		}
		if total == 0 {
			continue
		}

		if cards.Contains(name) {
			deck.Known = append(deck.Known, name)
		} else {
			deck.Unknown = append(deck.Unknown, name)
		}
	}

	return deck
}

// countOutcomes sums the outcome flag over a deck's rows.
func countOutcomes(games *models.GameTable, rows []int) (wins, losses int) {
	for _, row := range rows {
		if games.Won(row) {
			wins++
		}
	}
	return wins, len(rows) - wins
}
