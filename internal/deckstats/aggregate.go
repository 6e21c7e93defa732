package deckstats

import (
	"github.com/ramonehamilton/deckstats/internal/models"
)

// SummarizeDeck computes the summary row for one reconstructed deck.
// Cards without metadata contribute nothing to the metadata-based columns.
func SummarizeDeck(deck DeckList, wins, losses int, cards *models.CardTable, types []string) models.DeckSummary {
	summary := models.DeckSummary{
		DeckID:        deck.DeckID,
		Wins:          wins,
		Losses:        losses,
		ColorIdentity: []string{},
		TypeCounts:    make(map[string]int, len(types)),
	}
	for _, t := range types {
		summary.TypeCounts[t] = 0
	}

	var (
		manaTotal float64
		nonLand   int
		bombs     int
		colors    = make(map[string]struct{})
	)

	for _, name := range deck.Known {
		card, ok := cards.Lookup(name)
		if !ok {
			continue
		}

		if !card.IsLand() {
			manaTotal += card.ManaValue
			nonLand++
		}
		if card.IsBomb() {
			bombs++
		}
		for _, c := range card.ColorIdentity {
			colors[c] = struct{}{}
		}
		for _, t := range types {
			if card.HasType(t) {
				summary.TypeCounts[t]++
			}
		}
	}

	if nonLand > 0 {
		summary.AvgManaCurve = manaTotal / float64(nonLand)
	}
	if known := len(deck.Known); known > 0 {
		summary.BombDensity = float64(bombs) / float64(known)
	}

	for c := range colors {
		summary.ColorIdentity = append(summary.ColorIdentity, c)
	}
	models.SortColors(summary.ColorIdentity)

	return summary
}
