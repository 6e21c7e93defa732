package deckstats

import (
	"fmt"
	"log"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
	"github.com/ramonehamilton/deckstats/internal/models"
)

// Options controls a ComputeDeckSummaries run.
type Options struct {
	// MaxDecks limits the run to the first N deck identifiers in first-seen
	// row order. Zero or negative means no limit.
	MaxDecks int

	// Workers is the number of decks summarized concurrently. Values below 2
	// run sequentially. Output order does not depend on it.
	Workers int
}

// ComputeDeckSummaries groups games by deck identifier and returns one
// summary row per deck. It fails before producing anything when the game
// table has no outcome column or the card metadata is structurally broken.
func ComputeDeckSummaries(games *models.GameTable, cards *models.CardTable, opts Options) (*models.DeckSummaryTable, error) {
	if games == nil || cards == nil {
		return nil, fmt.Errorf("game table and card table are required")
	}
	if !games.HasOutcome() {
		return nil, dataerr.MissingColumn("game table", models.OutcomeColumn)
	}

	types, err := ExtractVocabulary(cards)
	if err != nil {
		return nil, fmt.Errorf("extract card types: %w", err)
	}

	groups := games.DeckGroups()
	if opts.MaxDecks > 0 && len(groups) > opts.MaxDecks {
		groups = groups[:opts.MaxDecks]
	}

	rows := make([]models.DeckSummary, len(groups))
	unknownByDeck := make([][]string, len(groups))

	summarize := func(i int) {
		g := groups[i]
		deck := ReconstructDeck(games, g, cards)
		wins, losses := countOutcomes(games, g.Rows)
		rows[i] = SummarizeDeck(deck, wins, losses, cards, types)
		unknownByDeck[i] = deck.Unknown
	}

	if opts.Workers > 1 {
		var eg errgroup.Group
		eg.SetLimit(opts.Workers)
		for i := range groups {
			eg.Go(func() error {
				summarize(i)
				return nil
			})
		}
		_ = eg.Wait()
	} else {
		for i := range groups {
			summarize(i)
		}
	}

	unknown := collectUnknown(unknownByDeck)
	for _, name := range unknown {
		log.Printf("[DeckStats] Warning: card %q is in the %s game data but not in its card metadata; excluded from curve, rarity, color and type stats",
			name, games.Dataset())
	}

	log.Printf("[DeckStats] Summarized %d decks (%d types, %d unknown cards)", len(rows), len(types), len(unknown))

	return &models.DeckSummaryTable{
		Dataset:      games.Dataset(),
		Types:        types,
		Rows:         rows,
		UnknownCards: unknown,
	}, nil
}

func collectUnknown(perDeck [][]string) []string {
	seen := make(map[string]struct{})
	for _, names := range perDeck {
		for _, n := range names {
			seen[n] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}

	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
