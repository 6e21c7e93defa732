package scryfall

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ramonehamilton/deckstats/internal/models"
)

// SetNames maps lowercase set codes to display names for log output.
var SetNames = map[string]string{
	"blb": "Bloomburrow",
	"dsk": "Duskmourn",
	"otj": "Outlaws of Thunder Junction",
	"mkm": "Murders at Karlov Manor",
	"lci": "The Lost Caverns of Ixalan",
	"woe": "Wilds of Eldraine",
	"fdn": "Foundations",
	"dft": "Aetherdrift",
}

// SetName returns the display name for a set code, or the code itself.
func SetName(code string) string {
	if name, ok := SetNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// FetchSetCards downloads every card of a set and converts it to card
// metadata rows. Printings sharing a name collapse to the first one seen.
func (c *Client) FetchSetCards(ctx context.Context, setCode string) ([]models.CardRecord, error) {
	code := strings.ToLower(strings.TrimSpace(setCode))
	if code == "" {
		return nil, fmt.Errorf("set code is required")
	}

	log.Printf("[Scryfall] Fetching card data for %s...", SetName(code))

	cards, err := c.SearchAll(ctx, "set:"+code)
	if err != nil {
		return nil, fmt.Errorf("fetch cards for set %s: %w", code, err)
	}
	if len(cards) == 0 {
		return nil, &NotFoundError{URL: fmt.Sprintf("%s/cards/search?q=set:%s", c.baseURL, code)}
	}

	records := ToCardRecords(cards)
	log.Printf("[Scryfall] Fetched %d cards (%d unique names) for %s", len(cards), len(records), SetName(code))
	return records, nil
}

// ToCardRecords converts Scryfall cards to metadata rows, dropping repeated
// names and cards without one.
func ToCardRecords(cards []Card) []models.CardRecord {
	seen := make(map[string]struct{}, len(cards))
	records := make([]models.CardRecord, 0, len(cards))

	for i := range cards {
		card := &cards[i]
		if card.Name == "" {
			continue
		}
		if _, dup := seen[card.Name]; dup {
			continue
		}
		seen[card.Name] = struct{}{}

		colors := append([]string{}, card.ColorIdentity...)
		models.SortColors(colors)

		records = append(records, models.CardRecord{
			Name:          card.Name,
			ManaValue:     card.CMC,
			TypeLine:      card.FullTypeLine(),
			Rarity:        models.Rarity(card.Rarity),
			ColorIdentity: colors,
		})
	}

	return records
}
