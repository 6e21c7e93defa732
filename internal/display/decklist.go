// Package display renders decklists, summaries and run history as plain
// text tables.
package display

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ramonehamilton/deckstats/internal/deckstats"
	"github.com/ramonehamilton/deckstats/internal/models"
)

// DecklistDisplayer writes decklists, annotated with card metadata when it
// is available.
type DecklistDisplayer struct {
	w     io.Writer
	cards *models.CardTable
}

// NewDecklistDisplayer creates a displayer. cards may be nil.
func NewDecklistDisplayer(w io.Writer, cards *models.CardTable) *DecklistDisplayer {
	return &DecklistDisplayer{w: w, cards: cards}
}

// deckEntry is one decklist line.
type deckEntry struct {
	name   string
	copies int
}

// sortedEntries orders a decklist by copies, then name.
func sortedEntries(decklist map[string]int) []deckEntry {
	entries := make([]deckEntry, 0, len(decklist))
	for name, n := range decklist {
		if n > 0 {
			entries = append(entries, deckEntry{name: name, copies: n})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].copies != entries[j].copies {
			return entries[i].copies > entries[j].copies
		}
		return entries[i].name < entries[j].name
	})
	return entries
}

// Display writes the deck's record followed by one line per card.
func (d *DecklistDisplayer) Display(rec *deckstats.DraftRecord) error {
	entries := sortedEntries(rec.Decklist)

	total := 0
	for _, e := range entries {
		total += e.copies
	}

	fmt.Fprintf(d.w, "\nDeck %s\n", rec.DeckID)
	fmt.Fprintf(d.w, "%s\n", strings.Repeat("=", 5+len(rec.DeckID)))
	fmt.Fprintf(d.w, "Record: %d-%d (%.1f%% over %d games)\n", rec.Wins, rec.Losses, rec.WinRate(), rec.Games())
	fmt.Fprintf(d.w, "Cards:  %d (%d distinct)\n\n", total, len(entries))

	if len(entries) == 0 {
		_, err := fmt.Fprintln(d.w, "No cards recorded for this deck.")
		return err
	}

	fmt.Fprintf(d.w, "%-4s %-32s %-4s %-6s %s\n", "Qty", "Card", "MV", "Rarity", "Type")
	fmt.Fprintf(d.w, "%s\n", strings.Repeat("─", 72))
	for _, e := range entries {
		if err := d.displayEntry(e); err != nil {
			return err
		}
	}
	return nil
}

func (d *DecklistDisplayer) displayEntry(e deckEntry) error {
	var card models.CardRecord
	known := false
	if d.cards != nil {
		card, known = d.cards.Lookup(e.name)
	}

	if !known {
		_, err := fmt.Fprintf(d.w, "%-4d %-32s %-4s %-6s %s\n", e.copies, truncateString(e.name, 32), "-", "-", "(no metadata)")
		return err
	}
	_, err := fmt.Fprintf(d.w, "%-4d %-32s %-4g %-6s %s\n",
		e.copies,
		truncateString(e.name, 32),
		card.ManaValue,
		rarityLetter(card.Rarity),
		card.TypeLine,
	)
	return err
}

func rarityLetter(r models.Rarity) string {
	if r == "" {
		return "-"
	}
	return strings.ToUpper(string(r)[:1])
}

// truncateString truncates a string to maxLen characters, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
