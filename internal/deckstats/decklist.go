package deckstats

import (
	"errors"
	"fmt"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
	"github.com/ramonehamilton/deckstats/internal/models"
)

// ErrDeckNotFound is returned when a deck identifier has no game rows.
var ErrDeckNotFound = errors.New("deck not found")

// DraftRecord is the event record and raw decklist of a single deck.
type DraftRecord struct {
	DeckID   string
	Wins     int
	Losses   int
	Decklist map[string]int // card name -> copies, from the deck's first game
}

// Games returns the number of games played.
func (r DraftRecord) Games() int {
	return r.Wins + r.Losses
}

// WinRate returns the win rate as a percentage.
func (r DraftRecord) WinRate() float64 {
	if r.Games() == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Games()) * 100
}

// Decklist returns the record and decklist for deckID. An empty deckID
// selects the deck of the first game row.
func Decklist(games *models.GameTable, deckID string) (*DraftRecord, error) {
	if !games.HasOutcome() {
		return nil, dataerr.MissingColumn("game table", models.OutcomeColumn)
	}
	if games.Len() == 0 {
		return nil, fmt.Errorf("%w: game table is empty", ErrDeckNotFound)
	}
	if deckID == "" {
		deckID = games.DeckID(0)
	}

	var rows []int
	for i, id := range games.DeckIDs() {
		if id == deckID {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrDeckNotFound, deckID)
	}

	wins, losses := countOutcomes(games, rows)
	return &DraftRecord{
		DeckID:   deckID,
		Wins:     wins,
		Losses:   losses,
		Decklist: games.Record(rows[0]).Deck,
	}, nil
}
