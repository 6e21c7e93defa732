// Package dataset loads card metadata and game telemetry for a dataset
// identifier (a set code such as "blb"), trying in-memory, on-disk and
// remote sources in that order.
package dataset

import (
	"path/filepath"
	"strings"

	"github.com/ramonehamilton/deckstats/internal/tablefile"
)

const (
	cardsFile = "cards.csv"
	gamesBase = "games"
)

// Layout maps dataset identifiers to files under a data root:
//
//	<root>/<id>/cards.csv
//	<root>/<id>/games.csv
//	<root>/<id>/games.col | games.colz
type Layout struct {
	Root string
}

// NormalizeID lowercases and trims a dataset identifier.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Dir returns the directory holding a dataset's files.
func (l Layout) Dir(id string) string {
	return filepath.Join(l.Root, NormalizeID(id))
}

// CardsCSV returns the card metadata CSV path.
func (l Layout) CardsCSV(id string) string {
	return filepath.Join(l.Dir(id), cardsFile)
}

// GamesCSV returns the raw game data CSV path.
func (l Layout) GamesCSV(id string) string {
	return filepath.Join(l.Dir(id), gamesBase+".csv")
}

// GamesColumnar returns the converted game data path for a columnar format.
func (l Layout) GamesColumnar(id string, format tablefile.Format) string {
	return filepath.Join(l.Dir(id), gamesBase+format.Ext())
}
