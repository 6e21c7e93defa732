// Package models holds the row types persisted by the storage repositories.
package models

import "time"

// SummaryRun is the header row of one persisted deck summary computation.
type SummaryRun struct {
	ID           string
	Dataset      string
	CreatedAt    time.Time
	DeckCount    int
	MaxDecks     int
	CardTypes    []string
	UnknownCards []string
	OutputPath   string
	OutputFormat string
}
