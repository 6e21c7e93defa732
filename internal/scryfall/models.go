package scryfall

import (
	"fmt"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
)

// Card is the subset of a Scryfall card object the deck pipeline reads.
type Card struct {
	ID            string     `json:"id"`
	OracleID      string     `json:"oracle_id"`
	Name          string     `json:"name"`
	Layout        string     `json:"layout"`
	ManaCost      string     `json:"mana_cost,omitempty"`
	CMC           float64    `json:"cmc"`
	TypeLine      string     `json:"type_line"`
	Colors        []string   `json:"colors,omitempty"`
	ColorIdentity []string   `json:"color_identity"`
	SetCode       string     `json:"set"`
	SetName       string     `json:"set_name"`
	Rarity        string     `json:"rarity"`
	CardFaces     []CardFace `json:"card_faces,omitempty"`
}

// CardFace represents one face of a multi-faced card.
type CardFace struct {
	Name     string   `json:"name"`
	ManaCost string   `json:"mana_cost,omitempty"`
	TypeLine string   `json:"type_line"`
	Colors   []string `json:"colors,omitempty"`
}

// FullTypeLine returns the card's type line, falling back to the faces of
// multi-faced cards which carry no top-level type line.
func (c *Card) FullTypeLine() string {
	if c.TypeLine != "" {
		return c.TypeLine
	}
	var parts []string
	for _, f := range c.CardFaces {
		if f.TypeLine != "" {
			parts = append(parts, f.TypeLine)
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		line := parts[0]
		for _, p := range parts[1:] {
			line += " // " + p
		}
		return line
	}
}

// Set represents a Magic set from Scryfall.
type Set struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	SearchURI  string `json:"search_uri"`
	ReleasedAt string `json:"released_at,omitempty"`
	SetType    string `json:"set_type"`
	CardCount  int    `json:"card_count"`
	Digital    bool   `json:"digital"`
}

// SearchResult is one page of a card search.
type SearchResult struct {
	Object     string `json:"object"`
	TotalCards int    `json:"total_cards"`
	HasMore    bool   `json:"has_more"`
	NextPage   string `json:"next_page,omitempty"`
	Data       []Card `json:"data"`
}

// APIError represents an error response from the Scryfall API.
type APIError struct {
	Object   string   `json:"object"`
	Code     string   `json:"code"`
	Status   int      `json:"status"`
	Details  string   `json:"details"`
	Type     string   `json:"type,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Details)
	}
	return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Code)
}

// NotFoundError represents a 404 error from the API.
type NotFoundError struct {
	URL string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.URL)
}

// Is lets errors.Is(err, dataerr.ErrNotFound) match a Scryfall 404.
func (e *NotFoundError) Is(target error) bool {
	return target == dataerr.ErrNotFound
}
