package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
	"github.com/ramonehamilton/deckstats/internal/models"
)

// GamesCSVParser streams a 17Lands game_data CSV into a GameTable, keeping
// only the deck identifier, outcome and deck_* columns.
type GamesCSVParser struct {
	dataset      string
	deckIDColumn string

	// Column indices (populated during header parsing)
	colDeckID int
	colWon    int   // -1 when the file has no outcome column
	colDeck   []int // deck_{cardname} columns, aligned with cardNames
	cardNames []string

	skipped int
}

// NewGamesCSVParser creates a parser grouping rows by deckIDColumn.
func NewGamesCSVParser(dataset, deckIDColumn string) *GamesCSVParser {
	if deckIDColumn == "" {
		deckIDColumn = models.DefaultDeckIDColumn
	}
	return &GamesCSVParser{dataset: dataset, deckIDColumn: deckIDColumn}
}

// Skipped returns the number of malformed rows dropped by the last parse.
func (p *GamesCSVParser) Skipped() int {
	return p.skipped
}

// ParseFile parses the CSV file at path.
func (p *GamesCSVParser) ParseFile(path string) (*models.GameTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return p.Parse(file)
}

// Parse reads game rows from r. A missing deck identifier column is a
// MissingColumnError; a missing outcome column yields a table whose
// HasOutcome is false. Malformed rows are logged and skipped.
func (p *GamesCSVParser) Parse(r io.Reader) (*models.GameTable, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true // Handle malformed quotes
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, dataerr.Integrity(p.dataset, "game data CSV is empty")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if err := p.parseHeader(header); err != nil {
		return nil, err
	}

	log.Printf("[GamesCSV] Parsing %s game data with %d card columns", p.dataset, len(p.cardNames))

	builder := models.NewGameTableBuilder(p.dataset, p.deckIDColumn, p.colWon >= 0, p.cardNames)
	counts := make([]uint8, len(p.cardNames))
	p.skipped = 0

	lineNum := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			log.Printf("[GamesCSV] Warning: error reading row %d: %v", lineNum, err)
			p.skipped++
			continue
		}

		deckID, won, err := p.processRow(row, counts)
		if err != nil {
			log.Printf("[GamesCSV] Warning: skipping row %d: %v", lineNum, err)
			p.skipped++
			continue
		}
		builder.AddRow(deckID, won, counts)

		if lineNum%100000 == 0 {
			log.Printf("[GamesCSV] Processed %d games...", lineNum-1)
		}
	}

	table := builder.Build()
	log.Printf("[GamesCSV] Finished parsing %d games (%d skipped)", table.Len(), p.skipped)
	return table, nil
}

// parseHeader locates the deck identifier, outcome and deck_* columns.
func (p *GamesCSVParser) parseHeader(header []string) error {
	p.colDeckID = -1
	p.colWon = -1
	p.colDeck = nil
	p.cardNames = nil

	seen := make(map[string]struct{})
	for i, col := range header {
		if i == 0 {
			col = strings.TrimPrefix(col, "\uFEFF")
		}
		switch {
		case col == p.deckIDColumn:
			p.colDeckID = i
		case col == models.OutcomeColumn:
			p.colWon = i
		case strings.HasPrefix(col, models.DeckColumnPrefix):
			name := strings.TrimPrefix(col, models.DeckColumnPrefix)
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				return dataerr.Integrity(p.dataset, "duplicate deck column %q", col)
			}
			seen[name] = struct{}{}
			p.cardNames = append(p.cardNames, name)
			p.colDeck = append(p.colDeck, i)
		}
	}

	if p.colDeckID == -1 {
		return dataerr.MissingColumn("game data CSV", p.deckIDColumn)
	}
	return nil
}

// processRow fills counts for one game and returns its identifier and outcome.
func (p *GamesCSVParser) processRow(row []string, counts []uint8) (string, bool, error) {
	if len(row) <= p.colDeckID || (p.colWon >= 0 && len(row) <= p.colWon) {
		return "", false, fmt.Errorf("row too short")
	}

	deckID := row[p.colDeckID]
	if deckID == "" {
		return "", false, fmt.Errorf("empty %s", p.deckIDColumn)
	}

	var won bool
	if p.colWon >= 0 {
		var err error
		if won, err = parseOutcome(row[p.colWon]); err != nil {
			return "", false, err
		}
	}

	for i, colIdx := range p.colDeck {
		if colIdx >= len(row) {
			counts[i] = 0
			continue
		}
		n, err := parseCount(row[colIdx])
		if err != nil {
			return "", false, fmt.Errorf("column %s%s: %w", models.DeckColumnPrefix, p.cardNames[i], err)
		}
		counts[i] = n
	}

	return deckID, won, nil
}

func parseOutcome(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "1", "True", "true", "TRUE", "1.0":
		return true, nil
	case "0", "False", "false", "FALSE", "0.0", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid outcome %q", s)
	}
}

func parseCount(s string) (uint8, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("invalid count %q", s)
		}
		n = int(f)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return models.ClampCount(n), nil
}
