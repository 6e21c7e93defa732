package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ramonehamilton/deckstats/internal/models"
)

// CardRepository archives card metadata fetched from Scryfall, one set at
// a time.
type CardRepository interface {
	// SaveCards replaces every stored card of a set.
	SaveCards(ctx context.Context, setCode string, cards []models.CardRecord) error

	// GetCardsBySet returns a set's cards in the order they were saved.
	GetCardsBySet(ctx context.Context, setCode string) ([]models.CardRecord, error)

	// IsSetCached checks if a set has been archived.
	IsSetCached(ctx context.Context, setCode string) (bool, error)

	// GetCachedSets returns archived set codes with their card counts.
	GetCachedSets(ctx context.Context) (map[string]int, error)

	// DeleteSet removes all cards for a given set.
	DeleteSet(ctx context.Context, setCode string) error
}

type cardRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewCardRepository creates a new card repository.
func NewCardRepository(db *sql.DB) CardRepository {
	return &cardRepository{db: db, now: time.Now}
}

func (r *cardRepository) SaveCards(ctx context.Context, setCode string, cards []models.CardRecord) error {
	fetchedAt := r.now().UTC().Format(timeLayout)

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE set_code = ?`, setCode); err != nil {
			return fmt.Errorf("failed to clear set %s: %w", setCode, err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO cards (set_code, name, position, mana_value, type_line, rarity, color_identity, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, card := range cards {
			colors := card.ColorIdentity
			if colors == nil {
				colors = []string{}
			}
			colorsJSON, err := json.Marshal(colors)
			if err != nil {
				return err
			}

			if _, err := stmt.ExecContext(ctx,
				setCode,
				card.Name,
				i,
				card.ManaValue,
				card.TypeLine,
				string(card.Rarity),
				string(colorsJSON),
				fetchedAt,
			); err != nil {
				return fmt.Errorf("failed to save card %q: %w", card.Name, err)
			}
		}
		return nil
	})
}

func (r *cardRepository) GetCardsBySet(ctx context.Context, setCode string) ([]models.CardRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, mana_value, type_line, rarity, color_identity
		FROM cards
		WHERE set_code = ?
		ORDER BY position
	`, setCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards for set %s: %w", setCode, err)
	}
	defer func() { _ = rows.Close() }()

	var cards []models.CardRecord
	for rows.Next() {
		var (
			card       models.CardRecord
			rarity     string
			colorsJSON string
		)
		if err := rows.Scan(&card.Name, &card.ManaValue, &card.TypeLine, &rarity, &colorsJSON); err != nil {
			return nil, err
		}
		card.Rarity = models.Rarity(rarity)
		if err := json.Unmarshal([]byte(colorsJSON), &card.ColorIdentity); err != nil {
			return nil, fmt.Errorf("card %q has invalid color_identity: %w", card.Name, err)
		}
		cards = append(cards, card)
	}

	return cards, rows.Err()
}

func (r *cardRepository) IsSetCached(ctx context.Context, setCode string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards WHERE set_code = ?`, setCode).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *cardRepository) GetCachedSets(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT set_code, COUNT(*) FROM cards GROUP BY set_code`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sets := make(map[string]int)
	for rows.Next() {
		var (
			code  string
			count int
		)
		if err := rows.Scan(&code, &count); err != nil {
			return nil, err
		}
		sets[code] = count
	}
	return sets, rows.Err()
}

func (r *cardRepository) DeleteSet(ctx context.Context, setCode string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE set_code = ?`, setCode)
	return err
}
