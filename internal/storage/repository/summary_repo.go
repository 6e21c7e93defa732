package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ramonehamilton/deckstats/internal/models"
	dbmodels "github.com/ramonehamilton/deckstats/internal/storage/models"
)

// ErrRunNotFound is returned when a summary run id does not exist.
var ErrRunNotFound = errors.New("summary run not found")

// SummaryRepository stores computed deck summary tables.
type SummaryRepository interface {
	// SaveRun stores the run header and every summary row in a single
	// transaction. An empty run.ID is filled with a new UUID.
	SaveRun(ctx context.Context, run *dbmodels.SummaryRun, table *models.DeckSummaryTable) error

	// GetRun loads a run and its rows in their original order.
	GetRun(ctx context.Context, id string) (*dbmodels.SummaryRun, *models.DeckSummaryTable, error)

	// ListRuns returns run headers, newest first. An empty dataset lists all
	// datasets; limit <= 0 means no limit.
	ListRuns(ctx context.Context, dataset string, limit int) ([]*dbmodels.SummaryRun, error)

	// DeleteRun removes a run and its rows.
	DeleteRun(ctx context.Context, id string) error
}

type summaryRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSummaryRepository creates a new summary repository.
func NewSummaryRepository(db *sql.DB) SummaryRepository {
	return &summaryRepository{db: db, now: time.Now}
}

func (r *summaryRepository) SaveRun(ctx context.Context, run *dbmodels.SummaryRun, table *models.DeckSummaryTable) error {
	if run == nil || table == nil {
		return fmt.Errorf("run and table are required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = r.now()
	}
	if run.Dataset == "" {
		run.Dataset = table.Dataset
	}
	run.DeckCount = table.Len()
	run.CardTypes = nonNilStrings(table.Types)
	run.UnknownCards = nonNilStrings(table.UnknownCards)

	typesJSON, err := json.Marshal(run.CardTypes)
	if err != nil {
		return err
	}
	unknownJSON, err := json.Marshal(run.UnknownCards)
	if err != nil {
		return err
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO summary_runs (
				id, dataset, created_at, deck_count, max_decks, card_types, unknown_cards, output_path, output_format
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			run.Dataset,
			run.CreatedAt.UTC().Format(timeLayout),
			run.DeckCount,
			run.MaxDecks,
			string(typesJSON),
			string(unknownJSON),
			run.OutputPath,
			run.OutputFormat,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO deck_summaries (
				run_id, position, deck_id, wins, losses, avg_mana_curve, bomb_density, color_identity, type_counts
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, row := range table.Rows {
			colorsJSON, err := json.Marshal(nonNilStrings(row.ColorIdentity))
			if err != nil {
				return err
			}
			countsJSON, err := json.Marshal(row.TypeCounts)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx,
				run.ID,
				i,
				row.DeckID,
				row.Wins,
				row.Losses,
				row.AvgManaCurve,
				row.BombDensity,
				string(colorsJSON),
				string(countsJSON),
			); err != nil {
				return fmt.Errorf("failed to insert deck %q: %w", row.DeckID, err)
			}
		}
		return nil
	})
}

const runColumns = `id, dataset, created_at, deck_count, max_decks, card_types, unknown_cards, output_path, output_format`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s rowScanner) (*dbmodels.SummaryRun, error) {
	var (
		run         dbmodels.SummaryRun
		createdAt   string
		typesJSON   string
		unknownJSON string
	)
	if err := s.Scan(
		&run.ID,
		&run.Dataset,
		&createdAt,
		&run.DeckCount,
		&run.MaxDecks,
		&typesJSON,
		&unknownJSON,
		&run.OutputPath,
		&run.OutputFormat,
	); err != nil {
		return nil, err
	}

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("run %s has invalid created_at: %w", run.ID, err)
	}
	run.CreatedAt = t

	if err := json.Unmarshal([]byte(typesJSON), &run.CardTypes); err != nil {
		return nil, fmt.Errorf("run %s has invalid card_types: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(unknownJSON), &run.UnknownCards); err != nil {
		return nil, fmt.Errorf("run %s has invalid unknown_cards: %w", run.ID, err)
	}
	return &run, nil
}

func (r *summaryRepository) GetRun(ctx context.Context, id string) (*dbmodels.SummaryRun, *models.DeckSummaryTable, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM summary_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT deck_id, wins, losses, avg_mana_curve, bomb_density, color_identity, type_counts
		FROM deck_summaries
		WHERE run_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query rows for run %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	table := &models.DeckSummaryTable{
		Dataset:      run.Dataset,
		Types:        run.CardTypes,
		UnknownCards: run.UnknownCards,
		Rows:         make([]models.DeckSummary, 0, run.DeckCount),
	}
	if len(table.UnknownCards) == 0 {
		table.UnknownCards = nil
	}

	for rows.Next() {
		var (
			s          models.DeckSummary
			colorsJSON string
			countsJSON string
		)
		if err := rows.Scan(&s.DeckID, &s.Wins, &s.Losses, &s.AvgManaCurve, &s.BombDensity, &colorsJSON, &countsJSON); err != nil {
			return nil, nil, err
		}
		if err := json.Unmarshal([]byte(colorsJSON), &s.ColorIdentity); err != nil {
			return nil, nil, fmt.Errorf("deck %q has invalid color_identity: %w", s.DeckID, err)
		}
		if err := json.Unmarshal([]byte(countsJSON), &s.TypeCounts); err != nil {
			return nil, nil, fmt.Errorf("deck %q has invalid type_counts: %w", s.DeckID, err)
		}
		table.Rows = append(table.Rows, s)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return run, table, nil
}

func (r *summaryRepository) ListRuns(ctx context.Context, dataset string, limit int) ([]*dbmodels.SummaryRun, error) {
	query := `SELECT ` + runColumns + ` FROM summary_runs`
	var args []interface{}
	if dataset != "" {
		query += ` WHERE dataset = ?`
		args = append(args, dataset)
	}
	query += ` ORDER BY created_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*dbmodels.SummaryRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *summaryRepository) DeleteRun(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM summary_runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
