package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ramonehamilton/deckstats/internal/models"
	dbmodels "github.com/ramonehamilton/deckstats/internal/storage/models"
	"github.com/ramonehamilton/deckstats/internal/storage/repository"
)

// Service provides high-level operations over the card archive and the
// summary run history.
type Service struct {
	db        *DB
	cards     repository.CardRepository
	summaries repository.SummaryRepository
	now       func() time.Time
}

// NewService creates a new storage service.
func NewService(db *DB) *Service {
	return &Service{
		db:        db,
		cards:     repository.NewCardRepository(db.Conn()),
		summaries: repository.NewSummaryRepository(db.Conn()),
		now:       time.Now,
	}
}

// OpenService opens the database at path, applying migrations, and wraps
// it in a Service.
func OpenService(path string) (*Service, error) {
	db, err := Open(DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	return NewService(db), nil
}

// Cards returns the card archive repository.
func (s *Service) Cards() repository.CardRepository {
	return s.cards
}

// Summaries returns the summary run repository.
func (s *Service) Summaries() repository.SummaryRepository {
	return s.summaries
}

// GetCardsBySet returns the archived cards of a set.
func (s *Service) GetCardsBySet(ctx context.Context, setCode string) ([]models.CardRecord, error) {
	return s.cards.GetCardsBySet(ctx, setCode)
}

// SaveCards archives a set's cards, replacing any previous copy.
func (s *Service) SaveCards(ctx context.Context, setCode string, cards []models.CardRecord) error {
	if err := s.cards.SaveCards(ctx, setCode, cards); err != nil {
		return err
	}
	log.Printf("[Storage] Archived %d cards for set %s", len(cards), setCode)
	return nil
}

// RecordRun persists a summary table together with where it was written.
func (s *Service) RecordRun(ctx context.Context, table *models.DeckSummaryTable, maxDecks int, outputPath, outputFormat string) (*dbmodels.SummaryRun, error) {
	run := &dbmodels.SummaryRun{
		Dataset:      table.Dataset,
		MaxDecks:     maxDecks,
		OutputPath:   outputPath,
		OutputFormat: outputFormat,
	}
	if err := s.summaries.SaveRun(ctx, run, table); err != nil {
		return nil, fmt.Errorf("failed to record run for %s: %w", table.Dataset, err)
	}
	log.Printf("[Storage] Recorded run %s (%d decks)", run.ID, run.DeckCount)
	return run, nil
}

// ListRuns returns recent runs, newest first.
func (s *Service) ListRuns(ctx context.Context, dataset string, limit int) ([]*dbmodels.SummaryRun, error) {
	return s.summaries.ListRuns(ctx, dataset, limit)
}

// GetRun loads a stored run and its summary table.
func (s *Service) GetRun(ctx context.Context, id string) (*dbmodels.SummaryRun, *models.DeckSummaryTable, error) {
	return s.summaries.GetRun(ctx, id)
}

// DB returns the underlying database.
func (s *Service) DB() *DB {
	return s.db
}

// Close closes the database connection.
func (s *Service) Close() error {
	return s.db.Close()
}
