package dataset

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
	"github.com/ramonehamilton/deckstats/internal/models"
	"github.com/ramonehamilton/deckstats/internal/tablefile"
)

// CardFetcher downloads card metadata for a set.
type CardFetcher interface {
	FetchSetCards(ctx context.Context, setCode string) ([]models.CardRecord, error)
}

// CardArchive persists card metadata between runs.
type CardArchive interface {
	GetCardsBySet(ctx context.Context, setCode string) ([]models.CardRecord, error)
	SaveCards(ctx context.Context, setCode string, cards []models.CardRecord) error
}

// GameFetcher downloads raw game data for a set into a CSV file.
type GameFetcher interface {
	Download(ctx context.Context, setCode, destPath string) (int64, error)
}

// StoreOptions configures a Store. Only Root is required; nil collaborators
// disable the corresponding load tier.
type StoreOptions struct {
	Root         string
	Format       tablefile.Format // columnar format for converted game data
	DeckIDColumn string

	Cache   *Cache
	Cards   CardFetcher
	Archive CardArchive
	Games   GameFetcher
}

// Store resolves dataset identifiers to loaded tables.
type Store struct {
	layout       Layout
	format       tablefile.Format
	deckIDColumn string

	cache   *Cache
	cards   CardFetcher
	archive CardArchive
	games   GameFetcher

	group singleflight.Group
}

// NewStore creates a Store.
func NewStore(opts StoreOptions) (*Store, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("data root is required")
	}

	format := opts.Format
	if format == "" {
		format = tablefile.FormatColumnarSnappy
	}
	if !format.Columnar() {
		return nil, fmt.Errorf("game data cache format must be columnar, got %s", format)
	}

	cache := opts.Cache
	if cache == nil {
		var err error
		if cache, err = NewCache(DefaultMaxDatasets); err != nil {
			return nil, err
		}
	}

	deckIDColumn := opts.DeckIDColumn
	if deckIDColumn == "" {
		deckIDColumn = models.DefaultDeckIDColumn
	}

	return &Store{
		layout:       Layout{Root: opts.Root},
		format:       format,
		deckIDColumn: deckIDColumn,
		cache:        cache,
		cards:        opts.Cards,
		archive:      opts.Archive,
		games:        opts.Games,
	}, nil
}

// Layout returns the on-disk layout the store reads from.
func (s *Store) Layout() Layout { return s.layout }

// Cache returns the store's in-memory cache.
func (s *Store) Cache() *Cache { return s.cache }

// LoadCardMetadata returns the card table for a dataset, trying the memory
// cache, the cards CSV, the archive and finally a remote fetch. Loading the
// CSV re-archives it. A dataset with no source is a dataerr.NotFoundError.
func (s *Store) LoadCardMetadata(ctx context.Context, id string) (*models.CardTable, error) {
	id = NormalizeID(id)
	if t, ok := s.cache.Cards(id); ok {
		log.Printf("[Store] Retrieved %s card data from memory", id)
		return t, nil
	}

	v, err, _ := s.group.Do("cards:"+id, func() (interface{}, error) {
		t, err := s.loadCards(ctx, id)
		if err != nil {
			return nil, err
		}
		s.cache.PutCards(id, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.CardTable), nil
}

func (s *Store) loadCards(ctx context.Context, id string) (*models.CardTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.layout.CardsCSV(id)
	if tablefile.Exists(path) {
		log.Printf("[Store] Loading %s card data from %s", id, path)
		t, err := ReadCardsCSV(path, id)
		if err != nil {
			return nil, fmt.Errorf("load card data for %s: %w", id, err)
		}
		s.archiveCards(ctx, id, t.Cards())
		return t, nil
	}

	// The archive is a copy of cards.csv, so it only serves when the CSV is gone.
	if s.archive != nil {
		records, err := s.archive.GetCardsBySet(ctx, id)
		switch {
		case err != nil:
			log.Printf("[Store] Warning: card archive lookup for %s failed: %v", id, err)
		case len(records) > 0:
			log.Printf("[Store] Loading %s card data from archive (%d cards)", id, len(records))
			return models.NewCardTable(id, records)
		}
	}

	if s.cards == nil {
		return nil, dataerr.NotFound(id, path)
	}

	records, err := s.FetchCards(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.NewCardTable(id, records)
}

// FetchCards downloads card metadata for a dataset and stores it as the
// dataset's cards CSV and in the archive, replacing what was there.
func (s *Store) FetchCards(ctx context.Context, id string) ([]models.CardRecord, error) {
	id = NormalizeID(id)
	if s.cards == nil {
		return nil, fmt.Errorf("no card metadata source configured")
	}

	records, err := s.cards.FetchSetCards(ctx, id)
	if err != nil {
		if dataerr.IsNotFound(err) {
			return nil, dataerr.NotFound(id, err.Error())
		}
		return nil, fmt.Errorf("fetch card data for %s: %w", id, err)
	}

	path := s.layout.CardsCSV(id)
	if err := WriteCardsCSV(path, records); err != nil {
		return nil, fmt.Errorf("save card data for %s: %w", id, err)
	}
	log.Printf("[Store] Saved %d cards to %s", len(records), path)

	s.archiveCards(ctx, id, records)
	s.cache.cards.Remove(id)
	return records, nil
}

func (s *Store) archiveCards(ctx context.Context, id string, records []models.CardRecord) {
	if s.archive == nil {
		return
	}
	if err := s.archive.SaveCards(ctx, id, records); err != nil {
		log.Printf("[Store] Warning: failed to archive %s card data: %v", id, err)
	}
}

// LoadGameTable returns the game table for a dataset, trying the memory
// cache, the converted columnar file, the raw CSV (converting it) and
// finally a remote download. A columnar file older than the CSV is
// re-converted. A dataset with no source is a
// dataerr.NotFoundError.
func (s *Store) LoadGameTable(ctx context.Context, id string) (*models.GameTable, error) {
	id = NormalizeID(id)
	if t, ok := s.cache.Games(id); ok {
		log.Printf("[Store] Retrieved %s game data from memory", id)
		return t, nil
	}

	v, err, _ := s.group.Do("games:"+id, func() (interface{}, error) {
		t, err := s.loadGames(ctx, id)
		if err != nil {
			return nil, err
		}
		s.cache.PutGames(id, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.GameTable), nil
}

func (s *Store) loadGames(ctx context.Context, id string) (*models.GameTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	csvPath := s.layout.GamesCSV(id)

	for _, format := range s.columnarFormats() {
		path := s.layout.GamesColumnar(id, format)
		if !tablefile.Exists(path) {
			continue
		}
		if newerThan(csvPath, path) {
			log.Printf("[Store] %s changed since %s was written. Re-converting", csvPath, path)
			t, _, err := s.ConvertGames(ctx, id)
			return t, err
		}

		log.Printf("[Store] Loading %s game data from %s", id, path)
		t, err := ReadGamesColumnar(path, id)
		if err == nil {
			return t, nil
		}
		if errors.Is(err, tablefile.ErrCorrupt) && tablefile.Exists(csvPath) {
			log.Printf("[Store] Error loading %s: %v. Re-converting from CSV", path, err)
			t, _, err := s.ConvertGames(ctx, id)
			return t, err
		}
		return nil, fmt.Errorf("load game data for %s: %w", id, err)
	}

	if tablefile.Exists(csvPath) {
		log.Printf("[Store] Reading and converting %s game data to %s", id, s.format)
		t, _, err := s.ConvertGames(ctx, id)
		return t, err
	}

	if s.games == nil {
		return nil, dataerr.NotFound(id, csvPath)
	}

	if err := s.FetchGames(ctx, id); err != nil {
		return nil, err
	}
	t, _, err := s.ConvertGames(ctx, id)
	return t, err
}

// newerThan reports whether path a exists and was modified after path b.
func newerThan(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return ai.ModTime().After(bi.ModTime())
}

// columnarFormats lists the configured format first, then the others.
func (s *Store) columnarFormats() []tablefile.Format {
	formats := []tablefile.Format{s.format}
	for _, f := range tablefile.Formats {
		if f.Columnar() && f != s.format {
			formats = append(formats, f)
		}
	}
	return formats
}

// FetchGames downloads a dataset's raw game data CSV.
func (s *Store) FetchGames(ctx context.Context, id string) error {
	id = NormalizeID(id)
	if s.games == nil {
		return fmt.Errorf("no game data source configured")
	}

	path := s.layout.GamesCSV(id)
	if _, err := s.games.Download(ctx, id, path); err != nil {
		if dataerr.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("download game data for %s: %w", id, err)
	}
	s.cache.games.Remove(id)
	return nil
}

// ConvertGames parses a dataset's games CSV and writes it in the store's
// columnar format, overwriting any existing converted file. It returns the
// parsed table and the path written.
func (s *Store) ConvertGames(ctx context.Context, id string) (*models.GameTable, string, error) {
	id = NormalizeID(id)
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	csvPath := s.layout.GamesCSV(id)
	if !tablefile.Exists(csvPath) {
		return nil, "", dataerr.NotFound(id, csvPath)
	}

	t, err := NewGamesCSVParser(id, s.deckIDColumn).ParseFile(csvPath)
	if err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", csvPath, err)
	}

	out := s.layout.GamesColumnar(id, s.format)
	if err := tablefile.WriteTable(out, s.format, GamesToFrame(t)); err != nil {
		return nil, "", fmt.Errorf("write %s: %w", out, err)
	}
	log.Printf("[Store] Converted %s to %s", csvPath, out)

	s.cache.games.Remove(id)
	return t, out, nil
}

// ReadGamesColumnar reads a converted game table, columnar or parquet,
// decoding only the columns a GameTable needs.
func ReadGamesColumnar(path, dataset string) (*models.GameTable, error) {
	info, err := tablefile.InspectTable(path)
	if err != nil {
		return nil, err
	}
	frame, err := tablefile.ReadTable(path, gameColumns(info)...)
	if err != nil {
		return nil, err
	}
	return GamesFromFrame(frame, dataset)
}

// WatchPaths lists the raw files whose edits should trigger a re-run.
func (s *Store) WatchPaths(id string) []string {
	id = NormalizeID(id)
	return []string{s.layout.CardsCSV(id), s.layout.GamesCSV(id)}
}

// Refresh brings derived copies up to date after path, one of WatchPaths,
// changed on disk. An edited cards CSV replaces the archived copy; an
// edited games CSV is reconverted. The memory cache is dropped either way.
func (s *Store) Refresh(ctx context.Context, id, path string) error {
	id = NormalizeID(id)
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	switch abs {
	case absOrSelf(s.layout.CardsCSV(id)):
		t, err := ReadCardsCSV(path, id)
		if err != nil {
			return fmt.Errorf("reload card data for %s: %w", id, err)
		}
		s.archiveCards(ctx, id, t.Cards())
		s.cache.cards.Remove(id)
	case absOrSelf(s.layout.GamesCSV(id)):
		if _, _, err := s.ConvertGames(ctx, id); err != nil {
			return err
		}
	default:
		s.cache.Evict(id)
	}
	return nil
}

func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
