package dataset

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ramonehamilton/deckstats/internal/models"
)

// DefaultMaxDatasets is the number of datasets kept in memory per table kind.
const DefaultMaxDatasets = 4

// Cache holds recently loaded tables keyed by dataset identifier. Each table
// kind is bounded separately; the least recently used dataset is evicted
// first.
type Cache struct {
	cards *lru.Cache[string, *models.CardTable]
	games *lru.Cache[string, *models.GameTable]

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Hits     int64
	Misses   int64
	CardSets int
	GameSets int
}

// NewCache creates a cache holding up to maxDatasets datasets per table kind.
func NewCache(maxDatasets int) (*Cache, error) {
	if maxDatasets <= 0 {
		maxDatasets = DefaultMaxDatasets
	}
	cards, err := lru.New[string, *models.CardTable](maxDatasets)
	if err != nil {
		return nil, fmt.Errorf("create card cache: %w", err)
	}
	games, err := lru.New[string, *models.GameTable](maxDatasets)
	if err != nil {
		return nil, fmt.Errorf("create game cache: %w", err)
	}
	return &Cache{cards: cards, games: games}, nil
}

// Cards returns cached card metadata.
func (c *Cache) Cards(id string) (*models.CardTable, bool) {
	t, ok := c.cards.Get(NormalizeID(id))
	c.record(ok)
	return t, ok
}

// PutCards caches card metadata.
func (c *Cache) PutCards(id string, t *models.CardTable) {
	c.cards.Add(NormalizeID(id), t)
}

// Games returns a cached game table.
func (c *Cache) Games(id string) (*models.GameTable, bool) {
	t, ok := c.games.Get(NormalizeID(id))
	c.record(ok)
	return t, ok
}

// PutGames caches a game table.
func (c *Cache) PutGames(id string, t *models.GameTable) {
	c.games.Add(NormalizeID(id), t)
}

// Evict drops both tables of one dataset. It reports whether anything was
// cached.
func (c *Cache) Evict(id string) bool {
	id = NormalizeID(id)
	a := c.cards.Remove(id)
	b := c.games.Remove(id)
	return a || b
}

// Purge empties the cache. Counters are kept.
func (c *Cache) Purge() {
	c.cards.Purge()
	c.games.Purge()
}

// Stats returns the current counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		CardSets: c.cards.Len(),
		GameSets: c.games.Len(),
	}
}

func (c *Cache) record(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
}
