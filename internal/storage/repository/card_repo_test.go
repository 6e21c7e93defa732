package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deckstats/internal/models"
)

func testCards() []models.CardRecord {
	return []models.CardRecord{
		{Name: "Shivan Dragon", ManaValue: 6, TypeLine: "Creature — Dragon", Rarity: models.RarityRare, ColorIdentity: []string{"R"}},
		{Name: "Lightning Bolt", ManaValue: 1, TypeLine: "Instant", Rarity: models.RarityCommon, ColorIdentity: []string{"R"}},
		{Name: "Island", ManaValue: 0, TypeLine: "Basic Land — Island", Rarity: models.RarityCommon},
	}
}

func TestCardRepository_SaveAndGet(t *testing.T) {
	repo := NewCardRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.SaveCards(ctx, "blb", testCards()))

	got, err := repo.GetCardsBySet(ctx, "blb")
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Saved order is preserved, not name order.
	assert.Equal(t, "Shivan Dragon", got[0].Name)
	assert.Equal(t, "Lightning Bolt", got[1].Name)
	assert.Equal(t, "Island", got[2].Name)

	assert.Equal(t, 6.0, got[0].ManaValue)
	assert.Equal(t, models.RarityRare, got[0].Rarity)
	assert.Equal(t, []string{"R"}, got[0].ColorIdentity)
	assert.Empty(t, got[2].ColorIdentity)
}

func TestCardRepository_SaveReplacesSet(t *testing.T) {
	repo := NewCardRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.SaveCards(ctx, "blb", testCards()))
	require.NoError(t, repo.SaveCards(ctx, "blb", testCards()[:1]))

	got, err := repo.GetCardsBySet(ctx, "blb")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Shivan Dragon", got[0].Name)
}

func TestCardRepository_SetsAreIndependent(t *testing.T) {
	repo := NewCardRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.SaveCards(ctx, "blb", testCards()))
	require.NoError(t, repo.SaveCards(ctx, "dsk", testCards()[1:]))

	sets, err := repo.GetCachedSets(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"blb": 3, "dsk": 2}, sets)

	cached, err := repo.IsSetCached(ctx, "dsk")
	require.NoError(t, err)
	assert.True(t, cached)

	require.NoError(t, repo.DeleteSet(ctx, "dsk"))

	cached, err = repo.IsSetCached(ctx, "dsk")
	require.NoError(t, err)
	assert.False(t, cached)

	got, err := repo.GetCardsBySet(ctx, "blb")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestCardRepository_UnknownSet(t *testing.T) {
	repo := NewCardRepository(setupTestDB(t))

	got, err := repo.GetCardsBySet(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCardRepository_DuplicateNameRollsBack(t *testing.T) {
	repo := NewCardRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.SaveCards(ctx, "blb", testCards()))

	dup := append(testCards(), testCards()[0])
	err := repo.SaveCards(ctx, "blb", dup)
	require.Error(t, err)

	// The failed replace leaves the previous copy untouched.
	got, err := repo.GetCardsBySet(ctx, "blb")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
