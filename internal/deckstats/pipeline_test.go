package deckstats

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
	"github.com/ramonehamilton/deckstats/internal/models"
)

func sampleCards(t *testing.T) *models.CardTable {
	t.Helper()
	cards, err := models.NewCardTable("tst", []models.CardRecord{
		{Name: "Bolt", ManaValue: 1, TypeLine: "Instant", Rarity: models.RarityCommon, ColorIdentity: []string{"R"}},
		{Name: "Dragon", ManaValue: 5, TypeLine: "Creature — Dragon", Rarity: models.RarityMythic, ColorIdentity: []string{"R"}},
		{Name: "Isle", ManaValue: 0, TypeLine: "Land", Rarity: models.RarityCommon, ColorIdentity: []string{}},
	})
	require.NoError(t, err)
	return cards
}

func TestComputeDeckSummaries_EndToEnd(t *testing.T) {
	cards := sampleCards(t)
	deck := map[string]int{"Bolt": 1, "Dragon": 1, "Isle": 2}
	games := models.NewGameTable("tst", []models.GameRecord{
		{DeckID: "D1", Won: true, Deck: deck},
		{DeckID: "D1", Won: false, Deck: deck},
	})

	table, err := ComputeDeckSummaries(games, cards, Options{})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	assert.Equal(t, []string{"Creature", "Instant", "Land"}, table.Types)

	row := table.Rows[0]
	assert.Equal(t, "D1", row.DeckID)
	assert.Equal(t, 1, row.Wins)
	assert.Equal(t, 1, row.Losses)
	assert.InDelta(t, 3.0, row.AvgManaCurve, 1e-9)
	assert.InDelta(t, 1.0/3.0, row.BombDensity, 1e-9)
	assert.Equal(t, []string{"R"}, row.ColorIdentity)
	assert.Equal(t, map[string]int{"Creature": 1, "Instant": 1, "Land": 1}, row.TypeCounts)
	assert.Empty(t, table.UnknownCards)
}

func TestComputeDeckSummaries_UnknownCardExcluded(t *testing.T) {
	cards := sampleCards(t)
	games := models.NewGameTable("tst", []models.GameRecord{
		{DeckID: "D1", Won: true, Deck: map[string]int{"Bolt": 1, "Mystery Card": 3}},
	})

	table, err := ComputeDeckSummaries(games, cards, Options{})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	row := table.Rows[0]
	assert.InDelta(t, 1.0, row.AvgManaCurve, 1e-9)
	assert.Zero(t, row.BombDensity)
	assert.Equal(t, []string{"R"}, row.ColorIdentity)
	assert.Equal(t, 1, row.TypeCounts["Instant"])
	assert.Equal(t, 0, row.TypeCounts["Creature"])
	assert.Equal(t, []string{"Mystery Card"}, table.UnknownCards)
}

func TestComputeDeckSummaries_EmptyDeck(t *testing.T) {
	cards := sampleCards(t)
	games := models.NewGameTable("tst", []models.GameRecord{
		{DeckID: "D1", Won: false, Deck: map[string]int{"Bolt": 0}},
		{DeckID: "D1", Won: false},
	})

	table, err := ComputeDeckSummaries(games, cards, Options{})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	row := table.Rows[0]
	assert.Equal(t, 0, row.Wins)
	assert.Equal(t, 2, row.Losses)
	assert.Zero(t, row.BombDensity)
	assert.Zero(t, row.AvgManaCurve)
	assert.Empty(t, row.ColorIdentity)
	for typ, n := range row.TypeCounts {
		assert.Zerof(t, n, "num_%s", typ)
	}
	assert.Len(t, row.TypeCounts, 3)
}

func TestComputeDeckSummaries_OnlyLandsGivesZeroCurve(t *testing.T) {
	cards := sampleCards(t)
	games := models.NewGameTable("tst", []models.GameRecord{
		{DeckID: "lands", Won: true, Deck: map[string]int{"Isle": 17}},
	})

	table, err := ComputeDeckSummaries(games, cards, Options{})
	require.NoError(t, err)
	assert.Zero(t, table.Rows[0].AvgManaCurve)
	assert.Equal(t, 1, table.Rows[0].TypeCounts["Land"])
}

func TestComputeDeckSummaries_MultiTypeLine(t *testing.T) {
	cards, err := models.NewCardTable("tst", []models.CardRecord{
		{Name: "Golem", ManaValue: 3, TypeLine: "Artifact Creature — Golem", Rarity: models.RarityUncommon},
		{Name: "Bear", ManaValue: 2, TypeLine: "Creature — Bear", Rarity: models.RarityCommon},
	})
	require.NoError(t, err)

	games := models.NewGameTable("tst", []models.GameRecord{
		{DeckID: "D1", Won: true, Deck: map[string]int{"Golem": 1, "Bear": 1}},
	})

	table, err := ComputeDeckSummaries(games, cards, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Artifact", "Creature"}, table.Types)
	assert.Equal(t, 1, table.Rows[0].TypeCounts["Artifact"])
	assert.Equal(t, 2, table.Rows[0].TypeCounts["Creature"])
}

func TestComputeDeckSummaries_MissingOutcome(t *testing.T) {
	cards := sampleCards(t)
	b := models.NewGameTableBuilder("tst", "draft_id", false, []string{"Bolt"})
	b.AddRow("D1", false, []uint8{1})
	games := b.Build()

	table, err := ComputeDeckSummaries(games, cards, Options{})
	assert.Nil(t, table)

	var mc *dataerr.MissingColumnError
	require.True(t, errors.As(err, &mc), "expected MissingColumnError, got %v", err)
	assert.Equal(t, "won", mc.Column)
}

func TestComputeDeckSummaries_EmptyTypeLine(t *testing.T) {
	cards, err := models.NewCardTable("tst", []models.CardRecord{
		{Name: "Blank", TypeLine: ""},
	})
	require.NoError(t, err)
	games := models.NewGameTable("tst", nil)

	_, err = ComputeDeckSummaries(games, cards, Options{})
	assert.ErrorIs(t, err, dataerr.ErrDataIntegrity)
}

func TestExtractVocabulary_ColumnCollision(t *testing.T) {
	cards, err := models.NewCardTable("tst", []models.CardRecord{
		{Name: "A", TypeLine: "Land"},
		{Name: "B", TypeLine: "land"},
	})
	require.NoError(t, err)

	_, err = ExtractVocabulary(cards)
	assert.ErrorIs(t, err, dataerr.ErrDataIntegrity)
}

func TestComputeDeckSummaries_MaxDecks(t *testing.T) {
	cards := sampleCards(t)
	games := models.NewGameTable("tst", []models.GameRecord{
		{DeckID: "B", Won: true, Deck: map[string]int{"Bolt": 1}},
		{DeckID: "A", Won: true, Deck: map[string]int{"Dragon": 1}},
		{DeckID: "C", Won: false, Deck: map[string]int{"Isle": 1}},
		{DeckID: "B", Won: false, Deck: map[string]int{"Bolt": 1}},
	})

	table, err := ComputeDeckSummaries(games, cards, Options{MaxDecks: 2})
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "B", table.Rows[0].DeckID)
	assert.Equal(t, "A", table.Rows[1].DeckID)
	assert.Equal(t, 2, table.Rows[0].Games())
	assert.Equal(t, []string{"Creature", "Instant", "Land"}, table.Types)
}

func TestDecklist(t *testing.T) {
	games := models.NewGameTable("tst", []models.GameRecord{
		{DeckID: "D1", Won: true, Deck: map[string]int{"Bolt": 2, "Isle": 9}},
		{DeckID: "D1", Won: true, Deck: map[string]int{"Bolt": 2, "Isle": 9}},
		{DeckID: "D1", Won: false, Deck: map[string]int{"Bolt": 2, "Isle": 9}},
		{DeckID: "D2", Won: false, Deck: map[string]int{"Dragon": 1}},
	})

	rec, err := Decklist(games, "")
	require.NoError(t, err)
	assert.Equal(t, "D1", rec.DeckID)
	assert.Equal(t, 2, rec.Wins)
	assert.Equal(t, 1, rec.Losses)
	assert.InDelta(t, 66.67, rec.WinRate(), 0.01)
	assert.Equal(t, map[string]int{"Bolt": 2, "Isle": 9}, rec.Decklist)

	_, err = Decklist(games, "nope")
	assert.ErrorIs(t, err, ErrDeckNotFound)
}
