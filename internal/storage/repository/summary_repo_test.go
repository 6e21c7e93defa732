package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deckstats/internal/models"
	dbmodels "github.com/ramonehamilton/deckstats/internal/storage/models"
)

func testSummaryTable(dataset string) *models.DeckSummaryTable {
	return &models.DeckSummaryTable{
		Dataset:      dataset,
		Types:        []string{"Creature", "Instant", "Land"},
		UnknownCards: []string{"Mystery Card"},
		Rows: []models.DeckSummary{
			{
				DeckID: "b", Wins: 2, Losses: 1, AvgManaCurve: 3, BombDensity: 1.0 / 3.0,
				ColorIdentity: []string{"R"},
				TypeCounts:    map[string]int{"Creature": 1, "Instant": 1, "Land": 1},
			},
			{
				DeckID: "a", Wins: 0, Losses: 0, AvgManaCurve: 0, BombDensity: 0,
				ColorIdentity: []string{},
				TypeCounts:    map[string]int{"Creature": 0, "Instant": 0, "Land": 0},
			},
		},
	}
}

func TestSummaryRepository_SaveAndGet(t *testing.T) {
	repo := NewSummaryRepository(setupTestDB(t))
	ctx := context.Background()

	run := &dbmodels.SummaryRun{MaxDecks: 2, OutputPath: "out.csv", OutputFormat: "csv"}
	table := testSummaryTable("blb")
	require.NoError(t, repo.SaveRun(ctx, run, table))

	assert.NotEmpty(t, run.ID)
	assert.False(t, run.CreatedAt.IsZero())
	assert.Equal(t, "blb", run.Dataset)
	assert.Equal(t, 2, run.DeckCount)

	gotRun, gotTable, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, gotRun.ID)
	assert.Equal(t, "out.csv", gotRun.OutputPath)
	assert.True(t, run.CreatedAt.Equal(gotRun.CreatedAt))

	assert.Equal(t, table.Types, gotTable.Types)
	assert.Equal(t, table.UnknownCards, gotTable.UnknownCards)
	require.Len(t, gotTable.Rows, 2)
	assert.Equal(t, "b", gotTable.Rows[0].DeckID)
	assert.Equal(t, "a", gotTable.Rows[1].DeckID)
	assert.InDelta(t, 1.0/3.0, gotTable.Rows[0].BombDensity, 1e-12)
	assert.Equal(t, table.Rows[0].TypeCounts, gotTable.Rows[0].TypeCounts)
	assert.Empty(t, gotTable.Rows[1].ColorIdentity)
}

func TestSummaryRepository_KeepsExplicitID(t *testing.T) {
	repo := NewSummaryRepository(setupTestDB(t))
	ctx := context.Background()

	run := &dbmodels.SummaryRun{ID: "fixed-id"}
	require.NoError(t, repo.SaveRun(ctx, run, testSummaryTable("blb")))
	assert.Equal(t, "fixed-id", run.ID)

	// Reusing an id fails and stores nothing extra.
	err := repo.SaveRun(ctx, &dbmodels.SummaryRun{ID: "fixed-id"}, testSummaryTable("dsk"))
	require.Error(t, err)

	runs, err := repo.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSummaryRepository_ListRuns(t *testing.T) {
	r := &summaryRepository{db: setupTestDB(t)}
	ctx := context.Background()

	base := time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)
	datasets := []string{"blb", "dsk", "blb", "blb"}
	for i, ds := range datasets {
		// Sub-second offsets check that stored timestamps sort correctly.
		created := base.Add(time.Duration(i) * 100 * time.Millisecond)
		r.now = func() time.Time { return created }
		require.NoError(t, r.SaveRun(ctx, &dbmodels.SummaryRun{}, testSummaryTable(ds)))
	}

	all, err := r.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].CreatedAt.After(all[i].CreatedAt), "runs should be newest first")
	}

	blb, err := r.ListRuns(ctx, "blb", 0)
	require.NoError(t, err)
	assert.Len(t, blb, 3)
	for _, run := range blb {
		assert.Equal(t, "blb", run.Dataset)
	}

	limited, err := r.ListRuns(ctx, "blb", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, blb[0].ID, limited[0].ID)
}

func TestSummaryRepository_DeleteRun(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSummaryRepository(db)
	ctx := context.Background()

	run := &dbmodels.SummaryRun{}
	require.NoError(t, repo.SaveRun(ctx, run, testSummaryTable("blb")))

	require.NoError(t, repo.DeleteRun(ctx, run.ID))

	var rows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM deck_summaries`).Scan(&rows))
	assert.Zero(t, rows, "deck rows should cascade")

	_, _, err := repo.GetRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)

	assert.ErrorIs(t, repo.DeleteRun(ctx, run.ID), ErrRunNotFound)
}

func TestSummaryRepository_NilArguments(t *testing.T) {
	repo := NewSummaryRepository(setupTestDB(t))
	assert.Error(t, repo.SaveRun(context.Background(), nil, testSummaryTable("blb")))
	assert.Error(t, repo.SaveRun(context.Background(), &dbmodels.SummaryRun{}, nil))
}
