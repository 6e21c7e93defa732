package repository

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory SQLite database with the card archive and
// summary run tables.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE cards (
			set_code       TEXT    NOT NULL,
			name           TEXT    NOT NULL,
			position       INTEGER NOT NULL,
			mana_value     REAL    NOT NULL DEFAULT 0,
			type_line      TEXT    NOT NULL DEFAULT '',
			rarity         TEXT    NOT NULL DEFAULT '',
			color_identity TEXT    NOT NULL DEFAULT '[]',
			fetched_at     TEXT    NOT NULL,
			PRIMARY KEY (set_code, name)
		);

		CREATE TABLE summary_runs (
			id            TEXT    PRIMARY KEY,
			dataset       TEXT    NOT NULL,
			created_at    TEXT    NOT NULL,
			deck_count    INTEGER NOT NULL,
			max_decks     INTEGER NOT NULL DEFAULT 0,
			card_types    TEXT    NOT NULL DEFAULT '[]',
			unknown_cards TEXT    NOT NULL DEFAULT '[]',
			output_path   TEXT    NOT NULL DEFAULT '',
			output_format TEXT    NOT NULL DEFAULT ''
		);

		CREATE TABLE deck_summaries (
			run_id         TEXT    NOT NULL REFERENCES summary_runs(id) ON DELETE CASCADE,
			position       INTEGER NOT NULL,
			deck_id        TEXT    NOT NULL,
			wins           INTEGER NOT NULL,
			losses         INTEGER NOT NULL,
			avg_mana_curve REAL    NOT NULL,
			bomb_density   REAL    NOT NULL,
			color_identity TEXT    NOT NULL DEFAULT '[]',
			type_counts    TEXT    NOT NULL DEFAULT '{}',
			PRIMARY KEY (run_id, position)
		);
	`)
	require.NoError(t, err)

	return db
}
