package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deckstats/internal/config"
	"github.com/ramonehamilton/deckstats/internal/models"
	"github.com/ramonehamilton/deckstats/internal/version"
)

const testCardsCSV = `name,mana_value,type_line,rarity,color_identity
Bolt,1,Instant,common,['R']
Dragon,5,Creature — Dragon,mythic,['R']
Isle,0,Land,common,[]
`

const testGamesCSV = `draft_id,won,deck_Bolt,deck_Dragon,deck_Isle
d1,True,1,1,1
d1,False,1,1,1
d1,True,1,1,1
d2,False,0,0,2
`

// setupWorkspace writes a config file pointing every path into a temp dir
// and a "tst" dataset under the data root.
func setupWorkspace(t *testing.T) (cfgPath, outDir string) {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "data")
	outDir = filepath.Join(base, "out")

	dir := filepath.Join(root, "tst")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cards.csv"), []byte(testCardsCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "games.csv"), []byte(testGamesCSV), 0o644))

	cfgPath = filepath.Join(base, "config.toml")
	cfg := fmt.Sprintf("[data]\nroot = %q\ndatabase = %q\n\n[output]\ndir = %q\n",
		root, filepath.Join(base, "deckstats.db"), outDir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath, outDir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version.String()+"\n", out)
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Output.Format, cfg.Output.Format)

	_, err = execute(t, "config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out, err = execute(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "[watchdog]")
	assert.Contains(t, out, "deck_id_column")
}

func TestSummarizeAndRuns(t *testing.T) {
	cfgPath, outDir := setupWorkspace(t)

	out, err := execute(t, "summarize", "TST", "--config", cfgPath, "--format", "json", "--report")
	require.NoError(t, err)
	assert.Contains(t, out, "tst: 2 decks")
	assert.Contains(t, out, "run id:")

	data, err := os.ReadFile(filepath.Join(outDir, "tst_summary.json"))
	require.NoError(t, err)
	var table models.DeckSummaryTable
	require.NoError(t, json.Unmarshal(data, &table))
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "d1", table.Rows[0].DeckID)
	assert.Equal(t, 2, table.Rows[0].Wins)
	assert.FileExists(t, filepath.Join(outDir, "tst_report.html"))

	// Existing output is not replaced without --overwrite.
	_, err = execute(t, "summarize", "tst", "--config", cfgPath, "--format", "json")
	require.Error(t, err)

	out, err = execute(t, "runs", "list", "--config", cfgPath, "--dataset", "TST")
	require.NoError(t, err)
	assert.Contains(t, out, "tst_summary.json")
	assert.Equal(t, 1, strings.Count(out, "tst_summary.json"))
}

func TestDecklistCommand(t *testing.T) {
	cfgPath, _ := setupWorkspace(t)

	out, err := execute(t, "decklist", "tst", "d1", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Deck d1")
	assert.Contains(t, out, "Record: 2-1")
	assert.Contains(t, out, "Dragon")

	_, err = execute(t, "decklist", "tst", "nope", "--config", cfgPath)
	require.Error(t, err)
}

func TestWatchdogCommand_InvalidPolicy(t *testing.T) {
	cfgPath, _ := setupWorkspace(t)

	_, err := execute(t, "watchdog", "--once", "--config", cfgPath, "--policy", "random")
	require.Error(t, err)
}

func TestDBBackupCommands(t *testing.T) {
	cfgPath, _ := setupWorkspace(t)

	out, err := execute(t, "db", "backups", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No backups")

	out, err = execute(t, "db", "backup", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Backup written to")

	out, err = execute(t, "db", "backups", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "backup_")
}

func TestRunsPruneDryRun(t *testing.T) {
	cfgPath, _ := setupWorkspace(t)

	out, err := execute(t, "runs", "prune", "--config", cfgPath, "--dry-run", "--keep", "0", "--min-age", "0s")
	require.NoError(t, err)
	assert.Contains(t, out, "Would delete 0 of 0 runs")
}
