package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deckstats/internal/dataset"
	"github.com/ramonehamilton/deckstats/internal/display"
	"github.com/ramonehamilton/deckstats/internal/storage"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded summary runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded summary runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a recorded run and its summary rows",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old recorded runs",
	Long: `Delete recorded runs except the newest --keep per dataset and any
younger than --min-age.`,
	Args: cobra.NoArgs,
	RunE: runRunsPrune,
}

var (
	runsDataset string
	runsLimit   int

	pruneKeep   int
	pruneMinAge time.Duration
	pruneDryRun bool
)

func init() {
	runsListCmd.Flags().StringVar(&runsDataset, "dataset", "", "only list runs for this set")
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum runs to list (0 = all)")
	runsShowCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum rows to show (0 = all)")

	defaults := storage.DefaultRetentionPolicy()
	runsPruneCmd.Flags().IntVar(&pruneKeep, "keep", defaults.KeepLatest, "newest runs to keep per dataset")
	runsPruneCmd.Flags().DurationVar(&pruneMinAge, "min-age", defaults.MinimumAge, "never delete runs younger than this")
	runsPruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "report what would be deleted")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsPruneCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.service.ListRuns(cmd.Context(), dataset.NormalizeID(runsDataset), runsLimit)
	if err != nil {
		return err
	}
	return display.DisplayRuns(cmd.OutOrStdout(), runs)
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	run, table, err := a.service.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return display.DisplayRun(cmd.OutOrStdout(), run, table, runsLimit)
}

func runRunsPrune(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	policy := storage.RetentionPolicy{KeepLatest: pruneKeep, MinimumAge: pruneMinAge}
	res, err := a.service.PruneRuns(cmd.Context(), policy, pruneDryRun)
	if err != nil {
		return err
	}

	verb := "Deleted"
	if res.DryRun {
		verb = "Would delete"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d of %d runs\n", verb, res.RemovedRuns, res.TotalRuns)
	for _, run := range res.Removed {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s  %s\n", run.ID, run.Dataset, run.CreatedAt.Local().Format(time.DateTime))
	}
	return nil
}
