package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deckstats/internal/deckstats"
	"github.com/ramonehamilton/deckstats/internal/display"
)

var decklistCmd = &cobra.Command{
	Use:   "decklist <set> [deck-id]",
	Short: "Show one deck's record and decklist",
	Long: `Show the event record and decklist of a single deck. Without a deck id
the deck of the first game row is shown.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDecklist,
}

func init() {
	rootCmd.AddCommand(decklistCmd)
}

func runDecklist(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	games, err := a.store.LoadGameTable(ctx, args[0])
	if err != nil {
		return err
	}

	deckID := ""
	if len(args) == 2 {
		deckID = args[1]
	}
	rec, err := deckstats.Decklist(games, deckID)
	if err != nil {
		return err
	}

	// Metadata only annotates the listing.
	cards, err := a.store.LoadCardMetadata(ctx, args[0])
	if err != nil {
		log.Printf("[CLI] Card metadata unavailable: %v", err)
		cards = nil
	}
	return display.NewDecklistDisplayer(cmd.OutOrStdout(), cards).Display(rec)
}
