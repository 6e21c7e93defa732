package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Manage card metadata",
}

var cardsFetchCmd = &cobra.Command{
	Use:   "fetch <set>",
	Short: "Download a set's card metadata from Scryfall",
	Long: `Download every card of a set from Scryfall and store it as the
dataset's cards.csv and in the local card archive, replacing what was there.`,
	Args: cobra.ExactArgs(1),
	RunE: runCardsFetch,
}

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "Manage game data",
}

var gamesFetchCmd = &cobra.Command{
	Use:   "fetch <set>",
	Short: "Download a set's public game data from 17Lands",
	Args:  cobra.ExactArgs(1),
	RunE:  runGamesFetch,
}

var convertCmd = &cobra.Command{
	Use:   "convert <set>",
	Short: "Convert a dataset's games.csv to the columnar format",
	Long: `Parse a dataset's games.csv once and write it in the configured
columnar format so later runs skip CSV parsing.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

var convertAfterFetch bool

func init() {
	gamesFetchCmd.Flags().BoolVar(&convertAfterFetch, "convert", false, "convert to the columnar format after downloading")

	cardsCmd.AddCommand(cardsFetchCmd)
	gamesCmd.AddCommand(gamesFetchCmd)
	rootCmd.AddCommand(cardsCmd, gamesCmd, convertCmd)
}

func runCardsFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.store.FetchCards(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d cards for %s\n", len(records), args[0])
	return nil
}

func runGamesFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.FetchGames(ctx, args[0]); err != nil {
		return err
	}
	id := args[0]
	fmt.Fprintf(cmd.OutOrStdout(), "Downloaded game data to %s\n", a.store.Layout().GamesCSV(id))

	if !convertAfterFetch {
		return nil
	}
	return convert(cmd, a, id)
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	return convert(cmd, a, args[0])
}

func convert(cmd *cobra.Command, a *app, id string) error {
	games, path, err := a.store.ConvertGames(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Converted %d game rows (%d card columns) to %s\n", games.Len(), len(games.CardNames()), path)
	return nil
}
