// Package cmd implements the deckstats command line.
package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deckstats/internal/config"
	"github.com/ramonehamilton/deckstats/internal/dataset"
	"github.com/ramonehamilton/deckstats/internal/pipeline"
	"github.com/ramonehamilton/deckstats/internal/scryfall"
	"github.com/ramonehamilton/deckstats/internal/seventeenlands"
	"github.com/ramonehamilton/deckstats/internal/storage"
	"github.com/ramonehamilton/deckstats/internal/tablefile"
)

var (
	cfgFile  string
	dataRoot string
	debug    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "deckstats",
	Short: "deckstats - per-deck summaries of 17Lands draft game data",
	Long: `deckstats turns 17Lands public game data and Scryfall card metadata
into one summary row per draft deck: record, average mana value,
bomb density, color identity and card type counts.

Example:
  deckstats cards fetch BLB
  deckstats games fetch BLB
  deckstats convert BLB
  deckstats summarize BLB --format json --report`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ~/.deckstats/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataRoot, "data-root", "", "dataset directory (overrides data.root)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if dataRoot != "" {
		cfg.Data.Root = dataRoot
	}
	if cfg.App.DebugMode && !debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
	return cfg, nil
}

// app bundles the collaborators commands need, built from one Config.
type app struct {
	cfg     *config.Config
	service *storage.Service
	store   *dataset.Store
}

// newApp wires the dataset store to Scryfall, 17Lands and, when withDB is
// set, the SQLite archive. Callers must Close the result.
func newApp(ctx context.Context, withDB bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	if withDB {
		svc, err := storage.OpenService(cfg.Data.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.service = svc
	}

	cards, err := newScryfallClient(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	games, err := newDownloader(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	cache, err := dataset.NewCache(cfg.Cache.MaxDatasets)
	if err != nil {
		a.Close()
		return nil, err
	}
	format, err := tablefile.ParseFormat(cfg.Data.TableFormat)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := dataset.StoreOptions{
		Root:         cfg.Data.Root,
		Format:       format,
		DeckIDColumn: cfg.Data.DeckIDColumn,
		Cache:        cache,
		Cards:        cards,
		Games:        games,
	}
	if a.service != nil {
		opts.Archive = a.service
	}
	if a.store, err = dataset.NewStore(opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// runner returns a pipeline runner recording into the database, if open.
func (a *app) runner() *pipeline.Runner {
	if a.service == nil {
		return pipeline.NewRunner(a.store, nil, nil)
	}
	return pipeline.NewRunner(a.store, a.service, nil)
}

func (a *app) Close() {
	if a.service == nil {
		return
	}
	if err := a.service.Close(); err != nil {
		log.Printf("[CLI] Warning: failed to close database: %v", err)
	}
}

func newScryfallClient(cfg *config.Config) (*scryfall.Client, error) {
	rate, err := cfg.GetScryfallRateLimit()
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.GetScryfallTimeout()
	if err != nil {
		return nil, err
	}
	return scryfall.NewClient(
		scryfall.WithBaseURL(cfg.Scryfall.BaseURL),
		scryfall.WithUserAgent(cfg.Scryfall.UserAgent),
		scryfall.WithRateLimit(rate),
		scryfall.WithTimeout(timeout),
	), nil
}

func newDownloader(ctx context.Context, cfg *config.Config) (*seventeenlands.Downloader, error) {
	sl := cfg.SeventeenLands

	var source seventeenlands.Source
	switch sl.Source {
	case "s3":
		s3cfg := seventeenlands.DefaultS3Config()
		s3cfg.Bucket = sl.Bucket
		s3cfg.Prefix = sl.Prefix
		s3cfg.Region = sl.Region
		if sl.Endpoint != "" {
			s3cfg.Endpoint = sl.Endpoint
			s3cfg.UsePathStyle = true
		}
		s, err := seventeenlands.NewS3Source(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		source = s
	default:
		timeout, err := cfg.GetDownloadTimeout()
		if err != nil {
			return nil, err
		}
		source = seventeenlands.NewHTTPSource(sl.BaseURL, &http.Client{Timeout: timeout})
	}
	return seventeenlands.NewDownloader(source, sl.Format), nil
}
