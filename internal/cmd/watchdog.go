package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deckstats/internal/config"
	"github.com/ramonehamilton/deckstats/internal/watchdog"
)

var watchdogCmd = &cobra.Command{
	Use:   "watchdog",
	Short: "Kill runaway summarize processes when memory runs low",
	Long: `Poll system memory and, while used memory is over the configured
ceiling, terminate processes whose name matches the pattern: the largest
one by resident memory (policy "largest") or every match (policy "all").
The watchdog never terminates itself.`,
	Args: cobra.NoArgs,
	RunE: runWatchdog,
}

var watchdogFlags struct {
	interval   time.Duration
	limitMB    uint64
	maxPercent float64
	pattern    string
	policy     string
	once       bool
}

func init() {
	f := watchdogCmd.Flags()
	f.DurationVar(&watchdogFlags.interval, "interval", 0, "poll interval (default from config)")
	f.Uint64Var(&watchdogFlags.limitMB, "limit-mb", 0, "used memory ceiling in MiB, 0 disables (default from config)")
	f.Float64Var(&watchdogFlags.maxPercent, "max-percent", 0, "used memory ceiling in percent, 0 disables (default from config)")
	f.StringVar(&watchdogFlags.pattern, "pattern", "", "process name pattern (default from config)")
	f.StringVar(&watchdogFlags.policy, "policy", "", "largest or all (default from config)")
	f.BoolVar(&watchdogFlags.once, "once", false, "check once and exit")

	rootCmd.AddCommand(watchdogCmd)
}

// watchdogOptions merges watchdog flags over the watchdog config.
func watchdogOptions(cmd *cobra.Command, cfg *config.Config) (watchdog.Options, error) {
	wc := cfg.Watchdog
	flags := cmd.Flags()

	interval, err := cfg.GetWatchdogInterval()
	if err != nil {
		return watchdog.Options{}, err
	}
	if flags.Changed("interval") {
		interval = watchdogFlags.interval
	}
	if flags.Changed("limit-mb") {
		wc.LimitMB = watchdogFlags.limitMB
	}
	if flags.Changed("max-percent") {
		wc.MaxMemoryPercent = watchdogFlags.maxPercent
	}
	if flags.Changed("pattern") {
		wc.ProcessPattern = watchdogFlags.pattern
	}
	if flags.Changed("policy") {
		wc.Policy = watchdogFlags.policy
	}

	policy, err := watchdog.ParsePolicy(wc.Policy)
	if err != nil {
		return watchdog.Options{}, err
	}
	return watchdog.Options{
		Interval:   interval,
		LimitBytes: wc.LimitMB << 20,
		MaxPercent: wc.MaxMemoryPercent,
		Pattern:    wc.ProcessPattern,
		Policy:     policy,
	}, nil
}

func runWatchdog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := watchdogOptions(cmd, cfg)
	if err != nil {
		return err
	}
	wd, err := watchdog.New(watchdog.NewHostSystem(), opts)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if watchdogFlags.once {
		killed, err := wd.Check(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Terminated %d processes\n", len(killed))
		return nil
	}

	if err := wd.Run(ctx); err != nil && !errors.Is(err, ctx.Err()) {
		return err
	}
	return nil
}
