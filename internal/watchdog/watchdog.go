// Package watchdog kills runaway processes when system memory use crosses a
// ceiling.
package watchdog

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"
)

// Policy selects which matching processes are killed.
type Policy string

const (
	// PolicyLargest kills only the matching process with the most resident
	// memory.
	PolicyLargest Policy = "largest"
	// PolicyAll kills every matching process.
	PolicyAll Policy = "all"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicyLargest:
		return PolicyLargest, nil
	case PolicyAll:
		return PolicyAll, nil
	default:
		return "", fmt.Errorf("unknown watchdog policy %q", s)
	}
}

const (
	DefaultInterval = time.Second
	DefaultLimitMB  = 12000
	DefaultPattern  = "deckstats"

	// killSettle is the pause after a kill so the freed memory shows up in
	// the next reading.
	killSettle = 500 * time.Millisecond
)

// Options configures a Watchdog.
type Options struct {
	Interval time.Duration

	// LimitBytes triggers when used memory exceeds it. Zero disables it.
	LimitBytes uint64
	// MaxPercent triggers when used memory percent exceeds it. Zero
	// disables it.
	MaxPercent float64

	// Pattern is matched case-insensitively against process names.
	Pattern string
	Policy  Policy

	// SelfPID is never killed. Zero means the current process.
	SelfPID int32
}

// DefaultOptions returns options matching the default configuration.
func DefaultOptions() Options {
	return Options{
		Interval:   DefaultInterval,
		LimitBytes: DefaultLimitMB << 20,
		Pattern:    DefaultPattern,
		Policy:     PolicyLargest,
	}
}

// Watchdog polls memory and kills matching processes over the ceiling.
type Watchdog struct {
	sys   System
	opts  Options
	sleep func(ctx context.Context, d time.Duration)
}

// New creates a Watchdog.
func New(sys System, opts Options) (*Watchdog, error) {
	if sys == nil {
		return nil, fmt.Errorf("system is required")
	}
	if opts.LimitBytes == 0 && opts.MaxPercent <= 0 {
		return nil, fmt.Errorf("a memory limit or percent ceiling is required")
	}
	if opts.MaxPercent > 100 {
		return nil, fmt.Errorf("percent ceiling %v exceeds 100", opts.MaxPercent)
	}
	if opts.Pattern == "" {
		return nil, fmt.Errorf("process pattern is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Policy == "" {
		opts.Policy = PolicyLargest
	}
	if opts.SelfPID == 0 {
		opts.SelfPID = int32(os.Getpid())
	}

	return &Watchdog{sys: sys, opts: opts, sleep: sleepCtx}, nil
}

// Exceeded reports whether usage is over either ceiling.
func (w *Watchdog) Exceeded(u MemoryUsage) bool {
	if w.opts.LimitBytes > 0 && u.Used > w.opts.LimitBytes {
		return true
	}
	return w.opts.MaxPercent > 0 && u.UsedPercent > w.opts.MaxPercent
}

// Candidates returns the processes the policy would kill, largest first.
func (w *Watchdog) Candidates(procs []ProcessInfo) []ProcessInfo {
	pattern := strings.ToLower(w.opts.Pattern)

	var matched []ProcessInfo
	for _, p := range procs {
		if p.PID == w.opts.SelfPID {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), pattern) {
			matched = append(matched, p)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].RSS > matched[j].RSS
	})

	if w.opts.Policy == PolicyLargest && len(matched) > 1 {
		matched = matched[:1]
	}
	return matched
}

// Check takes one memory reading and, when over the ceiling, kills the
// policy's candidates. It returns the processes that were killed.
func (w *Watchdog) Check(ctx context.Context) ([]ProcessInfo, error) {
	usage, err := w.sys.Memory(ctx)
	if err != nil {
		return nil, err
	}
	if !w.Exceeded(usage) {
		return nil, nil
	}

	log.Printf("[Watchdog] Memory usage exceeded (%.1f MB, %.1f%%)", mib(usage.Used), usage.UsedPercent)

	procs, err := w.sys.Processes(ctx)
	if err != nil {
		return nil, err
	}

	candidates := w.Candidates(procs)
	if len(candidates) == 0 {
		log.Printf("[Watchdog] No process matching %q to terminate", w.opts.Pattern)
		return nil, nil
	}

	var killed []ProcessInfo
	for _, p := range candidates {
		log.Printf("[Watchdog] Terminating %s (pid %d) using %.1f MB", p.Name, p.PID, mib(p.RSS))
		if err := w.sys.Kill(ctx, p.PID); err != nil {
			// The process may have exited on its own.
			log.Printf("[Watchdog] Warning: %v", err)
			continue
		}
		killed = append(killed, p)
	}
	if len(killed) > 0 {
		w.sleep(ctx, killSettle)
	}
	return killed, nil
}

// Run checks memory every interval until ctx is cancelled. Reading errors
// are logged and do not stop the loop.
func (w *Watchdog) Run(ctx context.Context) error {
	log.Printf("[Watchdog] Watching processes matching %q every %v (policy %s)", w.opts.Pattern, w.opts.Interval, w.opts.Policy)

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		if _, err := w.Check(ctx); err != nil {
			log.Printf("[Watchdog] Check failed: %v", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func mib(b uint64) float64 {
	return float64(b) / (1 << 20)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
