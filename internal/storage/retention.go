package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	dbmodels "github.com/ramonehamilton/deckstats/internal/storage/models"
)

// RetentionPolicy decides which recorded runs PruneRuns removes.
type RetentionPolicy struct {
	// KeepLatest runs per dataset are always kept. Zero keeps none.
	KeepLatest int

	// MinimumAge protects runs younger than it. Zero protects none.
	MinimumAge time.Duration
}

// DefaultRetentionPolicy keeps the ten newest runs of each dataset and
// anything from the last thirty days.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		KeepLatest: 10,
		MinimumAge: 30 * 24 * time.Hour,
	}
}

// PruneResult reports what a prune removed, or would remove on a dry run.
type PruneResult struct {
	TotalRuns     int
	RemovedRuns   int
	RetainedRuns  int
	DryRun        bool
	RemovedBySet  map[string]int
	RetainedBySet map[string]int
	Removed       []*dbmodels.SummaryRun
}

// PruneRuns deletes recorded runs the policy does not retain. With dryRun
// nothing is deleted.
func (s *Service) PruneRuns(ctx context.Context, policy RetentionPolicy, dryRun bool) (*PruneResult, error) {
	if policy.KeepLatest < 0 || policy.MinimumAge < 0 {
		return nil, fmt.Errorf("retention policy values must not be negative")
	}

	runs, err := s.summaries.ListRuns(ctx, "", 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	result := &PruneResult{
		TotalRuns:     len(runs),
		DryRun:        dryRun,
		RemovedBySet:  make(map[string]int),
		RetainedBySet: make(map[string]int),
	}

	// Runs arrive newest first, so the first KeepLatest seen per dataset
	// are the ones to keep.
	seen := make(map[string]int)
	now := s.now()
	for _, run := range runs {
		seen[run.Dataset]++
		keep := seen[run.Dataset] <= policy.KeepLatest ||
			(policy.MinimumAge > 0 && now.Sub(run.CreatedAt) < policy.MinimumAge)

		if keep {
			result.RetainedRuns++
			result.RetainedBySet[run.Dataset]++
			continue
		}
		result.RemovedRuns++
		result.RemovedBySet[run.Dataset]++
		result.Removed = append(result.Removed, run)
	}

	if dryRun {
		return result, nil
	}
	for _, run := range result.Removed {
		if err := s.summaries.DeleteRun(ctx, run.ID); err != nil {
			return result, fmt.Errorf("failed to delete run %s: %w", run.ID, err)
		}
	}
	if result.RemovedRuns > 0 {
		log.Printf("[Storage] Pruned %d of %d runs", result.RemovedRuns, result.TotalRuns)
	}
	return result, nil
}
