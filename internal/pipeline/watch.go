package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/ramonehamilton/deckstats/internal/dataset"
)

// Refresher brings a dataset's derived copies up to date after one of its
// raw files changed.
type Refresher interface {
	WatchPaths(id string) []string
	Refresh(ctx context.Context, id, path string) error
}

// Watch runs req once, then again every time the dataset's raw files
// change, until ctx is done. Failed re-runs are logged and watching
// continues. onResult, if set, is called after every successful run.
func (r *Runner) Watch(ctx context.Context, req RunRequest, src Refresher, debounce time.Duration, onResult func(*RunResult)) error {
	runOnce := func() {
		res, err := r.Run(ctx, req)
		if err != nil {
			log.Printf("[Pipeline] Run failed: %v", err)
			return
		}
		if onResult != nil {
			onResult(res)
		}
	}

	// Watching always replaces the previous output.
	req.Overwrite = true
	runOnce()

	id := dataset.NormalizeID(req.Dataset)
	return dataset.Watch(ctx, src.WatchPaths(id), debounce, func(path string) {
		if err := src.Refresh(ctx, id, path); err != nil {
			log.Printf("[Pipeline] Refresh of %s failed: %v", path, err)
			return
		}
		runOnce()
	})
}
