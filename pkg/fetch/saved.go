package fetch

import (
	"context"
	"fmt"
	"path/filepath"

	"igharvest/pkg/logger"
	"igharvest/pkg/models"
	"igharvest/pkg/progress"
	"igharvest/pkg/ratelimit"
	"igharvest/pkg/storage"
)

// SavedEstimate is the saved-posts share of the overall total. The saved
// collection has no known size, so it is the limit or the default.
func (f *Fetcher) SavedEstimate() int {
	if f.opts.Limit > 0 {
		return f.opts.Limit
	}
	return progress.DefaultEstimate
}

// Saved downloads the logged-in account's saved posts under root. The feed
// is ordered by save time, not by when a post was taken, so out-of-window
// posts are skipped without ending the walk.
func (f *Fetcher) Saved(ctx context.Context, root string) (Summary, error) {
	var sum Summary
	limit := f.opts.Limit

	estimate := f.SavedEstimate()
	f.tracker.Revise(progress.Saved, estimate)
	f.emit.Infof("Starting to download saved posts (%s layout)...", f.opts.SavedLayout)

	processed := 0
	for item, err := range f.platform.ListSavedPosts(ctx) {
		if err != nil {
			return sum, f.listError(ctx, err)
		}
		if limit > 0 && processed >= limit {
			f.emit.Infof("Reached the maximum number of saved posts limit (%d)", limit)
			break
		}
		if !f.opts.Window.Contains(item.TakenAt) {
			f.logger.DebugWithFields("saved post outside date range", map[string]interface{}{
				"item_id":  item.ID,
				"taken_at": when(item),
			})
			continue
		}
		if err := f.checkpoint(ctx); err != nil {
			return sum, err
		}

		sum.Found++
		if limit <= 0 && sum.Found > estimate {
			estimate = progress.GrowEstimate(estimate, sum.Found)
			f.tracker.Revise(progress.Saved, estimate)
		}

		dir, prefix := f.savedTarget(root, item)
		t := target{dir: dir, prefix: prefix, noun: "saved post", op: ratelimit.OpSaved}
		o, err := f.process(ctx, item, t, fmt.Sprintf("Processing saved post %d by %s from %s", processed+1, ownerName(item), when(item)))
		if err != nil {
			return sum, err
		}
		sum.add(o)
		if o != skipped {
			if err := f.longPause(ctx, processed, ratelimit.SavedMode); err != nil {
				return sum, err
			}
		}
		processed++
		f.tracker.Advance(1)
	}

	f.emit.Infof("Saved posts download completed: %d downloaded, %d skipped, %d total found", sum.Downloaded, sum.Skipped, sum.Found)
	logger.LogPhaseSummary(f.logger, "saved", sum.Downloaded, sum.Skipped, sum.Failed)
	return sum, nil
}

// savedTarget places an item in <root>/<owner>/ or, in the flat layout, in
// root with an <owner>_ filename prefix.
func (f *Fetcher) savedTarget(root string, item models.Item) (dir, prefix string) {
	owner := storage.SafeName(ownerName(item))
	if f.opts.SavedLayout == LayoutFlat {
		return root, owner + "_"
	}
	return filepath.Join(root, owner), ""
}

func ownerName(item models.Item) string {
	switch {
	case item.Owner != "":
		return item.Owner
	case item.OwnerID != "":
		return item.OwnerID
	default:
		return "unknown"
	}
}
