package fetch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"igharvest/pkg/logger"
	"igharvest/pkg/models"
	"igharvest/pkg/progress"
	"igharvest/pkg/ratelimit"
)

// PostEstimate is the posts share of the overall total: the number of days
// in the window, or the count limit capped by the profile's media count
// when the window is ignored.
func (f *Fetcher) PostEstimate(profile models.Profile) int {
	if f.opts.Window.Ignore {
		return progress.PostEstimate(f.opts.Limit, profile.MediaCount)
	}
	return f.opts.Window.Days()
}

// Posts downloads the profile's posts into <root>/posts. A failed listing
// ends this phase only: it is reported and counted as aborted in the
// summary. Only cancellation is returned.
func (f *Fetcher) Posts(ctx context.Context, profile models.Profile, root string) (Summary, error) {
	dir := filepath.Join(root, "posts")
	f.emit.Infof("Starting to download posts matching criteria...")

	var (
		sum Summary
		err error
	)
	if f.opts.Window.Ignore {
		sum, err = f.allPosts(ctx, profile, dir)
	} else {
		sum, err = f.windowedPosts(ctx, profile, dir)
	}
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return sum, err
		}
		sum.Aborted++
		f.emit.Errorf("Error downloading posts: %v", err)
		logger.LogPhaseSummary(f.logger, "posts", sum.Downloaded, sum.Skipped, sum.Failed)
		return sum, nil
	}

	suffix := ""
	if f.opts.Limit > 0 && sum.Found >= f.opts.Limit {
		suffix = fmt.Sprintf(" (limited to %d)", f.opts.Limit)
	}
	scope := "total found"
	if !f.opts.Window.Ignore {
		scope = "total in date range"
	}
	f.emit.Infof("Posts download completed: %d downloaded, %d skipped, %d %s%s", sum.Downloaded, sum.Skipped, sum.Found, scope, suffix)
	logger.LogPhaseSummary(f.logger, "posts", sum.Downloaded, sum.Skipped, sum.Failed)
	return sum, nil
}

// allPosts streams newest first until the limit. Progress counts items
// against an estimate that grows by a fifth whenever it is overtaken.
func (f *Fetcher) allPosts(ctx context.Context, profile models.Profile, dir string) (Summary, error) {
	var sum Summary
	limit := f.opts.Limit

	estimate := f.PostEstimate(profile)
	f.tracker.Revise(progress.Posts, estimate)
	if limit <= 0 && profile.MediaCount <= 0 {
		f.emit.Infof("Unable to determine total post count, using default value")
	} else {
		f.emit.Infof("Estimated total posts: %d", estimate)
	}

	t := target{dir: dir, noun: "post", op: ratelimit.OpPost}
	processed := 0
	for item, err := range f.platform.ListPosts(ctx, profile) {
		if err != nil {
			return sum, f.listError(ctx, err)
		}
		if err := f.checkpoint(ctx); err != nil {
			return sum, err
		}
		if limit > 0 && processed >= limit {
			f.emit.Infof("Reached the maximum number of posts limit (%d), stopping discovery", limit)
			break
		}

		sum.Found++
		if limit <= 0 && sum.Found > estimate {
			estimate = progress.GrowEstimate(estimate, sum.Found)
			f.tracker.Revise(progress.Posts, estimate)
			f.emit.Infof("Adjusting estimated total to %d posts", estimate)
		}

		o, err := f.process(ctx, item, t, fmt.Sprintf("Processing post %d from %s", processed+1, when(item)))
		if err != nil {
			return sum, err
		}
		sum.add(o)
		if o != skipped {
			if err := f.longPause(ctx, processed, ratelimit.PostMode); err != nil {
				return sum, err
			}
		}
		processed++
		f.tracker.Advance(1)
	}
	return sum, nil
}

// windowedPosts relies on the feed being newest first: it skips posts after
// the window and stops at the first one before it. Progress is one step per
// distinct calendar day seen.
func (f *Fetcher) windowedPosts(ctx context.Context, profile models.Profile, dir string) (Summary, error) {
	var sum Summary
	w := f.opts.Window

	f.tracker.Revise(progress.Posts, w.Days())
	f.emit.Infof("Processing posts in date range: %s to %s", w.Since.Format(dateLayout), w.Until.Format(dateLayout))

	days := progress.NewDayCounter()
	t := target{dir: dir, noun: "post", op: ratelimit.OpPost}
	for item, err := range f.platform.ListPosts(ctx, profile) {
		if err != nil {
			return sum, f.listError(ctx, err)
		}
		if item.TakenAt.Before(w.Since) {
			f.emit.Infof("Reached posts older than the specified date range, stopping")
			break
		}
		if !w.Contains(item.TakenAt) {
			continue
		}
		if err := f.checkpoint(ctx); err != nil {
			return sum, err
		}

		sum.Found++
		if days.Observe(item.TakenAt) {
			f.tracker.Advance(1)
		}

		o, err := f.process(ctx, item, t, fmt.Sprintf("Processing post %d from %s", sum.Found, when(item)))
		if err != nil {
			return sum, err
		}
		sum.add(o)
		if o != skipped {
			if err := f.longPause(ctx, sum.Found-1, ratelimit.PostMode); err != nil {
				return sum, err
			}
		}

		if f.opts.Limit > 0 && sum.Found >= f.opts.Limit {
			f.emit.Infof("Reached the maximum number of posts limit (%d)", f.opts.Limit)
			break
		}
	}
	return sum, nil
}
