package fetch

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/logger"
	"igharvest/pkg/models"
	"igharvest/pkg/progress"
	"igharvest/pkg/ratelimit"
	"igharvest/pkg/storage"
)

// CountStories lists the profile's current stories. The result is kept for
// the Stories phase so the reel is requested once per job.
func (f *Fetcher) CountStories(ctx context.Context, profile models.Profile) (int, error) {
	items, err := f.loadStories(ctx, profile)
	return len(items), err
}

func (f *Fetcher) loadStories(ctx context.Context, profile models.Profile) ([]models.Item, error) {
	if f.stories != nil {
		return f.stories, nil
	}
	items, err := collect(f.platform.ListStories(ctx, []string{profile.ID}))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Item{}
	}
	f.stories = items
	return items, nil
}

// Stories downloads the profile's current stories into <root>/stories.
// Stories expire within a day, so the date window does not apply.
func (f *Fetcher) Stories(ctx context.Context, profile models.Profile, root string) (Summary, error) {
	var sum Summary
	dir := filepath.Join(root, "stories")

	items, err := f.loadStories(ctx, profile)
	if err != nil {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		if igerrors.StatusOf(err) == http.StatusBadRequest || igerrors.HasKind(err, igerrors.KindRateLimited) {
			f.emit.Warnf("Story download blocked - likely rate limited")
		} else {
			f.emit.Errorf("Error accessing stories: %v", err)
		}
		sum.Aborted++
		return sum, nil
	}

	total := len(items)
	f.emit.Infof("Found %d total story items", total)
	f.tracker.Revise(progress.Stories, total)

	t := target{dir: dir, noun: "story item", op: ratelimit.OpStory}
	for i, item := range items {
		if err := f.checkpoint(ctx); err != nil {
			return sum, err
		}
		sum.Found++
		o, err := f.process(ctx, item, t, fmt.Sprintf("Processing story item %d/%d from %s", i+1, total, when(item)))
		if err != nil {
			return sum, err
		}
		sum.add(o)
		f.tracker.Advance(1)
	}

	f.emit.Infof("Downloaded %d of %d story items", sum.Downloaded+sum.Skipped, total)
	logger.LogPhaseSummary(f.logger, "stories", sum.Downloaded, sum.Skipped, sum.Failed)
	return sum, nil
}

// CountHighlights lists the profile's highlights with their items and
// returns how many items fall in the window. Highlights that cannot be read
// are left out of the count.
func (f *Fetcher) CountHighlights(ctx context.Context, profile models.Profile) (int, error) {
	batches, err := f.loadHighlights(ctx, profile)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, b := range batches {
		if b.err != nil {
			f.logger.WarnWithFields("could not count highlight items", map[string]interface{}{
				"highlight": b.highlight.Title,
				"error":     b.err.Error(),
			})
			continue
		}
		n += len(f.opts.Window.filter(b.items))
	}
	return n, nil
}

func (f *Fetcher) loadHighlights(ctx context.Context, profile models.Profile) ([]highlightBatch, error) {
	if f.highlights != nil {
		return f.highlights, nil
	}
	list, err := f.platform.ListHighlights(ctx, profile)
	if err != nil {
		return nil, err
	}

	batches := make([]highlightBatch, 0, len(list))
	for _, h := range list {
		b := highlightBatch{highlight: h}
		b.items, b.err = collect(f.platform.HighlightItems(ctx, h))
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	f.highlights = batches
	return batches, nil
}

// Highlights downloads every highlight into <root>/highlights/<title>. A
// highlight that cannot be read is reported and skipped.
func (f *Fetcher) Highlights(ctx context.Context, profile models.Profile, root string) (Summary, error) {
	var sum Summary
	base := filepath.Join(root, "highlights")

	batches, err := f.loadHighlights(ctx, profile)
	if err != nil {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		f.emit.Errorf("Error downloading highlights: %v", err)
		sum.Aborted++
		return sum, nil
	}
	f.emit.Infof("Found %d highlights to download", len(batches))

	inWindow := 0
	for _, b := range batches {
		if b.err == nil {
			inWindow += len(f.opts.Window.filter(b.items))
		}
	}
	f.tracker.Revise(progress.Highlights, inWindow)

	for idx, b := range batches {
		if err := f.checkpoint(ctx); err != nil {
			return sum, err
		}
		f.tracker.SetCurrent(0, 100)
		f.emit.Infof("Processing highlight %d/%d: %s", idx+1, len(batches), b.highlight.Title)

		if b.err != nil {
			f.emit.Errorf("Could not access highlight %s: %v", b.highlight.Title, b.err)
			continue
		}

		part, err := f.highlightItems(ctx, b.items, filepath.Join(base, storage.SafeName(b.highlight.Title)))
		sum.merge(part)
		if err != nil {
			return sum, err
		}
	}

	logger.LogPhaseSummary(f.logger, "highlights", sum.Downloaded, sum.Skipped, sum.Failed)
	return sum, nil
}

// highlightItems downloads the in-window items of one highlight into dir
func (f *Fetcher) highlightItems(ctx context.Context, items []models.Item, dir string) (Summary, error) {
	var sum Summary

	if !f.opts.Window.Ignore {
		kept := f.opts.Window.filter(items)
		if dropped := len(items) - len(kept); dropped > 0 {
			f.emit.Infof("Filtered %d items outside date range", dropped)
		}
		items = kept
		f.emit.Infof("Found %d items in this highlight within date range", len(items))
	}

	t := target{dir: dir, noun: "highlight item", op: ratelimit.OpHighlight}
	for i, item := range items {
		if err := f.checkpoint(ctx); err != nil {
			return sum, err
		}
		sum.Found++
		o, err := f.process(ctx, item, t, fmt.Sprintf("Processing highlight item %d/%d from %s", i+1, len(items), when(item)))
		if err != nil {
			return sum, err
		}
		sum.add(o)
		f.tracker.Advance(1)
	}

	f.emit.Infof("Downloaded %d highlight items", sum.Downloaded+sum.Skipped)
	return sum, nil
}
