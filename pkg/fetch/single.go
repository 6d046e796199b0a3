package fetch

import (
	"context"
	"path/filepath"
	"strings"

	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/instagram"
	"igharvest/pkg/models"
	"igharvest/pkg/progress"
	"igharvest/pkg/retry"
	"igharvest/pkg/storage"
)

// Single downloads the item a post, reel, story or highlight URL points to.
// root is the downloads directory; files land under <root>/<owner>/. A
// failed download is reported through Summary.Failed.
func (f *Fetcher) Single(ctx context.Context, t instagram.Target, root string) (Summary, error) {
	switch t.Kind {
	case models.KindPost, models.KindReel:
		return f.singlePost(ctx, t, root)
	case models.KindStory:
		return f.singleStory(ctx, t, root)
	case models.KindHighlight:
		return f.singleHighlight(ctx, t, root)
	default:
		return Summary{}, igerrors.New(igerrors.KindInvalidURL, "unsupported item kind %q", t.Kind)
	}
}

// singlePost handles posts and reels; reels share the posts directory.
func (f *Fetcher) singlePost(ctx context.Context, t instagram.Target, root string) (Summary, error) {
	var sum Summary
	noun := string(t.Kind)
	f.emit.Infof("Fetching %s with ID: %s", noun, t.Code)

	item, err := retry.DoWithResult(ctx, func(ctx context.Context) (models.Item, error) {
		return f.platform.MediaByShortcode(ctx, t.Code)
	}, f.retryConfig())
	if err != nil {
		return sum, err
	}

	owner := item.Owner
	if owner == "" {
		owner = t.Owner
	}
	if owner == "" {
		return sum, igerrors.New(igerrors.KindNotFound, "could not resolve the owner of %s %s", noun, t.Code)
	}
	f.emit.Infof("%s belongs to user: %s", strings.ToUpper(noun[:1])+noun[1:], owner)

	dir := filepath.Join(root, storage.SafeName(owner), "posts")
	return f.one(ctx, item, target{dir: dir, noun: noun}, &sum)
}

func (f *Fetcher) singleStory(ctx context.Context, t instagram.Target, root string) (Summary, error) {
	var sum Summary
	f.emit.Infof("Fetching story from user %s with ID: %s", t.Owner, t.Code)

	item, err := retry.DoWithResult(ctx, func(ctx context.Context) (models.Item, error) {
		return f.platform.StoryItem(ctx, t.Owner, t.Code)
	}, f.retryConfig())
	if err != nil {
		if igerrors.HasKind(err, igerrors.KindNotFound) {
			f.emit.Errorf("Story not found. It may be expired or private.")
		}
		return sum, err
	}

	dir := filepath.Join(root, storage.SafeName(t.Owner), "stories")
	return f.one(ctx, item, target{dir: dir, noun: "story"}, &sum)
}

func (f *Fetcher) one(ctx context.Context, item models.Item, t target, sum *Summary) (Summary, error) {
	f.tracker.Revise(progress.Single, 1)
	sum.Found++
	o, err := f.process(ctx, item, t, "Downloading "+t.noun+" from "+when(item))
	if err != nil {
		return *sum, err
	}
	sum.add(o)
	f.tracker.Advance(1)
	return *sum, nil
}

// singleHighlight resolves the owner from the URL, then the configured
// highlight owner, then the logged-in account.
func (f *Fetcher) singleHighlight(ctx context.Context, t instagram.Target, root string) (Summary, error) {
	var sum Summary

	owner := t.Owner
	switch {
	case owner != "":
		f.emit.Infof("Got profile name from URL: %s", owner)
	case f.opts.HighlightOwner != "":
		owner = f.opts.HighlightOwner
		f.emit.Infof("Using provided highlight owner: %s", owner)
	case f.opts.Username != "":
		owner = f.opts.Username
		f.emit.Infof("Using logged in username: %s", owner)
	default:
		return sum, igerrors.New(igerrors.KindInvalidURL,
			"for highlights use a URL like https://www.instagram.com/USERNAME/stories/highlights/12345678901234567/")
	}

	profile, err := f.platform.FetchProfile(ctx, owner)
	if err != nil {
		return sum, err
	}
	highlights, err := f.platform.ListHighlights(ctx, *profile)
	if err != nil {
		return sum, err
	}

	id := strings.TrimPrefix(t.Code, "highlight:")
	for _, h := range highlights {
		if h.ID != id {
			continue
		}

		items, err := collect(f.platform.HighlightItems(ctx, h))
		if err != nil {
			return sum, err
		}
		f.tracker.Revise(progress.Single, len(f.opts.Window.filter(items)))
		f.emit.Infof("Downloading items from highlight '%s'", h.Title)

		dir := filepath.Join(root, storage.SafeName(owner), "highlights", storage.SafeName(h.Title))
		return f.highlightItems(ctx, items, dir)
	}
	return sum, igerrors.New(igerrors.KindNotFound, "could not find highlight with ID: %s", id)
}
