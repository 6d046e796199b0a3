package job

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"igharvest/pkg/auth"
	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/events"
	"igharvest/pkg/fetch"
	"igharvest/pkg/instagram"
	"igharvest/pkg/models"
	"igharvest/pkg/progress"
	"igharvest/pkg/retry"
	"igharvest/pkg/storage"
)

// execute is the worker body. Its error decides the terminal state.
func (j *Job) execute(ctx context.Context) error {
	base, err := storage.SanitizePath(j.cfg.DownloadDir)
	if err != nil {
		return fmt.Errorf("resolving download directory: %w", err)
	}
	downloads := filepath.Join(base, "downloads")

	root := downloads
	switch {
	case j.cfg.Saved:
		root = filepath.Join(downloads, "saved")
	case !j.cfg.singleItem():
		root = filepath.Join(downloads, instagram.SanitizeUsername(j.cfg.Profile))
	}
	if err := storage.EnsureDir(root); err != nil {
		return err
	}
	j.mu.Lock()
	j.result.Root = root
	j.mu.Unlock()
	j.emit.Infof("Downloading to %s", root)

	session, err := j.authenticate(ctx)
	if err != nil {
		return err
	}
	if err := j.checkpoint(ctx); err != nil {
		return err
	}

	f := fetch.New(j.platform, fetch.Deps{
		Files:     j.files,
		Scheduler: j.scheduler,
		Gate:      j.gate,
		Sleep:     j.sleep,
		Tracker:   j.tracker,
		Emitter:   j.emit,
		Logger:    j.logger,
	}, fetch.Options{
		Window:         j.cfg.window(),
		Limit:          j.cfg.Limit,
		SkipExisting:   j.cfg.SkipExisting,
		SavedLayout:    j.cfg.SavedLayout,
		HighlightOwner: j.cfg.HighlightOwner,
		Username:       session.Username,
	})

	switch {
	case j.cfg.singleItem():
		return j.single(ctx, f, downloads)
	case j.cfg.Saved:
		return j.saved(ctx, f, root)
	default:
		return j.profile(ctx, f, root)
	}
}

func (j *Job) authenticate(ctx context.Context) (*auth.Result, error) {
	a := j.cfg.Auth
	twoFactor := false
	authenticator := auth.NewAuthenticator(j.platform, auth.Options{
		Mode:        a.Mode,
		Username:    a.Username,
		Password:    a.Password,
		SessionPath: a.SessionPath,
		SessionDir:  a.SessionDir,
		SaveSession: a.SaveSession,
		Store:       j.store,
		Remember:    a.Remember,
	}, auth.Hooks{
		TwoFactorRequired: func() {
			twoFactor = true
			j.setState(StateRunning, StateAwaitingCode)
			j.emit.StateChanged(events.StateAwaitingTwoFactor, "Two-factor authentication required")
			j.emit.Infof("Two-factor authentication required. Enter the code sent to your device.")
			j.emit.TwoFactorRequired()
		},
		SessionSaved: func(path string) {
			j.emit.Infof("Session saved to %s", path)
			j.emit.SessionSaved(path)
		},
	}, j.rendezvous, j.logger)

	res, err := authenticator.Authenticate(ctx)
	j.setState(StateAwaitingCode, StateRunning)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	switch {
	case twoFactor:
		j.emit.Infof("Two-factor authentication successful!")
	case a.Mode == auth.ModeSessionFile:
		j.emit.Infof("Session loaded successfully!")
	case a.Mode == auth.ModeStoredAccount:
		j.emit.Infof("Using stored session for %s", res.Username)
	default:
		j.emit.Infof("Login successful!")
	}

	j.mu.Lock()
	j.result.Username = res.Username
	j.result.SessionPath = res.SessionPath
	j.mu.Unlock()
	return res, nil
}

func (j *Job) single(ctx context.Context, f *fetch.Fetcher, downloads string) error {
	target, err := instagram.ParseItemURL(j.cfg.URL)
	if err != nil {
		return err
	}
	j.emit.Infof("Processing single item URL: %s", j.cfg.URL)
	j.tracker.Precompute(map[progress.Category]int{progress.Single: 1})
	j.tracker.SetCurrent(0, 100)

	sum, err := f.Single(ctx, target, downloads)
	j.addSummary(sum)
	if err != nil {
		return err
	}
	if sum.Failed > 0 {
		return igerrors.New(igerrors.KindUnknown, "single item download failed")
	}
	j.emit.Infof("Single item download completed successfully!")
	return nil
}

func (j *Job) saved(ctx context.Context, f *fetch.Fetcher, root string) error {
	total := j.tracker.Precompute(map[progress.Category]int{progress.Saved: f.SavedEstimate()})
	j.tracker.SetCurrent(0, 100)
	j.emit.Infof("Will download: Saved posts. Total estimated items: %d", total)

	sum, err := f.Saved(ctx, root)
	j.addSummary(sum)
	if err != nil {
		return err
	}
	j.logTotals()
	return nil
}

func (j *Job) profile(ctx context.Context, f *fetch.Fetcher, root string) error {
	name := instagram.SanitizeUsername(j.cfg.Profile)
	profile, err := retry.DoWithResult(ctx, func(ctx context.Context) (*models.Profile, error) {
		return j.platform.FetchProfile(ctx, name)
	}, retry.Config{Backoff: j.scheduler.RetryBackoff, Sleep: j.sleep, Logger: j.logger})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if kind := igerrors.KindOf(err); kind == igerrors.KindNotFound || kind == igerrors.KindPrivateOrUnauthorized {
			return igerrors.Wrap(kind, err, "profile %s does not exist or is private", name)
		}
		return err
	}

	j.emit.Infof("Starting download for profile: %s", name)
	if profile.IsPrivate && !profile.FollowedByMe {
		j.emit.Warnf("Profile %s is private and not followed by the logged in account; only public content can be downloaded", name)
	}
	if j.cfg.IgnoreDateRange {
		j.emit.Infof("Date range is being ignored - all content (posts, highlights, stories) will be downloaded without date filtering")
		if j.cfg.Limit > 0 {
			j.emit.Infof("Post limit is set to %d - only the most recent posts will be downloaded", j.cfg.Limit)
		}
	} else {
		j.emit.Infof("Date filtering is active - only content from %s to %s will be downloaded",
			j.cfg.Since.Format("2006-01-02"), j.cfg.Until.Format("2006-01-02"))
	}

	cats := j.cfg.enabled()
	if err := j.precompute(ctx, f, *profile, cats); err != nil {
		return err
	}

	if j.cfg.ProfilePicOnly {
		return j.profilePicture(ctx, f, *profile, root)
	}

	if cats.ProfilePicture {
		if err := j.profilePicture(ctx, f, *profile, root); err != nil {
			return err
		}
	}

	if cats.Posts {
		if err := j.checkpoint(ctx); err != nil {
			return err
		}
		sum, err := f.Posts(ctx, *profile, root)
		j.addSummary(sum)
		if err != nil {
			return err
		}
	} else if j.cfg.OnlyStories {
		j.emit.Infof("Skipping posts download as 'Only Download Stories' is enabled")
	} else if j.cfg.OnlyHighlights {
		j.emit.Infof("Skipping posts download as 'Only Download Highlights' is enabled")
	}

	if cats.Highlights {
		if err := j.checkpoint(ctx); err != nil {
			return err
		}
		sum, err := f.Highlights(ctx, *profile, root)
		j.addSummary(sum)
		if err != nil {
			return err
		}
	}
	if cats.Stories {
		if err := j.checkpoint(ctx); err != nil {
			return err
		}
		sum, err := f.Stories(ctx, *profile, root)
		j.addSummary(sum)
		if err != nil {
			return err
		}
	}

	j.logTotals()
	return nil
}

// precompute seeds the tracker with every enabled category. Story and
// highlight listings are kept by the fetcher for the download phases.
func (j *Job) precompute(ctx context.Context, f *fetch.Fetcher, profile models.Profile, cats Categories) error {
	estimates := make(map[progress.Category]int)
	var parts []string

	if cats.Posts {
		n := f.PostEstimate(profile)
		estimates[progress.Posts] = n
		if j.cfg.IgnoreDateRange {
			parts = append(parts, fmt.Sprintf("Posts (up to %d)", n))
		} else {
			parts = append(parts, fmt.Sprintf("Posts (covering %d days from %s to %s)",
				n, j.cfg.Since.Format("2006-01-02"), j.cfg.Until.Format("2006-01-02")))
			j.emit.Infof("Using date range for progress tracking")
		}
	}

	if cats.Highlights {
		n, err := f.CountHighlights(ctx, profile)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			j.logger.WithError(err).Warn("could not pre-count highlights")
		case n > 0:
			estimates[progress.Highlights] = n
			parts = append(parts, fmt.Sprintf("Highlights (%d items)", n))
		}
	}

	if cats.Stories {
		n, err := f.CountStories(ctx, profile)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			j.logger.WithError(err).Warn("could not pre-count stories")
		case n > 0:
			estimates[progress.Stories] = n
			parts = append(parts, fmt.Sprintf("Stories (%d)", n))
			j.emit.Infof("Found %d story items to download", n)
		}
	}

	total := j.tracker.Precompute(estimates)
	j.tracker.SetCurrent(0, 100)
	if len(parts) > 0 {
		j.emit.Infof("Will download: %s. Total estimated items: %d", strings.Join(parts, ", "), total)
	} else if !j.cfg.ProfilePicOnly {
		j.emit.Warnf("No items found to download in the specified criteria")
	}
	return nil
}

// profilePicture reports a failed download and carries on; only
// cancellation is returned.
func (j *Job) profilePicture(ctx context.Context, f *fetch.Fetcher, profile models.Profile, root string) error {
	if err := j.checkpoint(ctx); err != nil {
		return err
	}
	if err := f.ProfilePicture(ctx, profile, root); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		j.emit.Errorf("Error downloading profile picture: %v", err)
	}
	return nil
}

func (j *Job) logTotals() {
	r := j.Result()
	j.emit.Infof("Download finished: %d downloaded, %d skipped, %d failed", r.Downloaded, r.Skipped, r.Failed)
	if r.Aborted > 0 {
		j.emit.Warnf("%d content phase(s) ended early, see the errors above", r.Aborted)
	}
}
