package fetch

import (
	"context"
	"iter"
	"time"

	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/events"
	"igharvest/pkg/logger"
	"igharvest/pkg/models"
	"igharvest/pkg/progress"
	"igharvest/pkg/ratelimit"
	"igharvest/pkg/retry"
	"igharvest/pkg/storage"
)

// Saved-post layouts
const (
	LayoutPerOwner = "per_owner"
	LayoutFlat     = "flat"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02 15:04:05"
)

// Window is an inclusive range of whole UTC days. With Ignore set every
// timestamp is inside.
type Window struct {
	Since  time.Time
	Until  time.Time
	Ignore bool
}

// NewWindow spans since 00:00 to until 23:59:59.999999999 UTC
func NewWindow(since, until time.Time) Window {
	s := time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC)
	u := time.Date(until.Year(), until.Month(), until.Day(), 0, 0, 0, 0, time.UTC)
	return Window{Since: s, Until: u.Add(24*time.Hour - time.Nanosecond)}
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	if w.Ignore {
		return true
	}
	return !t.Before(w.Since) && !t.After(w.Until)
}

// Days is the number of calendar days in the window
func (w Window) Days() int {
	return progress.DaysInWindow(w.Since, w.Until)
}

func (w Window) filter(items []models.Item) []models.Item {
	if w.Ignore {
		return items
	}
	out := make([]models.Item, 0, len(items))
	for _, item := range items {
		if w.Contains(item.TakenAt) {
			out = append(out, item)
		}
	}
	return out
}

// Options are the per-job content filters
type Options struct {
	Window Window
	// Limit caps the number of posts or saved posts; zero means no limit
	Limit        int
	SkipExisting bool
	SavedLayout  string
	// HighlightOwner resolves highlight URLs that do not name their owner
	HighlightOwner string
	// Username is the logged-in account, the last resort for highlight owners
	Username string
}

// Deps are the job-owned collaborators shared by every fetcher
type Deps struct {
	Files     *storage.Manager
	Scheduler *ratelimit.Scheduler
	// Gate is closed while the job is paused
	Gate *ratelimit.Gate
	// Sleep performs every pacing and back-off wait
	Sleep   retry.SleepFunc
	Tracker *progress.Tracker
	Emitter *events.Emitter
	Logger  logger.Logger
}

// Summary counts what a phase did
type Summary struct {
	Found      int
	Downloaded int
	Skipped    int
	Failed     int
	// Aborted counts phases cut short because their listing failed
	Aborted int
}

func (s *Summary) add(o outcome) {
	switch o {
	case downloaded:
		s.Downloaded++
	case skipped:
		s.Skipped++
	case failed:
		s.Failed++
	}
}

func (s *Summary) merge(o Summary) {
	s.Found += o.Found
	s.Downloaded += o.Downloaded
	s.Skipped += o.Skipped
	s.Failed += o.Failed
	s.Aborted += o.Aborted
}

type outcome int

const (
	downloaded outcome = iota
	skipped
	failed
)

// target is where an item is written and how it is paced
type target struct {
	dir    string
	prefix string
	noun   string
	// op selects the inter-item delay; empty means no pacing
	op ratelimit.OpKind
}

type highlightBatch struct {
	highlight models.Highlight
	items     []models.Item
	err       error
}

// Fetcher runs the content phases of one job on the job's worker goroutine.
// It is not safe for concurrent use.
type Fetcher struct {
	platform  Platform
	files     *storage.Manager
	scheduler *ratelimit.Scheduler
	gate      *ratelimit.Gate
	sleep     retry.SleepFunc
	tracker   *progress.Tracker
	emit      *events.Emitter
	logger    logger.Logger
	opts      Options

	// filled by the precount and reused by the download phase
	stories    []models.Item
	highlights []highlightBatch
}

// New creates a fetcher; zero Deps fields get working defaults.
func New(p Platform, deps Deps, opts Options) *Fetcher {
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if deps.Files == nil {
		deps.Files = storage.NewManager()
	}
	if deps.Scheduler == nil {
		deps.Scheduler = ratelimit.NewScheduler(ratelimit.DefaultPolicy(), nil)
	}
	if deps.Sleep == nil {
		deps.Sleep = ratelimit.NewSleeper(deps.Gate).Sleep
	}
	if deps.Emitter == nil {
		deps.Emitter = events.NewEmitter(nil, deps.Logger)
	}
	if deps.Tracker == nil {
		deps.Tracker = progress.NewTracker(deps.Emitter)
	}
	if opts.SavedLayout == "" {
		opts.SavedLayout = LayoutPerOwner
	}

	return &Fetcher{
		platform:  p,
		files:     deps.Files,
		scheduler: deps.Scheduler,
		gate:      deps.Gate,
		sleep:     deps.Sleep,
		tracker:   deps.Tracker,
		emit:      deps.Emitter,
		logger:    deps.Logger.WithField("component", "fetch"),
		opts:      opts,
	}
}

// checkpoint blocks while the job is paused and reports cancellation
func (f *Fetcher) checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.gate != nil {
		if err := f.gate.Wait(ctx); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (f *Fetcher) longPause(ctx context.Context, index int, mode ratelimit.PauseMode) error {
	d, ok := f.scheduler.LongPause(index, mode)
	if !ok {
		return nil
	}
	f.emit.Infof("Long session safety delay: %.1fs", d.Seconds())
	return f.sleep(ctx, d)
}

func (f *Fetcher) retryConfig() retry.Config {
	return retry.Config{
		Backoff: f.scheduler.RetryBackoff,
		Sleep:   f.sleep,
		Logger:  f.logger,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			if igerrors.KindOf(err) == igerrors.KindRateLimited {
				logger.LogRateLimit(f.logger, "download", delay, attempt)
				f.emit.Warnf("Rate limited by Instagram! Taking a longer break (%s)...", delay.Round(time.Second))
				return
			}
			f.emit.Warnf("Connection error: %v. Retrying in %s (attempt %d/%d)", err, delay.Round(time.Second), attempt, retry.MaxAttempts)
		},
	}
}

// process downloads one item unless a file with its stem already exists.
// The returned error is only ever the context's; item failures are logged
// and reported as the failed outcome.
func (f *Fetcher) process(ctx context.Context, item models.Item, t target, announce string) (outcome, error) {
	if f.opts.SkipExisting && f.files.Has(t.dir, t.prefix, item.TakenAt) {
		f.emit.Infof("Skipping existing %s from %s", t.noun, when(item))
		f.tracker.SetCurrent(100, 100)
		logger.LogDownload(f.logger, item.Owner, item.ID, string(item.Kind), true, nil)
		return skipped, nil
	}

	if t.op != "" {
		if err := f.sleep(ctx, f.scheduler.InterItemDelay(t.op)); err != nil {
			return failed, err
		}
	}
	if announce != "" {
		f.emit.Infof("%s", announce)
	}

	f.tracker.SetCurrent(0, 100)
	var paths []string
	err := retry.Do(ctx, func(ctx context.Context) error {
		f.tracker.SetCurrent(25, 100)
		written, err := f.platform.DownloadItem(ctx, item, t.dir, t.prefix)
		if err != nil {
			return err
		}
		paths = written
		f.tracker.SetCurrent(75, 100)
		return nil
	}, f.retryConfig())

	if err != nil {
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}
		logger.LogDownload(f.logger, item.Owner, item.ID, string(item.Kind), false, err)
		if retry.IsExhausted(err) {
			f.emit.Errorf("Failed to download %s from %s after %d attempts, skipping", t.noun, when(item), retry.MaxAttempts)
		} else {
			f.emit.Errorf("Error downloading %s: %v", t.noun, err)
		}
		return failed, nil
	}

	for _, path := range paths {
		f.emit.FileDownloaded(path)
	}
	f.tracker.SetCurrent(100, 100)
	f.emit.Infof("Successfully downloaded %s from %s", t.noun, when(item))
	logger.LogDownload(f.logger, item.Owner, item.ID, string(item.Kind), false, nil)
	return downloaded, nil
}

// listError prefers the context's error over the one a listing yielded
func (f *Fetcher) listError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func when(item models.Item) string {
	return item.TakenAt.UTC().Format(timeLayout)
}

func collect(seq iter.Seq2[models.Item, error]) ([]models.Item, error) {
	var items []models.Item
	for item, err := range seq {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}
