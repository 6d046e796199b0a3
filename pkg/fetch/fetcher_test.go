package fetch

import (
	"context"
	"fmt"
	"iter"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/events"
	"igharvest/pkg/instagram"
	"igharvest/pkg/logger"
	"igharvest/pkg/models"
	"igharvest/pkg/progress"
	"igharvest/pkg/ratelimit"
	"igharvest/pkg/storage"
)

// fakePlatform serves canned content and writes one small file per item
// through the shared storage manager.
type fakePlatform struct {
	mu    sync.Mutex
	files *storage.Manager

	profile        models.Profile
	posts          []models.Item
	stories        []models.Item
	storiesErr     error
	highlights     []models.Highlight
	highlightsErr  error
	highlightItems map[string][]models.Item
	highlightErrs  map[string]error
	saved          []models.Item
	byCode         map[string]models.Item
	byStory        map[string]models.Item
	storyErr       error
	postsErr       error

	// failures are returned, in order, by successive downloads of an item
	failures map[string][]error

	attempts     map[string]int
	yielded      int
	storyLists   int
	profileReqs  []string
	picDownloads int
}

func newFakePlatform(files *storage.Manager) *fakePlatform {
	return &fakePlatform{
		files:          files,
		profile:        models.Profile{ID: "42", Username: "alice", MediaCount: 0, ProfilePicURL: "https://cdn.example/pic.jpg"},
		highlightItems: make(map[string][]models.Item),
		highlightErrs:  make(map[string]error),
		byCode:         make(map[string]models.Item),
		byStory:        make(map[string]models.Item),
		failures:       make(map[string][]error),
		attempts:       make(map[string]int),
	}
}

func (p *fakePlatform) seq(items []models.Item, err error) iter.Seq2[models.Item, error] {
	return func(yield func(models.Item, error) bool) {
		for _, item := range items {
			p.mu.Lock()
			p.yielded++
			p.mu.Unlock()
			if !yield(item, nil) {
				return
			}
		}
		if err != nil {
			yield(models.Item{}, err)
		}
	}
}

func (p *fakePlatform) FetchProfile(_ context.Context, username string) (*models.Profile, error) {
	p.mu.Lock()
	p.profileReqs = append(p.profileReqs, username)
	p.mu.Unlock()
	profile := p.profile
	profile.Username = username
	return &profile, nil
}

func (p *fakePlatform) ListPosts(context.Context, models.Profile) iter.Seq2[models.Item, error] {
	return p.seq(p.posts, p.postsErr)
}

func (p *fakePlatform) ListStories(context.Context, []string) iter.Seq2[models.Item, error] {
	p.mu.Lock()
	p.storyLists++
	p.mu.Unlock()
	return p.seq(p.stories, p.storiesErr)
}

func (p *fakePlatform) ListHighlights(context.Context, models.Profile) ([]models.Highlight, error) {
	return p.highlights, p.highlightsErr
}

func (p *fakePlatform) HighlightItems(_ context.Context, h models.Highlight) iter.Seq2[models.Item, error] {
	return p.seq(p.highlightItems[h.ID], p.highlightErrs[h.ID])
}

func (p *fakePlatform) ListSavedPosts(context.Context) iter.Seq2[models.Item, error] {
	return p.seq(p.saved, nil)
}

func (p *fakePlatform) MediaByShortcode(_ context.Context, code string) (models.Item, error) {
	item, ok := p.byCode[code]
	if !ok {
		return models.Item{}, igerrors.New(igerrors.KindNotFound, "no media %s", code)
	}
	return item, nil
}

func (p *fakePlatform) StoryItem(_ context.Context, _, id string) (models.Item, error) {
	if p.storyErr != nil {
		return models.Item{}, p.storyErr
	}
	item, ok := p.byStory[id]
	if !ok {
		return models.Item{}, igerrors.New(igerrors.KindNotFound, "no story %s", id)
	}
	return item, nil
}

func (p *fakePlatform) DownloadItem(_ context.Context, item models.Item, dir, prefix string) ([]string, error) {
	p.mu.Lock()
	p.attempts[item.ID]++
	if errs := p.failures[item.ID]; len(errs) > 0 {
		p.failures[item.ID] = errs[1:]
		p.mu.Unlock()
		return nil, errs[0]
	}
	p.mu.Unlock()

	path := filepath.Join(dir, prefix+storage.Stem(item.TakenAt)+".jpg")
	if _, err := p.files.Save(strings.NewReader("x"), path); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (p *fakePlatform) DownloadProfilePic(_ context.Context, profile models.Profile, dir string) error {
	p.mu.Lock()
	p.picDownloads++
	p.mu.Unlock()
	_, err := p.files.Save(strings.NewReader("x"), filepath.Join(dir, profile.ID+"_1700000000.jpg"))
	return err
}

func (p *fakePlatform) totalAttempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, a := range p.attempts {
		n += a
	}
	return n
}

type harness struct {
	platform *fakePlatform
	rec      *events.Recorder
	tracker  *progress.Tracker
	gate     *ratelimit.Gate
	root     string

	mu     sync.Mutex
	sleeps []time.Duration
}

func (h *harness) sleep(ctx context.Context, d time.Duration) error {
	h.mu.Lock()
	h.sleeps = append(h.sleeps, d)
	h.mu.Unlock()
	return ctx.Err()
}

func (h *harness) slept() []time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Duration(nil), h.sleeps...)
}

func (h *harness) resetSleeps() {
	h.mu.Lock()
	h.sleeps = nil
	h.mu.Unlock()
}

func (h *harness) logged(level events.Level, substr string) bool {
	for _, msg := range h.rec.LogsAt(level) {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	files := storage.NewManager()
	return &harness{
		platform: newFakePlatform(files),
		rec:      events.NewRecorder(),
		gate:     &ratelimit.Gate{},
		root:     t.TempDir(),
	}
}

func (h *harness) fetcher(opts Options) *Fetcher {
	emitter := events.NewEmitter(h.rec, logger.NewNopLogger())
	h.tracker = progress.NewTracker(emitter)
	return New(h.platform, Deps{
		Files:     h.platform.files,
		Scheduler: ratelimit.NewScheduler(ratelimit.DefaultPolicy(), rand.New(rand.NewSource(1))),
		Gate:      h.gate,
		Sleep:     h.sleep,
		Tracker:   h.tracker,
		Emitter:   emitter,
	}, opts)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func post(id string, at time.Time) models.Item {
	return models.Item{
		ID:      id,
		Kind:    models.KindPost,
		Owner:   "alice",
		TakenAt: at,
		Media:   []models.Media{{URL: "https://cdn.example/" + id + ".jpg"}},
	}
}

func january() Window {
	return NewWindow(day(2024, time.January, 1), day(2024, time.January, 31))
}

func TestWindowContains(t *testing.T) {
	w := january()
	assert.True(t, w.Contains(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)))
	assert.Equal(t, 31, w.Days())
	assert.True(t, Window{Ignore: true}.Contains(time.Time{}))
}

func TestWindowedPosts(t *testing.T) {
	h := newHarness(t)
	p := h.platform
	p.posts = append(p.posts, post("feb3", day(2024, time.February, 3)), post("feb2", day(2024, time.February, 2)))
	for i := 0; i < 10; i++ {
		p.posts = append(p.posts, post(fmt.Sprintf("jan%d", i), day(2024, time.January, 30-2*i)))
	}
	for i := 0; i < 5; i++ {
		p.posts = append(p.posts, post(fmt.Sprintf("dec%d", i), day(2023, time.December, 31-i)))
	}

	f := h.fetcher(Options{Window: january()})
	sum, err := f.Posts(context.Background(), p.profile, h.root)
	require.NoError(t, err)

	assert.Equal(t, Summary{Found: 10, Downloaded: 10}, sum)
	assert.Equal(t, 10, p.totalAttempts())
	assert.Equal(t, 13, p.yielded, "listing should stop at the first post before the window")
	assert.Equal(t, 31, h.tracker.Total())
	assert.Equal(t, 10, h.tracker.Completed())
	assert.Len(t, h.rec.Files(), 10)
	assert.True(t, h.logged(events.LevelInfo, "Reached posts older than the specified date range"))

	for _, path := range h.rec.Files() {
		assert.Equal(t, filepath.Join(h.root, "posts"), filepath.Dir(path))
	}
}

func TestWindowedPostsAdvanceOncePerDay(t *testing.T) {
	h := newHarness(t)
	p := h.platform
	p.posts = []models.Item{
		post("a", day(2024, time.January, 10).Add(2*time.Hour)),
		post("b", day(2024, time.January, 10)),
		post("c", day(2024, time.January, 9)),
	}

	f := h.fetcher(Options{Window: january()})
	sum, err := f.Posts(context.Background(), p.profile, h.root)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Downloaded)
	assert.Equal(t, 2, h.tracker.Completed())
}

func TestWindowedPostsLimit(t *testing.T) {
	h := newHarness(t)
	p := h.platform
	for i := 0; i < 5; i++ {
		p.posts = append(p.posts, post(fmt.Sprintf("p%d", i), day(2024, time.January, 20-i)))
	}

	f := h.fetcher(Options{Window: january(), Limit: 2})
	sum, err := f.Posts(context.Background(), p.profile, h.root)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Found)
	assert.Equal(t, 2, p.totalAttempts())
	assert.True(t, h.logged(events.LevelInfo, "(limited to 2)"))
}

func TestAllPostsLimit(t *testing.T) {
	h := newHarness(t)
	p := h.platform
	p.profile.MediaCount = 50
	for i := 0; i < 5; i++ {
		p.posts = append(p.posts, post(fmt.Sprintf("p%d", i), day(2020, time.March, 20-i)))
	}

	f := h.fetcher(Options{Window: Window{Ignore: true}, Limit: 3})
	assert.Equal(t, 3, f.PostEstimate(p.profile))

	sum, err := f.Posts(context.Background(), p.profile, h.root)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Downloaded)
	assert.Equal(t, 3, h.tracker.Completed())
	assert.True(t, h.logged(events.LevelInfo, "Reached the maximum number of posts limit (3)"))
}

func TestAllPostsEstimateGrows(t *testing.T) {
	h := newHarness(t)
	p := h.platform
	p.profile.MediaCount = 3
	for i := 0; i < 5; i++ {
		p.posts = append(p.posts, post(fmt.Sprintf("p%d", i), day(2020, time.March, 20-i)))
	}

	f := h.fetcher(Options{Window: Window{Ignore: true}})
	sum, err := f.Posts(context.Background(), p.profile, h.root)
	require.NoError(t, err)

	assert.Equal(t, 5, sum.Downloaded)
	assert.Equal(t, 6, h.tracker.Estimate(progress.Posts))
	assert.True(t, h.logged(events.LevelInfo, "Adjusting estimated total to 4 posts"))

	for _, ev := range h.rec.ProgressFor(events.ScopeOverall) {
		assert.LessOrEqual(t, ev.Current, ev.Total)
	}
}

func TestSkipExistingIsIdempotent(t *testing.T) {
	h := newHarness(t)
	p := h.platform
	for i := 0; i < 4; i++ {
		p.posts = append(p.posts, post(fmt.Sprintf("p%d", i), day(2024, time.January, 20-i)))
	}
	opts := Options{Window: january(), SkipExisting: true}

	first, err := h.fetcher(opts).Posts(context.Background(), p.profile, h.root)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Downloaded)

	h.resetSleeps()
	second, err := h.fetcher(opts).Posts(context.Background(), p.profile, h.root)
	require.NoError(t, err)
	assert.Equal(t, Summary{Found: 4, Skipped: 4}, second)
	assert.Equal(t, 4, p.totalAttempts())
	assert.Empty(t, h.slept(), "skipped items are not paced")
	assert.True(t, h.logged(events.LevelInfo, "Skipping existing post from 2024-01-20 12:00:00"))
}

func TestSkipExistingIgnoresSidecars(t *testing.T) {
	h := newHarness(t)
	p := h.platform
	item := post("p", day(2024, time.January, 5))
	p.posts = []models.Item{item}

	sidecar := filepath.Join(h.root, "posts", storage.Stem(item.TakenAt)+".json")
	_, err := p.files.Save(strings.NewReader("{}"), sidecar)
	require.NoError(t, err)

	sum, err := h.fetcher(Options{Window: january(), SkipExisting: true}).Posts(context.Background(), p.profile, h.root)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Downloaded)
}

func TestRetryExhaustionMovesOn(t *testing.T) {
	h := newHarness(t)
	p := h.platform
	p.posts = []models.Item{post("bad", day(2024, time.January, 10)), post("good", day(2024, time.January, 9))}
	conn := igerrors.New(igerrors.KindConnection, "connection reset")
	p.failures["bad"] = []error{conn, conn, conn}

	sum, err := h.fetcher(Options{Window: january()}).Posts(context.Background(), p.profile, h.root)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Downloaded)
	assert.Equal(t, 3, p.attempts["bad"])
	assert.Equal(t, 1, p.attempts["good"])
	assert.True(t, h.logged(events.LevelError, "after 3 attempts, skipping"))
	assert.True(t, h.logged(events.LevelWarning, "(attempt 1/3)"))

	slept := h.slept()
	assert.Contains(t, slept, 16*time.Second)
	assert.Contains(t, slept, 32*time.Second)
	assert.NotContains(t, slept, 48*time.Second, "no wait follows the final attempt")
}

func TestPostsListingFailureEndsPhaseOnly(t *testing.T) {
	h := newHarness(t)
	p := h.platform
	p.posts = []models.Item{post("p", day(2024, time.January, 10))}
	p.postsErr = igerrors.New(igerrors.KindConnection, "feed page failed")

	sum, err := h.fetcher(Options{Window: january()}).Posts(context.Background(), p.profile, h.root)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Downloaded)
	assert.Equal(t, 1, sum.Aborted)
	assert.True(t, h.logged(events.LevelError, "Error downloading posts"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.fetcher(Options{Window: january()}).Posts(ctx, p.profile, h.root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimitBackoff(t *testing.T) {
	t.Run("recovers after one cooldown", func(t *testing.T) {
		h := newHarness(t)
		p := h.platform
		p.posts = []models.Item{post("p", day(2024, time.January, 10))}
		p.failures["p"] = []error{igerrors.New(igerrors.KindRateLimited, "please wait").WithCode(429)}

		sum, err := h.fetcher(Options{Window: january()}).Posts(context.Background(), p.profile, h.root)
		require.NoError(t, err)

		assert.Equal(t, 1, sum.Downloaded)
		assert.Equal(t, 2, p.attempts["p"])
		assert.Contains(t, h.slept(), time.Hour)
		assert.True(t, h.logged(events.LevelWarning, "Rate limited by Instagram!"))
	})

	t.Run("cools down after the last attempt too", func(t *testing.T) {
		h := newHarness(t)
		p := h.platform
		p.posts = []models.Item{
			post("a", day(2024, time.January, 10)),
			post("b", day(2024, time.January, 9)),
		}
		limited := igerrors.New(igerrors.KindRateLimited, "please wait").WithCode(429)
		p.failures["a"] = []error{limited, limited, limited}

		sum, err := h.fetcher(Options{Window: january()}).Posts(context.Background(), p.profile, h.root)
		require.NoError(t, err)

		assert.Equal(t, 1, sum.Failed)
		assert.Equal(t, 1, sum.Downloaded)
		assert.Equal(t, 3, p.attempts["a"])
		assert.Equal(t, 1, p.attempts["b"])

		// inter-item delay, three cooldowns, then the next item's delay
		slept := h.slept()
		require.Len(t, slept, 5)
		assert.Equal(t, []time.Duration{time.Hour, time.Hour, time.Hour}, slept[1:4])
		assert.Less(t, slept[4], time.Hour)
	})
}

func TestNonRetryableFailureIsNotRetried(t *testing.T) {
	h := newHarness(t)
	p := h.platform
	p.posts = []models.Item{post("p", day(2024, time.January, 10))}
	p.failures["p"] = []error{igerrors.New(igerrors.KindNotFound, "gone")}

	sum, err := h.fetcher(Options{Window: january()}).Posts(context.Background(), p.profile, h.root)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, p.attempts["p"])
	assert.True(t, h.logged(events.LevelError, "Error downloading post"))
}

func TestStories(t *testing.T) {
	h := newHarness(t)
	p := h.platform
	p.stories = []models.Item{
		post("s1", day(2019, time.May, 1)),
		post("s2", day(2019, time.May, 2)),
	}

	f := h.fetcher(Options{Window: january()})
	n, err := f.CountStories(context.Background(), p.profile)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sum, err := f.Stories(context.Background(), p.profile, h.root)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Downloaded, "stories ignore the date window")
	assert.Equal(t, 1, p.storyLists, "the precount result is reused")
	assert.True(t, h.logged(events.LevelInfo, "Downloaded 2 of 2 story items"))

	for _, d := range h.slept() {
		assert.GreaterOrEqual(t, d, 21*time.Second)
		assert.LessOrEqual(t, d, 23*time.Second)
	}
	for _, path := range h.rec.Files() {
		assert.Equal(t, filepath.Join(h.root, "stories"), filepath.Dir(path))
	}
}

func TestStoriesBlocked(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level events.Level
		want  string
	}{
		{"bad request", igerrors.New(igerrors.KindUnknown, "bad request").WithCode(400), events.LevelWarning, "Story download blocked - likely rate limited"},
		{"rate limited", igerrors.New(igerrors.KindRateLimited, "slow down").WithCode(429), events.LevelWarning, "Story download blocked - likely rate limited"},
		{"other", igerrors.New(igerrors.KindPrivateOrUnauthorized, "private").WithCode(403), events.LevelError, "Error accessing stories"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.platform.storiesErr = tt.err

			sum, err := h.fetcher(Options{Window: january()}).Stories(context.Background(), h.platform.profile, h.root)
			require.NoError(t, err, "a story failure does not abort the job")
			assert.Zero(t, sum.Downloaded)
			assert.True(t, h.logged(tt.level, tt.want))
		})
	}
}

func TestHighlights(t *testing.T) {
	h := newHarness(t)
	p := h.platform
	p.highlights = []models.Highlight{{ID: "1", Title: "Trip/2024"}, {ID: "2", Title: "Broken"}}
	p.highlightItems["1"] = []models.Item{
		post("h1", day(2024, time.January, 3)),
		post("h2", day(2024, time.January, 4)),
		post("h3", day(2022, time.June, 1)),
	}
	p.highlightErrs["2"] = igerrors.New(igerrors.KindPrivateOrUnauthorized, "denied")

	f := h.fetcher(Options{Window: january()})
	n, err := f.CountHighlights(context.Background(), p.profile)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sum, err := f.Highlights(context.Background(), p.profile, h.root)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Downloaded)
	assert.True(t, h.logged(events.LevelError, "Could not access highlight Broken"))
	assert.True(t, h.logged(events.LevelInfo, "Filtered 1 items outside date range"))
	assert.True(t, h.logged(events.LevelInfo, "Found 2 items in this highlight within date range"))

	want := filepath.Join(h.root, "highlights", storage.SafeName("Trip/2024"))
	for _, path := range h.rec.Files() {
		assert.Equal(t, want, filepath.Dir(path))
	}
}

func TestHighlightsListFailure(t *testing.T) {
	h := newHarness(t)
	h.platform.highlightsErr = igerrors.New(igerrors.KindConnection, "tray unavailable")

	sum, err := h.fetcher(Options{Window: january()}).Highlights(context.Background(), h.platform.profile, h.root)
	require.NoError(t, err)
	assert.Zero(t, sum.Found)
	assert.True(t, h.logged(events.LevelError, "Error downloading highlights"))
}

func TestSavedLayouts(t *testing.T) {
	saved := []models.Item{
		{ID: "s1", Owner: "alice", TakenAt: day(2024, time.January, 5), Media: []models.Media{{URL: "u"}}},
		{ID: "s2", Owner: "carol", TakenAt: day(2024, time.March, 5), Media: []models.Media{{URL: "u"}}},
		{ID: "s3", OwnerID: "777", TakenAt: day(2024, time.January, 3), Media: []models.Media{{URL: "u"}}},
	}

	tests := []struct {
		layout string
		want   []string
	}{
		{LayoutPerOwner, []string{
			filepath.Join("alice", "2024-01-05_12-00-00_UTC.jpg"),
			filepath.Join("777", "2024-01-03_12-00-00_UTC.jpg"),
		}},
		{LayoutFlat, []string{
			"alice_2024-01-05_12-00-00_UTC.jpg",
			"777_2024-01-03_12-00-00_UTC.jpg",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.layout, func(t *testing.T) {
			h := newHarness(t)
			h.platform.saved = saved

			sum, err := h.fetcher(Options{Window: january(), SavedLayout: tt.layout}).Saved(context.Background(), h.root)
			require.NoError(t, err)
			assert.Equal(t, 2, sum.Downloaded, "out-of-window saved posts are skipped without stopping")

			var got []string
			for _, path := range h.rec.Files() {
				rel, err := filepath.Rel(h.root, path)
				require.NoError(t, err)
				got = append(got, rel)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSavedLimit(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 5; i++ {
		h.platform.saved = append(h.platform.saved, post(fmt.Sprintf("s%d", i), day(2021, time.May, 10-i)))
	}

	f := h.fetcher(Options{Window: Window{Ignore: true}, Limit: 2})
	assert.Equal(t, 2, f.SavedEstimate())

	sum, err := f.Saved(context.Background(), h.root)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Downloaded)
	assert.True(t, h.logged(events.LevelInfo, "Reached the maximum number of saved posts limit (2)"))
}

func TestSingleReel(t *testing.T) {
	h := newHarness(t)
	reel := post("r1", day(2024, time.January, 7))
	reel.Kind = models.KindReel
	reel.Owner = "dave"
	h.platform.byCode["Cabc123"] = reel

	f := h.fetcher(Options{Window: Window{Ignore: true}})
	sum, err := f.Single(context.Background(), instagram.Target{Kind: models.KindReel, Code: "Cabc123"}, h.root)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Downloaded)
	assert.Empty(t, h.slept(), "single items are not paced")

	files := h.rec.Files()
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(h.root, "dave", "posts"), filepath.Dir(files[0]))
	assert.True(t, h.logged(events.LevelInfo, "Reel belongs to user: dave"))
}

func TestSingleStoryNotFound(t *testing.T) {
	h := newHarness(t)

	f := h.fetcher(Options{Window: Window{Ignore: true}})
	_, err := f.Single(context.Background(), instagram.Target{Kind: models.KindStory, Owner: "erin", Code: "999"}, h.root)
	require.Error(t, err)
	assert.True(t, igerrors.HasKind(err, igerrors.KindNotFound))
	assert.True(t, h.logged(events.LevelError, "Story not found. It may be expired or private."))
}

func TestSingleHighlightOwner(t *testing.T) {
	tests := []struct {
		name      string
		target    instagram.Target
		opts      Options
		wantOwner string
	}{
		{"from url", instagram.Target{Kind: models.KindHighlight, Owner: "frank", Code: "17"}, Options{HighlightOwner: "grace", Username: "me"}, "frank"},
		{"configured owner", instagram.Target{Kind: models.KindHighlight, Code: "17"}, Options{HighlightOwner: "grace", Username: "me"}, "grace"},
		{"logged in user", instagram.Target{Kind: models.KindHighlight, Code: "17"}, Options{Username: "me"}, "me"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.platform.highlights = []models.Highlight{{ID: "17", Title: "Food"}}
			h.platform.highlightItems["17"] = []models.Item{post("i", day(2024, time.January, 2))}
			tt.opts.Window = Window{Ignore: true}

			sum, err := h.fetcher(tt.opts).Single(context.Background(), tt.target, h.root)
			require.NoError(t, err)
			assert.Equal(t, 1, sum.Downloaded)
			assert.Equal(t, []string{tt.wantOwner}, h.platform.profileReqs)

			files := h.rec.Files()
			require.Len(t, files, 1)
			assert.Equal(t, filepath.Join(h.root, tt.wantOwner, "highlights", "Food"), filepath.Dir(files[0]))
		})
	}
}

func TestSingleHighlightErrors(t *testing.T) {
	h := newHarness(t)
	f := h.fetcher(Options{Window: Window{Ignore: true}})

	_, err := f.Single(context.Background(), instagram.Target{Kind: models.KindHighlight, Code: "17"}, h.root)
	assert.True(t, igerrors.HasKind(err, igerrors.KindInvalidURL))

	_, err = f.Single(context.Background(), instagram.Target{Kind: models.KindHighlight, Owner: "x", Code: "404"}, h.root)
	assert.True(t, igerrors.HasKind(err, igerrors.KindNotFound))
}

func TestProfilePicture(t *testing.T) {
	h := newHarness(t)
	p := h.platform

	f := h.fetcher(Options{SkipExisting: true})
	require.NoError(t, f.ProfilePicture(context.Background(), p.profile, h.root))
	require.Len(t, h.rec.Files(), 1)
	assert.Equal(t, filepath.Join(h.root, "profile_pic", "42_1700000000.jpg"), h.rec.Files()[0])

	require.NoError(t, f.ProfilePicture(context.Background(), p.profile, h.root))
	assert.Equal(t, 1, p.picDownloads)
	assert.Len(t, h.rec.Files(), 2, "an existing picture is still reported")
	assert.True(t, h.logged(events.LevelInfo, "Skipping existing profile picture"))
}

func TestPausedGateHoldsWork(t *testing.T) {
	h := newHarness(t)
	p := h.platform
	p.posts = []models.Item{post("p", day(2024, time.January, 10))}
	f := h.fetcher(Options{Window: january()})

	h.gate.Close()
	done := make(chan error, 1)
	go func() {
		_, err := f.Posts(context.Background(), p.profile, h.root)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, p.totalAttempts(), "no download while paused")

	h.gate.Open()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("posts did not resume")
	}
	assert.Equal(t, 1, p.totalAttempts())
}

func TestCancelWhilePaused(t *testing.T) {
	h := newHarness(t)
	p := h.platform
	p.posts = []models.Item{post("p", day(2024, time.January, 10))}
	f := h.fetcher(Options{Window: january()})

	ctx, cancel := context.WithCancel(context.Background())
	h.gate.Close()
	done := make(chan error, 1)
	go func() {
		_, err := f.Posts(ctx, p.profile, h.root)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation did not unblock the pause")
	}
	assert.Zero(t, p.totalAttempts())
}
