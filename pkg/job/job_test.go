package job

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igharvest/pkg/auth"
	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/events"
	"igharvest/pkg/models"
	"igharvest/pkg/ratelimit"
	"igharvest/pkg/storage"
)

type fakePlatform struct {
	mu    sync.Mutex
	files *storage.Manager

	profiles       map[string]models.Profile
	posts          []models.Item
	stories        []models.Item
	highlights     []models.Highlight
	highlightItems map[string][]models.Item
	byCode         map[string]models.Item

	twoFactor bool
	loginErr  error
	// postsErr is yielded after the posts when set
	postsErr error

	attempts   map[string]int
	storyLists int
	postLists  int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		files: storage.NewManager(),
		profiles: map[string]models.Profile{
			"alice": {ID: "1001", Username: "alice", MediaCount: 40, ProfilePicURL: "https://cdn.example/alice.jpg"},
		},
		highlightItems: make(map[string][]models.Item),
		byCode:         make(map[string]models.Item),
		attempts:       make(map[string]int),
	}
}

func (p *fakePlatform) session(username string) *models.Session {
	return &models.Session{Username: username, UserID: "7", SessionID: "sid", CSRFToken: "csrf"}
}

func (p *fakePlatform) Login(_ context.Context, username, _ string) (*models.Session, error) {
	if p.loginErr != nil {
		return nil, p.loginErr
	}
	if p.twoFactor {
		return nil, &models.TwoFactorChallenge{Username: username, Identifier: "tf"}
	}
	return p.session(username), nil
}

func (p *fakePlatform) TwoFactorLogin(_ context.Context, code string) (*models.Session, error) {
	if code != "123456" {
		return nil, igerrors.New(igerrors.KindBadCredentials, "wrong code")
	}
	return p.session("me"), nil
}

func (p *fakePlatform) LoadSession(path string) (*models.Session, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, igerrors.Wrap(igerrors.KindSessionNotFound, err, "no session at %s", path)
	}
	return p.session(""), nil
}

func (p *fakePlatform) SaveSession(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("{}"), 0o600)
}

func (p *fakePlatform) UseSession(*models.Session) error { return nil }

func (p *fakePlatform) FetchProfile(_ context.Context, username string) (*models.Profile, error) {
	profile, ok := p.profiles[username]
	if !ok {
		return nil, igerrors.New(igerrors.KindNotFound, "profile %s not found", username).WithCode(404)
	}
	return &profile, nil
}

func (p *fakePlatform) seq(items []models.Item) iter.Seq2[models.Item, error] {
	return func(yield func(models.Item, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

func (p *fakePlatform) ListPosts(context.Context, models.Profile) iter.Seq2[models.Item, error] {
	p.mu.Lock()
	p.postLists++
	p.mu.Unlock()
	if p.postsErr == nil {
		return p.seq(p.posts)
	}
	return func(yield func(models.Item, error) bool) {
		for item := range p.seq(p.posts) {
			if !yield(item, nil) {
				return
			}
		}
		yield(models.Item{}, p.postsErr)
	}
}

func (p *fakePlatform) ListStories(context.Context, []string) iter.Seq2[models.Item, error] {
	p.mu.Lock()
	p.storyLists++
	p.mu.Unlock()
	return p.seq(p.stories)
}

func (p *fakePlatform) ListHighlights(context.Context, models.Profile) ([]models.Highlight, error) {
	return p.highlights, nil
}

func (p *fakePlatform) HighlightItems(_ context.Context, h models.Highlight) iter.Seq2[models.Item, error] {
	return p.seq(p.highlightItems[h.ID])
}

func (p *fakePlatform) ListSavedPosts(context.Context) iter.Seq2[models.Item, error] {
	return p.seq(nil)
}

func (p *fakePlatform) MediaByShortcode(_ context.Context, code string) (models.Item, error) {
	item, ok := p.byCode[code]
	if !ok {
		return models.Item{}, igerrors.New(igerrors.KindNotFound, "no media %s", code)
	}
	return item, nil
}

func (p *fakePlatform) StoryItem(context.Context, string, string) (models.Item, error) {
	return models.Item{}, igerrors.New(igerrors.KindNotFound, "expired")
}

func (p *fakePlatform) DownloadItem(_ context.Context, item models.Item, dir, prefix string) ([]string, error) {
	p.mu.Lock()
	p.attempts[item.ID]++
	p.mu.Unlock()

	path := filepath.Join(dir, prefix+storage.Stem(item.TakenAt)+".jpg")
	if _, err := p.files.Save(strings.NewReader("x"), path); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (p *fakePlatform) DownloadProfilePic(_ context.Context, profile models.Profile, dir string) error {
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

func (p *fakePlatform) attemptsFor(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts[id]
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func item(id string, at time.Time) models.Item {
	return models.Item{
		ID:      id,
		Kind:    models.KindPost,
		Owner:   "alice",
		TakenAt: at,
		Media:   []models.Media{{URL: "https://cdn.example/" + id + ".jpg"}},
	}
}

func jan(d int) time.Time {
	return time.Date(2024, time.January, d, 12, 0, 0, 0, time.UTC)
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Profile: "alice",
		Auth: AuthConfig{
			Mode:        auth.ModeCredentials,
			Username:    "me",
			Password:    "secret",
			SessionDir:  t.TempDir(),
			SaveSession: true,
		},
		Since:        jan(1),
		Until:        jan(31),
		Categories:   Categories{Posts: true, Stories: true, Highlights: true, ProfilePicture: true},
		SkipExisting: true,
		DownloadDir:  t.TempDir(),
		Timing:       ratelimit.Policy{StoryMultiplier: 1},
	}
}

func startJob(t *testing.T, cfg Config, deps Deps) (*Job, *events.Recorder) {
	t.Helper()
	rec := events.NewRecorder()
	deps.Observer = rec
	j, err := New(cfg, deps)
	require.NoError(t, err)
	require.NoError(t, j.Start(context.Background()))
	return j, rec
}

func waitDone(t *testing.T, j *Job, within time.Duration) {
	t.Helper()
	select {
	case <-j.Done():
	case <-time.After(within):
		t.Fatalf("job did not finish within %s (state %s)", within, j.State())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func logged(rec *events.Recorder, level events.Level, substr string) bool {
	for _, msg := range rec.LogsAt(level) {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func TestJobCompletesProfileRun(t *testing.T) {
	p := newFakePlatform()
	p.posts = []models.Item{item("p1", jan(20)), item("p2", jan(15)), item("p3", jan(10)), item("old", jan(1).AddDate(0, 0, -3))}
	p.stories = []models.Item{item("s1", jan(30)), item("s2", jan(30).Add(time.Hour))}
	p.highlights = []models.Highlight{{ID: "h", Title: "Best"}}
	p.highlightItems["h"] = []models.Item{item("h1", jan(5))}
	cfg := testConfig(t)

	j, rec := startJob(t, cfg, Deps{Platform: p, Files: p.files, Sleep: noSleep})
	require.NoError(t, j.Wait())

	assert.Equal(t, StateCompleted, j.State())
	assert.Equal(t, 1, rec.FinishCount())
	assert.True(t, rec.HasState(events.StateStarted))
	assert.True(t, rec.HasState(events.StateCompleted))

	res := j.Result()
	assert.Equal(t, 6, res.Downloaded)
	assert.Equal(t, "me", res.Username)
	assert.Equal(t, filepath.Join(cfg.Auth.SessionDir, "session-me"), res.SessionPath)
	assert.Equal(t, []string{res.SessionPath}, rec.Sessions())
	assert.Len(t, rec.Files(), 7, "six items and the profile picture")

	root, err := storage.SanitizePath(filepath.Join(cfg.DownloadDir, "downloads", "alice"))
	require.NoError(t, err)
	assert.Equal(t, root, res.Root)
	assert.FileExists(t, filepath.Join(root, "profile_pic", "1001_1700000000.jpg"))
	assert.DirExists(t, filepath.Join(root, "posts"))
	assert.DirExists(t, filepath.Join(root, "stories"))
	assert.DirExists(t, filepath.Join(root, "highlights", "Best"))

	completed, total := j.Progress()
	assert.Equal(t, 31+2+1, total)
	assert.Equal(t, total, completed)
	assert.Equal(t, 1, p.storyLists, "stories are listed once for count and download")

	for _, ev := range rec.ProgressFor(events.ScopeOverall) {
		assert.LessOrEqual(t, ev.Current, ev.Total)
		assert.GreaterOrEqual(t, ev.Total, 1)
	}
	assert.True(t, logged(rec, events.LevelInfo, "Will download: Posts (covering 31 days"))
}

func TestJobWindowedProgress(t *testing.T) {
	p := newFakePlatform()
	for i := 0; i < 10; i++ {
		p.posts = append(p.posts, item(fmt.Sprintf("in%d", i), jan(30-3*i)))
	}
	for i := 0; i < 5; i++ {
		p.posts = append(p.posts, item(fmt.Sprintf("out%d", i), jan(1).AddDate(0, 0, -1-i)))
	}
	cfg := testConfig(t)
	cfg.Categories = Categories{Posts: true}

	j, rec := startJob(t, cfg, Deps{Platform: p, Files: p.files, Sleep: noSleep})
	require.NoError(t, j.Wait())

	assert.Equal(t, 10, p.totalAttempts())
	overall := rec.ProgressFor(events.ScopeOverall)
	require.NotEmpty(t, overall)

	// the last event is the completion fill-up
	final := overall[len(overall)-1]
	assert.Equal(t, events.ProgressEvent{Current: 31, Total: 31, Scope: events.ScopeOverall}, final)

	last := 0
	for _, ev := range overall[:len(overall)-1] {
		assert.Equal(t, 31, ev.Total)
		assert.LessOrEqual(t, ev.Current-last, 1, "completed grows by at most one per day")
		assert.GreaterOrEqual(t, ev.Current, last)
		last = ev.Current
	}
	assert.Equal(t, 10, last)
}

func TestJobPostsListingFailureKeepsOtherPhases(t *testing.T) {
	p := newFakePlatform()
	p.posts = []models.Item{item("p1", jan(20))}
	p.postsErr = igerrors.New(igerrors.KindConnection, "feed page failed")
	p.stories = []models.Item{item("s1", jan(30))}
	p.highlights = []models.Highlight{{ID: "h", Title: "Best"}}
	p.highlightItems["h"] = []models.Item{item("h1", jan(5))}

	j, rec := startJob(t, testConfig(t), Deps{Platform: p, Files: p.files, Sleep: noSleep})
	require.NoError(t, j.Wait())

	assert.Equal(t, StateCompleted, j.State())
	assert.Equal(t, 1, rec.FinishCount())
	assert.Equal(t, 1, p.attemptsFor("p1"))
	assert.Equal(t, 1, p.attemptsFor("s1"), "stories still run")
	assert.Equal(t, 1, p.attemptsFor("h1"), "highlights still run")

	res := j.Result()
	assert.Equal(t, 3, res.Downloaded)
	assert.Equal(t, 1, res.Aborted)
	assert.True(t, logged(rec, events.LevelError, "feed page failed"))
	assert.True(t, logged(rec, events.LevelWarning, "1 content phase(s) ended early"))
}

func TestJobStop(t *testing.T) {
	p := newFakePlatform()
	for i := 0; i < 20; i++ {
		p.posts = append(p.posts, item(fmt.Sprintf("p%d", i), jan(31-i)))
	}
	cfg := testConfig(t)
	cfg.Categories = Categories{Posts: true}
	cfg.Timing = ratelimit.Policy{BaseDelay: 20 * time.Millisecond, StoryMultiplier: 1}

	j, rec := startJob(t, cfg, Deps{Platform: p, Files: p.files, PollInterval: 5 * time.Millisecond})
	waitFor(t, func() bool { return len(rec.Files()) > 0 })

	j.Stop()
	waitDone(t, j, time.Second)
	j.Stop()

	assert.Equal(t, StateStopped, j.State())
	assert.NoError(t, j.Err())
	assert.True(t, rec.HasState(events.StateStopped))
	assert.False(t, rec.HasState(events.StateCompleted))
	assert.Equal(t, 1, rec.FinishCount())
	assert.Less(t, p.totalAttempts(), 20)
	assert.False(t, j.Pause())
	assert.False(t, j.Resume())
}

func TestJobStopBeforeStart(t *testing.T) {
	p := newFakePlatform()
	rec := events.NewRecorder()
	j, err := New(testConfig(t), Deps{Platform: p, Observer: rec, Sleep: noSleep})
	require.NoError(t, err)

	j.Stop()
	waitDone(t, j, time.Second)
	assert.Equal(t, StateStopped, j.State())
	assert.Equal(t, 1, rec.FinishCount())
	assert.Error(t, j.Start(context.Background()))
	assert.Zero(t, p.totalAttempts())
}

func TestJobPauseResume(t *testing.T) {
	p := newFakePlatform()
	for i := 0; i < 5; i++ {
		p.posts = append(p.posts, item(fmt.Sprintf("p%d", i), jan(25-i)))
	}
	cfg := testConfig(t)
	cfg.Categories = Categories{Posts: true}
	cfg.Timing = ratelimit.Policy{BaseDelay: 30 * time.Millisecond, StoryMultiplier: 1}

	j, rec := startJob(t, cfg, Deps{Platform: p, Files: p.files, PollInterval: 5 * time.Millisecond})
	assert.False(t, j.Resume(), "resume needs a paused job")
	waitFor(t, func() bool { return len(rec.Files()) > 0 })

	require.True(t, j.Pause())
	assert.False(t, j.Pause())
	assert.Equal(t, StatePaused, j.State())

	time.Sleep(20 * time.Millisecond)
	attempts := p.totalAttempts()
	completed, _ := j.Progress()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, attempts, p.totalAttempts(), "nothing is downloaded while paused")
	after, _ := j.Progress()
	assert.Equal(t, completed, after)

	require.True(t, j.Resume())
	waitDone(t, j, 3*time.Second)

	assert.Equal(t, StateCompleted, j.State())
	for i := 0; i < 5; i++ {
		assert.Equal(t, 1, p.attemptsFor(fmt.Sprintf("p%d", i)), "no duplicate download after resume")
	}
	assert.True(t, rec.HasState(events.StatePaused))
	assert.True(t, rec.HasState(events.StateResumed))
}

func TestJobTwoFactorTimeout(t *testing.T) {
	p := newFakePlatform()
	p.twoFactor = true

	j, rec := startJob(t, testConfig(t), Deps{Platform: p, Sleep: noSleep, TwoFactorTimeout: 30 * time.Millisecond})
	err := j.Wait()

	require.Error(t, err)
	assert.True(t, igerrors.HasKind(err, igerrors.KindTwoFactorTimeout))
	assert.Equal(t, StateFailed, j.State())
	assert.Equal(t, 1, rec.TwoFactorCount())
	assert.True(t, rec.HasState(events.StateAwaitingTwoFactor))
	assert.True(t, rec.HasState(events.StateError))
	assert.Equal(t, 1, rec.FinishCount())
	assert.True(t, logged(rec, events.LevelError, "Two-factor authentication failed"))
}

func TestJobTwoFactorCode(t *testing.T) {
	p := newFakePlatform()
	p.twoFactor = true
	cfg := testConfig(t)
	cfg.Categories = Categories{Posts: true}

	j, rec := startJob(t, cfg, Deps{Platform: p, Files: p.files, Sleep: noSleep, TwoFactorTimeout: 5 * time.Second})
	waitFor(t, func() bool { return j.State() == StateAwaitingCode })
	assert.False(t, j.Pause(), "a job waiting for a code cannot be paused")

	require.True(t, j.SubmitCode(" 123456 "))
	assert.False(t, j.SubmitCode("654321"), "only one code is accepted")
	require.NoError(t, j.Wait())

	assert.Equal(t, StateCompleted, j.State())
	assert.True(t, logged(rec, events.LevelInfo, "Two-factor authentication successful!"))
}

func TestJobTwoFactorCancelled(t *testing.T) {
	p := newFakePlatform()
	p.twoFactor = true

	j, _ := startJob(t, testConfig(t), Deps{Platform: p, Sleep: noSleep, TwoFactorTimeout: 5 * time.Second})
	waitFor(t, func() bool { return j.State() == StateAwaitingCode })
	require.True(t, j.SubmitCode(""))

	err := j.Wait()
	assert.True(t, igerrors.HasKind(err, igerrors.KindTwoFactorCancelled))
	assert.False(t, igerrors.HasKind(err, igerrors.KindBadCredentials))
}

func TestJobStopDuringTwoFactor(t *testing.T) {
	p := newFakePlatform()
	p.twoFactor = true

	j, rec := startJob(t, testConfig(t), Deps{Platform: p, Sleep: noSleep, TwoFactorTimeout: time.Minute})
	waitFor(t, func() bool { return j.State() == StateAwaitingCode })

	j.Stop()
	waitDone(t, j, time.Second)
	assert.Equal(t, StateStopped, j.State())
	assert.Equal(t, 1, rec.FinishCount())
}

func TestJobBadCredentials(t *testing.T) {
	p := newFakePlatform()
	p.loginErr = igerrors.New(igerrors.KindBadCredentials, "invalid password")

	j, rec := startJob(t, testConfig(t), Deps{Platform: p, Sleep: noSleep})
	err := j.Wait()
	assert.True(t, igerrors.HasKind(err, igerrors.KindBadCredentials))
	assert.Zero(t, p.totalAttempts())
	assert.True(t, logged(rec, events.LevelError, "Bad credentials"))
}

func TestJobSessionFile(t *testing.T) {
	p := newFakePlatform()
	p.posts = []models.Item{item("p1", jan(3))}
	cfg := testConfig(t)
	cfg.Categories = Categories{Posts: true}
	cfg.Auth = AuthConfig{Mode: auth.ModeSessionFile, SessionPath: filepath.Join(t.TempDir(), "session-bob")}
	require.NoError(t, os.WriteFile(cfg.Auth.SessionPath, []byte("{}"), 0o600))

	j, rec := startJob(t, cfg, Deps{Platform: p, Files: p.files, Sleep: noSleep})
	require.NoError(t, j.Wait())
	assert.Equal(t, "bob", j.Result().Username)
	assert.True(t, logged(rec, events.LevelInfo, "Session loaded successfully!"))
}

func TestJobProfileNotFound(t *testing.T) {
	p := newFakePlatform()
	cfg := testConfig(t)
	cfg.Profile = "ghost"

	j, rec := startJob(t, cfg, Deps{Platform: p, Sleep: noSleep})
	err := j.Wait()
	assert.True(t, igerrors.HasKind(err, igerrors.KindNotFound))
	assert.Equal(t, StateFailed, j.State())
	assert.True(t, logged(rec, events.LevelError, "does not exist or is private"))
	assert.Equal(t, 1, rec.FinishCount())
}

func TestJobSkipExistingRerun(t *testing.T) {
	p := newFakePlatform()
	p.posts = []models.Item{item("p1", jan(20)), item("p2", jan(19)), item("p3", jan(18))}
	cfg := testConfig(t)
	cfg.Categories = Categories{Posts: true}

	first, _ := startJob(t, cfg, Deps{Platform: p, Files: p.files, Sleep: noSleep})
	require.NoError(t, first.Wait())
	assert.Equal(t, 3, p.totalAttempts())

	second, _ := startJob(t, cfg, Deps{Platform: p, Files: storage.NewManager(), Sleep: noSleep})
	require.NoError(t, second.Wait())
	assert.Equal(t, 3, p.totalAttempts(), "nothing already present is downloaded again")
	assert.Equal(t, 3, second.Result().Skipped)
	completed, total := second.Progress()
	assert.Equal(t, total, completed)
}

func TestJobReelURL(t *testing.T) {
	p := newFakePlatform()
	reel := item("r1", jan(7))
	reel.Kind = models.KindReel
	reel.Owner = "dave"
	p.byCode["Cabc123"] = reel

	cfg := testConfig(t)
	cfg.Profile = ""
	cfg.URL = "https://www.instagram.com/reel/Cabc123/"

	j, rec := startJob(t, cfg, Deps{Platform: p, Files: p.files, Sleep: noSleep})
	require.NoError(t, j.Wait())

	files := rec.Files()
	require.Len(t, files, 1)
	downloads, err := storage.SanitizePath(filepath.Join(cfg.DownloadDir, "downloads"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(downloads, "dave", "posts"), filepath.Dir(files[0]))
	assert.Zero(t, p.postLists)
	assert.True(t, logged(rec, events.LevelInfo, "Single item download completed successfully!"))
}

func TestJobSingleStoryExpired(t *testing.T) {
	p := newFakePlatform()
	cfg := testConfig(t)
	cfg.Profile = ""
	cfg.URL = "https://www.instagram.com/stories/alice/3141592653589793/"

	j, rec := startJob(t, cfg, Deps{Platform: p, Sleep: noSleep})
	err := j.Wait()
	assert.True(t, igerrors.HasKind(err, igerrors.KindNotFound))
	assert.True(t, logged(rec, events.LevelError, "Story not found"))
}

func TestJobOnlyHighlights(t *testing.T) {
	p := newFakePlatform()
	p.posts = []models.Item{item("p1", jan(3))}
	p.stories = []models.Item{item("s1", jan(3))}
	p.highlights = []models.Highlight{{ID: "h", Title: "Trip"}}
	p.highlightItems["h"] = []models.Item{item("h1", jan(4)), item("h2", jan(5))}
	cfg := testConfig(t)
	cfg.OnlyHighlights = true

	j, rec := startJob(t, cfg, Deps{Platform: p, Files: p.files, Sleep: noSleep})
	require.NoError(t, j.Wait())

	assert.Equal(t, 2, p.totalAttempts())
	assert.Zero(t, p.storyLists)
	assert.Zero(t, p.postLists)
	assert.True(t, logged(rec, events.LevelInfo, "Skipping posts download as 'Only Download Highlights' is enabled"))
	assert.True(t, j.Config().Categories.Stories, "the configured categories are left as given")
}

func TestJobProfilePicOnly(t *testing.T) {
	p := newFakePlatform()
	p.posts = []models.Item{item("p1", jan(3))}
	cfg := testConfig(t)
	cfg.ProfilePicOnly = true
	cfg.Categories = Categories{Posts: true}

	j, rec := startJob(t, cfg, Deps{Platform: p, Files: p.files, Sleep: noSleep})
	require.NoError(t, j.Wait())

	assert.Zero(t, p.totalAttempts())
	assert.Len(t, rec.Files(), 1)
	assert.True(t, logged(rec, events.LevelInfo, "Successfully downloaded profile picture"))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		kind   igerrors.Kind
	}{
		{"no target", func(c *Config) { c.Profile = "" }, igerrors.KindMissingTarget},
		{"two targets", func(c *Config) { c.Saved = true }, igerrors.KindMissingTarget},
		{"bad profile", func(c *Config) { c.Profile = "not a name" }, igerrors.KindMissingTarget},
		{"reversed dates", func(c *Config) { c.Since, c.Until = c.Until, c.Since }, igerrors.KindInvalidDateRange},
		{"missing dates", func(c *Config) { c.Until = time.Time{} }, igerrors.KindInvalidDateRange},
		{"bad url", func(c *Config) { c.Profile = ""; c.URL = "https://example.com/p/abc" }, igerrors.KindInvalidURL},
		{"no password", func(c *Config) { c.Auth.Password = "" }, igerrors.KindMissingCredentials},
		{"no session file", func(c *Config) { c.Auth = AuthConfig{Mode: auth.ModeSessionFile} }, igerrors.KindMissingCredentials},
		{"nothing enabled", func(c *Config) { c.Categories = Categories{} }, igerrors.KindMissingTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, igerrors.HasKind(err, tt.kind), "got %v", err)
			assert.Equal(t, igerrors.CategoryConfig, igerrors.CategoryOf(err))

			_, err = New(cfg, Deps{Platform: newFakePlatform()})
			assert.Error(t, err, "an invalid config never reaches the worker")
		})
	}

	t.Run("ignored dates", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Since, cfg.Until = time.Time{}, time.Time{}
		cfg.IgnoreDateRange = true
		assert.NoError(t, cfg.Validate())
	})
}
