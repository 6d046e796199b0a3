package job

import (
	"errors"
	"strings"
	"time"

	"igharvest/pkg/auth"
	"igharvest/pkg/config"
	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/fetch"
	"igharvest/pkg/instagram"
	"igharvest/pkg/ratelimit"
)

// Categories are the independently enabled kinds of profile content
type Categories struct {
	Posts          bool
	Stories        bool
	Highlights     bool
	ProfilePicture bool
}

// AuthConfig selects how the job obtains a session
type AuthConfig struct {
	Mode        auth.Mode
	Username    string
	Password    string
	SessionPath string
	SessionDir  string
	SaveSession bool
	// Remember keeps the session of a credential login in the credential store
	Remember bool
}

// Config describes one download run. It is not modified once the job starts.
type Config struct {
	// Exactly one target: a profile name, a single-item URL, or Saved
	Profile string
	URL     string
	Saved   bool

	Auth AuthConfig

	Since           time.Time
	Until           time.Time
	IgnoreDateRange bool
	// Limit caps posts or saved posts; zero means no limit
	Limit int

	Categories     Categories
	OnlyStories    bool
	OnlyHighlights bool
	ProfilePicOnly bool

	SkipExisting   bool
	SavedLayout    string
	HighlightOwner string

	// DownloadDir holds the downloads/ tree
	DownloadDir string
	Timing      ratelimit.Policy
}

// NewConfig returns a job config carrying the application settings; the
// caller fills in the target, auth inputs and filters.
func NewConfig(app *config.Config) Config {
	return Config{
		Auth: AuthConfig{
			Mode:        auth.ModeCredentials,
			SessionDir:  app.Instagram.SessionDir,
			SaveSession: app.Download.SaveSession,
		},
		Categories:   Categories{Posts: true, Stories: true, Highlights: true, ProfilePicture: true},
		SkipExisting: app.Download.SkipExisting,
		SavedLayout:  app.Output.SavedLayout,
		DownloadDir:  app.Output.BaseDirectory,
		Timing:       app.Timing.Policy(),
	}
}

// Validate reports every problem with the config at once. All errors are
// of the config category.
func (c Config) Validate() error {
	var errs []error

	targets := 0
	if strings.TrimSpace(c.Profile) != "" {
		targets++
	}
	if strings.TrimSpace(c.URL) != "" {
		targets++
	}
	if c.Saved {
		targets++
	}
	switch targets {
	case 0:
		errs = append(errs, igerrors.New(igerrors.KindMissingTarget, "a profile, an item URL or saved posts is required"))
	case 1:
	default:
		errs = append(errs, igerrors.New(igerrors.KindMissingTarget, "only one of profile, URL or saved posts may be given"))
	}

	if c.Profile != "" && !instagram.IsValidUsername(instagram.SanitizeUsername(c.Profile)) {
		errs = append(errs, igerrors.New(igerrors.KindMissingTarget, "invalid profile name %q", c.Profile))
	}
	if c.URL != "" {
		if err := instagram.ValidateURL(c.URL); err != nil {
			errs = append(errs, err)
		}
	}

	if !c.IgnoreDateRange && !c.singleItem() {
		switch {
		case c.Since.IsZero() || c.Until.IsZero():
			errs = append(errs, igerrors.New(igerrors.KindInvalidDateRange, "both dates are required unless the date range is ignored"))
		case c.Since.After(c.Until):
			errs = append(errs, igerrors.New(igerrors.KindInvalidDateRange, "from date %s is after to date %s",
				c.Since.Format("2006-01-02"), c.Until.Format("2006-01-02")))
		}
	}
	if c.Limit < 0 {
		errs = append(errs, igerrors.New(igerrors.KindInvalidDateRange, "limit cannot be negative"))
	}

	switch c.Auth.Mode {
	case auth.ModeCredentials:
		if c.Auth.Username == "" || c.Auth.Password == "" {
			errs = append(errs, igerrors.New(igerrors.KindMissingCredentials, "username and password are required"))
		}
	case auth.ModeSessionFile:
		if c.Auth.SessionPath == "" {
			errs = append(errs, igerrors.New(igerrors.KindMissingCredentials, "a session file is required"))
		}
	}

	switch c.SavedLayout {
	case "", fetch.LayoutPerOwner, fetch.LayoutFlat:
	default:
		errs = append(errs, igerrors.New(igerrors.KindMissingTarget, "invalid saved layout %q", c.SavedLayout))
	}

	if c.OnlyStories && c.OnlyHighlights {
		errs = append(errs, igerrors.New(igerrors.KindMissingTarget, "only stories and only highlights are exclusive"))
	}
	if c.Profile != "" && !c.ProfilePicOnly && !c.enabled().any() {
		errs = append(errs, igerrors.New(igerrors.KindMissingTarget, "no content category is enabled"))
	}

	return errors.Join(errs...)
}

func (c Config) singleItem() bool {
	return c.URL != ""
}

func (c Config) window() fetch.Window {
	if c.IgnoreDateRange {
		return fetch.Window{Ignore: true}
	}
	return fetch.NewWindow(c.Since, c.Until)
}

// enabled applies the only-stories and only-highlights overrides to the
// category set. The stored config keeps the user's choice.
func (c Config) enabled() Categories {
	cats := c.Categories
	switch {
	case c.OnlyStories:
		cats.Posts, cats.ProfilePicture = false, false
		cats.Stories, cats.Highlights = true, false
	case c.OnlyHighlights:
		cats.Posts, cats.ProfilePicture = false, false
		cats.Stories, cats.Highlights = false, true
	}
	return cats
}

func (c Categories) any() bool {
	return c.Posts || c.Stories || c.Highlights || c.ProfilePicture
}
