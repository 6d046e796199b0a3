package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"igharvest/pkg/auth"
	"igharvest/pkg/config"
	"igharvest/pkg/events"
	"igharvest/pkg/history"
	"igharvest/pkg/instagram"
	"igharvest/pkg/job"
	"igharvest/pkg/logger"
	"igharvest/pkg/ui"
	"igharvest/pkg/ui/tui"
)

const dateLayout = "2006-01-02"

// downloadOptions are the download command's flags
type downloadOptions struct {
	url   string
	saved bool

	from        string
	to          string
	ignoreDates bool
	limit       int

	noPosts        bool
	noStories      bool
	noHighlights   bool
	noProfilePic   bool
	onlyStories    bool
	onlyHighlights bool
	profilePicOnly bool

	output         string
	savedLayout    string
	highlightOwner string
	noSkipExisting bool
	noSaveSession  bool
	baseDelay      float64

	loginUser   string
	sessionFile string
	account     string
	useStored   bool
	remember    bool
}

var dlOpts downloadOptions

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download [profile]",
	Short: "Download a profile, a single item or your saved posts",
	Long: `Download content from Instagram.

Give exactly one target:
  - a profile name as the argument
  - --url with a post, reel, story or highlight link
  - --saved for the logged-in account's saved posts

Profiles and saved posts need a date range (--from and --to) unless
--ignore-dates is set. Files already on disk are skipped, so an interrupted
download can simply be run again.

Authentication, in order of preference:
  --session-file   a session written by an earlier login
  --account        a session kept in the credential store (see 'auth')
  --login-user     password login; the password is read from
                   IGHARVEST_PASSWORD or prompted for`,
	Example: `  # Posts, stories and highlights from January 2024
  igharvest download natgeo --from 2024-01-01 --to 2024-01-31 --login-user me

  # The 50 most recent posts, no stories or highlights
  igharvest download natgeo --ignore-dates --limit 50 --no-stories --no-highlights --account me

  # A single reel
  igharvest download --url https://www.instagram.com/reel/C1a2b3c4d5/ --account me

  # Saved posts into one folder, in the interactive UI
  igharvest download --saved --ignore-dates --saved-layout flat --account me --tui`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	f := downloadCmd.Flags()
	f.StringVar(&dlOpts.url, "url", "", "download a single post, reel, story or highlight")
	f.BoolVar(&dlOpts.saved, "saved", false, "download the logged-in account's saved posts")

	f.StringVar(&dlOpts.from, "from", "", "first day to download (YYYY-MM-DD)")
	f.StringVar(&dlOpts.to, "to", "", "last day to download (YYYY-MM-DD)")
	f.BoolVar(&dlOpts.ignoreDates, "ignore-dates", false, "download regardless of date")
	f.IntVar(&dlOpts.limit, "limit", 0, "maximum number of posts or saved posts (0 for no limit)")

	f.BoolVar(&dlOpts.noPosts, "no-posts", false, "skip posts")
	f.BoolVar(&dlOpts.noStories, "no-stories", false, "skip stories")
	f.BoolVar(&dlOpts.noHighlights, "no-highlights", false, "skip highlights")
	f.BoolVar(&dlOpts.noProfilePic, "no-profile-pic", false, "skip the profile picture")
	f.BoolVar(&dlOpts.onlyStories, "only-stories", false, "download only stories")
	f.BoolVar(&dlOpts.onlyHighlights, "only-highlights", false, "download only highlights")
	f.BoolVar(&dlOpts.profilePicOnly, "profile-pic-only", false, "download only the profile picture")

	f.StringVarP(&dlOpts.output, "output", "o", "", "directory that receives downloads/ (default: current directory)")
	f.StringVar(&dlOpts.savedLayout, "saved-layout", "", "saved posts layout: per_owner or flat")
	f.StringVar(&dlOpts.highlightOwner, "highlight-owner", "", "owner of a highlight given by --url")
	f.BoolVar(&dlOpts.noSkipExisting, "no-skip-existing", false, "download files even when they exist")
	f.BoolVar(&dlOpts.noSaveSession, "no-save-session", false, "do not write a session file after login")
	f.Float64Var(&dlOpts.baseDelay, "base-delay", 0, "base delay between requests in seconds")

	f.StringVar(&dlOpts.loginUser, "login-user", "", "log in with this username and a password")
	f.StringVar(&dlOpts.sessionFile, "session-file", "", "load the session from this file")
	f.StringVarP(&dlOpts.account, "account", "a", "", "use a session from the credential store")
	f.BoolVar(&dlOpts.useStored, "stored", false, "use the most recent session from the credential store")
	f.BoolVar(&dlOpts.remember, "remember", false, "keep the session of a password login in the credential store")
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{
		"output":           dlOpts.output,
		"saved-layout":     dlOpts.savedLayout,
		"base-delay":       dlOpts.baseDelay,
		"no-skip-existing": dlOpts.noSkipExisting,
		"no-save-session":  dlOpts.noSaveSession,
	})
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	profile := ""
	if len(args) == 1 {
		profile = args[0]
	}
	jobCfg, err := buildJobConfig(cfg, profile, dlOpts)
	if err != nil {
		return err
	}

	var store *auth.Manager
	if jobCfg.Auth.Mode == auth.ModeStoredAccount || jobCfg.Auth.Remember {
		if store, err = auth.NewManager(credentialDir()); err != nil {
			return fmt.Errorf("failed to open credential store: %w", err)
		}
	}
	if jobCfg.Auth.Mode == auth.ModeCredentials && jobCfg.Auth.Password == "" && jobCfg.Auth.Username != "" {
		if jobCfg.Auth.Password, err = readPassword(fmt.Sprintf("Password for %s: ", jobCfg.Auth.Username)); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}

	target := targetName(jobCfg)
	id := uuid.NewString()

	var observers events.Multi
	var screen *tui.TUI
	prompter := &codePrompter{}
	if useTUI {
		screen = tui.NewTUI(nil, target)
		observers = append(observers, screen)
	} else {
		observers = append(observers, ui.NewConsole(os.Stdout, ui.ConsoleOptions{
			Quiet:       quiet,
			Verbose:     verbose,
			Interactive: isTerminal(os.Stdout),
		}), prompter)
	}
	observers = append(observers, ui.NewNotifier(nil, cfg.Notifications, target))

	var recorder *history.Recorder
	if cfg.History.Enabled {
		runs, err := history.Open(cfg.History.Path)
		if err == nil {
			defer runs.Close()
			recorder, err = history.NewRecorder(runs, &history.Run{
				ID:     id,
				Target: target,
				Kind:   targetKind(jobCfg),
			}, log)
		}
		if err != nil {
			log.WithError(err).Warn("job history is unavailable")
			recorder = nil
		} else {
			observers = append(observers, recorder)
		}
	}

	client := instagram.NewClient(instagram.Options{
		Timeout:           time.Duration(cfg.Instagram.RequestTimeout) * time.Second,
		UserAgent:         cfg.Instagram.UserAgent,
		RequestsPerMinute: cfg.Instagram.RequestsPerMinute,
	}, log)

	j, err := job.New(jobCfg, job.Deps{
		Platform: client,
		ID:       id,
		Observer: observers,
		Logger:   log,
		Store:    store,
	})
	if err != nil {
		return err
	}
	prompter.bind(j)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if screen != nil {
		// Start emits through the program, which only reads once Run is going.
		screen.Bind(j)
		go func() {
			if err := j.Start(ctx); err != nil {
				log.WithError(err).Error("failed to start download")
				screen.Quit()
			}
		}()
		if err := screen.Run(); err != nil {
			j.Stop()
			<-j.Done()
			return fmt.Errorf("terminal UI failed: %w", err)
		}
		if j.State() == job.StateIdle {
			return fmt.Errorf("download did not start")
		}
	} else if err := j.Start(ctx); err != nil {
		return err
	}
	jobErr := j.Wait()

	res := j.Result()
	if recorder != nil {
		recorder.SetRoot(res.Root)
		recorder.SetCounts(res.Downloaded, res.Skipped, res.Failed)
	}

	if !quiet {
		printResult(j, res)
	}
	return jobErr
}

// buildJobConfig turns the command line into a job configuration
func buildJobConfig(cfg *config.Config, profile string, o downloadOptions) (job.Config, error) {
	c := job.NewConfig(cfg)
	c.Profile = strings.TrimSpace(profile)
	c.URL = strings.TrimSpace(o.url)
	c.Saved = o.saved
	c.IgnoreDateRange = o.ignoreDates
	c.Limit = o.limit
	c.HighlightOwner = o.highlightOwner

	var errs []error
	if o.from != "" {
		since, err := time.ParseInLocation(dateLayout, o.from, time.Local)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid --from date %q, expected YYYY-MM-DD", o.from))
		}
		c.Since = since
	}
	if o.to != "" {
		until, err := time.ParseInLocation(dateLayout, o.to, time.Local)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid --to date %q, expected YYYY-MM-DD", o.to))
		}
		c.Until = until
	}

	c.Categories = job.Categories{
		Posts:          !o.noPosts,
		Stories:        !o.noStories,
		Highlights:     !o.noHighlights,
		ProfilePicture: !o.noProfilePic,
	}
	c.OnlyStories = o.onlyStories
	c.OnlyHighlights = o.onlyHighlights
	c.ProfilePicOnly = o.profilePicOnly

	switch {
	case o.sessionFile != "":
		c.Auth.Mode = auth.ModeSessionFile
		c.Auth.SessionPath = o.sessionFile
	case o.account != "" || o.useStored:
		c.Auth.Mode = auth.ModeStoredAccount
		c.Auth.Username = o.account
	default:
		c.Auth.Mode = auth.ModeCredentials
		c.Auth.Username = o.loginUser
		if c.Auth.Username == "" {
			c.Auth.Username = os.Getenv("IGHARVEST_USERNAME")
		}
		c.Auth.Password = os.Getenv("IGHARVEST_PASSWORD")
		c.Auth.Remember = o.remember
		if c.Auth.Username == "" {
			errs = append(errs, errors.New("no login given: use --login-user, --account, --stored or --session-file"))
		}
	}

	return c, errors.Join(errs...)
}

func targetName(c job.Config) string {
	switch {
	case c.Saved:
		return "saved"
	case c.URL != "":
		return c.URL
	default:
		return instagram.SanitizeUsername(c.Profile)
	}
}

func targetKind(c job.Config) string {
	switch {
	case c.Saved:
		return "saved"
	case c.URL != "":
		return "url"
	default:
		return "profile"
	}
}

func printResult(j *job.Job, res job.Result) {
	fmt.Println()
	switch j.State() {
	case job.StateCompleted:
		ui.PrintSuccess("Download completed")
	case job.StateStopped:
		ui.PrintWarning("Download stopped")
	default:
		ui.PrintError("Download failed")
	}
	ui.PrintInfo("Downloaded", fmt.Sprintf("%d", res.Downloaded))
	ui.PrintInfo("Skipped", fmt.Sprintf("%d", res.Skipped))
	ui.PrintInfo("Failed", fmt.Sprintf("%d", res.Failed))
	if res.Aborted > 0 {
		ui.PrintWarning(fmt.Sprintf("%d content phase(s) ended early", res.Aborted))
	}
	if res.Root != "" {
		ui.PrintInfo("Folder", res.Root)
	}
	if res.SessionPath != "" {
		ui.PrintInfo("Session", res.SessionPath)
	}
	ui.PrintInfo("Job", j.ID())
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
