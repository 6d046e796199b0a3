package auth

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/logger"
	"igharvest/pkg/models"
)

// sessionFilePrefix names session files session-<username>
const sessionFilePrefix = "session-"

// Platform is the part of the Instagram client authentication needs
type Platform interface {
	Login(ctx context.Context, username, password string) (*models.Session, error)
	TwoFactorLogin(ctx context.Context, code string) (*models.Session, error)
	LoadSession(path string) (*models.Session, error)
	SaveSession(path string) error
	UseSession(s *models.Session) error
}

// Mode selects where the session comes from
type Mode int

const (
	// ModeCredentials logs in with username and password
	ModeCredentials Mode = iota
	// ModeSessionFile loads a session file written by an earlier login
	ModeSessionFile
	// ModeStoredAccount uses a session kept by the credential Manager
	ModeStoredAccount
)

// Options configures an Authenticator
type Options struct {
	Mode     Mode
	Username string
	Password string

	// SessionPath is read in ModeSessionFile
	SessionPath string
	// SessionDir receives session-<username> after a credential login
	SessionDir  string
	SaveSession bool

	// Store backs ModeStoredAccount and, when Remember is set, keeps the
	// session of a credential login
	Store    *Manager
	Remember bool
}

// Hooks report authentication milestones to the job
type Hooks struct {
	// TwoFactorRequired fires once the rendezvous is armed
	TwoFactorRequired func()
	SessionSaved      func(path string)
}

// Result is an established session
type Result struct {
	Session *models.Session
	// Username names download directories and the session file
	Username string
	// SessionPath is the file loaded or written, empty when none
	SessionPath string
}

// Authenticator establishes a session in one of the three modes and runs
// the two-factor handshake through a Rendezvous.
type Authenticator struct {
	platform   Platform
	opts       Options
	hooks      Hooks
	rendezvous *Rendezvous
	logger     logger.Logger
}

// NewAuthenticator creates an authenticator; rv may be shared with the UI
func NewAuthenticator(p Platform, opts Options, hooks Hooks, rv *Rendezvous, log logger.Logger) *Authenticator {
	if rv == nil {
		rv = NewRendezvous(0)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Authenticator{
		platform:   p,
		opts:       opts,
		hooks:      hooks,
		rendezvous: rv,
		logger:     log.WithField("component", "auth"),
	}
}

// Rendezvous returns the two-factor slot codes are submitted to
func (a *Authenticator) Rendezvous() *Rendezvous {
	return a.rendezvous
}

// Authenticate establishes a session according to the configured mode
func (a *Authenticator) Authenticate(ctx context.Context) (*Result, error) {
	switch a.opts.Mode {
	case ModeSessionFile:
		return a.fromSessionFile()
	case ModeStoredAccount:
		return a.fromStore()
	default:
		return a.fromCredentials(ctx)
	}
}

func (a *Authenticator) fromSessionFile() (*Result, error) {
	path := a.opts.SessionPath
	if path == "" {
		return nil, igerrors.New(igerrors.KindSessionNotFound, "no session file given")
	}

	s, err := a.platform.LoadSession(path)
	if err != nil {
		if igerrors.CategoryOf(err) != igerrors.CategoryAuth {
			err = igerrors.Wrap(igerrors.KindSessionNotFound, err, "loading %s", path)
		}
		return nil, err
	}

	username := UsernameFromSessionPath(path)
	if username == "" {
		username = s.Username
	}
	a.logger.InfoWithFields("session loaded", map[string]interface{}{
		"username": username,
		"path":     path,
	})
	return &Result{Session: s, Username: username, SessionPath: path}, nil
}

func (a *Authenticator) fromStore() (*Result, error) {
	if a.opts.Store == nil {
		return nil, igerrors.New(igerrors.KindSessionNotFound, "no credential store configured")
	}

	var (
		account *Account
		err     error
	)
	if a.opts.Username != "" {
		account, err = a.opts.Store.Retrieve(a.opts.Username)
	} else {
		account, err = a.opts.Store.RetrieveDefault()
	}
	if err != nil {
		return nil, err
	}

	s := account.Session()
	if err := a.platform.UseSession(s); err != nil {
		return nil, err
	}
	return &Result{Session: s, Username: account.Username}, nil
}

func (a *Authenticator) fromCredentials(ctx context.Context) (*Result, error) {
	if a.opts.Username == "" || a.opts.Password == "" {
		return nil, igerrors.New(igerrors.KindBadCredentials, "username and password are required")
	}

	s, err := a.platform.Login(ctx, a.opts.Username, a.opts.Password)
	var challenge *models.TwoFactorChallenge
	if errors.As(err, &challenge) {
		s, err = a.twoFactor(ctx)
	}
	if err != nil {
		return nil, err
	}

	result := &Result{Session: s, Username: a.opts.Username}

	if a.opts.SaveSession {
		path := SessionFilePath(a.opts.SessionDir, a.opts.Username)
		if err := a.platform.SaveSession(path); err != nil {
			a.logger.WithError(err).Warn("failed to save session")
		} else {
			result.SessionPath = path
			if a.hooks.SessionSaved != nil {
				a.hooks.SessionSaved(path)
			}
		}
	}

	if a.opts.Remember && a.opts.Store != nil {
		if err := a.opts.Store.Store(AccountFromSession(s)); err != nil {
			a.logger.WithError(err).Warn("failed to store session in credential store")
		}
	}

	return result, nil
}

func (a *Authenticator) twoFactor(ctx context.Context) (*models.Session, error) {
	a.rendezvous.Arm()
	a.logger.Info("waiting for two-factor code")
	if a.hooks.TwoFactorRequired != nil {
		a.hooks.TwoFactorRequired()
	}

	code, err := a.rendezvous.Await(ctx)
	if err != nil {
		return nil, err
	}
	return a.platform.TwoFactorLogin(ctx, strings.TrimSpace(code))
}

// SubmitCode forwards a verification code to a pending challenge
func (a *Authenticator) SubmitCode(code string) bool {
	return a.rendezvous.Submit(code)
}

// SessionFilePath returns dir/session-<username>
func SessionFilePath(dir, username string) string {
	return filepath.Join(dir, sessionFilePrefix+username)
}

// UsernameFromSessionPath recovers the username from a session file name
func UsernameFromSessionPath(path string) string {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, sessionFilePrefix) {
		return ""
	}
	return strings.TrimPrefix(base, sessionFilePrefix)
}
