package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/models"
)

var sessionCookies = []string{"sessionid", "csrftoken", "ds_user_id", "mid", "ig_did", "rur"}

// Login authenticates with username and password. A *models.TwoFactorChallenge
// error means TwoFactorLogin must follow with the code the user received.
func (c *Client) Login(ctx context.Context, username, password string) (*models.Session, error) {
	// the landing page sets the csrftoken cookie the login post needs
	if resp, err := c.get(ctx, c.endpoint("/", nil)); err == nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	} else if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%s:%s", unixString(time.Now()), password))
	form.Set("queryParams", "{}")
	form.Set("optIntoOneTap", "false")

	var lr loginResponse
	if err := c.postLogin(ctx, c.endpoint(LoginEndpoint, nil), form, &lr); err != nil {
		return nil, err
	}

	if lr.TwoFactorRequired && lr.TwoFactorInfo != nil {
		challenge := &models.TwoFactorChallenge{
			Username:   username,
			Identifier: lr.TwoFactorInfo.Identifier,
		}
		c.mu.Lock()
		c.challenge = challenge
		c.mu.Unlock()

		c.logger.InfoWithFields("two-factor challenge issued", map[string]interface{}{
			"username": username,
		})
		return nil, challenge
	}

	if !lr.Authenticated {
		if !lr.User {
			return nil, igerrors.New(igerrors.KindBadCredentials, "user %s does not exist", username)
		}
		return nil, igerrors.New(igerrors.KindBadCredentials, "wrong password for %s", username)
	}

	return c.establish(username, string(lr.UserID))
}

// TwoFactorLogin completes a pending challenge with code
func (c *Client) TwoFactorLogin(ctx context.Context, code string) (*models.Session, error) {
	c.mu.Lock()
	challenge := c.challenge
	c.mu.Unlock()
	if challenge == nil {
		return nil, igerrors.New(igerrors.KindBadCredentials, "no two-factor challenge pending")
	}

	form := url.Values{}
	form.Set("username", challenge.Username)
	form.Set("identifier", challenge.Identifier)
	form.Set("verificationCode", code)
	form.Set("queryParams", "{}")

	var lr loginResponse
	if err := c.postLogin(ctx, c.endpoint(TwoFactorEndpoint, nil), form, &lr); err != nil {
		return nil, err
	}
	if !lr.Authenticated {
		return nil, igerrors.New(igerrors.KindBadCredentials, "verification code rejected")
	}

	c.mu.Lock()
	c.challenge = nil
	c.mu.Unlock()
	return c.establish(challenge.Username, string(lr.UserID))
}

// postLogin decodes the login body even on 400, which is how the platform
// reports both bad passwords and two-factor challenges.
func (c *Client) postLogin(ctx context.Context, rawURL string, form url.Values, target *loginResponse) error {
	resp, err := c.postForm(ctx, rawURL, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return igerrors.Wrap(igerrors.KindConnection, err, "failed to read login response")
	}

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusBadRequest {
		if err := json.Unmarshal(body, target); err == nil {
			if resp.StatusCode == http.StatusOK || target.TwoFactorRequired {
				return nil
			}
			msg := target.Message
			if msg == "" {
				msg = "login rejected"
			}
			if (apiStatus{Message: msg}).isRateLimit() {
				return igerrors.New(igerrors.KindRateLimited, "%s", msg).WithCode(resp.StatusCode)
			}
			return igerrors.New(igerrors.KindBadCredentials, "%s", msg).WithCode(resp.StatusCode)
		}
	}

	if err := c.checkResponseStatus(resp, body); err != nil {
		return err
	}
	return c.decode(rawURL, resp.StatusCode, body, target)
}

func (c *Client) establish(username, userID string) (*models.Session, error) {
	s := &models.Session{
		Username:  username,
		UserID:    userID,
		SessionID: c.cookie("sessionid"),
		CSRFToken: c.cookie("csrftoken"),
		Cookies:   map[string]string{},
		SavedAt:   time.Now().UTC(),
	}
	for _, name := range sessionCookies {
		if v := c.cookie(name); v != "" {
			s.Cookies[name] = v
		}
	}
	if s.UserID == "" {
		s.UserID = s.Cookies["ds_user_id"]
	}
	if !s.Valid() {
		return nil, igerrors.New(igerrors.KindBadCredentials, "login response carried no session cookie")
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	c.logger.InfoWithFields("logged in", map[string]interface{}{
		"username": username,
	})
	return s, nil
}

// UseSession installs s as the active session
func (c *Client) UseSession(s *models.Session) error {
	if !s.Valid() {
		return igerrors.New(igerrors.KindSessionNotFound, "session for %s is incomplete", s.Username)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	cookies := []*http.Cookie{
		{Name: "sessionid", Value: s.SessionID, Path: "/"},
		{Name: "csrftoken", Value: s.CSRFToken, Path: "/"},
	}
	for name, value := range s.Cookies {
		if name == "sessionid" || name == "csrftoken" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	c.httpClient.Jar.SetCookies(u, cookies)

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	return nil
}

// Session returns the active session, or nil before login
func (c *Client) Session() *models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// LoadSession reads a session file written by SaveSession and activates it
func (c *Client) LoadSession(path string) (*models.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, igerrors.Wrap(igerrors.KindSessionNotFound, err, "session file %s", path)
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, igerrors.Wrap(igerrors.KindSessionNotFound, err, "session file %s is corrupt", path)
	}
	if err := c.UseSession(&s); err != nil {
		return nil, err
	}

	c.logger.DebugWithFields("session loaded", map[string]interface{}{
		"path":     path,
		"username": s.Username,
	})
	return &s, nil
}

// SaveSession writes the active session to path with owner-only permissions
func (c *Client) SaveSession(path string) error {
	s := c.Session()
	if s == nil {
		return igerrors.New(igerrors.KindSessionNotFound, "no active session to save")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
