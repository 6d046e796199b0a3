package instagram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/logger"
	"igharvest/pkg/models"
	"igharvest/pkg/ratelimit"
	"igharvest/pkg/storage"
)

// DefaultUserAgent is sent when Options.UserAgent is empty
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Options configures a Client
type Options struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerMinute int
	// BaseURL overrides the platform host, used by tests
	BaseURL string
}

// Client talks to the Instagram web API. It is safe for use by one job at a
// time; the session state is guarded but requests are not reordered.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	limiter    ratelimit.Limiter
	files      *storage.Manager
	logger     logger.Logger

	mu        sync.Mutex
	session   *models.Session
	challenge *models.TwoFactorChallenge
}

// NewClient creates a new Instagram API client
func NewClient(opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 30
	}

	jar, _ := cookiejar.New(nil)

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Jar:     jar,
		},
		headers: map[string]string{
			"User-Agent":       opts.UserAgent,
			"Accept":           "*/*",
			"Accept-Language":  "en-US,en;q=0.9",
			"X-IG-App-ID":      AppID,
			"X-Requested-With": "XMLHttpRequest",
		},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		limiter: ratelimit.PerMinute(opts.RequestsPerMinute),
		files:   storage.NewManager(),
		logger:  log.WithField("component", "instagram"),
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Files returns the storage manager the client writes through, so callers
// share its directory cache for skip-existing checks.
func (c *Client) Files() *storage.Manager {
	return c.files
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// doRequest paces and performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if token := c.cookie("csrftoken"); token != "" {
		req.Header.Set("X-CSRFToken", token)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, igerrors.Wrap(igerrors.KindConnection, err, "network error")
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, igerrors.Wrap(igerrors.KindUnknown, err, "failed to create request")
	}
	return c.doRequest(req)
}

func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, igerrors.Wrap(igerrors.KindUnknown, err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.doRequest(req)
}

// getJSON performs a GET request and decodes the JSON response
func (c *Client) getJSON(ctx context.Context, rawURL string, target interface{}) error {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return igerrors.Wrap(igerrors.KindConnection, err, "failed to read response body").WithCode(resp.StatusCode)
	}

	if err := c.checkResponseStatus(resp, body); err != nil {
		return err
	}

	return c.decode(rawURL, resp.StatusCode, body, target)
}

func (c *Client) decode(rawURL string, status int, body []byte, target interface{}) error {
	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          rawURL,
			"status":       status,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return igerrors.Wrap(igerrors.KindUnknown, err, "failed to parse JSON").WithCode(status)
	}
	return nil
}

// checkResponseStatus maps an HTTP status onto a fetch error kind. A 400
// carrying a "please wait" message is the platform's soft rate limit.
func (c *Client) checkResponseStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var apiErr apiStatus
	_ = json.Unmarshal(body, &apiErr)

	kind := igerrors.FromStatusCode(resp.StatusCode)
	msg := apiErr.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	if resp.StatusCode == http.StatusBadRequest && apiErr.isRateLimit() {
		kind = igerrors.KindRateLimited
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
		"kind":   string(kind),
	}
	switch kind {
	case igerrors.KindRateLimited:
		c.logger.WarnWithFields("rate limit exceeded", fields)
	case igerrors.KindNotFound, igerrors.KindPrivateOrUnauthorized:
		c.logger.WarnWithFields("request rejected", fields)
	default:
		c.logger.ErrorWithFields("unexpected API error", fields)
	}

	return igerrors.New(kind, "%s", msg).WithCode(resp.StatusCode)
}

func (c *Client) cookie(name string) string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.httpClient.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}
