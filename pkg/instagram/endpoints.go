package instagram

import (
	"fmt"
	"math/big"
	"net/url"
	"strings"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// AppID identifies the web client to the API
	AppID = "936619743392459"

	ProfileEndpoint        = "/api/v1/users/web_profile_info/"
	LoginEndpoint          = "/api/v1/web/accounts/login/ajax/"
	TwoFactorEndpoint      = "/api/v1/web/accounts/login/ajax/two_factor/"
	ReelsMediaEndpoint     = "/api/v1/feed/reels_media/"
	SavedEndpoint          = "/api/v1/feed/saved/posts/"
	userFeedEndpoint       = "/api/v1/feed/user/%s/"
	highlightsTrayEndpoint = "/api/v1/highlights/%s/highlights_tray/"
	mediaInfoEndpoint      = "/api/v1/media/%s/info/"

	// DefaultPageSize is the number of feed items requested per page
	DefaultPageSize = 12

	// MaxPageSize is the largest page the feed endpoints accept
	MaxPageSize = 50
)

const shortcodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// ProfileQuery builds the query for the profile endpoint
func ProfileQuery(username string) url.Values {
	params := url.Values{}
	params.Set("username", username)
	return params
}

// UserFeedPath returns the path of a user's post feed
func UserFeedPath(userID string) string {
	return fmt.Sprintf(userFeedEndpoint, url.PathEscape(userID))
}

// HighlightsTrayPath returns the path listing a user's highlights
func HighlightsTrayPath(userID string) string {
	return fmt.Sprintf(highlightsTrayEndpoint, url.PathEscape(userID))
}

// MediaInfoPath returns the path of a single media lookup
func MediaInfoPath(mediaID string) string {
	return fmt.Sprintf(mediaInfoEndpoint, url.PathEscape(mediaID))
}

// FeedQuery builds pagination parameters, clamping count to the allowed range
func FeedQuery(count int, maxID string) url.Values {
	if count <= 0 {
		count = DefaultPageSize
	} else if count > MaxPageSize {
		count = MaxPageSize
	}

	params := url.Values{}
	params.Set("count", fmt.Sprint(count))
	if maxID != "" {
		params.Set("max_id", maxID)
	}
	return params
}

// ShortcodeToID converts a post shortcode into its numeric media id
func ShortcodeToID(shortcode string) (string, error) {
	if shortcode == "" {
		return "", fmt.Errorf("empty shortcode")
	}
	id := new(big.Int)
	base := big.NewInt(64)
	for _, r := range shortcode {
		idx := strings.IndexRune(shortcodeAlphabet, r)
		if idx < 0 {
			return "", fmt.Errorf("invalid shortcode character %q", r)
		}
		id.Mul(id, base)
		id.Add(id, big.NewInt(int64(idx)))
	}
	return id.String(), nil
}

// IDToShortcode is the inverse of ShortcodeToID
func IDToShortcode(mediaID string) (string, error) {
	// media ids are sometimes suffixed with _<owner id>
	if i := strings.IndexByte(mediaID, '_'); i >= 0 {
		mediaID = mediaID[:i]
	}
	id, ok := new(big.Int).SetString(mediaID, 10)
	if !ok {
		return "", fmt.Errorf("invalid media id %q", mediaID)
	}
	if id.Sign() == 0 {
		return string(shortcodeAlphabet[0]), nil
	}

	base := big.NewInt(64)
	mod := new(big.Int)
	var out []byte
	for id.Sign() > 0 {
		id.DivMod(id, base, mod)
		out = append(out, shortcodeAlphabet[mod.Int64()])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}

// GetPostURL constructs the URL for a specific post
func GetPostURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/p/%s/", BaseURL, shortcode)
}

// GetUserProfileURL constructs the public profile URL for a user
func GetUserProfileURL(username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/", BaseURL, username)
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	// letters, numbers, periods and underscores only
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername strips a leading @ and trailing slashes or spaces
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	return strings.TrimRight(username, "/ ")
}
