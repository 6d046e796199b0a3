// Package models holds the platform-neutral content types passed between
// the Instagram client, the fetchers and the job.
package models

import "time"

// ItemKind identifies where an item came from
type ItemKind string

const (
	KindPost      ItemKind = "post"
	KindReel      ItemKind = "reel"
	KindStory     ItemKind = "story"
	KindHighlight ItemKind = "highlight"
)

// Profile is an account as seen by the platform
type Profile struct {
	ID            string
	Username      string
	FullName      string
	MediaCount    int
	IsPrivate     bool
	FollowedByMe  bool
	ProfilePicURL string
}

// Media is a single file belonging to an item (carousels have several)
type Media struct {
	URL     string
	IsVideo bool
	Width   int
	Height  int
}

// Item is a single downloadable unit: a post, reel, story entry or highlight entry
type Item struct {
	ID        string
	Shortcode string
	Kind      ItemKind
	OwnerID   string
	Owner     string
	TakenAt   time.Time
	Caption   string
	Media     []Media
}

// Highlight is a named collection of archived stories
type Highlight struct {
	ID    string
	Title string
	Owner string
}

// Session carries the authenticated cookie state
type Session struct {
	Username  string            `json:"username"`
	UserID    string            `json:"user_id"`
	SessionID string            `json:"sessionid"`
	CSRFToken string            `json:"csrftoken"`
	Cookies   map[string]string `json:"cookies,omitempty"`
	SavedAt   time.Time         `json:"saved_at"`
}

// Valid reports whether the session carries the cookies needed for requests
func (s *Session) Valid() bool {
	return s != nil && s.SessionID != "" && s.CSRFToken != ""
}

// TwoFactorChallenge is returned as an error by a login that needs a
// verification code before a session is issued.
type TwoFactorChallenge struct {
	Username   string
	Identifier string
}

func (c *TwoFactorChallenge) Error() string {
	return "two-factor authentication required for " + c.Username
}
