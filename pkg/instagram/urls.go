package instagram

import (
	"regexp"
	"strings"

	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/models"
)

var (
	postPattern      = regexp.MustCompile(`instagram\.com/(?:([^/?#]+)/)?p/([\w-]+)`)
	reelPattern      = regexp.MustCompile(`instagram\.com/(?:([^/?#]+)/)?reels?/([\w-]+)`)
	highlightPattern = regexp.MustCompile(`instagram\.com/(?:([^/?#]+)/)?stories/highlights/([\w-]+)`)
	storyPattern     = regexp.MustCompile(`instagram\.com/stories/([^/?#]+)/([\w-]+)`)

	validURL = regexp.MustCompile(`^https?://(www\.)?instagram\.com/((([^/]+/)?(p|reels?)/[\w-]+)|(stories/[^/]+/[\w-]+)|(([^/]+/)?stories/highlights/[\w-]+))`)
)

// Target is a parsed single-item URL
type Target struct {
	Kind models.ItemKind
	// Owner is empty when the URL does not name one
	Owner string
	// Code is the shortcode for posts and reels, the media id for stories
	// and the highlight id for highlights
	Code string
}

// ParseItemURL classifies a post, reel, story or highlight URL.
// Highlights are matched before stories since both live under /stories/.
func ParseItemURL(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)

	if m := highlightPattern.FindStringSubmatch(raw); m != nil {
		return Target{Kind: models.KindHighlight, Owner: m[1], Code: m[2]}, nil
	}
	if m := storyPattern.FindStringSubmatch(raw); m != nil {
		return Target{Kind: models.KindStory, Owner: m[1], Code: m[2]}, nil
	}
	if m := reelPattern.FindStringSubmatch(raw); m != nil {
		return Target{Kind: models.KindReel, Owner: m[1], Code: m[2]}, nil
	}
	if m := postPattern.FindStringSubmatch(raw); m != nil {
		return Target{Kind: models.KindPost, Owner: m[1], Code: m[2]}, nil
	}
	return Target{}, igerrors.New(igerrors.KindInvalidURL, "unsupported instagram URL: %s", raw)
}

// ValidateURL checks that raw is an absolute Instagram URL of a supported shape
func ValidateURL(raw string) error {
	if !validURL.MatchString(strings.TrimSpace(raw)) {
		return igerrors.New(igerrors.KindInvalidURL, "not a post, reel, story or highlight URL: %s", raw)
	}
	_, err := ParseItemURL(raw)
	return err
}
