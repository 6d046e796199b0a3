package instagram

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"igharvest/pkg/models"
)

// flexID accepts ids encoded either as JSON strings or numbers
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	if string(b) == "null" {
		return nil
	}
	*f = flexID(b)
	return nil
}

type apiStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Spam    bool   `json:"spam"`
}

func (a apiStatus) isRateLimit() bool {
	msg := strings.ToLower(a.Message)
	return a.Spam || strings.Contains(msg, "wait a few minutes") || strings.Contains(msg, "rate limit")
}

// ProfileResponse is the top-level response of the profile endpoint
type ProfileResponse struct {
	RequiresToLogin bool   `json:"requires_to_login"`
	Data            struct {
		User *User `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

// User represents an Instagram user profile
type User struct {
	ID                       string `json:"id"`
	Username                 string `json:"username"`
	FullName                 string `json:"full_name"`
	IsPrivate                bool   `json:"is_private"`
	FollowedByViewer         bool   `json:"followed_by_viewer"`
	ProfilePicURL            string `json:"profile_pic_url"`
	ProfilePicURLHD          string `json:"profile_pic_url_hd"`
	EdgeOwnerToTimelineMedia struct {
		Count int `json:"count"`
	} `json:"edge_owner_to_timeline_media"`
}

func (u *User) toProfile() models.Profile {
	pic := u.ProfilePicURLHD
	if pic == "" {
		pic = u.ProfilePicURL
	}
	return models.Profile{
		ID:            u.ID,
		Username:      u.Username,
		FullName:      u.FullName,
		MediaCount:    u.EdgeOwnerToTimelineMedia.Count,
		IsPrivate:     u.IsPrivate,
		FollowedByMe:  u.FollowedByViewer,
		ProfilePicURL: pic,
	}
}

type userRef struct {
	PK       flexID `json:"pk"`
	Username string `json:"username"`
}

type candidate struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// mediaItem is the shape shared by feed, story, saved and info responses
type mediaItem struct {
	ID             flexID  `json:"id"`
	PK             flexID  `json:"pk"`
	Code           string  `json:"code"`
	MediaType      int     `json:"media_type"`
	ProductType    string  `json:"product_type"`
	TakenAt        int64   `json:"taken_at"`
	User           userRef `json:"user"`
	Caption        *struct {
		Text string `json:"text"`
	} `json:"caption"`
	ImageVersions2 struct {
		Candidates []candidate `json:"candidates"`
	} `json:"image_versions2"`
	VideoVersions []candidate   `json:"video_versions"`
	CarouselMedia []mediaItem   `json:"carousel_media"`
}

const (
	mediaTypeImage    = 1
	mediaTypeVideo    = 2
	mediaTypeCarousel = 8
)

func (m mediaItem) media() []models.Media {
	if m.MediaType == mediaTypeCarousel || len(m.CarouselMedia) > 0 {
		var out []models.Media
		for _, child := range m.CarouselMedia {
			out = append(out, child.media()...)
		}
		return out
	}

	if m.MediaType == mediaTypeVideo && len(m.VideoVersions) > 0 {
		v := m.VideoVersions[0]
		return []models.Media{{URL: v.URL, IsVideo: true, Width: v.Width, Height: v.Height}}
	}
	if len(m.ImageVersions2.Candidates) > 0 {
		c := m.ImageVersions2.Candidates[0]
		return []models.Media{{URL: c.URL, Width: c.Width, Height: c.Height}}
	}
	return nil
}

// toItem converts a wire item; kind overrides the post/reel guess when set.
func (m mediaItem) toItem(kind models.ItemKind) models.Item {
	if kind == "" {
		kind = models.KindPost
		if m.ProductType == "clips" {
			kind = models.KindReel
		}
	}
	id := string(m.PK)
	if id == "" {
		id = string(m.ID)
	}
	item := models.Item{
		ID:        id,
		Shortcode: m.Code,
		Kind:      kind,
		OwnerID:   string(m.User.PK),
		Owner:     m.User.Username,
		TakenAt:   time.Unix(m.TakenAt, 0).UTC(),
		Media:     m.media(),
	}
	if m.Caption != nil {
		item.Caption = m.Caption.Text
	}
	return item
}

type feedResponse struct {
	Items         []mediaItem `json:"items"`
	MoreAvailable bool        `json:"more_available"`
	NextMaxID     flexID      `json:"next_max_id"`
	Status        string      `json:"status"`
}

type savedResponse struct {
	Items []struct {
		Media mediaItem `json:"media"`
	} `json:"items"`
	MoreAvailable bool   `json:"more_available"`
	NextMaxID     flexID `json:"next_max_id"`
}

type reel struct {
	ID    flexID      `json:"id"`
	User  userRef     `json:"user"`
	Title string      `json:"title"`
	Items []mediaItem `json:"items"`
}

type reelsMediaResponse struct {
	Reels  map[string]reel `json:"reels"`
	Status string          `json:"status"`
}

type highlightsTrayResponse struct {
	Tray []struct {
		ID    flexID  `json:"id"`
		Title string  `json:"title"`
		User  userRef `json:"user"`
	} `json:"tray"`
}

type loginResponse struct {
	Authenticated     bool   `json:"authenticated"`
	User              bool   `json:"user"`
	UserID            flexID `json:"userId"`
	TwoFactorRequired bool   `json:"two_factor_required"`
	TwoFactorInfo     *struct {
		Identifier string `json:"two_factor_identifier"`
		Username   string `json:"username"`
	} `json:"two_factor_info"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func unixString(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
