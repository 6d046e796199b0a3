package instagram

import (
	"context"
	"iter"
	"net/url"
	"strings"

	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/models"
)

type pageFunc func(ctx context.Context, cursor string) (items []models.Item, next string, err error)

// paginate turns a cursor-paged endpoint into a lazy item sequence. It stops
// at the first error, which is yielded once, or when the consumer stops.
func paginate(ctx context.Context, fetch pageFunc) iter.Seq2[models.Item, error] {
	return func(yield func(models.Item, error) bool) {
		cursor := ""
		for {
			if err := ctx.Err(); err != nil {
				yield(models.Item{}, err)
				return
			}
			items, next, err := fetch(ctx, cursor)
			if err != nil {
				yield(models.Item{}, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
			if next == "" || next == cursor {
				return
			}
			cursor = next
		}
	}
}

// FetchProfile looks up a profile by username
func (c *Client) FetchProfile(ctx context.Context, username string) (*models.Profile, error) {
	username = SanitizeUsername(username)
	rawURL := c.endpoint(ProfileEndpoint, ProfileQuery(username))

	c.logger.DebugWithFields("fetching user profile", map[string]interface{}{
		"username": username,
	})

	var response ProfileResponse
	if err := c.getJSON(ctx, rawURL, &response); err != nil {
		c.logger.ErrorWithFields("failed to fetch user profile", map[string]interface{}{
			"username": username,
			"error":    err.Error(),
		})
		return nil, err
	}

	if response.RequiresToLogin {
		return nil, igerrors.New(igerrors.KindPrivateOrUnauthorized, "login required to view %s", username)
	}
	if response.Data.User == nil {
		return nil, igerrors.New(igerrors.KindNotFound, "profile %s does not exist", username)
	}

	profile := response.Data.User.toProfile()
	if profile.Username == "" {
		profile.Username = username
	}
	return &profile, nil
}

// ListPosts streams a profile's posts newest first
func (c *Client) ListPosts(ctx context.Context, profile models.Profile) iter.Seq2[models.Item, error] {
	return paginate(ctx, func(ctx context.Context, cursor string) ([]models.Item, string, error) {
		var page feedResponse
		if err := c.getJSON(ctx, c.endpoint(UserFeedPath(profile.ID), FeedQuery(DefaultPageSize, cursor)), &page); err != nil {
			return nil, "", err
		}

		items := make([]models.Item, 0, len(page.Items))
		for _, m := range page.Items {
			item := m.toItem("")
			if item.Owner == "" {
				item.Owner, item.OwnerID = profile.Username, profile.ID
			}
			items = append(items, item)
		}
		if !page.MoreAvailable {
			return items, "", nil
		}
		return items, string(page.NextMaxID), nil
	})
}

// ListStories streams the current stories of the given user ids
func (c *Client) ListStories(ctx context.Context, userIDs []string) iter.Seq2[models.Item, error] {
	return func(yield func(models.Item, error) bool) {
		reels, err := c.reelsMedia(ctx, userIDs)
		if err != nil {
			yield(models.Item{}, err)
			return
		}
		for _, id := range userIDs {
			r, ok := reels[id]
			if !ok {
				continue
			}
			for _, m := range r.Items {
				if !yield(reelItem(m, r, models.KindStory), nil) {
					return
				}
			}
		}
	}
}

// ListHighlights returns a profile's highlight reels
func (c *Client) ListHighlights(ctx context.Context, profile models.Profile) ([]models.Highlight, error) {
	var tray highlightsTrayResponse
	if err := c.getJSON(ctx, c.endpoint(HighlightsTrayPath(profile.ID), nil), &tray); err != nil {
		return nil, err
	}

	out := make([]models.Highlight, 0, len(tray.Tray))
	for _, h := range tray.Tray {
		owner := h.User.Username
		if owner == "" {
			owner = profile.Username
		}
		out = append(out, models.Highlight{
			ID:    strings.TrimPrefix(string(h.ID), "highlight:"),
			Title: h.Title,
			Owner: owner,
		})
	}
	return out, nil
}

// HighlightItems streams the entries of one highlight
func (c *Client) HighlightItems(ctx context.Context, h models.Highlight) iter.Seq2[models.Item, error] {
	return func(yield func(models.Item, error) bool) {
		reelID := "highlight:" + h.ID
		reels, err := c.reelsMedia(ctx, []string{reelID})
		if err != nil {
			yield(models.Item{}, err)
			return
		}
		r, ok := reels[reelID]
		if !ok {
			yield(models.Item{}, igerrors.New(igerrors.KindNotFound, "highlight %s not found", h.ID))
			return
		}
		if r.User.Username == "" {
			r.User.Username = h.Owner
		}
		for _, m := range r.Items {
			if !yield(reelItem(m, r, models.KindHighlight), nil) {
				return
			}
		}
	}
}

// ListSavedPosts streams the logged-in account's saved posts
func (c *Client) ListSavedPosts(ctx context.Context) iter.Seq2[models.Item, error] {
	return paginate(ctx, func(ctx context.Context, cursor string) ([]models.Item, string, error) {
		var page savedResponse
		if err := c.getJSON(ctx, c.endpoint(SavedEndpoint, FeedQuery(DefaultPageSize, cursor)), &page); err != nil {
			return nil, "", err
		}

		items := make([]models.Item, 0, len(page.Items))
		for _, entry := range page.Items {
			items = append(items, entry.Media.toItem(""))
		}
		if !page.MoreAvailable {
			return items, "", nil
		}
		return items, string(page.NextMaxID), nil
	})
}

// MediaByShortcode resolves a post or reel from its URL shortcode
func (c *Client) MediaByShortcode(ctx context.Context, shortcode string) (models.Item, error) {
	id, err := ShortcodeToID(shortcode)
	if err != nil {
		return models.Item{}, igerrors.Wrap(igerrors.KindNotFound, err, "shortcode %s", shortcode)
	}
	item, err := c.mediaInfo(ctx, id, "")
	if err == nil && item.Shortcode == "" {
		item.Shortcode = shortcode
	}
	return item, err
}

// StoryItem resolves a single story entry by its media id
func (c *Client) StoryItem(ctx context.Context, owner, storyID string) (models.Item, error) {
	item, err := c.mediaInfo(ctx, storyID, models.KindStory)
	if err == nil && item.Owner == "" {
		item.Owner = owner
	}
	return item, err
}

func (c *Client) mediaInfo(ctx context.Context, mediaID string, kind models.ItemKind) (models.Item, error) {
	var info feedResponse
	if err := c.getJSON(ctx, c.endpoint(MediaInfoPath(mediaID), nil), &info); err != nil {
		return models.Item{}, err
	}
	if len(info.Items) == 0 {
		return models.Item{}, igerrors.New(igerrors.KindNotFound, "media %s not found", mediaID)
	}
	return info.Items[0].toItem(kind), nil
}

func (c *Client) reelsMedia(ctx context.Context, reelIDs []string) (map[string]reel, error) {
	if len(reelIDs) == 0 {
		return nil, nil
	}
	query := url.Values{}
	for _, id := range reelIDs {
		query.Add("reel_ids", id)
	}

	var resp reelsMediaResponse
	if err := c.getJSON(ctx, c.endpoint(ReelsMediaEndpoint, query), &resp); err != nil {
		return nil, err
	}
	return resp.Reels, nil
}

func reelItem(m mediaItem, r reel, kind models.ItemKind) models.Item {
	item := m.toItem(kind)
	if item.Owner == "" {
		item.Owner = r.User.Username
	}
	if item.OwnerID == "" {
		item.OwnerID = string(r.User.PK)
	}
	return item
}
