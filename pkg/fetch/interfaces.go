package fetch

import (
	"context"
	"iter"

	"igharvest/pkg/models"
)

// Platform defines the content operations the fetchers need from the
// Instagram client
type Platform interface {
	FetchProfile(ctx context.Context, username string) (*models.Profile, error)
	ListPosts(ctx context.Context, profile models.Profile) iter.Seq2[models.Item, error]
	ListStories(ctx context.Context, userIDs []string) iter.Seq2[models.Item, error]
	ListHighlights(ctx context.Context, profile models.Profile) ([]models.Highlight, error)
	HighlightItems(ctx context.Context, h models.Highlight) iter.Seq2[models.Item, error]
	ListSavedPosts(ctx context.Context) iter.Seq2[models.Item, error]
	MediaByShortcode(ctx context.Context, shortcode string) (models.Item, error)
	StoryItem(ctx context.Context, owner, storyID string) (models.Item, error)
	DownloadItem(ctx context.Context, item models.Item, dir, prefix string) ([]string, error)
	DownloadProfilePic(ctx context.Context, profile models.Profile, dir string) error
}
