package instagram

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/metadata"
	"igharvest/pkg/models"
	"igharvest/pkg/storage"
)

// DownloadItem writes every media file of item into dir, followed by its
// JSON sidecar, and returns the media paths in order. Files are named
// <prefix><timestamp>[_<n>]<ext>; n is only added for multi-file items.
func (c *Client) DownloadItem(ctx context.Context, item models.Item, dir, prefix string) ([]string, error) {
	if len(item.Media) == 0 {
		return nil, igerrors.New(igerrors.KindUnknown, "item %s has no media", item.ID)
	}
	if err := storage.EnsureDir(dir); err != nil {
		return nil, err
	}

	stem := filepath.Join(dir, prefix+storage.Stem(item.TakenAt))
	paths := make([]string, 0, len(item.Media))
	for i, m := range item.Media {
		name := stem
		if len(item.Media) > 1 {
			name = fmt.Sprintf("%s_%d", stem, i+1)
		}
		target := name + mediaExt(m)

		if err := c.fetchTo(ctx, m.URL, target); err != nil {
			return paths, err
		}
		paths = append(paths, target)
	}

	if _, err := metadata.FromItem(item, paths).Save(stem); err != nil {
		c.logger.WarnWithFields("failed to write metadata", map[string]interface{}{
			"item_id": item.ID,
			"error":   err.Error(),
		})
	}

	c.logger.DebugWithFields("item downloaded", map[string]interface{}{
		"item_id": item.ID,
		"kind":    string(item.Kind),
		"files":   len(paths),
	})
	return paths, nil
}

// DownloadProfilePic writes the profile picture as <userid>_<unix>.jpg.
// Callers that need the written path diff the directory.
func (c *Client) DownloadProfilePic(ctx context.Context, profile models.Profile, dir string) error {
	if profile.ProfilePicURL == "" {
		return igerrors.New(igerrors.KindNotFound, "%s has no profile picture", profile.Username)
	}
	if err := storage.EnsureDir(dir); err != nil {
		return err
	}
	name := fmt.Sprintf("%s_%s%s", profile.ID, unixString(time.Now()), mediaExt(models.Media{URL: profile.ProfilePicURL}))
	return c.fetchTo(ctx, profile.ProfilePicURL, filepath.Join(dir, name))
}

func (c *Client) fetchTo(ctx context.Context, rawURL, target string) error {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		c.logger.ErrorWithFields("failed to download media", map[string]interface{}{
			"url":   rawURL,
			"error": err.Error(),
		})
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp, nil); err != nil {
		return err
	}

	n, err := c.files.Save(resp.Body, target)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return igerrors.Wrap(igerrors.KindConnection, err, "failed to save %s", filepath.Base(target))
	}

	c.logger.DebugWithFields("media saved", map[string]interface{}{
		"path": target,
		"size": n,
	})
	return nil
}

func mediaExt(m models.Media) string {
	if u, err := url.Parse(m.URL); err == nil {
		ext := strings.ToLower(path.Ext(u.Path))
		if storage.IsMedia(ext) {
			return ext
		}
	}
	if m.IsVideo {
		return ".mp4"
	}
	return ".jpg"
}
