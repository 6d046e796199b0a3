package fetch

import (
	"context"
	"path/filepath"

	"igharvest/pkg/models"
	"igharvest/pkg/retry"
	"igharvest/pkg/storage"
)

// ProfilePicture downloads the profile picture into <root>/profile_pic
// unless a <userid>_* file is already there. The written file is found by
// diffing the directory, which the job owns for the duration of the call.
func (f *Fetcher) ProfilePicture(ctx context.Context, profile models.Profile, root string) error {
	dir := filepath.Join(root, "profile_pic")

	if f.opts.SkipExisting && storage.HasProfilePic(dir, profile.ID) {
		for _, path := range f.files.Matching(dir, profile.ID+"_") {
			if storage.IsMedia(path) {
				f.emit.FileDownloaded(path)
			}
		}
		f.emit.Infof("Skipping existing profile picture")
		return nil
	}

	if err := storage.EnsureDir(dir); err != nil {
		return err
	}
	before := storage.Snapshot(dir)

	err := retry.Do(ctx, func(ctx context.Context) error {
		return f.platform.DownloadProfilePic(ctx, profile, dir)
	}, f.retryConfig())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	for _, path := range storage.NewFiles(dir, before) {
		if storage.IsMedia(path) {
			f.emit.FileDownloaded(path)
		}
	}
	f.emit.Infof("Successfully downloaded profile picture")
	return nil
}
