// Package fetch enumerates and downloads the content categories of a job:
// posts, stories, highlights, saved posts, single items and the profile
// picture.
//
// Every fetcher walks a lazy item sequence from the platform client, applies
// the date window and count limit, checks the target directory for an
// existing file with the item's timestamp stem, and downloads the rest with
// retry. Between items it waits on the job's pause gate, sleeps the
// anti-detection delay drawn from the ratelimit.Scheduler and stops as soon
// as the job context is cancelled.
//
// Layout under the job root:
//
//	<root>/profile_pic/<userid>_<unix>.jpg
//	<root>/posts/<stem>[_n].<ext>
//	<root>/stories/<stem>[_n].<ext>
//	<root>/highlights/<title>/<stem>[_n].<ext>
//
// Saved posts go to <root>/<owner>/ (per-owner layout) or to <root> with
// <owner>_ prepended to each filename (flat layout).
package fetch
