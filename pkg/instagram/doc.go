// Package instagram provides a client for Instagram's web API.
//
// The Client covers everything a download job needs from the platform:
// credential login with the two-factor follow-up, session files, profile
// lookups, lazily paged feeds (posts, stories, highlights, saved posts),
// single media lookups and media downloads with JSON sidecars.
//
// Every request is paced by a token bucket and every failure is classified
// with the kinds from igharvest/pkg/errors, so callers decide on retries by
// kind rather than by status code:
//
//	client := instagram.NewClient(instagram.Options{RequestsPerMinute: 30}, log)
//	profile, err := client.FetchProfile(ctx, "username")
//	if igerrors.HasKind(err, igerrors.KindNotFound) {
//	    // profile does not exist
//	}
//	for item, err := range client.ListPosts(ctx, *profile) {
//	    if err != nil {
//	        break
//	    }
//	    paths, err := client.DownloadItem(ctx, item, dir, "")
//	}
//
// ParseItemURL classifies post, reel, story and highlight URLs for
// single-item downloads.
package instagram
