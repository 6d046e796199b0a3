// Package retry runs a single download attempt up to three times.
//
// The back-off between attempts is supplied by the caller, normally
// ratelimit.Scheduler.RetryBackoff, and the wait itself by
// ratelimit.Sleeper.Sleep so that it stays interruptible:
//
//	err := retry.Do(ctx, download, retry.Config{
//		Backoff: scheduler.RetryBackoff,
//		Sleep:   sleeper.Sleep,
//		Logger:  log,
//	})
//	if retry.IsExhausted(err) {
//		// skip the item
//	}
//
// Errors whose kind the back-off function rejects are returned after the
// first attempt without waiting.
package retry
