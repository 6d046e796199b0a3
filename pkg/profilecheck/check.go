// Package profilecheck answers whether profile names exist, independently
// of any running download.
package profilecheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/instagram"
	"igharvest/pkg/logger"
	"igharvest/pkg/models"
)

// DefaultConcurrency bounds CheckAll when no limit is given
const DefaultConcurrency = 4

// Fetcher looks up a profile by name
type Fetcher interface {
	FetchProfile(ctx context.Context, username string) (*models.Profile, error)
}

// Result is the outcome of one check. Message holds the full name when the
// profile exists and a short reason when it does not.
type Result struct {
	Username string
	Exists   bool
	Message  string
	Err      error
}

// Check looks up one profile. It never returns an error; failures are
// described in the result.
func Check(ctx context.Context, f Fetcher, username string, log logger.Logger) Result {
	if log == nil {
		log = logger.NewNopLogger()
	}
	name := instagram.SanitizeUsername(username)
	log = log.WithField("username", name)
	log.Info("Checking profile name")

	if !instagram.IsValidUsername(name) {
		return Result{Username: name, Message: "Profile doesn't exist",
			Err: igerrors.New(igerrors.KindNotFound, "invalid profile name %q", username)}
	}

	profile, err := f.FetchProfile(ctx, name)
	if err != nil {
		log.WithError(err).Error("profile check failed")
		return Result{Username: name, Message: reason(err), Err: err}
	}

	fullName := profile.FullName
	if fullName == "" {
		fullName = "No name provided"
	}
	log.Info(fmt.Sprintf("Profile found: %s (%s)", name, fullName))
	return Result{Username: name, Exists: true, Message: fullName}
}

// Start runs Check on its own goroutine. The channel yields exactly one
// result and is then closed.
func Start(ctx context.Context, f Fetcher, username string, log logger.Logger) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		out <- Check(ctx, f, username, log)
	}()
	return out
}

// CheckAll checks every name with at most concurrency lookups in flight.
// Results keep the input order. Only cancellation is returned as an error.
func CheckAll(ctx context.Context, f Fetcher, usernames []string, concurrency int, log logger.Logger) ([]Result, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	results := make([]Result, len(usernames))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, name := range usernames {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Check(ctx, f, name, log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func reason(err error) string {
	switch igerrors.KindOf(err) {
	case igerrors.KindNotFound:
		var e *igerrors.Error
		if errors.As(err, &e) && e.Code == http.StatusNotFound {
			return "Profile not found"
		}
		return "Profile doesn't exist"
	case igerrors.KindConnection, igerrors.KindRateLimited:
		return "Connection error"
	case igerrors.KindPrivateOrUnauthorized:
		return "Login required to check"
	}
	msg := err.Error()
	var e *igerrors.Error
	if errors.As(err, &e) {
		msg = e.Message
	}
	if r := []rune(msg); len(r) > 30 {
		msg = string(r[:30])
	}
	return "Error: " + msg
}
