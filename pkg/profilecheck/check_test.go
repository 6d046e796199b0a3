package profilecheck

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/models"
)

type fakeFetcher struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
	errs     map[string]error
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    []string
}

func (f *fakeFetcher) FetchProfile(ctx context.Context, username string) (*models.Profile, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, username)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.errs[username]; ok {
		return nil, err
	}
	if p, ok := f.profiles[username]; ok {
		return p, nil
	}
	return nil, igerrors.New(igerrors.KindNotFound, "profile %s does not exist", username)
}

func TestCheck(t *testing.T) {
	f := &fakeFetcher{
		profiles: map[string]*models.Profile{
			"alice": {Username: "alice", FullName: "Alice Liddell"},
			"bob":   {Username: "bob"},
		},
		errs: map[string]error{
			"gone":    igerrors.New(igerrors.KindNotFound, "Not Found").WithCode(404),
			"flaky":   igerrors.New(igerrors.KindConnection, "connection reset"),
			"limited": igerrors.New(igerrors.KindRateLimited, "please wait"),
			"locked":  igerrors.New(igerrors.KindPrivateOrUnauthorized, "login required to view locked"),
			"weird":   errors.New("unexpected end of JSON input while decoding"),
		},
	}

	tests := []struct {
		name    string
		input   string
		exists  bool
		message string
	}{
		{"with full name", "alice", true, "Alice Liddell"},
		{"without full name", "@bob", true, "No name provided"},
		{"missing user", "carol", false, "Profile doesn't exist"},
		{"http not found", "gone", false, "Profile not found"},
		{"connection", "flaky", false, "Connection error"},
		{"rate limited", "limited", false, "Connection error"},
		{"login required", "locked", false, "Login required to check"},
		{"other error", "weird", false, "Error: unexpected end of JSON input w"},
		{"invalid name", "not a name!", false, "Profile doesn't exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Check(context.Background(), f, tt.input, nil)
			assert.Equal(t, tt.exists, res.Exists)
			assert.Equal(t, tt.message, res.Message)
			if tt.exists {
				assert.NoError(t, res.Err)
			} else {
				assert.Error(t, res.Err)
			}
		})
	}
}

func TestCheckTruncatesMessage(t *testing.T) {
	f := &fakeFetcher{errs: map[string]error{
		"x": igerrors.New(igerrors.KindUnknown, "the server returned something nobody expected"),
	}}
	res := Check(context.Background(), f, "x", nil)
	assert.Equal(t, "Error: the server returned something ", res.Message)
	assert.Len(t, []rune(res.Message), len("Error: ")+30)
}

func TestStartYieldsOnce(t *testing.T) {
	f := &fakeFetcher{profiles: map[string]*models.Profile{"alice": {Username: "alice", FullName: "Alice"}}}
	ch := Start(context.Background(), f, "alice", nil)

	res, ok := <-ch
	require.True(t, ok)
	assert.True(t, res.Exists)
	_, ok = <-ch
	assert.False(t, ok)
}

func TestCheckAllKeepsOrderAndLimit(t *testing.T) {
	f := &fakeFetcher{
		delay: 10 * time.Millisecond,
		profiles: map[string]*models.Profile{
			"a": {Username: "a"}, "b": {Username: "b"}, "d": {Username: "d"}, "e": {Username: "e"},
		},
	}
	names := []string{"a", "b", "c", "d", "e"}
	results, err := CheckAll(context.Background(), f, names, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, len(names))
	for i, name := range names {
		assert.Equal(t, name, results[i].Username)
	}
	assert.False(t, results[2].Exists)
	assert.LessOrEqual(t, f.maxSeen.Load(), int32(2))
	assert.Len(t, f.calls, len(names))
}

func TestCheckAllCancelled(t *testing.T) {
	f := &fakeFetcher{delay: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CheckAll(ctx, f, []string{"a", "b", "c"}, 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
