package throttle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeThrottleStore struct {
	mu      sync.Mutex
	records map[string]time.Time
	readErr error
	saveErr error
}

func newFakeThrottleStore() *fakeThrottleStore {
	return &fakeThrottleStore{records: make(map[string]time.Time)}
}

func (s *fakeThrottleStore) LastRequest(_ context.Context, domain string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return time.Time{}, false, s.readErr
	}
	at, ok := s.records[domain]
	return at, ok, nil
}

func (s *fakeThrottleStore) SetLastRequest(_ context.Context, domain string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.records[domain] = at
	return nil
}

func TestThrottle_WindowLifecycle(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := newFakeThrottleStore()
	th := New(store, clock, 12*time.Hour, zap.NewNop())
	ctx := context.Background()

	require.True(t, th.CanMakeRequest(ctx, "example.com"))

	th.RecordRequest(ctx, "example.com")
	require.False(t, th.CanMakeRequest(ctx, "example.com"))

	clock.Advance(11 * time.Hour)
	require.False(t, th.CanMakeRequest(ctx, "example.com"))

	clock.Advance(time.Hour)
	require.True(t, th.CanMakeRequest(ctx, "example.com"))
}

func TestThrottle_DomainsAreIndependent(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	th := New(newFakeThrottleStore(), clock, 12*time.Hour, zap.NewNop())
	ctx := context.Background()

	th.RecordRequest(ctx, "a.com")
	require.False(t, th.CanMakeRequest(ctx, "a.com"))
	require.True(t, th.CanMakeRequest(ctx, "b.com"))
}

func TestThrottle_FailsOpenOnUnreadableState(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := newFakeThrottleStore()
	store.readErr = errors.New("state corrupt")
	th := New(store, clock, 12*time.Hour, zap.NewNop())

	require.True(t, th.CanMakeRequest(context.Background(), "example.com"))
}

func TestThrottle_RecordFailureTolerated(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := newFakeThrottleStore()
	store.saveErr = errors.New("disk full")
	th := New(store, clock, 12*time.Hour, zap.NewNop())
	ctx := context.Background()

	th.RecordRequest(ctx, "example.com")
	// The lost record means the domain still looks open.
	require.True(t, th.CanMakeRequest(ctx, "example.com"))
}
