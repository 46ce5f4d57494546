// Package throttle enforces a minimum interval between requests to the
// same domain, backed by persisted last-request timestamps. It fails open:
// unreadable state never blocks a request, and a concurrently overwritten
// record costs at worst one extra request, which is an accepted race.
package throttle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

// DefaultInterval is the minimum gap between visits to one domain.
const DefaultInterval = 12 * time.Hour

// Throttle gates outbound requests per domain.
type Throttle struct {
	store    aggregator.ThrottleStore
	clock    aggregator.Clock
	interval time.Duration
	logger   *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds a Throttle over the given key-value store. A zero interval
// uses DefaultInterval.
func New(store aggregator.ThrottleStore, clock aggregator.Clock, interval time.Duration, logger *zap.Logger) *Throttle {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Throttle{
		store:    store,
		clock:    clock,
		interval: interval,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// CanMakeRequest reports whether the domain is outside its throttle
// window. Store errors log and allow the request.
func (t *Throttle) CanMakeRequest(ctx context.Context, domain string) bool {
	lock := t.domainLock(domain)
	lock.Lock()
	defer lock.Unlock()

	last, ok, err := t.store.LastRequest(ctx, domain)
	if err != nil {
		t.logger.Warn("throttle state unreadable, allowing request",
			zap.String("domain", domain),
			zap.Error(err),
		)
		return true
	}
	if !ok {
		return true
	}
	return t.clock.Now().Sub(last) >= t.interval
}

// RecordRequest persists the request timestamp for the domain. A failed
// write is logged and tolerated: the next run simply sees a stale record.
func (t *Throttle) RecordRequest(ctx context.Context, domain string) {
	lock := t.domainLock(domain)
	lock.Lock()
	defer lock.Unlock()

	if err := t.store.SetLastRequest(ctx, domain, t.clock.Now()); err != nil {
		t.logger.Warn("throttle record write failed",
			zap.String("domain", domain),
			zap.Error(err),
		)
	}
}

func (t *Throttle) domainLock(domain string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.locks[domain]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[domain] = lock
	}
	return lock
}
