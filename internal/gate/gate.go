// Package gate protects the crawler's query surface: a TTL response cache
// and a fixed-window per-client request counter. Both operations fail open
// on backend errors; availability wins over strict enforcement.
package gate

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrMiss is returned by a Backend when a key does not exist.
var ErrMiss = errors.New("gate: miss")

// Backend is the key-value surface the gate needs. The production
// implementation is Redis; tests inject fakes.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Config tunes the gate.
type Config struct {
	RateLimit  int           // requests allowed per window per client
	RateWindow time.Duration // fixed window length
	CacheTTL   time.Duration // response cache entry lifetime
}

// Gate combines the response cache and the rate counter.
type Gate struct {
	backend Backend
	cfg     Config
	logger  *zap.Logger
}

// New builds a Gate. Zero config fields get conservative defaults
// (3 requests per 24h, 1h cache).
func New(backend Backend, cfg Config, logger *zap.Logger) *Gate {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 3
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = 24 * time.Hour
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{backend: backend, cfg: cfg, logger: logger}
}

// GetCached returns a cached response body. Backend errors degrade to a
// cache miss.
func (g *Gate) GetCached(ctx context.Context, key string) (string, bool) {
	value, err := g.backend.Get(ctx, "cache:"+key)
	if errors.Is(err, ErrMiss) {
		return "", false
	}
	if err != nil {
		g.logger.Warn("cache read failed, treating as miss", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return value, true
}

// SetCached stores a response body with the configured TTL, best effort.
func (g *Gate) SetCached(ctx context.Context, key, value string) {
	if err := g.backend.Set(ctx, "cache:"+key, value, g.cfg.CacheTTL); err != nil {
		g.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Allow applies the fixed-window counter for the client. Backend errors
// allow the request.
func (g *Gate) Allow(ctx context.Context, clientID string) bool {
	key := "rate:" + clientID
	count, err := g.backend.Incr(ctx, key)
	if err != nil {
		g.logger.Warn("rate counter unavailable, allowing request",
			zap.String("client", clientID),
			zap.Error(err),
		)
		return true
	}
	if count == 1 {
		if err := g.backend.Expire(ctx, key, g.cfg.RateWindow); err != nil {
			g.logger.Warn("rate window expire failed", zap.String("client", clientID), zap.Error(err))
		}
	}
	return count <= int64(g.cfg.RateLimit)
}

// ClientIdentity derives the rate key from a request: the first entry of
// X-Forwarded-For when present, else the connection address host.
func ClientIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
